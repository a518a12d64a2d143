package main

import (
	"testing"

	"griduniverse.ai/internal/sim/grid"
)

func TestNextMove(t *testing.T) {
	st := grid.State{Players: []grid.PlayerState{{ID: "1", Position: grid.Position{5, 5}}}}
	cases := []struct {
		food []grid.Position
		want string
	}{
		{[]grid.Position{{1, 5}}, "up"},
		{[]grid.Position{{9, 6}}, "down"},
		{[]grid.Position{{5, 0}}, "left"},
		{[]grid.Position{{6, 9}, {0, 0}}, "right"},
		{[]grid.Position{{5, 5}}, ""},
		{nil, ""},
	}
	for _, c := range cases {
		if got := nextMove(st, "1", c.food); got != c.want {
			t.Fatalf("food=%v move=%q want=%q", c.food, got, c.want)
		}
	}
	if got := nextMove(st, "2", []grid.Position{{0, 0}}); got != "" {
		t.Fatalf("unknown player moved %q", got)
	}
}
