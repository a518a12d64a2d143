package snapshot

import (
	"testing"
	"time"

	"griduniverse.ai/internal/sim/genome"
	"griduniverse.ai/internal/sim/grid"
)

func TestWriteReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := PathFor(dir, "run-7")

	taken := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	in := SnapshotV1{
		Header:  Header{RunID: "run-7", Round: 2, TakenAt: taken},
		Genome:  genome.Genome{TimePerRound: 100, NumFood: 10, Rows: 40, Columns: 40, BlockSize: 7},
		Payoffs: []float64{0.06, 0.02},
		State: grid.State{
			Rows:     40,
			Columns:  40,
			Round:    2,
			GameOver: true,
			Players: []grid.PlayerState{
				{ID: "1", Position: grid.Position{3, 4}, Score: 3, Payoff: 0.06, Color: "BLUE"},
				{ID: "2", Position: grid.Position{5, 6}, Score: 1, Payoff: 0.02, Color: "YELLOW"},
			},
			Walls: []grid.Position{{0, 1}},
			Food:  []grid.Position{{9, 9}, {10, 2}},
		},
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.Version != Version || h.RunID != "run-7" || h.Round != 2 || !h.TakenAt.Equal(taken) {
		t.Fatalf("header=%+v", h)
	}

	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Genome != in.Genome {
		t.Fatalf("genome=%+v want=%+v", out.Genome, in.Genome)
	}
	if len(out.State.Players) != 2 || out.State.Players[1].Color != "YELLOW" || out.State.Players[0].Position != (grid.Position{3, 4}) {
		t.Fatalf("players=%+v", out.State.Players)
	}
	if len(out.State.Food) != 2 || len(out.State.Walls) != 1 || !out.State.GameOver {
		t.Fatalf("state=%+v", out.State)
	}
	if len(out.Payoffs) != 2 || out.Payoffs[0] != 0.06 {
		t.Fatalf("payoffs=%v", out.Payoffs)
	}
}

func TestReadSnapshot_Missing(t *testing.T) {
	if _, err := ReadSnapshot(PathFor(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error")
	}
}
