package export

import (
	"errors"
	"testing"

	"griduniverse.ai/internal/sim/evolve"
	"griduniverse.ai/internal/sim/genome"
)

func TestResultsCSV_AppendsWithOneHeader(t *testing.T) {
	w, err := NewResultsCSV(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	g := genome.Genome{TimePerRound: 95, ShowChatroom: true, NumFood: 9, Rows: 41, Columns: 38, BlockSize: 7}
	if err := w.Write(evolve.Result{RunID: "a", Generation: 0, Slot: 0, Genome: g, Score: 5, AveragePayoff: 0.25}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Write(evolve.Result{RunID: "b", Generation: 0, Slot: 1, Genome: g, Err: errors.New("launch failed")}); err != nil {
		t.Fatalf("write: %v", err)
	}
	path := w.Path()
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rows, err := ReadResults(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d want=2", len(rows))
	}
	if rows[0].RunID != "a" || rows[0].Score != 5 || rows[0].AveragePayoff != 0.25 || rows[0].Genome != g {
		t.Fatalf("row0=%+v", rows[0])
	}
	if rows[1].Slot != 1 || rows[1].Error != "launch failed" {
		t.Fatalf("row1=%+v", rows[1])
	}
}

func TestResultsCSV_NilDiscards(t *testing.T) {
	w, err := NewResultsCSV("")
	if err != nil || w != nil {
		t.Fatalf("w=%v err=%v", w, err)
	}
	if err := w.Write(evolve.Result{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
