package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"griduniverse.ai/internal/sim/evolve"
	"griduniverse.ai/internal/sim/game"
	"griduniverse.ai/internal/sim/genome"
)

func TestSQLiteIndex_CommitMakesRecordsVisible(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer func() { _ = idx.Close() }()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_ = idx.Add(game.Record{RunID: "r1", NodeID: 1, Kind: game.KindState, Round: i, Time: now, Details: json.RawMessage(`{"round":0}`)})
	}
	_ = idx.Add(game.Record{RunID: "r1", NodeID: 2, Kind: game.KindEvent, Time: now, Details: json.RawMessage(`{"type":"move"}`)})
	if err := idx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	ctx := context.Background()
	n, err := idx.CountRecords(ctx, "r1", game.KindState)
	if err != nil {
		t.Fatalf("CountRecords: %v", err)
	}
	if n != 3 {
		t.Fatalf("state records=%d want=3", n)
	}
	if n, _ := idx.CountRecords(ctx, "r1", game.KindEvent); n != 1 {
		t.Fatalf("event records=%d want=1", n)
	}
	if st := idx.Stats(); st.QueueDroppedTotal != 0 || st.WriteFailTotal != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestSQLiteIndex_RecordResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}

	g := genome.Genome{TimePerRound: 90, NumFood: 8, Rows: 30, Columns: 32, BlockSize: 6, ShowChatroom: true}
	idx.RecordResult(evolve.Result{RunID: "a", Generation: 0, Slot: 1, Genome: g, Score: 5, AveragePayoff: 1.5, Outcome: evolve.Outcome{Events: 7}})
	idx.RecordResult(evolve.Result{RunID: "b", Generation: 0, Slot: 0, Genome: g, Err: errors.New("boom")})
	if err := idx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rows, err := idx.Generations(context.Background())
	if err != nil {
		t.Fatalf("Generations: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d want=2", len(rows))
	}
	if rows[0].Slot != 0 || rows[0].Error != "boom" {
		t.Fatalf("row0=%+v", rows[0])
	}
	if r := rows[1]; r.RunID != "a" || r.Score != 5 || r.AveragePayoff != 1.5 || r.Events != 7 || r.Genome != g {
		t.Fatalf("row1=%+v", r)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Survives reopen through a plain connection.
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM generations`).Scan(&n); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 2 {
		t.Fatalf("count=%d want=2", n)
	}
}

func TestSQLiteIndex_ClosedRejectsCommit(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "x", "index.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := idx.Commit(); !errors.Is(err, ErrClosed) {
		t.Fatalf("err=%v want ErrClosed", err)
	}
	if err := idx.Add(game.Record{RunID: "r"}); err != nil {
		t.Fatalf("Add after close: %v", err)
	}
}

func TestSQLiteIndex_CloseRacesWriters(t *testing.T) {
	for round := 0; round < 20; round++ {
		idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
		if err != nil {
			t.Fatalf("OpenSQLite: %v", err)
		}
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 20; i++ {
					_ = idx.Add(game.Record{RunID: "r", Kind: game.KindEvent, Details: json.RawMessage(`{}`)})
					if err := idx.Commit(); err != nil {
						if !errors.Is(err, ErrClosed) {
							errs <- err
						}
						return
					}
				}
			}()
		}
		if err := idx.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("Commit: %v", err)
		}
	}
}
