package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"griduniverse.ai/internal/sim/evolve"
	"griduniverse.ai/internal/sim/game"
	"griduniverse.ai/internal/sim/genome"
)

var ErrClosed = errors.New("indexdb: closed")

// SQLiteIndex is a queryable copy of run records and generation results.
// All writes go through one goroutine; Add never blocks the simulation.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu orders sends on ch against close(ch).
	mu     sync.RWMutex
	closed bool

	dropped atomic.Uint64
	failed  atomic.Uint64
}

var _ game.Sink = (*SQLiteIndex)(nil)

type reqKind int

const (
	reqRecord reqKind = iota + 1
	reqGeneration
	reqCommit
)

type req struct {
	kind reqKind

	record     game.Record
	generation GenerationRow
	done       chan error
}

// GenerationRow is one scored (generation, slot) run.
type GenerationRow struct {
	Generation    int
	Slot          int
	RunID         string
	Genome        genome.Genome
	Score         int
	AveragePayoff float64
	Events        int
	Error         string
	RecordedAt    string
}

// Stats counts what the writer could not persist.
type Stats struct {
	QueueDroppedTotal uint64
	WriteFailTotal    uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// State deltas arrive every tick; leave room for a slow disk.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			node_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			round INTEGER NOT NULL,
			time TEXT NOT NULL,
			details TEXT NOT NULL,
			PRIMARY KEY(run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS records_kind ON records(run_id, kind);`,
		`CREATE TABLE IF NOT EXISTS generations (
			generation INTEGER NOT NULL,
			slot INTEGER NOT NULL,
			run_id TEXT NOT NULL,
			genome_json TEXT NOT NULL,
			score INTEGER NOT NULL,
			avg_payoff REAL NOT NULL,
			events INTEGER NOT NULL,
			error TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY(generation, slot, run_id)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDroppedTotal: s.dropped.Load(),
		WriteFailTotal:    s.failed.Load(),
	}
}

// Add queues rec. A full queue drops it; the run log stays authoritative.
func (s *SQLiteIndex) Add(rec game.Record) error {
	if s == nil {
		return nil
	}
	s.enqueue(req{kind: reqRecord, record: rec})
	return nil
}

// Commit waits until everything queued before it is committed.
func (s *SQLiteIndex) Commit() error {
	if s == nil {
		return ErrClosed
	}
	done := make(chan error, 1)
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	s.ch <- req{kind: reqCommit, done: done}
	s.mu.RUnlock()
	return <-done
}

// RecordResult indexes a finished controller slot.
func (s *SQLiteIndex) RecordResult(r evolve.Result) {
	if s == nil {
		return
	}
	row := GenerationRow{
		Generation:    r.Generation,
		Slot:          r.Slot,
		RunID:         r.RunID,
		Genome:        r.Genome,
		Score:         r.Score,
		AveragePayoff: r.AveragePayoff,
		Events:        r.Outcome.Events,
		RecordedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if r.Err != nil {
		row.Error = r.Err.Error()
	}
	s.enqueue(req{kind: reqGeneration, generation: row})
}

// enqueue drops r when the index is closed or the queue is full.
func (s *SQLiteIndex) enqueue(r req) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

// Generations returns every indexed result ordered by generation and slot.
func (s *SQLiteIndex) Generations(ctx context.Context) ([]GenerationRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT generation,slot,run_id,genome_json,score,avg_payoff,events,error,recorded_at FROM generations ORDER BY generation,slot,recorded_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GenerationRow
	for rows.Next() {
		var (
			g  GenerationRow
			gj string
		)
		if err := rows.Scan(&g.Generation, &g.Slot, &g.RunID, &gj, &g.Score, &g.AveragePayoff, &g.Events, &g.Error, &g.RecordedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(gj), &g.Genome); err != nil {
			return nil, fmt.Errorf("generation %d slot %d: %w", g.Generation, g.Slot, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CountRecords returns how many records of kind a run has.
func (s *SQLiteIndex) CountRecords(ctx context.Context, runID, kind string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE run_id=? AND kind=?`, runID, kind).Scan(&n)
	return n, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRecord, _ := s.db.Prepare(`INSERT OR REPLACE INTO records(run_id,seq,node_id,kind,round,time,details) VALUES(?,?,?,?,?,?,?)`)
	insertGeneration, _ := s.db.Prepare(`INSERT OR REPLACE INTO generations(generation,slot,run_id,genome_json,score,avg_payoff,events,error,recorded_at) VALUES(?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertRecord != nil {
			_ = insertRecord.Close()
		}
		if insertGeneration != nil {
			_ = insertGeneration.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		// per-run sequence, assigned here so it follows queue order
		seq = map[string]int64{}
	)

	begin := func() error {
		if tx != nil {
			return nil
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
		return nil
	}
	commit := func() error {
		if tx == nil {
			return nil
		}
		err := tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
		return err
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			if err := commit(); err != nil {
				s.failed.Add(1)
			}
		}
	}

	for r := range s.ch {
		if r.kind == reqCommit {
			r.done <- commit()
			continue
		}
		if err := begin(); err != nil {
			s.failed.Add(1)
			continue
		}
		switch r.kind {
		case reqRecord:
			rec := r.record
			n := seq[rec.RunID]
			seq[rec.RunID] = n + 1
			details := string(rec.Details)
			if details == "" {
				details = "null"
			}
			if insertRecord != nil {
				if _, err := tx.Stmt(insertRecord).Exec(
					rec.RunID,
					n,
					rec.NodeID,
					rec.Kind,
					rec.Round,
					rec.Time.UTC().Format(time.RFC3339Nano),
					details,
				); err != nil {
					s.failed.Add(1)
					rollback()
					continue
				}
				opCount++
			}

		case reqGeneration:
			g := r.generation
			gj, _ := json.Marshal(g.Genome)
			if insertGeneration != nil {
				if _, err := tx.Stmt(insertGeneration).Exec(
					g.Generation,
					g.Slot,
					g.RunID,
					string(gj),
					g.Score,
					g.AveragePayoff,
					g.Events,
					g.Error,
					g.RecordedAt,
				); err != nil {
					s.failed.Add(1)
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	_ = commit()
}
