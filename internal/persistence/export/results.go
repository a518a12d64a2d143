package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"

	"griduniverse.ai/internal/sim/evolve"
	"griduniverse.ai/internal/sim/genome"
)

// ResultRow is one line of results.csv. Genome columns are flattened in.
type ResultRow struct {
	Generation int    `csv:"generation"`
	Slot       int    `csv:"slot"`
	RunID      string `csv:"run_id"`
	genome.Genome
	Score         int     `csv:"score"`
	AveragePayoff float64 `csv:"avg_payoff"`
	Events        int     `csv:"events"`
	Error         string  `csv:"error"`
}

func RowFromResult(r evolve.Result) ResultRow {
	row := ResultRow{
		Generation:    r.Generation,
		Slot:          r.Slot,
		RunID:         r.RunID,
		Genome:        r.Genome,
		Score:         r.Score,
		AveragePayoff: r.AveragePayoff,
		Events:        r.Outcome.Events,
	}
	if r.Err != nil {
		row.Error = r.Err.Error()
	}
	return row
}

// ResultsCSV appends controller results to <dir>/results.csv as they come.
// A nil *ResultsCSV discards.
type ResultsCSV struct {
	mu            sync.Mutex
	f             *os.File
	headerWritten bool
}

func NewResultsCSV(dir string) (*ResultsCSV, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, "results.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating results.csv: %w", err)
	}
	return &ResultsCSV{f: f}, nil
}

func (w *ResultsCSV) Write(r evolve.Result) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	records := []ResultRow{RowFromResult(r)}
	if !w.headerWritten {
		if err := gocsv.Marshal(records, w.f); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
		w.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, w.f); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	return nil
}

func (w *ResultsCSV) Path() string {
	if w == nil {
		return ""
	}
	return w.f.Name()
}

func (w *ResultsCSV) Close() error {
	if w == nil {
		return nil
	}
	return w.f.Close()
}

// ReadResults loads a results.csv written by ResultsCSV.
func ReadResults(path string) ([]ResultRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var rows []ResultRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}
