package game

import (
	"encoding/json"
	"sync"
	"time"
)

// Record kinds.
const (
	KindState  = "state"
	KindEvent  = "event"
	KindConfig = "config"
)

// Record is one persisted entry of a run: a grid delta or an applied event.
type Record struct {
	RunID   string          `json:"run_id"`
	NodeID  int             `json:"node_id"`
	Kind    string          `json:"kind"`
	Round   int             `json:"round"`
	Time    time.Time       `json:"time"`
	Details json.RawMessage `json:"details"`
}

// Sink durably appends records. Add may buffer; Commit makes everything added
// so far durable. Implementations must be safe for concurrent use: the tick
// loop and the router both write.
type Sink interface {
	Add(rec Record) error
	Commit() error
}

// Publisher fans a JSON-serializable message out to observers.
type Publisher interface {
	Publish(v any) error
}

// Discard is a Sink and Publisher that drops everything.
type Discard struct{}

func (Discard) Add(Record) error    { return nil }
func (Discard) Commit() error       { return nil }
func (Discard) Publish(v any) error { return nil }

// MemorySink keeps records in memory; the in-process launcher uses it to
// count a run's events.
type MemorySink struct {
	mu      sync.Mutex
	pending []Record
	records []Record
	commits int
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Add(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, rec)
	return nil
}

func (s *MemorySink) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, s.pending...)
	s.pending = nil
	s.commits++
	return nil
}

// Records returns committed records.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

func (s *MemorySink) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Tee fans records out to several sinks. The first error wins, but every sink
// still sees the call.
type Tee []Sink

func (t Tee) Add(rec Record) error {
	var first error
	for _, s := range t {
		if err := s.Add(rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t Tee) Commit() error {
	var first error
	for _, s := range t {
		if err := s.Commit(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
