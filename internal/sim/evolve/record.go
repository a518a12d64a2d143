package evolve

import (
	"sort"

	"griduniverse.ai/internal/sim/genome"
)

// Entry is the latest (genome, score) pair of one slot.
type Entry struct {
	Genome genome.Genome `json:"genome"`
	Score  int           `json:"score"`
}

// Record maps slot -> latest entry. A slot is overwritten when its run
// completes, so during a generation earlier slots already hold this
// generation's result while later slots still hold the previous one.
type Record struct {
	entries map[int]Entry
}

func NewRecord() *Record { return &Record{entries: map[int]Entry{}} }

func (r *Record) Get(slot int) (Entry, bool) {
	e, ok := r.entries[slot]
	return e, ok
}

func (r *Record) Set(slot int, e Entry) { r.entries[slot] = e }

func (r *Record) Len() int { return len(r.entries) }

// Slots returns the recorded slots in ascending order.
func (r *Record) Slots() []int {
	out := make([]int, 0, len(r.entries))
	for s := range r.entries {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// Parents lists every entry as a selection candidate, in slot order.
func (r *Record) Parents() []genome.Parent {
	out := make([]genome.Parent, 0, len(r.entries))
	for _, s := range r.Slots() {
		e := r.entries[s]
		out = append(out, genome.Parent{Slot: s, Genome: e.Genome, Score: float64(e.Score)})
	}
	return out
}
