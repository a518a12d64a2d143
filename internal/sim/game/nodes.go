package game

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Node is the recording target of one participant, or of the environment.
type Node struct {
	ID       int
	PlayerID string
	Failed   bool
}

// Nodes tracks the environment node (always id 1) and one node per
// connected participant.
type Nodes struct {
	mu       sync.Mutex
	next     int
	env      *Node
	byPlayer map[string]*Node
}

func NewNodes() *Nodes {
	return &Nodes{
		next:     2,
		env:      &Node{ID: 1},
		byPlayer: map[string]*Node{},
	}
}

func (n *Nodes) Environment() *Node { return n.env }

// Create returns the participant's node, creating it on first connect.
func (n *Nodes) Create(playerID string) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	if nd, ok := n.byPlayer[playerID]; ok {
		return nd
	}
	nd := &Node{ID: n.next, PlayerID: playerID}
	n.next++
	n.byPlayer[playerID] = nd
	return nd
}

func (n *Nodes) ForPlayer(playerID string) (*Node, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	nd, ok := n.byPlayer[playerID]
	return nd, ok
}

// Fail marks a node failed; later events targeting it are dropped.
func (n *Nodes) Fail(nd *Node) {
	n.mu.Lock()
	nd.Failed = true
	n.mu.Unlock()
}

func (n *Nodes) failed(nd *Node) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return nd.Failed
}

// Recorder persists applied events against player or environment nodes.
type Recorder struct {
	runID string
	nodes *Nodes
	sink  Sink
	log   *log.Logger
	now   func() time.Time
}

func NewRecorder(runID string, nodes *Nodes, sink Sink, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{runID: runID, nodes: nodes, sink: sink, log: logger, now: time.Now}
}

// RecordEvent appends and commits details on the player's node, or on the
// environment node when playerID is empty or unknown. Events for failed
// nodes are logged and skipped; nothing is returned to the caller.
func (r *Recorder) RecordEvent(details any, playerID string) {
	r.RecordKind(KindEvent, details, playerID)
}

// RecordKind is RecordEvent with an explicit record kind.
func (r *Recorder) RecordKind(kind string, details any, playerID string) {
	nd := r.nodes.Environment()
	if playerID != "" {
		if pn, ok := r.nodes.ForPlayer(playerID); ok {
			nd = pn
		}
	}
	b, err := json.Marshal(details)
	if err != nil {
		r.log.Printf("record event: %v", err)
		return
	}
	if r.nodes.failed(nd) {
		r.log.Printf("Tried to record an event after node#%d failure: %s", nd.ID, b)
		return
	}
	rec := Record{RunID: r.runID, NodeID: nd.ID, Kind: kind, Time: r.now(), Details: b}
	if err := r.sink.Add(rec); err != nil {
		r.log.Printf("record event: add: %v", err)
		return
	}
	if err := r.sink.Commit(); err != nil {
		r.log.Printf("record event: commit: %v", err)
	}
}
