package game

import (
	"context"
	"fmt"
	"log"
	"sync"

	"griduniverse.ai/internal/sim/grid"
)

// Game is one simulation run: a grid, its two loops and its router, all
// sharing one lock.
type Game struct {
	mu sync.Mutex

	runID  string
	grid   *grid.Grid
	nodes  *Nodes
	rec    *Recorder
	loop   *Loop
	router *Router
	log    *log.Logger
}

type Options struct {
	Loop LoopConfig
	Grid []grid.Option
}

// New validates cfg and wires a run. Invalid configs (negative rows, say)
// fail here, before any goroutine starts.
func New(cfg grid.Config, pub Publisher, sink Sink, opts Options, logger *log.Logger) (*Game, error) {
	if logger == nil {
		logger = log.Default()
	}
	if pub == nil {
		pub = Discard{}
	}
	if sink == nil {
		sink = Discard{}
	}
	g, err := grid.New(cfg, opts.Grid...)
	if err != nil {
		return nil, fmt.Errorf("run start: %w", err)
	}
	gm := &Game{runID: opts.Loop.RunID, grid: g, nodes: NewNodes(), log: logger}
	gm.rec = NewRecorder(opts.Loop.RunID, gm.nodes, sink, logger)
	gm.loop = NewLoop(opts.Loop, g, &gm.mu, pub, sink, logger)
	gm.router = NewRouter(&gm.mu, g, gm.nodes, gm.rec, pub, logger)
	return gm, nil
}

func (gm *Game) RunID() string       { return gm.runID }
func (gm *Game) Router() *Router     { return gm.router }
func (gm *Game) Nodes() *Nodes       { return gm.nodes }
func (gm *Game) Recorder() *Recorder { return gm.rec }

// Run plays the game to the end: the tick loop and the state broadcast loop
// run concurrently and Run returns once both observed game over.
func (gm *Game) Run(ctx context.Context) error {
	var (
		wg       sync.WaitGroup
		stateErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		stateErr = gm.loop.SendState(ctx)
	}()
	err := gm.loop.RunRounds(ctx)
	wg.Wait()
	if err != nil {
		return err
	}
	return stateErr
}

// View runs fn with exclusive access to the grid.
func (gm *Game) View(fn func(g *grid.Grid)) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	fn(gm.grid)
}

// Payoffs returns player payoffs in join order.
func (gm *Game) Payoffs() []float64 {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.grid.Payoffs()
}

// State returns a full snapshot.
func (gm *Game) State() grid.State {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.grid.Snapshot(true)
}

// RecordConfig stores the run configuration on the environment node.
func (gm *Game) RecordConfig(v any) { gm.rec.RecordKind(KindConfig, v, "") }
