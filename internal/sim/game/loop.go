package game

import (
	"context"
	"log"
	"sync"
	"time"

	"griduniverse.ai/internal/protocol"
)

// World is the grid surface the loops drive. *grid.Grid implements it.
type World interface {
	BuildLabyrinth()
	SpawnFood() bool
	NumFood() int
	FoodCount() int
	GrowFood()
	ApplyTax()
	ApplyFrequencyDependence()
	ApplyContagion()
	ComputePayoffs()
	CheckRoundCompletion() bool
	Round() int
	GameStarted() bool
	GameOver() bool
	StartTimestamp() time.Time
	Serialize(full bool) ([]byte, error)
	ResetUpdated()
}

type LoopConfig struct {
	RunID string

	// Tick is the pause between tick-loop rounds and between start polls.
	Tick time.Duration
	// TimedEvery is the timed event window: food top-up, growth, tax,
	// frequency dependence and contagion run once per window.
	TimedEvery time.Duration
	// StateEvery is the pause between full state broadcasts.
	StateEvery time.Duration

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		Tick:       10 * time.Millisecond,
		TimedEvery: time.Second,
		StateEvery: 50 * time.Millisecond,
	}
}

// Loop owns the tick loop and the state broadcast loop of one run. Every
// world access happens under mu, which the router shares.
type Loop struct {
	cfg   LoopConfig
	world World
	mu    sync.Locker
	pub   Publisher
	sink  Sink
	env   int
	log   *log.Logger
}

func NewLoop(cfg LoopConfig, world World, mu sync.Locker, pub Publisher, sink Sink, logger *log.Logger) *Loop {
	def := DefaultLoopConfig()
	if cfg.Tick <= 0 {
		cfg.Tick = def.Tick
	}
	if cfg.TimedEvery <= 0 {
		cfg.TimedEvery = def.TimedEvery
	}
	if cfg.StateEvery <= 0 {
		cfg.StateEvery = def.StateEvery
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepCtx
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{cfg: cfg, world: world, mu: mu, pub: pub, sink: sink, env: 1, log: logger}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RunRounds builds the labyrinth, seeds food, waits for the game to start and
// then plays rounds until the game is over. On exit it publishes a single
// stop message and commits once more.
func (l *Loop) RunRounds(ctx context.Context) error {
	l.mu.Lock()
	l.world.BuildLabyrinth()
	for i, n := 0, l.world.NumFood(); i < n; i++ {
		l.world.SpawnFood()
	}
	l.mu.Unlock()

	for {
		l.mu.Lock()
		started := l.world.GameStarted()
		l.mu.Unlock()
		if started {
			break
		}
		if err := l.cfg.Sleep(ctx, l.cfg.Tick); err != nil {
			return err
		}
	}

	l.mu.Lock()
	prev := l.world.StartTimestamp()
	l.mu.Unlock()

	for {
		l.mu.Lock()
		if l.world.GameOver() {
			l.mu.Unlock()
			break
		}
		prev = l.round(prev)
		l.mu.Unlock()
		if err := l.cfg.Sleep(ctx, l.cfg.Tick); err != nil {
			return err
		}
	}

	if err := l.pub.Publish(protocol.StopMsg{Type: protocol.TypeStop}); err != nil {
		l.log.Printf("publish stop: %v", err)
	}
	if err := l.sink.Commit(); err != nil {
		l.log.Printf("final commit: %v", err)
	}
	return nil
}

// round runs one tick under the lock and returns the start of the current
// timed event window.
func (l *Loop) round(prev time.Time) time.Time {
	now := l.cfg.Now()
	if now.Sub(prev) > l.cfg.TimedEvery {
		missing := l.world.NumFood() - l.world.FoodCount()
		for i := 0; i < missing; i++ {
			l.world.SpawnFood()
		}
		l.world.GrowFood()
		l.world.ApplyTax()
		l.world.ApplyFrequencyDependence()
		l.world.ApplyContagion()
		prev = now
	}

	l.world.ComputePayoffs()
	advanced := l.world.CheckRoundCompletion()
	if advanced {
		msg := protocol.NewRoundMsg{Type: protocol.TypeNewRound, Round: l.world.Round()}
		if err := l.pub.Publish(msg); err != nil {
			l.log.Printf("publish new_round: %v", err)
		}
	}

	state, err := l.world.Serialize(false)
	if err != nil {
		l.log.Printf("serialize: %v", err)
	} else {
		// Observers get the delta of every completed round; full snapshots
		// come from SendState.
		if advanced {
			if err := l.pub.Publish(protocol.StateMsg{Type: protocol.TypeState, Grid: state}); err != nil {
				l.log.Printf("publish round delta: %v", err)
			}
		}
		rec := Record{
			RunID:   l.cfg.RunID,
			NodeID:  l.env,
			Kind:    KindState,
			Round:   l.world.Round(),
			Time:    now,
			Details: state,
		}
		if err := l.sink.Add(rec); err != nil {
			l.log.Printf("persist state: %v", err)
		}
	}
	if err := l.sink.Commit(); err != nil {
		l.log.Printf("commit: %v", err)
	}
	l.world.ResetUpdated()
	return prev
}

// SendState broadcasts a full snapshot every StateEvery until it has sent one
// that shows the game over.
func (l *Loop) SendState(ctx context.Context) error {
	for {
		l.mu.Lock()
		state, err := l.world.Serialize(true)
		over := l.world.GameOver()
		l.mu.Unlock()
		if err != nil {
			l.log.Printf("serialize full state: %v", err)
		} else if err := l.pub.Publish(protocol.StateMsg{Type: protocol.TypeState, Grid: state}); err != nil {
			l.log.Printf("publish state: %v", err)
		}
		if over {
			return nil
		}
		if err := l.cfg.Sleep(ctx, l.cfg.StateEvery); err != nil {
			return err
		}
	}
}
