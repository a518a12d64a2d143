package game

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"griduniverse.ai/internal/sim/evolve"
	"griduniverse.ai/internal/sim/genome"
	"griduniverse.ai/internal/sim/grid"
)

// Rater asks a participant how much fun a finished run was.
type Rater interface {
	Rate(ctx context.Context, rc evolve.RunConfig) (int, error)
}

// Launcher plays each run in process. In bot mode it recruits
// MaxParticipants bots; otherwise players join through Attach and the
// rating comes from the Rater.
type Launcher struct {
	Base  grid.Config
	Loop  LoopConfig
	Pub   Publisher
	Rater Rater

	// NewSink opens the persistence sink of a run; nil keeps records in memory
	// only. A sink that is also an io.Closer is closed when the run ends.
	NewSink func(runID string) (Sink, error)
	// Attach, when set, is handed every game before it starts (e.g. to route
	// websocket control messages into it).
	Attach func(gm *Game) (detach func())

	BotEvery time.Duration
	Seed     uint64
	Log      *log.Logger
}

func (l *Launcher) Launch(ctx context.Context, rc evolve.RunConfig) (evolve.Outcome, error) {
	logger := l.Log
	if logger == nil {
		logger = log.Default()
	}
	cfg := l.Base
	cfg.ApplyGenome(rc.Genome)
	if rc.MaxParticipants > 0 {
		cfg.NumPlayers = rc.MaxParticipants
	}

	mem := NewMemorySink()
	var sink Sink = mem
	if l.NewSink != nil {
		s, err := l.NewSink(rc.RunID)
		if err != nil {
			return evolve.Outcome{}, fmt.Errorf("open sink: %w", err)
		}
		if c, ok := s.(io.Closer); ok {
			defer func() {
				if err := c.Close(); err != nil {
					logger.Printf("run %s: close sink: %v", rc.RunID, err)
				}
			}()
		}
		sink = Tee{mem, s}
	}

	loopCfg := l.Loop
	loopCfg.RunID = rc.RunID
	opts := Options{Loop: loopCfg}
	if l.Seed != 0 {
		seed := l.Seed + uint64(rc.Generation)<<16 + uint64(rc.Slot)
		opts.Grid = append(opts.Grid, grid.WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))))
	}
	gm, err := New(cfg, l.Pub, sink, opts, logger)
	if err != nil {
		return evolve.Outcome{}, err
	}
	gm.RecordConfig(rc)
	if l.Attach != nil {
		if detach := l.Attach(gm); detach != nil {
			defer detach()
		}
	}

	out := evolve.Outcome{RunID: rc.RunID, Started: time.Now()}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	if rc.Recruiter == evolve.RecruiterBots {
		for i := 1; i <= cfg.NumPlayers; i++ {
			b := Bot{ID: strconv.Itoa(i), Policy: rc.BotPolicy, Every: l.BotEvery}
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = b.Run(runCtx, gm)
			}()
		}
	}
	err = gm.Run(runCtx)
	cancel()
	wg.Wait()
	if err != nil {
		return evolve.Outcome{}, fmt.Errorf("run %s: %w", rc.RunID, err)
	}
	out.Finished = time.Now()

	out.Payoffs = gm.Payoffs()
	gm.View(func(g *grid.Grid) { out.Config = EchoGenome(g.Config) })
	for _, r := range mem.Records() {
		if r.Kind == KindEvent {
			out.Events++
		}
	}

	if rc.Recruiter != evolve.RecruiterBots && l.Rater != nil {
		rating, err := l.Rater.Rate(ctx, rc)
		if err != nil {
			logger.Printf("run %s: no rating: %v", rc.RunID, err)
		} else {
			out.PlayerFeedback = &rating
		}
	}
	return out, nil
}

// EchoGenome reads the genome fields back out of a grid config.
func EchoGenome(c grid.Config) genome.Genome {
	return genome.Genome{
		TimePerRound:        int(c.TimePerRound / time.Second),
		ShowChatroom:        c.ShowChatroom,
		NumFood:             c.NumFood,
		RespawnFood:         c.RespawnFood,
		Rows:                c.Rows,
		Columns:             c.Columns,
		BlockSize:           c.BlockSize,
		BackgroundAnimation: c.BackgroundAnimation,
	}
}
