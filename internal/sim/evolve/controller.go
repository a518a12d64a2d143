package evolve

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"griduniverse.ai/internal/sim/fitness"
	"griduniverse.ai/internal/sim/genome"
)

type Config struct {
	Slots        int
	Generations  int
	MutationRate float64

	// Run-mode flags forwarded to every launch.
	MaxParticipants int
	NumWorkers      int
	Verbose         bool
	Recruiter       string
	BotPolicy       string
}

func (c Config) Validate() error {
	switch {
	case c.Slots < 1:
		return fmt.Errorf("evolve: slots=%d", c.Slots)
	case c.Generations < 1:
		return fmt.Errorf("evolve: generations=%d", c.Generations)
	case c.MutationRate < 0 || c.MutationRate > 1:
		return fmt.Errorf("evolve: mutation_rate=%v", c.MutationRate)
	}
	return nil
}

// Result describes one (generation, slot) run, successful or not.
type Result struct {
	RunID         string
	Generation    int
	Slot          int
	Genome        genome.Genome
	Score         int
	AveragePayoff float64
	Outcome       Outcome
	Err           error
}

// Controller runs slots x generations simulation runs strictly one after
// another and keeps the Generation Record between them.
type Controller struct {
	cfg      Config
	gen      *genome.Generator
	source   fitness.Source
	launcher Launcher
	log      *log.Logger

	record   *Record
	feedback int

	// OnResult, when set, sees every run after it was scored.
	OnResult func(Result)

	newRunID func() string
}

func NewController(cfg Config, gen *genome.Generator, source fitness.Source, launcher Launcher, logger *log.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gen == nil || source == nil || launcher == nil {
		return nil, errors.New("evolve: generator, source and launcher are required")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		cfg:      cfg,
		gen:      gen,
		source:   source,
		launcher: launcher,
		log:      logger,
		record:   NewRecord(),
		newRunID: uuid.NewString,
	}, nil
}

// Record is the live Generation Record.
func (c *Controller) Record() *Record { return c.record }

// Run executes the experiment. A failed launch or unscoreable run only costs
// its own slot, which keeps its previous entry. Zero parent fitness and
// context cancellation abort the whole experiment.
func (c *Controller) Run(ctx context.Context) (*Record, error) {
	c.log.Printf("begin %d x %d experiment, source=%s mutation_rate=%v",
		c.cfg.Slots, c.cfg.Generations, c.source.Name(), c.cfg.MutationRate)
	for gen := 0; gen < c.cfg.Generations; gen++ {
		for slot := 0; slot < c.cfg.Slots; slot++ {
			if err := ctx.Err(); err != nil {
				return c.record, err
			}
			if err := c.runSlot(ctx, gen, slot); err != nil {
				return c.record, err
			}
		}
	}
	return c.record, nil
}

func (c *Controller) runSlot(ctx context.Context, gen, slot int) error {
	child, err := c.gen.Next(slot, c.record.Parents(), c.cfg.MutationRate)
	if err != nil {
		return fmt.Errorf("generation %d: %w", gen, err)
	}
	rc := RunConfig{
		RunID:           c.newRunID(),
		Generation:      gen,
		Slot:            slot,
		Genome:          child,
		MaxParticipants: c.cfg.MaxParticipants,
		NumWorkers:      c.cfg.NumWorkers,
		Verbose:         c.cfg.Verbose,
		Recruiter:       c.cfg.Recruiter,
		BotPolicy:       c.cfg.BotPolicy,
	}
	c.log.Printf("running slot %d for generation %d (run %s)", slot+1, gen+1, rc.RunID)

	res := Result{RunID: rc.RunID, Generation: gen, Slot: slot, Genome: child}
	defer func() {
		if c.OnResult != nil {
			c.OnResult(res)
		}
	}()

	out, err := c.launcher.Launch(ctx, rc)
	if err != nil {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return ctx.Err()
		}
		res.Err = err
		c.log.Printf("slot %d generation %d: run failed, keeping previous entry: %v", slot+1, gen+1, err)
		return nil
	}
	res.Outcome = out

	if prev, ok := c.record.Get(slot - 1); ok {
		c.feedback = prev.Score
	}
	obs := fitness.Observation{
		AveragePayoff:  fitness.AveragePayoff(out.Payoffs),
		PlayerFeedback: out.PlayerFeedback,
	}
	res.AveragePayoff = obs.AveragePayoff
	score, err := c.source.Score(obs, c.feedback)
	if err != nil {
		res.Err = err
		c.log.Printf("slot %d generation %d: no score, keeping previous entry: %v", slot+1, gen+1, err)
		return nil
	}
	res.Score = score
	c.record.Set(slot, Entry{Genome: child, Score: score})
	c.log.Printf("slot %d generation %d: fun rating %d (avg payoff %.4f)", slot+1, gen+1, score, obs.AveragePayoff)
	return nil
}
