package evolve

import (
	"context"
	"time"

	"griduniverse.ai/internal/sim/genome"
)

// Recruitment strategies.
const (
	RecruiterBots  = "bots"
	RecruiterHuman = "human"
)

// RunConfig is everything a launcher needs to start one simulation run.
type RunConfig struct {
	RunID      string        `json:"run_id"`
	Generation int           `json:"generation"`
	Slot       int           `json:"slot"`
	Genome     genome.Genome `json:"genome"`

	MaxParticipants int    `json:"max_participants"`
	NumWorkers      int    `json:"num_workers"`
	Verbose         bool   `json:"verbose"`
	Recruiter       string `json:"recruiter"`
	BotPolicy       string `json:"bot_policy,omitempty"`
}

// Outcome is what a finished run reports back.
type Outcome struct {
	RunID string `json:"run_id"`

	// Config echoes the genome the run actually played with.
	Config genome.Genome `json:"config"`

	Events  int       `json:"events"`
	Payoffs []float64 `json:"payoffs"`

	// PlayerFeedback is the participant's own rating; set in human mode only.
	PlayerFeedback *int `json:"player_feedback,omitempty"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Launcher runs one simulation to completion. Implementations must not
// return before the run's game is over.
type Launcher interface {
	Launch(ctx context.Context, rc RunConfig) (Outcome, error)
}
