package game

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"griduniverse.ai/internal/sim/evolve"
	"griduniverse.ai/internal/sim/genome"
	"griduniverse.ai/internal/sim/grid"
)

func testLauncher() *Launcher {
	base := grid.DefaultConfig()
	base.NumRounds = 1
	return &Launcher{
		Base:     base,
		Loop:     LoopConfig{Tick: 5 * time.Millisecond, StateEvery: 20 * time.Millisecond, TimedEvery: 200 * time.Millisecond},
		BotEvery: 10 * time.Millisecond,
		Seed:     1,
		Log:      quietLogger(),
	}
}

func TestLauncher_GenomeRoundTrip(t *testing.T) {
	g := genome.Genome{
		TimePerRound:        1,
		ShowChatroom:        true,
		NumFood:             3,
		RespawnFood:         true,
		Rows:                8,
		Columns:             9,
		BlockSize:           5,
		BackgroundAnimation: false,
	}
	b, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wire genome.Genome
	if err := json.Unmarshal(b, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := testLauncher().Launch(ctx, evolve.RunConfig{
		RunID:           "r1",
		Genome:          wire,
		MaxParticipants: 2,
		Recruiter:       evolve.RecruiterBots,
		BotPolicy:       PolicyAdvantageSeeking,
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if out.Config != g {
		t.Fatalf("echo=%+v want=%+v", out.Config, g)
	}
	if len(out.Payoffs) != 2 {
		t.Fatalf("payoffs=%v want 2 players", out.Payoffs)
	}
	if out.Events < 2 {
		t.Fatalf("events=%d want at least the two connects", out.Events)
	}
	if out.PlayerFeedback != nil {
		t.Fatalf("bot run carried a player rating")
	}
}

func TestLauncher_InvalidGenomeFailsRunStart(t *testing.T) {
	_, err := testLauncher().Launch(context.Background(), evolve.RunConfig{
		RunID:     "r2",
		Genome:    genome.Genome{TimePerRound: 1, Rows: -4, Columns: 10},
		Recruiter: evolve.RecruiterBots,
	})
	if !errors.Is(err, grid.ErrInvalidConfig) {
		t.Fatalf("err=%v want ErrInvalidConfig", err)
	}
}

type fixedRater int

func (r fixedRater) Rate(context.Context, evolve.RunConfig) (int, error) { return int(r), nil }

func TestLauncher_HumanModeAsksRater(t *testing.T) {
	l := testLauncher()
	l.Base.NumPlayers = 0
	l.Rater = fixedRater(4)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := l.Launch(ctx, evolve.RunConfig{
		RunID:     "r3",
		Genome:    genome.Genome{TimePerRound: 1, NumFood: 1, Rows: 5, Columns: 5},
		Recruiter: evolve.RecruiterHuman,
	})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if out.PlayerFeedback == nil || *out.PlayerFeedback != 4 {
		t.Fatalf("feedback=%v want=4", out.PlayerFeedback)
	}
}
