package tuning

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"griduniverse.ai/internal/sim/evolve"
	"griduniverse.ai/internal/sim/grid"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_EmptyPathIsDefaults(t *testing.T) {
	got, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if got.Loop.TimedEventMs != 1000 || got.Evolution.MutationRate != 0.2 {
		t.Fatalf("defaults=%+v", got)
	}
}

func TestLoad_EmptyPathStillValidates(t *testing.T) {
	base := Defaults()
	base.Evolution.Players = 0
	if _, err := loadOver(base, ""); err == nil {
		t.Fatalf("expected error for zero slots without a file")
	}
}

func TestLoad_OverridesAndBuildsConfigs(t *testing.T) {
	p := writeYAML(t, `
grid:
  tax: 0.5
  num_rounds: 3
  donation_group: true
genome:
  time_per_round: 30
  rows: 12
  columns: 14
  num_food: 4
loop:
  tick_ms: 0
evolution:
  players: 4
  generations: 2
  bot: false
  mutation_rate: 0.3
`)
	got, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Loop.TickMs != 10 {
		t.Fatalf("tick_ms=%d want default 10", got.Loop.TickMs)
	}
	gc := got.GridConfig(got.Genome)
	if gc.Tax != 0.5 || gc.NumRounds != 3 || !gc.DonationGroup {
		t.Fatalf("grid rules=%+v", gc)
	}
	if gc.Rows != 12 || gc.Columns != 14 || gc.NumFood != 4 || gc.TimePerRound != 30*time.Second {
		t.Fatalf("genome not applied: %+v", gc)
	}
	ec := got.EvolveConfig()
	if ec.Slots != 4 || ec.Generations != 2 || ec.Recruiter != evolve.RecruiterHuman || ec.BotPolicy != "" {
		t.Fatalf("evolve config=%+v", ec)
	}
	if lc := got.LoopConfig("run"); lc.TimedEvery != time.Second || lc.RunID != "run" {
		t.Fatalf("loop config=%+v", lc)
	}
}

func TestLoad_RejectsInvalidGrid(t *testing.T) {
	p := writeYAML(t, "genome:\n  rows: -1\n")
	_, err := Load(p)
	if !errors.Is(err, grid.ErrInvalidConfig) {
		t.Fatalf("err=%v want ErrInvalidConfig", err)
	}
}

func TestLoad_RejectsUnknownPolicy(t *testing.T) {
	p := writeYAML(t, "bots:\n  policy: Teleporter\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
