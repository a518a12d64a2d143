package tuning

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"griduniverse.ai/internal/sim/evolve"
	"griduniverse.ai/internal/sim/game"
	"griduniverse.ai/internal/sim/genome"
	"griduniverse.ai/internal/sim/grid"
)

// Tuning is the experiment file: grid rules shared by every run, loop
// timing, bots and evolution parameters.
type Tuning struct {
	Grid      GridRules  `yaml:"grid"`
	Genome    GenomeSeed `yaml:"genome"`
	Loop      LoopTiming `yaml:"loop"`
	Bots      Bots       `yaml:"bots"`
	Evolution Evolution  `yaml:"evolution"`
}

type GridRules struct {
	NumPlayers    int     `yaml:"num_players"`
	NumColors     int     `yaml:"num_colors"`
	NumRounds     int     `yaml:"num_rounds"`
	FoodReward    float64 `yaml:"food_reward"`
	PlayerOverlap bool    `yaml:"player_overlap"`
	WallsDensity  float64 `yaml:"walls_density"`
	Tax           float64 `yaml:"tax"`

	DonationAmount     float64 `yaml:"donation_amount"`
	DonationIndividual bool    `yaml:"donation_individual"`
	DonationGroup      bool    `yaml:"donation_group"`
	DonationPublic     bool    `yaml:"donation_public"`

	FrequencyDependence          float64 `yaml:"frequency_dependence"`
	FrequencyDependentPayoffRate float64 `yaml:"frequency_dependent_payoff_rate"`
	Contagion                    int     `yaml:"contagion"`

	SeasonalGrowthRate float64 `yaml:"seasonal_growth_rate"`
	FoodGrowthRate     float64 `yaml:"food_growth_rate"`

	DollarsPerPoint      float64 `yaml:"dollars_per_point"`
	InterGroupInequality float64 `yaml:"inter_group_inequality"`
	IntraGroupInequality float64 `yaml:"intra_group_inequality"`
}

// GenomeSeed is the genome a single server run plays with.
type GenomeSeed = genome.Genome

type LoopTiming struct {
	TickMs       int `yaml:"tick_ms"`
	TimedEventMs int `yaml:"timed_event_ms"`
	StateMs      int `yaml:"state_ms"`
}

type Bots struct {
	Count   int    `yaml:"count"`
	Policy  string `yaml:"policy"`
	EveryMs int    `yaml:"every_ms"`
}

type Evolution struct {
	Players      int     `yaml:"players"`
	Generations  int     `yaml:"generations"`
	Bot          bool    `yaml:"bot"`
	MutationRate float64 `yaml:"mutation_rate"`
	Seed         uint64  `yaml:"seed"`
}

func Defaults() Tuning {
	g := grid.DefaultConfig()
	return Tuning{
		Grid: GridRules{
			NumPlayers:           g.NumPlayers,
			NumColors:            g.NumColors,
			NumRounds:            g.NumRounds,
			FoodReward:           g.FoodReward,
			SeasonalGrowthRate:   g.SeasonalGrowthRate,
			FoodGrowthRate:       g.FoodGrowthRate,
			DollarsPerPoint:      g.DollarsPerPoint,
			InterGroupInequality: g.InterGroupInequality,
			IntraGroupInequality: g.IntraGroupInequality,
		},
		Genome: GenomeSeed{
			TimePerRound: int(g.TimePerRound / time.Second),
			NumFood:      g.NumFood,
			RespawnFood:  g.RespawnFood,
			Rows:         g.Rows,
			Columns:      g.Columns,
			BlockSize:    g.BlockSize,
		},
		Loop: LoopTiming{TickMs: 10, TimedEventMs: 1000, StateMs: 50},
		Bots: Bots{Policy: game.PolicyAdvantageSeeking, EveryMs: 100},
		Evolution: Evolution{
			Players:      2,
			Generations:  3,
			Bot:          true,
			MutationRate: 0.2,
		},
	}
}

// Load reads path over Defaults. An empty path returns the defaults. Both
// come back normalized and validated.
func Load(path string) (Tuning, error) { return loadOver(Defaults(), path) }

func loadOver(t Tuning, path string) (Tuning, error) {
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return t, err
		}
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return t, fmt.Errorf("tuning.yaml: %w", err)
		}
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning: %w", err)
	}
	return t, nil
}

// Normalize fills zero timings and policy names.
func (t *Tuning) Normalize() {
	def := Defaults()
	if t.Loop.TickMs <= 0 {
		t.Loop.TickMs = def.Loop.TickMs
	}
	if t.Loop.TimedEventMs <= 0 {
		t.Loop.TimedEventMs = def.Loop.TimedEventMs
	}
	if t.Loop.StateMs <= 0 {
		t.Loop.StateMs = def.Loop.StateMs
	}
	if t.Bots.EveryMs <= 0 {
		t.Bots.EveryMs = def.Bots.EveryMs
	}
	if strings.TrimSpace(t.Bots.Policy) == "" {
		t.Bots.Policy = def.Bots.Policy
	}
}

func (t Tuning) Validate() error {
	if err := t.GridConfig(t.Genome).Validate(); err != nil {
		return err
	}
	switch t.Bots.Policy {
	case game.PolicyAdvantageSeeking, game.PolicyIdle:
	default:
		return fmt.Errorf("bots.policy: unknown %q", t.Bots.Policy)
	}
	if t.Bots.Count < 0 {
		return fmt.Errorf("bots.count=%d", t.Bots.Count)
	}
	return t.EvolveConfig().Validate()
}

// GridConfig builds the grid rules of a run played with g.
func (t Tuning) GridConfig(g genome.Genome) grid.Config {
	r := t.Grid
	c := grid.DefaultConfig()
	c.NumPlayers = r.NumPlayers
	c.NumColors = r.NumColors
	c.NumRounds = r.NumRounds
	c.FoodReward = r.FoodReward
	c.PlayerOverlap = r.PlayerOverlap
	c.WallsDensity = r.WallsDensity
	c.Tax = r.Tax
	c.DonationAmount = r.DonationAmount
	c.DonationIndividual = r.DonationIndividual
	c.DonationGroup = r.DonationGroup
	c.DonationPublic = r.DonationPublic
	c.FrequencyDependence = r.FrequencyDependence
	c.FrequencyDependentPayoffRate = r.FrequencyDependentPayoffRate
	c.Contagion = r.Contagion
	c.SeasonalGrowthRate = r.SeasonalGrowthRate
	c.FoodGrowthRate = r.FoodGrowthRate
	c.DollarsPerPoint = r.DollarsPerPoint
	c.InterGroupInequality = r.InterGroupInequality
	c.IntraGroupInequality = r.IntraGroupInequality
	c.ApplyGenome(g)
	return c
}

func (t Tuning) LoopConfig(runID string) game.LoopConfig {
	return game.LoopConfig{
		RunID:      runID,
		Tick:       time.Duration(t.Loop.TickMs) * time.Millisecond,
		TimedEvery: time.Duration(t.Loop.TimedEventMs) * time.Millisecond,
		StateEvery: time.Duration(t.Loop.StateMs) * time.Millisecond,
	}
}

func (t Tuning) EvolveConfig() evolve.Config {
	recruiter, policy := evolve.RecruiterHuman, ""
	if t.Evolution.Bot {
		recruiter, policy = evolve.RecruiterBots, t.Bots.Policy
	}
	return evolve.Config{
		Slots:           t.Evolution.Players,
		Generations:     t.Evolution.Generations,
		MutationRate:    t.Evolution.MutationRate,
		MaxParticipants: 1,
		NumWorkers:      1,
		Verbose:         true,
		Recruiter:       recruiter,
		BotPolicy:       policy,
	}
}
