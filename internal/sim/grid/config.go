package grid

import (
	"errors"
	"fmt"
	"time"

	"griduniverse.ai/internal/sim/genome"
)

var ErrInvalidConfig = errors.New("grid: invalid config")

// Config holds the rules of one grid run. Genome fields arrive through
// ApplyGenome; the rest come from experiment tuning.
type Config struct {
	Rows    int
	Columns int

	NumPlayers   int
	NumColors    int
	NumRounds    int
	TimePerRound time.Duration

	NumFood     int
	RespawnFood bool
	FoodReward  float64

	ShowChatroom        bool
	BlockSize           int
	BackgroundAnimation bool
	PlayerOverlap       bool

	WallsDensity float64

	Tax float64

	DonationAmount     float64
	DonationIndividual bool
	DonationGroup      bool
	DonationPublic     bool

	FrequencyDependence          float64
	FrequencyDependentPayoffRate float64
	Contagion                    int

	SeasonalGrowthRate float64
	FoodGrowthRate     float64

	DollarsPerPoint      float64
	InterGroupInequality float64
	IntraGroupInequality float64
}

func DefaultConfig() Config {
	return Config{
		Rows:                 25,
		Columns:              25,
		NumPlayers:           1,
		NumColors:            3,
		NumRounds:            1,
		TimePerRound:         300 * time.Second,
		NumFood:              8,
		RespawnFood:          true,
		FoodReward:           1,
		BlockSize:            10,
		SeasonalGrowthRate:   1,
		FoodGrowthRate:       1,
		DollarsPerPoint:      0.02,
		InterGroupInequality: 1,
		IntraGroupInequality: 1,
	}
}

// ApplyGenome copies the genome's genes over the config.
func (c *Config) ApplyGenome(g genome.Genome) {
	c.TimePerRound = time.Duration(g.TimePerRound) * time.Second
	c.ShowChatroom = g.ShowChatroom
	c.NumFood = g.NumFood
	c.RespawnFood = g.RespawnFood
	c.Rows = g.Rows
	c.Columns = g.Columns
	c.BlockSize = g.BlockSize
	c.BackgroundAnimation = g.BackgroundAnimation
}

// Validate rejects configs a run cannot start from. Generated genomes are
// not clamped, so this is where negative grids or food counts stop.
func (c Config) Validate() error {
	switch {
	case c.Rows < 1 || c.Columns < 1:
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidConfig, c.Rows, c.Columns)
	case c.NumFood < 0:
		return fmt.Errorf("%w: num_food=%d", ErrInvalidConfig, c.NumFood)
	case c.BlockSize < 0:
		return fmt.Errorf("%w: block_size=%d", ErrInvalidConfig, c.BlockSize)
	case c.TimePerRound <= 0:
		return fmt.Errorf("%w: time_per_round=%s", ErrInvalidConfig, c.TimePerRound)
	case c.NumColors < 1 || c.NumColors > len(Colors):
		return fmt.Errorf("%w: num_colors=%d", ErrInvalidConfig, c.NumColors)
	case c.NumRounds < 1:
		return fmt.Errorf("%w: num_rounds=%d", ErrInvalidConfig, c.NumRounds)
	case c.NumPlayers < 0:
		return fmt.Errorf("%w: num_players=%d", ErrInvalidConfig, c.NumPlayers)
	case c.WallsDensity < 0 || c.WallsDensity > 1:
		return fmt.Errorf("%w: walls_density=%v", ErrInvalidConfig, c.WallsDensity)
	case c.Contagion < 0:
		return fmt.Errorf("%w: contagion=%d", ErrInvalidConfig, c.Contagion)
	}
	return nil
}

// Colors is the fixed palette players are grouped by.
var Colors = []string{"BLUE", "YELLOW", "RED", "GREEN", "PURPLE", "ORANGE"}

// ColorIndex resolves a palette name to its index.
func ColorIndex(name string) (int, bool) {
	for i, c := range Colors {
		if c == name {
			return i, true
		}
	}
	return 0, false
}
