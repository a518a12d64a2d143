package grid

import (
	"math"
	"math/rand/v2"
	"time"
)

// Position is a (row, column) cell.
type Position [2]int

func (p Position) Row() int    { return p[0] }
func (p Position) Column() int { return p[1] }

type ChatMessage struct {
	PlayerID  string    `json:"player_id"`
	Contents  string    `json:"contents"`
	Timestamp time.Time `json:"timestamp"`
}

// Grid is the mutable world of one run. It is not safe for concurrent use;
// the game serializes every access.
type Grid struct {
	Config Config

	Players map[string]*Player
	joined  []string

	food  map[Position]struct{}
	walls map[Position]struct{}

	round int

	started bool
	over    bool
	start   time.Time

	// Dirty flags for delta serialization; cleared once per round.
	WallsUpdated bool
	FoodUpdated  bool

	ChatHistory []ChatMessage

	foodTarget float64

	rng *rand.Rand
	now func() time.Time
}

// Option customizes a Grid at construction.
type Option func(*Grid)

func WithRand(rng *rand.Rand) Option        { return func(g *Grid) { g.rng = rng } }
func WithClock(now func() time.Time) Option { return func(g *Grid) { g.now = now } }

// New validates cfg and returns an empty grid. A game with NumPlayers == 0
// starts immediately.
func New(cfg Config, opts ...Option) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{
		Config:     cfg,
		Players:    map[string]*Player{},
		food:       map[Position]struct{}{},
		walls:      map[Position]struct{}{},
		foodTarget: float64(cfg.NumFood),
		now:        time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	g.start = g.now()
	if cfg.NumPlayers == 0 {
		g.Start()
	}
	return g, nil
}

func (g *Grid) GameStarted() bool { return g.started }
func (g *Grid) GameOver() bool    { return g.over }
func (g *Grid) Round() int        { return g.round }

// Start marks the game as started and restarts the round clock. Starting
// twice is a no-op.
func (g *Grid) Start() {
	if g.started {
		return
	}
	g.started = true
	g.start = g.now()
}

// StartTimestamp is when the current round began.
func (g *Grid) StartTimestamp() time.Time { return g.start }

// SetStartTimestamp moves the round clock; used when resuming or replaying.
func (g *Grid) SetStartTimestamp(t time.Time) { g.start = t }

// RemainingTime is what is left of the current round, never negative.
func (g *Grid) RemainingTime() time.Duration {
	left := g.Config.TimePerRound - g.now().Sub(g.start)
	if left < 0 {
		return 0
	}
	return left
}

// CheckRoundCompletion advances the round when its time is up and ends the
// game once NumRounds rounds have elapsed. It reports whether a new round began.
func (g *Grid) CheckRoundCompletion() bool {
	if !g.started || g.over {
		return false
	}
	advanced := false
	now := g.now()
	if now.Sub(g.start) > g.Config.TimePerRound {
		g.round++
		g.start = now
		advanced = true
	}
	if g.round >= g.Config.NumRounds {
		g.over = true
	}
	return advanced
}

// ResetUpdated clears the delta dirty flags.
func (g *Grid) ResetUpdated() {
	g.WallsUpdated = false
	g.FoodUpdated = false
}

func (g *Grid) inBounds(p Position) bool {
	return p[0] >= 0 && p[0] < g.Config.Rows && p[1] >= 0 && p[1] < g.Config.Columns
}

func (g *Grid) HasWall(p Position) bool {
	_, ok := g.walls[p]
	return ok
}

func (g *Grid) HasFood(p Position) bool {
	_, ok := g.food[p]
	return ok
}

func (g *Grid) playerAt(p Position) *Player {
	for _, id := range g.joined {
		if pl := g.Players[id]; pl != nil && pl.Position == p {
			return pl
		}
	}
	return nil
}

// freeCells lists in-bounds cells without walls, food or players, row-major.
func (g *Grid) freeCells() []Position {
	occupied := make(map[Position]struct{}, len(g.Players))
	for _, p := range g.Players {
		occupied[p.Position] = struct{}{}
	}
	out := make([]Position, 0, g.Config.Rows*g.Config.Columns)
	for r := 0; r < g.Config.Rows; r++ {
		for c := 0; c < g.Config.Columns; c++ {
			p := Position{r, c}
			if g.HasWall(p) || g.HasFood(p) {
				continue
			}
			if _, ok := occupied[p]; ok {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

func (g *Grid) randomFreeCell() (Position, bool) {
	cells := g.freeCells()
	if len(cells) == 0 {
		return Position{}, false
	}
	return cells[g.rng.IntN(len(cells))], true
}

func fermi(beta, p1, p2 float64) float64 {
	return 1 / (1 + math.Exp(-beta*(p1-p2)))
}
