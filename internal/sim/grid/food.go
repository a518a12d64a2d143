package grid

import "math"

// NumFood is the current food target.
func (g *Grid) NumFood() int { return int(math.Round(g.foodTarget)) }

func (g *Grid) FoodCount() int { return len(g.food) }

// SpawnFood drops one food item on a random free cell. It reports false when
// the grid has no free cell left.
func (g *Grid) SpawnFood() bool {
	pos, ok := g.randomFreeCell()
	if !ok {
		return false
	}
	g.food[pos] = struct{}{}
	g.FoodUpdated = true
	return true
}

func (g *Grid) consumeFood(p *Player) {
	if !g.HasFood(p.Position) {
		return
	}
	delete(g.food, p.Position)
	p.Score += g.Config.FoodReward
	g.FoodUpdated = true
	if g.Config.RespawnFood {
		g.SpawnFood()
	}
}

// GrowFood scales the food target by the growth rate, compounded by the
// seasonal rate on odd rounds, and clamps it to the number of open cells.
func (g *Grid) GrowFood() {
	rate := g.Config.FoodGrowthRate
	if g.round%2 == 1 {
		rate *= g.Config.SeasonalGrowthRate
	}
	target := g.foodTarget * rate
	open := float64(g.Config.Rows*g.Config.Columns - len(g.walls))
	g.foodTarget = math.Max(0, math.Min(target, open))
}

// BuildLabyrinth carves a depth-first maze over the grid and keeps each
// maze wall with probability WallsDensity. A zero density builds nothing.
func (g *Grid) BuildLabyrinth() {
	if g.Config.WallsDensity <= 0 {
		return
	}
	rows, cols := g.Config.Rows, g.Config.Columns
	// Rooms sit on even coordinates; everything else starts as wall.
	candidate := map[Position]struct{}{}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if r%2 == 1 || c%2 == 1 {
				candidate[Position{r, c}] = struct{}{}
			}
		}
	}
	visited := map[Position]bool{{0, 0}: true}
	stack := []Position{{0, 0}}
	steps := []Position{{-2, 0}, {2, 0}, {0, -2}, {0, 2}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		var next []Position
		for _, s := range steps {
			n := Position{cur[0] + s[0], cur[1] + s[1]}
			if g.inBounds(n) && !visited[n] {
				next = append(next, n)
			}
		}
		if len(next) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}
		n := next[g.rng.IntN(len(next))]
		delete(candidate, Position{(cur[0] + n[0]) / 2, (cur[1] + n[1]) / 2})
		visited[n] = true
		stack = append(stack, n)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			p := Position{r, c}
			if _, ok := candidate[p]; !ok || g.playerAt(p) != nil || g.HasFood(p) {
				continue
			}
			if g.rng.Float64() < g.Config.WallsDensity {
				g.walls[p] = struct{}{}
			}
		}
	}
	g.WallsUpdated = true
}

// NearestFood returns the food item closest to from by Manhattan distance,
// ties broken row-major.
func (g *Grid) NearestFood(from Position) (Position, bool) {
	best, bestD, found := Position{}, 0, false
	for _, p := range sortedCells(g.food) {
		d := abs(p[0]-from[0]) + abs(p[1]-from[1])
		if !found || d < bestD {
			best, bestD, found = p, d, true
		}
	}
	return best, found
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// StepToward names the move that brings from closer to to, along the longer
// axis first. It is empty when the two coincide.
func StepToward(from, to Position) string {
	dr, dc := to.Row()-from.Row(), to.Column()-from.Column()
	switch {
	case dr == 0 && dc == 0:
		return ""
	case abs(dr) >= abs(dc) && dr < 0:
		return "up"
	case abs(dr) >= abs(dc):
		return "down"
	case dc < 0:
		return "left"
	default:
		return "right"
	}
}
