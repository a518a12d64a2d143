package grid

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownPlayer = errors.New("grid: unknown player")
	ErrPlayerExists  = errors.New("grid: player already connected")
	ErrNoRoom        = errors.New("grid: no free cell")
	ErrBadDirection  = errors.New("grid: bad direction")
	ErrBadColor      = errors.New("grid: bad color")
)

type Player struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Score    float64  `json:"score"`
	Payoff   float64  `json:"payoff"`
	ColorIdx int      `json:"color_idx"`
}

func (p *Player) Color() string { return Colors[p.ColorIdx] }

// SpawnPlayer places a new player on a free cell in the least populated color
// group (lowest index on ties), so group sizes never differ by more than one
// and assignment depends only on join order. The game starts once NumPlayers
// have joined.
func (g *Grid) SpawnPlayer(id string) (*Player, error) {
	if _, ok := g.Players[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerExists, id)
	}
	pos, ok := g.randomFreeCell()
	if !ok {
		return nil, ErrNoRoom
	}
	p := &Player{ID: id, Position: pos, ColorIdx: g.nextColor()}
	g.Players[id] = p
	g.joined = append(g.joined, id)
	if len(g.Players) >= g.Config.NumPlayers {
		g.Start()
	}
	return p, nil
}

func (g *Grid) nextColor() int {
	counts := make([]int, g.Config.NumColors)
	for _, p := range g.Players {
		if p.ColorIdx < len(counts) {
			counts[p.ColorIdx]++
		}
	}
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] < counts[best] {
			best = i
		}
	}
	return best
}

// PlayersInOrder returns players in join order.
func (g *Grid) PlayersInOrder() []*Player {
	out := make([]*Player, 0, len(g.joined))
	for _, id := range g.joined {
		if p := g.Players[id]; p != nil {
			out = append(out, p)
		}
	}
	return out
}

// PlayersWithColor returns the members of a color group in join order.
func (g *Grid) PlayersWithColor(idx int) []*Player {
	var out []*Player
	for _, p := range g.PlayersInOrder() {
		if p.ColorIdx == idx {
			out = append(out, p)
		}
	}
	return out
}

// ChangeColor moves a player to another color group.
func (g *Grid) ChangeColor(id string, idx int) error {
	p := g.Players[id]
	if p == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
	}
	if idx < 0 || idx >= g.Config.NumColors {
		return fmt.Errorf("%w: %d", ErrBadColor, idx)
	}
	p.ColorIdx = idx
	return nil
}

var directions = map[string]Position{
	"up":    {-1, 0},
	"down":  {1, 0},
	"left":  {0, -1},
	"right": {0, 1},
}

// MovePlayer steps a player one cell. Walls, the grid edge and (unless
// PlayerOverlap) other players block the move; a blocked move is not an error
// and leaves the player in place. Entering a food cell consumes it.
func (g *Grid) MovePlayer(id, direction string) (Position, error) {
	p := g.Players[id]
	if p == nil {
		return Position{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, id)
	}
	d, ok := directions[direction]
	if !ok {
		return p.Position, fmt.Errorf("%w: %q", ErrBadDirection, direction)
	}
	next := Position{p.Position[0] + d[0], p.Position[1] + d[1]}
	if !g.inBounds(next) || g.HasWall(next) {
		return p.Position, nil
	}
	if !g.Config.PlayerOverlap {
		if other := g.playerAt(next); other != nil && other.ID != id {
			return p.Position, nil
		}
	}
	p.Position = next
	g.consumeFood(p)
	return p.Position, nil
}

// AppendChat records a chat line. The history is append-only for the run.
func (g *Grid) AppendChat(playerID, contents string) ChatMessage {
	m := ChatMessage{PlayerID: playerID, Contents: contents, Timestamp: g.now()}
	g.ChatHistory = append(g.ChatHistory, m)
	return m
}
