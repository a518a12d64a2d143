package grid

import (
	"encoding/json"
	"sort"
)

type PlayerState struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Score    float64  `json:"score"`
	Payoff   float64  `json:"payoff"`
	Color    string   `json:"color"`
}

// State is the wire view of a grid. Walls and Food are omitted from deltas
// unless they changed since the last ResetUpdated.
type State struct {
	Rows          int           `json:"rows"`
	Columns       int           `json:"columns"`
	Round         int           `json:"round"`
	RemainingTime float64       `json:"remaining_time"`
	GameOver      bool          `json:"game_over"`
	Players       []PlayerState `json:"players"`
	Walls         []Position    `json:"walls,omitempty"`
	Food          []Position    `json:"food,omitempty"`
	Chat          []ChatMessage `json:"chat,omitempty"`
}

// Snapshot builds the state view. full forces walls and food in.
func (g *Grid) Snapshot(full bool) State {
	s := State{
		Rows:          g.Config.Rows,
		Columns:       g.Config.Columns,
		Round:         g.round,
		RemainingTime: g.RemainingTime().Seconds(),
		GameOver:      g.over,
	}
	for _, p := range g.PlayersInOrder() {
		s.Players = append(s.Players, PlayerState{
			ID:       p.ID,
			Position: p.Position,
			Score:    p.Score,
			Payoff:   p.Payoff,
			Color:    p.Color(),
		})
	}
	if full || g.WallsUpdated {
		s.Walls = sortedCells(g.walls)
	}
	if full || g.FoodUpdated {
		s.Food = sortedCells(g.food)
	}
	if full && g.Config.ShowChatroom {
		s.Chat = append([]ChatMessage(nil), g.ChatHistory...)
	}
	return s
}

// Serialize encodes Snapshot(full) as JSON.
func (g *Grid) Serialize(full bool) ([]byte, error) {
	return json.Marshal(g.Snapshot(full))
}

func sortedCells(set map[Position]struct{}) []Position {
	out := make([]Position, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}
