package game

import (
	"context"
	"time"

	"griduniverse.ai/internal/protocol"
	"griduniverse.ai/internal/sim/grid"
)

// Bot policies.
const (
	PolicyAdvantageSeeking = "AdvantageSeekingBot"
	PolicyIdle             = "IdleBot"
)

// Bot is an in-process participant. It talks to the game through the same
// control channel as remote players.
type Bot struct {
	ID     string
	Policy string
	Every  time.Duration
}

// Run connects the bot and plays until the game is over.
func (b Bot) Run(ctx context.Context, gm *Game) error {
	send := func(m protocol.CtrlMsg) {
		raw, err := protocol.EncodeCtrl(m)
		if err != nil {
			gm.log.Printf("bot %s: encode: %v", b.ID, err)
			return
		}
		gm.router.Send(raw)
	}
	send(protocol.CtrlMsg{Type: protocol.TypeConnect, PlayerID: protocol.ID(b.ID)})

	every := b.Every
	if every <= 0 {
		every = 100 * time.Millisecond
	}
	for {
		if err := sleepCtx(ctx, every); err != nil {
			return err
		}
		var (
			dir  string
			over bool
		)
		gm.View(func(g *grid.Grid) {
			over = g.GameOver()
			if !over && g.GameStarted() && b.Policy != PolicyIdle {
				dir = advantageMove(g, b.ID)
			}
		})
		if over {
			return nil
		}
		if dir != "" {
			send(protocol.CtrlMsg{Type: protocol.TypeMove, PlayerID: protocol.ID(b.ID), Move: dir})
		}
	}
}

// advantageMove steps toward the nearest food.
func advantageMove(g *grid.Grid, id string) string {
	p := g.Players[id]
	if p == nil {
		return ""
	}
	target, ok := g.NearestFood(p.Position)
	if !ok {
		return ""
	}
	return grid.StepToward(p.Position, target)
}
