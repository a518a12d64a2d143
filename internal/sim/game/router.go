package game

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"griduniverse.ai/internal/protocol"
	"griduniverse.ai/internal/sim/grid"
)

// Router applies inbound control messages to the grid. Handlers take the
// same lock as the tick loop, so a message never interleaves with a round.
type Router struct {
	mu    sync.Locker
	grid  *grid.Grid
	nodes *Nodes
	rec   *Recorder
	pub   Publisher
	log   *log.Logger
}

func NewRouter(mu sync.Locker, g *grid.Grid, nodes *Nodes, rec *Recorder, pub Publisher, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.Default()
	}
	return &Router{mu: mu, grid: g, nodes: nodes, rec: rec, pub: pub, log: logger}
}

// Send handles one raw channel message. Non-control text is ignored;
// malformed or rejected control messages are logged and dropped.
func (r *Router) Send(raw string) {
	m, err := protocol.ParseCtrl(raw)
	if errors.Is(err, protocol.ErrNotControl) {
		return
	}
	if err != nil {
		r.log.Printf("drop control message: %v", err)
		return
	}
	if err := r.Handle(m); err != nil {
		r.log.Printf("drop %s from %q: %v", m.Type, m.PlayerID, err)
	}
}

// Handle dispatches a decoded control message and records it once applied.
func (r *Router) Handle(m protocol.CtrlMsg) error {
	var (
		owner string
		err   error
	)
	switch m.Type {
	case protocol.TypeConnect:
		if !m.PlayerID.Participant() {
			return nil
		}
		owner, err = string(m.PlayerID), r.handleConnect(string(m.PlayerID))
	case protocol.TypeMove:
		owner, err = string(m.PlayerID), r.handleMove(m)
	case protocol.TypeChat:
		owner, err = string(m.PlayerID), r.handleChat(m)
	case protocol.TypeChangeColor:
		owner, err = string(m.PlayerID), r.handleChangeColor(m)
	case protocol.TypeDonation:
		owner, err = string(m.DonorID), r.handleDonation(m)
	default:
		err = fmt.Errorf("unknown type %q", m.Type)
	}
	if err != nil {
		return err
	}
	r.rec.RecordEvent(m, owner)
	return nil
}

func (r *Router) handleConnect(id string) error {
	r.mu.Lock()
	if r.grid.GameOver() {
		r.mu.Unlock()
		return errGameOver
	}
	_, err := r.grid.SpawnPlayer(id)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.nodes.Create(id)
	return nil
}

func (r *Router) handleMove(m protocol.CtrlMsg) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.grid.GameOver() {
		return errGameOver
	}
	_, err := r.grid.MovePlayer(string(m.PlayerID), m.Move)
	return err
}

func (r *Router) handleChat(m protocol.CtrlMsg) error {
	r.mu.Lock()
	line := r.grid.AppendChat(string(m.PlayerID), m.Contents)
	r.mu.Unlock()
	if m.Broadcast {
		return nil
	}
	// Republished copies carry the flag so they are not echoed again.
	r.publish(protocol.ChatMsg{
		Type:      protocol.TypeChat,
		PlayerID:  line.PlayerID,
		Contents:  line.Contents,
		Broadcast: true,
		Timestamp: line.Timestamp.Format(time.RFC3339Nano),
	})
	return nil
}

func (r *Router) handleChangeColor(m protocol.CtrlMsg) error {
	idx, ok := grid.ColorIndex(m.Color)
	if !ok {
		return fmt.Errorf("%w: %q", grid.ErrBadColor, m.Color)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.grid.GameOver() {
		return errGameOver
	}
	return r.grid.ChangeColor(string(m.PlayerID), idx)
}

func (r *Router) handleDonation(m protocol.CtrlMsg) error {
	r.mu.Lock()
	if r.grid.GameOver() {
		r.mu.Unlock()
		return errGameOver
	}
	d, err := r.grid.Donate(string(m.DonorID), string(m.RecipientID), m.Amount)
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.publish(protocol.DonationProcessedMsg{
		Type:        protocol.TypeDonationProcessed,
		DonorID:     d.DonorID,
		RecipientID: d.RecipientID,
		Amount:      d.Amount,
		Share:       d.Share,
		Recipients:  d.Recipients,
	})
	return nil
}

// publish failures never undo an applied event.
func (r *Router) publish(v any) {
	if err := r.pub.Publish(v); err != nil {
		r.log.Printf("publish: %v", err)
	}
}

var errGameOver = errors.New("game over")
