package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"griduniverse.ai/internal/protocol"
	"griduniverse.ai/internal/sim/grid"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		id    = flag.String("id", "1", "player id")
		every = flag.Duration("every", 200*time.Millisecond, "minimum time between moves")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send := func(m protocol.CtrlMsg) error {
		raw, err := protocol.EncodeCtrl(m)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, []byte(raw))
	}
	if err := send(protocol.CtrlMsg{Type: protocol.TypeConnect, PlayerID: protocol.ID(*id)}); err != nil {
		logger.Fatalf("send connect: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	var (
		food     []grid.Position
		lastMove time.Time
	)
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeStop:
			logger.Printf("game over")
			return

		case protocol.TypeNewRound:
			var nr protocol.NewRoundMsg
			if err := json.Unmarshal(msg, &nr); err == nil {
				logger.Printf("round %d", nr.Round)
			}

		case protocol.TypeState:
			var sm protocol.StateMsg
			if err := json.Unmarshal(msg, &sm); err != nil {
				continue
			}
			var st grid.State
			if err := json.Unmarshal(sm.Grid, &st); err != nil {
				continue
			}
			if st.Food != nil {
				food = st.Food
			}
			if time.Since(lastMove) < *every {
				continue
			}
			if dir := nextMove(st, *id, food); dir != "" {
				if err := send(protocol.CtrlMsg{Type: protocol.TypeMove, PlayerID: protocol.ID(*id), Move: dir}); err != nil {
					logger.Printf("send move: %v", err)
					return
				}
				lastMove = time.Now()
			}
		}
	}
}

// nextMove steps toward the nearest known food, along the longer axis first.
func nextMove(st grid.State, id string, food []grid.Position) string {
	var (
		self  grid.Position
		found bool
	)
	for _, p := range st.Players {
		if p.ID == id {
			self, found = p.Position, true
			break
		}
	}
	if !found || len(food) == 0 {
		return ""
	}
	best, bestD := food[0], -1
	for _, f := range food {
		d := abs(f.Row()-self.Row()) + abs(f.Column()-self.Column())
		if bestD < 0 || d < bestD {
			best, bestD = f, d
		}
	}
	return grid.StepToward(self, best)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
