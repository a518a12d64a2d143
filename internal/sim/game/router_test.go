package game

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"griduniverse.ai/internal/protocol"
	"griduniverse.ai/internal/sim/grid"
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestGame(t *testing.T, mutate func(*grid.Config), logger *log.Logger) (*Game, *recordingPub, *countingSink) {
	t.Helper()
	cfg := grid.DefaultConfig()
	cfg.Rows, cfg.Columns = 10, 10
	cfg.NumPlayers = 2
	if mutate != nil {
		mutate(&cfg)
	}
	if logger == nil {
		logger = quietLogger()
	}
	pub := &recordingPub{}
	sink := &countingSink{}
	opts := Options{
		Loop: LoopConfig{RunID: "run-test"},
		Grid: []grid.Option{grid.WithRand(rand.New(rand.NewPCG(3, 4)))},
	}
	gm, err := New(cfg, pub, sink, opts, logger)
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	return gm, pub, sink
}

func TestRouter_ConnectCreatesNodeAndPlayer(t *testing.T) {
	gm, _, sink := newTestGame(t, nil, nil)
	gm.Router().Send(`griduniverse_ctrl:{"type":"connect","player_id":1}`)

	nd, ok := gm.Nodes().ForPlayer("1")
	if !ok || nd.ID == gm.Nodes().Environment().ID {
		t.Fatalf("node=%+v ok=%v", nd, ok)
	}
	gm.View(func(g *grid.Grid) {
		if _, ok := g.Players["1"]; !ok {
			t.Fatalf("player 1 not on grid")
		}
	})
	if len(sink.adds) != 1 || sink.adds[0].NodeID != nd.ID {
		t.Fatalf("records=%+v", sink.adds)
	}
}

func TestRouter_ConnectSpectatorIsNoop(t *testing.T) {
	gm, _, sink := newTestGame(t, nil, nil)
	gm.Router().Send(`griduniverse_ctrl:{"type":"connect","player_id":"spectator"}`)
	if _, ok := gm.Nodes().ForPlayer("spectator"); ok {
		t.Fatalf("spectator got a node")
	}
	gm.View(func(g *grid.Grid) {
		if len(g.Players) != 0 {
			t.Fatalf("players=%d want=0", len(g.Players))
		}
	})
	if len(sink.adds) != 0 {
		t.Fatalf("records=%d want=0", len(sink.adds))
	}
}

func TestRouter_MoveIsRecordedOnPlayerNode(t *testing.T) {
	gm, _, sink := newTestGame(t, nil, nil)
	gm.Router().Send(`griduniverse_ctrl:{"type":"connect","player_id":1}`)
	gm.Router().Send(`griduniverse_ctrl:{"type":"move","player_id":1,"move":"left"}`)

	last := sink.adds[len(sink.adds)-1]
	var details map[string]any
	if err := json.Unmarshal(last.Details, &details); err != nil {
		t.Fatalf("details: %v", err)
	}
	if details["player_id"] != "1" || details["move"] != "left" {
		t.Fatalf("details=%v", details)
	}
	nd, _ := gm.Nodes().ForPlayer("1")
	if last.NodeID != nd.ID || last.Kind != KindEvent {
		t.Fatalf("record=%+v", last)
	}
}

func TestRouter_Chat(t *testing.T) {
	cases := []struct {
		name        string
		raw         string
		republished int
	}{
		{"plain", `griduniverse_ctrl:{"type":"chat","player_id":1,"contents":"hello!"}`, 1},
		{"broadcast", `griduniverse_ctrl:{"type":"chat","player_id":1,"contents":"hello!","broadcast":"true"}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gm, pub, _ := newTestGame(t, nil, nil)
			gm.Router().Send(`griduniverse_ctrl:{"type":"connect","player_id":1}`)
			gm.Router().Send(tc.raw)
			gm.View(func(g *grid.Grid) {
				if len(g.ChatHistory) != 1 || g.ChatHistory[0].Contents != "hello!" {
					t.Fatalf("history=%+v", g.ChatHistory)
				}
			})
			if got := len(pub.Messages()); got != tc.republished {
				t.Fatalf("published=%d want=%d", got, tc.republished)
			}
		})
	}
}

func TestRouter_GroupDonation(t *testing.T) {
	gm, pub, _ := newTestGame(t, func(c *grid.Config) {
		c.NumColors = 2
		c.DonationGroup = true
		c.DonationAmount = 1
	}, nil)
	r := gm.Router()
	r.Send(`griduniverse_ctrl:{"type":"connect","player_id":1}`)
	r.Send(`griduniverse_ctrl:{"type":"connect","player_id":2}`)

	var donorColor string
	gm.View(func(g *grid.Grid) {
		g.Players["1"].Score = 2
		donorColor = g.Players["1"].Color()
	})
	r.Send(`griduniverse_ctrl:{"type":"change_color","player_id":2,"color":"` + donorColor + `"}`)
	r.Send(`griduniverse_ctrl:{"type":"donation","donor_id":1,"recipient_id":"group:0","amount":2}`)

	gm.View(func(g *grid.Grid) {
		if g.Players["1"].Score != 1 || g.Players["2"].Score != 1 {
			t.Fatalf("scores=%v,%v want=1,1", g.Players["1"].Score, g.Players["2"].Score)
		}
	})
	msgs := pub.Messages()
	if len(msgs) != 1 {
		t.Fatalf("published=%v", msgs)
	}
	d, ok := msgs[0].(protocol.DonationProcessedMsg)
	if !ok || d.Share != 1 || len(d.Recipients) != 2 {
		t.Fatalf("message=%#v", msgs[0])
	}
}

func TestRouter_NoGridChangesAfterGameOver(t *testing.T) {
	gm, _, sink := newTestGame(t, func(c *grid.Config) {
		c.NumPlayers = 1
		c.NumRounds = 1
		c.TimePerRound = 20 * time.Millisecond
	}, nil)
	r := gm.Router()
	r.Send(`griduniverse_ctrl:{"type":"connect","player_id":1}`)

	deadline := time.Now().Add(2 * time.Second)
	for {
		var over bool
		gm.View(func(g *grid.Grid) {
			g.ComputePayoffs()
			g.CheckRoundCompletion()
			over = g.GameOver()
		})
		if over {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("game never ended")
		}
		time.Sleep(5 * time.Millisecond)
	}

	before := gm.Payoffs()
	recorded := len(sink.adds)
	var color, other string
	gm.View(func(g *grid.Grid) {
		p := g.Players["1"]
		color = p.Color()
		other = grid.Colors[(p.ColorIdx+1)%g.Config.NumColors]
	})

	r.Send(`griduniverse_ctrl:{"type":"connect","player_id":2}`)
	r.Send(`griduniverse_ctrl:{"type":"change_color","player_id":1,"color":"` + other + `"}`)

	after := gm.Payoffs()
	if len(after) != len(before) {
		t.Fatalf("payoffs before=%v after=%v", before, after)
	}
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("payoffs before=%v after=%v", before, after)
		}
	}
	gm.View(func(g *grid.Grid) {
		if len(g.Players) != 1 {
			t.Fatalf("players=%d want=1", len(g.Players))
		}
		if got := g.Players["1"].Color(); got != color {
			t.Fatalf("color=%s want=%s", got, color)
		}
	})
	if _, ok := gm.Nodes().ForPlayer("2"); ok {
		t.Fatalf("late connect created a node")
	}
	if len(sink.adds) != recorded {
		t.Fatalf("records=%d want=%d", len(sink.adds), recorded)
	}
}

func TestRouter_MalformedIsDropped(t *testing.T) {
	var buf bytes.Buffer
	gm, pub, sink := newTestGame(t, nil, log.New(&buf, "", 0))
	gm.Router().Send(`griduniverse_ctrl:{"type":"move"`)
	gm.Router().Send(`griduniverse_ctrl:{"type":"move","player_id":9,"move":"up"}`)
	gm.Router().Send(`just chatter`)
	if len(sink.adds) != 0 || len(pub.Messages()) != 0 {
		t.Fatalf("malformed messages had effects")
	}
	if n := strings.Count(buf.String(), "drop"); n != 2 {
		t.Fatalf("drop logs=%d want=2: %s", n, buf.String())
	}
}

func TestRecordEvent_Targets(t *testing.T) {
	gm, _, sink := newTestGame(t, nil, nil)
	gm.Router().Send(`griduniverse_ctrl:{"type":"connect","player_id":1}`)
	sink.adds, sink.commits = nil, 0

	gm.Recorder().RecordEvent(map[string]any{"data": []string{"some data"}}, "1")
	gm.Recorder().RecordEvent(map[string]any{"data": []string{"some data"}}, "")
	if len(sink.adds) != 2 || sink.commits != 2 {
		t.Fatalf("adds=%d commits=%d want=2,2", len(sink.adds), sink.commits)
	}
	nd, _ := gm.Nodes().ForPlayer("1")
	if sink.adds[0].NodeID != nd.ID || sink.adds[1].NodeID != 1 {
		t.Fatalf("node ids=%d,%d", sink.adds[0].NodeID, sink.adds[1].NodeID)
	}
}

func TestRecordEvent_FailedNodeIsLoggedAndSkipped(t *testing.T) {
	var buf bytes.Buffer
	gm, _, sink := newTestGame(t, nil, log.New(&buf, "", 0))
	gm.Nodes().Fail(gm.Nodes().Environment())

	gm.Recorder().RecordEvent(map[string]any{"data": []string{"some data"}}, "")
	if len(sink.adds) != 0 || sink.commits != 0 {
		t.Fatalf("adds=%d commits=%d want=0,0", len(sink.adds), sink.commits)
	}
	if !strings.HasPrefix(buf.String(), "Tried to record an event after node#1 failure:") {
		t.Fatalf("log=%q", buf.String())
	}
}
