package main

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"griduniverse.ai/internal/sim/grid"
	"griduniverse.ai/internal/transport/observer"
)

type stubRun struct{ st grid.State }

func (s *stubRun) RunID() string     { return "run-7" }
func (s *stubRun) State() grid.State { return s.st }

func TestFetchState_DecodesBootstrap(t *testing.T) {
	obs := observer.NewServer(log.New(io.Discard, "", 0))
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/v1/observer/bootstrap", obs.BootstrapHandler())
	srv := httptest.NewServer(mux)
	defer srv.Close()

	if _, err := fetchState(srv.Client(), srv.URL); err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("err=%v want 503 before attach", err)
	}

	detach := obs.Attach(&stubRun{st: grid.State{
		Rows: 4, Columns: 5, Round: 2,
		Players: []grid.PlayerState{{ID: "1", Position: grid.Position{1, 2}, Score: 3, Color: "RED"}},
		Food:    []grid.Position{{0, 0}},
	}})
	defer detach()

	boot, err := fetchState(srv.Client(), srv.URL+"/")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if boot.RunID != "run-7" || boot.State.Round != 2 || len(boot.State.Players) != 1 {
		t.Fatalf("boot=%+v", boot)
	}

	var out bytes.Buffer
	printState(&out, boot)
	for _, want := range []string{"run run-7: round=2", "grid=4x5 food=1", "player 1 RED at [1 2] score=3.00"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output %q missing %q", out.String(), want)
		}
	}
}
