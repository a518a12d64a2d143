package observer

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"griduniverse.ai/internal/sim/grid"
)

type fixedSource struct{ st grid.State }

func (f fixedSource) RunID() string     { return "run-1" }
func (f fixedSource) State() grid.State { return f.st }

func TestBootstrap_ServesAttachedState(t *testing.T) {
	s := NewServer(log.New(io.Discard, "", 0))
	h := s.BootstrapHandler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/bootstrap", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	h(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code=%d want=503 before attach", rec.Code)
	}

	detach := s.Attach(fixedSource{st: grid.State{Rows: 5, Columns: 6, Round: 1}})
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d want=200", rec.Code)
	}
	var got BootstrapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RunID != "run-1" || got.State.Rows != 5 || got.State.Columns != 6 || got.State.Round != 1 {
		t.Fatalf("got=%+v", got)
	}

	detach()
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code=%d want=503 after detach", rec.Code)
	}
}

func TestBootstrap_RejectsRemote(t *testing.T) {
	s := NewServer(log.New(io.Discard, "", 0))
	s.Attach(fixedSource{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/bootstrap", nil)
	req.RemoteAddr = "10.1.2.3:4444"
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code=%d want=403", rec.Code)
	}
}

func TestAttach_StaleDetachKeepsNewerSource(t *testing.T) {
	s := NewServer(log.New(io.Discard, "", 0))
	h := s.BootstrapHandler()
	req := httptest.NewRequest(http.MethodGet, "/bootstrap", nil)
	req.RemoteAddr = "127.0.0.1:5555"

	detachOld := s.Attach(fixedSource{st: grid.State{Round: 1}})
	detachNew := s.Attach(fixedSource{st: grid.State{Round: 2}})
	detachOld()

	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d want=200 after stale detach", rec.Code)
	}
	var got BootstrapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State.Round != 2 {
		t.Fatalf("round=%d want=2", got.State.Round)
	}

	detachNew()
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code=%d want=503", rec.Code)
	}
}
