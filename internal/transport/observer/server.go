package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"

	"griduniverse.ai/internal/sim/grid"
)

// StateSource is the running game an observer reads from.
type StateSource interface {
	RunID() string
	State() grid.State
}

// BootstrapResponse is the full grid a fresh observer starts from before
// following deltas on the websocket.
type BootstrapResponse struct {
	RunID string     `json:"run_id"`
	State grid.State `json:"state"`
}

// Server answers bootstrap requests from local observers.
type Server struct {
	log *log.Logger

	mu       sync.Mutex
	src      StateSource
	attachID uint64
}

func NewServer(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{log: logger}
}

// Attach serves src until the returned detach is called.
func (s *Server) Attach(src StateSource) (detach func()) {
	s.mu.Lock()
	s.attachID++
	id := s.attachID
	s.src = src
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		if s.attachID == id {
			s.src = nil
		}
		s.mu.Unlock()
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		s.mu.Lock()
		src := s.src
		s.mu.Unlock()
		if src == nil {
			http.Error(rw, "no run in progress", http.StatusServiceUnavailable)
			return
		}

		resp := BootstrapResponse{RunID: src.RunID(), State: src.State()}
		rw.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(rw).Encode(resp); err != nil {
			s.log.Printf("bootstrap: %v", err)
		}
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
