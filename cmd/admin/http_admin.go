package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"griduniverse.ai/internal/transport/observer"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	cl := &http.Client{Timeout: 5 * time.Second}
	boot, err := fetchState(cl, *baseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "state:", err)
		os.Exit(1)
	}
	printState(os.Stdout, boot)
}

// fetchState reads the bootstrap state of the run a server is playing.
func fetchState(cl *http.Client, baseURL string) (observer.BootstrapResponse, error) {
	var boot observer.BootstrapResponse
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/admin/v1/observer/bootstrap"
	resp, err := cl.Get(u)
	if err != nil {
		return boot, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return boot, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&boot); err != nil {
		return boot, fmt.Errorf("decode bootstrap: %w", err)
	}
	return boot, nil
}

func printState(w io.Writer, boot observer.BootstrapResponse) {
	st := boot.State
	fmt.Fprintf(w, "run %s: round=%d remaining=%.1fs game_over=%v grid=%dx%d food=%d walls=%d\n",
		boot.RunID, st.Round, st.RemainingTime, st.GameOver, st.Rows, st.Columns, len(st.Food), len(st.Walls))
	for _, p := range st.Players {
		fmt.Fprintf(w, "  player %s %s at %v score=%.2f payoff=%.4f\n", p.ID, p.Color, p.Position, p.Score, p.Payoff)
	}
}
