package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	persistlog "griduniverse.ai/internal/persistence/log"
	"griduniverse.ai/internal/persistence/snapshot"
	"griduniverse.ai/internal/sim/game"
	"griduniverse.ai/internal/sim/grid"
)

func main() {
	var (
		dataDir = flag.String("data", "./data", "runtime data directory")
		runID   = flag.String("run", "", "run id")
	)
	flag.Parse()

	if *runID == "" {
		fmt.Fprintln(os.Stderr, "missing -run")
		os.Exit(2)
	}

	recs, err := persistlog.ReadRunLog(*dataDir, *runID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read run log:", err)
		os.Exit(1)
	}
	sum, err := summarize(recs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("run %s: records=%d states=%d events=%d configs=%d last_round=%d\n",
		*runID, len(recs), sum.States, sum.Events, sum.Configs, sum.LastState.Round)

	snapPath := snapshot.PathFor(*dataDir, *runID)
	if _, err := os.Stat(snapPath); err != nil {
		fmt.Println("no final snapshot; run did not finish")
		return
	}
	snap, err := snapshot.ReadSnapshot(snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	if err := compare(sum.LastState, snap.State); err != nil {
		fmt.Fprintln(os.Stderr, "replay mismatch:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: snapshot round=%d players=%d payoffs=%v\n", snap.Header.Round, len(snap.State.Players), snap.Payoffs)
}

type summary struct {
	States, Events, Configs int
	LastState               grid.State
}

// summarize walks a run log. State rounds never decrease.
func summarize(recs []game.Record) (summary, error) {
	var s summary
	for i, r := range recs {
		switch r.Kind {
		case game.KindConfig:
			s.Configs++
		case game.KindEvent:
			s.Events++
		case game.KindState:
			var st grid.State
			if err := json.Unmarshal(r.Details, &st); err != nil {
				return s, fmt.Errorf("record %d: %w", i, err)
			}
			if s.States > 0 && st.Round < s.LastState.Round {
				return s, fmt.Errorf("record %d: round went back from %d to %d", i, s.LastState.Round, st.Round)
			}
			s.States++
			s.LastState = st
		}
	}
	return s, nil
}

// compare checks the last logged state against the final snapshot.
func compare(last, final grid.State) error {
	if last.Round != final.Round {
		return fmt.Errorf("round log=%d snapshot=%d", last.Round, final.Round)
	}
	if len(last.Players) != len(final.Players) {
		return fmt.Errorf("players log=%d snapshot=%d", len(last.Players), len(final.Players))
	}
	for i := range last.Players {
		if last.Players[i].ID != final.Players[i].ID {
			return fmt.Errorf("player %d log=%s snapshot=%s", i, last.Players[i].ID, final.Players[i].ID)
		}
	}
	return nil
}
