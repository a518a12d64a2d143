package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	persistlog "griduniverse.ai/internal/persistence/log"
	"griduniverse.ai/internal/persistence/snapshot"
	"griduniverse.ai/internal/sim/game"
	"griduniverse.ai/internal/sim/grid"
	"griduniverse.ai/internal/sim/tuning"
	"griduniverse.ai/internal/transport/observer"
	"griduniverse.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (empty: built-in defaults)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		seed       = flag.Uint64("seed", 0, "grid seed (0: random)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	runID := uuid.NewString()

	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	runLog := persistlog.NewRunLog(*dataDir, runID)
	defer runLog.Close()
	sink := game.Tee{runLog}
	if idx != nil {
		sink = append(sink, idx)
	}

	hub := ws.NewHub(logger)
	obs := observer.NewServer(logger)

	opts := game.Options{Loop: tune.LoopConfig(runID)}
	if *seed != 0 {
		opts.Grid = append(opts.Grid, grid.WithRand(rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))))
	}
	gm, err := game.New(tune.GridConfig(tune.Genome), hub, sink, opts, logger)
	if err != nil {
		logger.Fatalf("game: %v", err)
	}
	gm.RecordConfig(tune.Genome)
	defer hub.AttachGame(gm)()
	defer obs.Attach(gm)()

	ctx, cancel := signalContext()
	defer cancel()

	var wg sync.WaitGroup
	botEvery := time.Duration(tune.Bots.EveryMs) * time.Millisecond
	for i := 1; i <= tune.Bots.Count; i++ {
		b := game.Bot{ID: strconv.Itoa(i), Policy: tune.Bots.Policy, Every: botEvery}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Run(ctx, gm)
		}()
	}

	started := time.Now()
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := gm.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("run stopped: %v", err)
			return
		}
		if ctx.Err() != nil {
			return
		}
		writeFinalSnapshot(*dataDir, gm, tune, logger)
		logger.Printf("run %s over after %s", runID, time.Since(started).Round(time.Second))
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		var round, players int
		var over bool
		gm.View(func(g *grid.Grid) {
			round = g.Round()
			players = len(g.PlayersInOrder())
			over = g.GameOver()
		})

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP griduniverse_round Current round of the run.\n")
		fmt.Fprintf(rw, "# TYPE griduniverse_round gauge\n")
		fmt.Fprintf(rw, "griduniverse_round{run=%q} %d\n", runID, round)

		fmt.Fprintf(rw, "# HELP griduniverse_players Players that joined the run.\n")
		fmt.Fprintf(rw, "# TYPE griduniverse_players gauge\n")
		fmt.Fprintf(rw, "griduniverse_players{run=%q} %d\n", runID, players)

		fmt.Fprintf(rw, "# HELP griduniverse_clients Connected websocket clients.\n")
		fmt.Fprintf(rw, "# TYPE griduniverse_clients gauge\n")
		fmt.Fprintf(rw, "griduniverse_clients{run=%q} %d\n", runID, hub.Clients())

		fmt.Fprintf(rw, "# HELP griduniverse_game_over Whether the run finished.\n")
		fmt.Fprintf(rw, "# TYPE griduniverse_game_over gauge\n")
		fmt.Fprintf(rw, "griduniverse_game_over{run=%q} %d\n", runID, boolGauge(over))

		if idx != nil {
			st := idx.Stats()
			fmt.Fprintf(rw, "# HELP griduniverse_index_dropped_total Records the index queue dropped.\n")
			fmt.Fprintf(rw, "# TYPE griduniverse_index_dropped_total counter\n")
			fmt.Fprintf(rw, "griduniverse_index_dropped_total %d\n", st.QueueDroppedTotal)
		}
	})
	mux.HandleFunc("/admin/v1/observer/bootstrap", obs.BootstrapHandler())
	mux.HandleFunc("/v1/ws", hub.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("run %s: waiting for %d players on %s", runID, tune.Grid.NumPlayers, *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	wg.Wait()
}

func writeFinalSnapshot(dataDir string, gm *game.Game, tune tuning.Tuning, logger *log.Logger) {
	st := gm.State()
	path := snapshot.PathFor(dataDir, gm.RunID())
	snap := snapshot.SnapshotV1{
		Header:  snapshot.Header{RunID: gm.RunID(), Round: st.Round, TakenAt: time.Now().UTC()},
		Genome:  tune.Genome,
		Payoffs: gm.Payoffs(),
		State:   st,
	}
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		logger.Printf("snapshot: %v", err)
		return
	}
	if fi, err := os.Stat(path); err == nil {
		logger.Printf("snapshot %s (%s)", path, humanize.Bytes(uint64(fi.Size())))
	}
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
