package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"griduniverse.ai/internal/persistence/export"
	"griduniverse.ai/internal/persistence/indexdb"
	persistlog "griduniverse.ai/internal/persistence/log"
	"griduniverse.ai/internal/sim/evolve"
	"griduniverse.ai/internal/sim/fitness"
	"griduniverse.ai/internal/sim/game"
	"griduniverse.ai/internal/sim/genome"
	"griduniverse.ai/internal/sim/tuning"
	"griduniverse.ai/internal/transport/observer"
	"griduniverse.ai/internal/transport/ws"
)

func main() {
	var (
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (empty: built-in defaults)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		addr       = flag.String("addr", ":8080", "http listen address for participants in human mode")
		seed       = flag.Uint64("seed", 0, "generator and grid seed (0: random; overrides evolution.seed)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[evolve] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	s := tune.Evolution.Seed
	if *seed != 0 {
		s = *seed
	}
	if s == 0 {
		s = rand.Uint64()
	}
	logger.Printf("seed=%d", s)

	ctx, cancel := signalContext()
	defer cancel()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "griduniverse.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
	}

	results, err := export.NewResultsCSV(*dataDir)
	if err != nil {
		logger.Fatalf("results: %v", err)
	}
	defer results.Close()

	hub := ws.NewHub(logger)
	obs := observer.NewServer(logger)

	ecfg := tune.EvolveConfig()
	launcher := &game.Launcher{
		Base: tune.GridConfig(tune.Genome),
		Loop: tune.LoopConfig(""),
		Pub:  hub,
		NewSink: func(runID string) (game.Sink, error) {
			return openRunSinks(*dataDir, runID, idx), nil
		},
		Attach: func(gm *game.Game) func() {
			detachHub := hub.AttachGame(gm)
			detachObs := obs.Attach(gm)
			return func() {
				detachObs()
				detachHub()
			}
		},
		BotEvery: time.Duration(tune.Bots.EveryMs) * time.Millisecond,
		Seed:     s,
		Log:      logger,
	}

	var source fitness.Source = fitness.NewAutomated(fitness.NewEvaluator(logger))
	if ecfg.Recruiter == evolve.RecruiterHuman {
		source = fitness.Human{}
		launcher.Rater = newPromptRater(os.Stdin, os.Stdout)
		srv := serveParticipants(ctx, *addr, hub, obs, logger)
		defer srv.Close()
	}

	gen := genome.NewGenerator(rand.New(rand.NewPCG(s, s^0x5851f42d4c957f2d)), logger)
	ctl, err := evolve.NewController(ecfg, gen, source, launcher, logger)
	if err != nil {
		logger.Fatalf("controller: %v", err)
	}

	var (
		runs, failed, events int
		started              = time.Now()
	)
	ctl.OnResult = func(r evolve.Result) {
		runs++
		events += r.Outcome.Events
		if r.Err != nil {
			failed++
		}
		if idx != nil {
			idx.RecordResult(r)
		}
		if err := results.Write(r); err != nil {
			logger.Printf("results: %v", err)
		}
	}

	record, err := ctl.Run(ctx)
	switch {
	case errors.Is(err, genome.ErrZeroFitness):
		logger.Printf("experiment aborted: every parent scored zero")
	case errors.Is(err, context.Canceled):
		logger.Printf("experiment interrupted")
	case err != nil:
		logger.Printf("experiment failed: %v", err)
	}
	if idx != nil {
		if err := idx.Commit(); err != nil {
			logger.Printf("index commit: %v", err)
		}
	}

	logger.Printf("%s runs (%s failed), %s events in %s",
		humanize.Comma(int64(runs)), humanize.Comma(int64(failed)), humanize.Comma(int64(events)),
		time.Since(started).Round(time.Millisecond))
	for _, slot := range record.Slots() {
		e, _ := record.Get(slot)
		logger.Printf("slot %d: fun %d genome %+v", slot+1, e.Score, e.Genome)
	}
	if p := results.Path(); p != "" {
		logger.Printf("results written to %s", p)
	}
	if err != nil {
		// os.Exit skips deferred calls.
		_ = results.Close()
		if idx != nil {
			_ = idx.Close()
		}
		os.Exit(1)
	}
}

// runSinks writes a run's records to its own log and to the shared index.
// Close only closes the run log.
type runSinks struct {
	game.Tee
	log *persistlog.RunLog
}

func (s runSinks) Close() error { return s.log.Close() }

func openRunSinks(dataDir, runID string, idx *indexdb.SQLiteIndex) runSinks {
	l := persistlog.NewRunLog(dataDir, runID)
	tee := game.Tee{l}
	if idx != nil {
		tee = append(tee, idx)
	}
	return runSinks{Tee: tee, log: l}
}

func serveParticipants(ctx context.Context, addr string, hub *ws.Hub, obs *observer.Server, logger *log.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/admin/v1/observer/bootstrap", obs.BootstrapHandler())
	mux.HandleFunc("/v1/ws", hub.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Printf("participants connect on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("ListenAndServe: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	return srv
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
