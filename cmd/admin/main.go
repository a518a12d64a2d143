package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"griduniverse.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints every run under the data dir with its final round, if any.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "index" {
			continue
		}
		h, err := snapshot.ReadHeader(snapshot.PathFor(*dataDir, e.Name()))
		if err != nil {
			fmt.Printf("%s\tunfinished\n", e.Name())
			continue
		}
		fmt.Printf("%s\tround=%d\tfinished=%s\n", e.Name(), h.Round, h.TakenAt.Format("2006-01-02T15:04:05Z"))
	}
}

func indexPath(dataDir string) string {
	return filepath.Join(dataDir, "index", "griduniverse.sqlite")
}
