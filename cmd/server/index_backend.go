package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"griduniverse.ai/internal/persistence/indexdb"
)

// openRuntimeIndex opens the optional SQLite read model. GU_INDEX_BACKEND
// selects it; it never affects the simulation.
func openRuntimeIndex(dataDir string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("GU_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "griduniverse.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported GU_INDEX_BACKEND: %s", backend)
	}
}
