package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DataDir is the per-project directory holding the database and lock files
const DataDir = ".lovenda"

// DiscoverDatabase resolves the database path. LOVENDA_DB wins when set
// (including ":memory:"); otherwise the first .lovenda/*.db in the current
// directory is used, falling back to DefaultPath so a fresh directory just works.
// Parent directories are not searched.
func DiscoverDatabase() (string, error) {
	if dbPath := os.Getenv("LOVENDA_DB"); dbPath != "" {
		return dbPath, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	if found, ok, err := discoverDatabaseInDir(dir); err != nil {
		return "", err
	} else if ok {
		return found, nil
	}

	abs, err := filepath.Abs(filepath.Join(dir, DefaultPath))
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return abs, nil
}

// discoverDatabaseInDir looks for .lovenda/*.db in dir only
func discoverDatabaseInDir(dir string) (string, bool, error) {
	dataDir := filepath.Join(dir, DataDir)
	info, err := os.Stat(dataDir)
	if err != nil || !info.IsDir() {
		return "", false, nil
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", dataDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".db") {
			absPath, err := filepath.Abs(filepath.Join(dataDir, entry.Name()))
			if err != nil {
				return "", false, fmt.Errorf("failed to get absolute path: %w", err)
			}
			return absPath, true, nil
		}
	}
	return "", false, nil
}
