package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"
)

// ErrLockHeld is returned when another live process holds a wedding's regeneration lock
var ErrLockHeld = errors.New("regeneration lock held by another process")

// RegenerationLock is the on-disk record of a process regenerating a wedding's plan.
// It extends in-process serialization across CLI invocations sharing a database.
type RegenerationLock struct {
	WeddingID string    `json:"wedding_id"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// lockWriteGrace is how long an unreadable lock file is assumed to belong to
// a process that has created it and not yet written its record
const lockWriteGrace = 10 * time.Second

var unsafeLockChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// LockPath returns the lock file used for a wedding next to the database
func LockPath(dbPath, weddingID string) string {
	name := unsafeLockChars.ReplaceAllString(weddingID, "_")
	return filepath.Join(filepath.Dir(dbPath), "regen-"+name+".lock")
}

// AcquireRegenerationLock creates the wedding's lock file. A lock left by a
// dead process on this host is taken over. Returns the lock path for release.
func AcquireRegenerationLock(dbPath, weddingID string) (string, error) {
	if dbPath == ":memory:" {
		return "", nil
	}
	lockPath := LockPath(dbPath, weddingID)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create lock directory: %w", err)
	}

	if info, err := os.Stat(lockPath); err == nil {
		data, err := os.ReadFile(lockPath)
		if err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read regeneration lock: %w", err)
		}
		var existing RegenerationLock
		switch {
		case err != nil:
			// released between stat and read
		case json.Unmarshal(data, &existing) == nil:
			if isProcessAlive(existing.PID, existing.Hostname) {
				return "", fmt.Errorf("%w: wedding %s (PID %d on %s, started %s)", ErrLockHeld,
					weddingID, existing.PID, existing.Hostname, existing.StartedAt.Format(time.RFC3339))
			}
		case time.Since(info.ModTime()) < lockWriteGrace:
			// created but not yet written by its owner
			return "", fmt.Errorf("%w: wedding %s (lock being written)", ErrLockHeld, weddingID)
		}
		// stale; only remove the file that was inspected
		if cur, err := os.Stat(lockPath); err == nil && os.SameFile(info, cur) {
			_ = os.Remove(lockPath)
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}
	data, err := json.MarshalIndent(RegenerationLock{
		WeddingID: weddingID,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal lock: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return "", fmt.Errorf("%w: wedding %s", ErrLockHeld, weddingID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create regeneration lock: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		_ = os.Remove(lockPath)
		return "", fmt.Errorf("failed to write regeneration lock: %w", err)
	}
	return lockPath, nil
}

// ReleaseRegenerationLock removes the lock file. Safe with an empty path.
func ReleaseRegenerationLock(lockPath string) error {
	if lockPath == "" {
		return nil
	}
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove regeneration lock: %w", err)
	}
	return nil
}

// isProcessAlive reports whether pid exists on hostname. Remote hosts and
// unverifiable processes count as alive.
func isProcessAlive(pid int, hostname string) bool {
	currentHost, err := os.Hostname()
	if err != nil {
		return true
	}
	if !strings.EqualFold(hostname, currentHost) {
		return true
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
