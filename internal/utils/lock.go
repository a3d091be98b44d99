package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	lockFileName = ".vendorscope.lock"
)

// RunLock keeps two runs from writing the same output directory.
type RunLock struct {
	lock *flock.Flock
	path string
}

// NewRunLock creates a lock for the given output directory, creating the
// directory when needed.
func NewRunLock(outDir string) (*RunLock, error) {
	absDir, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute output path: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}
	lockPath := filepath.Join(absDir, lockFileName)
	return &RunLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the lock, waiting if necessary.
// It will log a message if it has to wait.
func (l *RunLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		Log.Warnf("Another vendorscope run is writing to %s, waiting for it to finish...", filepath.Dir(l.path))
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// TryLock acquires the lock without waiting.
func (l *RunLock) TryLock() (bool, error) {
	return l.lock.TryLock()
}

// Unlock releases the lock.
func (l *RunLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// Suppress error if the lock file doesn't exist, as it means we don't hold the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}
