// Package guard serializes rewrite attempts per repository. The scheduler
// itself is pure, but the rebase engine mutates shared on-disk state, so
// only one rewrite may run against a repository at a time. The lock is a
// TOML file inside the .git directory recording who holds it.
package guard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const lockFileName = "regroup.lock"

// ErrLocked is returned when another live process already holds the lock.
var ErrLocked = errors.New("guard: another rewrite is already in progress")

// lockInfo is the on-disk lock payload.
type lockInfo struct {
	PID        int       `toml:"pid"`
	Branch     string    `toml:"branch"`
	AcquiredAt time.Time `toml:"acquired_at"`
}

// Lock is a held repository lock. Release it on every exit path.
type Lock struct {
	path string
}

// Acquire takes the rewrite lock for the repository at gitDir. A lock held
// by a live process fails with ErrLocked; a lock left behind by a dead
// process is reclaimed.
func Acquire(gitDir, branch string) (*Lock, error) {
	path := filepath.Join(gitDir, lockFileName)

	if data, err := os.ReadFile(path); err == nil {
		var held lockInfo
		if err := toml.Unmarshal(data, &held); err == nil && processAlive(held.PID) {
			return nil, fmt.Errorf("%w: pid %d on branch %q since %s",
				ErrLocked, held.PID, held.Branch, held.AcquiredAt.Format(time.RFC3339))
		}
		// Stale or unreadable lock: reclaim it.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("guard: remove stale lock: %w", err)
		}
	}

	data, err := toml.Marshal(lockInfo{
		PID:        os.Getpid(),
		Branch:     branch,
		AcquiredAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("guard: marshal lock: %w", err)
	}

	// O_EXCL closes the window between the staleness check and the write.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("guard: create lock: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("guard: write lock: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("guard: close lock: %w", err)
	}
	return &Lock{path: path}, nil
}

// Held reports whether a lock file exists for the repository at gitDir and
// returns the holder's pid and branch when it does.
func Held(gitDir string) (pid int, branch string, held bool) {
	data, err := os.ReadFile(filepath.Join(gitDir, lockFileName))
	if err != nil {
		return 0, "", false
	}
	var info lockInfo
	if err := toml.Unmarshal(data, &info); err != nil {
		return 0, "", false
	}
	return info.PID, info.Branch, true
}

// Release removes the lock file. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("guard: release lock: %w", err)
	}
	return nil
}

// processAlive reports whether a process with the given pid exists.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
