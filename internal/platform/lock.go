package platform

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created inside the output directory while a download runs
const LockFileName = ".ytgrab.lock"

// ErrDirectoryLocked is returned when another process holds the directory lock
var ErrDirectoryLocked = errors.New("output directory is locked by another download")

// DirLock is an exclusive advisory lock on an output directory
type DirLock struct {
	lock *flock.Flock
}

// LockDirectory acquires the directory lock without blocking
func LockDirectory(dir string) (*DirLock, error) {
	fl := flock.New(filepath.Join(dir, LockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", dir, err)
	}
	if !locked {
		return nil, ErrDirectoryLocked
	}
	return &DirLock{lock: fl}, nil
}

// Path returns the lock file path
func (l *DirLock) Path() string {
	return l.lock.Path()
}

// Unlock releases the lock. The lock file itself is left in place.
func (l *DirLock) Unlock() error {
	return l.lock.Unlock()
}
