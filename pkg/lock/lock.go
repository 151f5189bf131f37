// Package lock provides cross-process file locks so two builds never write
// the same index file at once.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

type FileLock struct {
	flock *flock.Flock
}

// For returns the lock guarding path. The lock file lives next to it as
// path+".lock" and is left in place after Unlock.
func For(path string) *FileLock {
	return &FileLock{flock: flock.New(path + ".lock")}
}

// TryLock takes the lock without blocking. If another process holds it the
// error wraps ErrLocked.
func (l *FileLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.flock.Path()), 0755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring %s: %w", l.flock.Path(), err)
	}
	if !acquired {
		return fmt.Errorf("%s: %w", l.flock.Path(), apperrors.ErrLocked)
	}
	return nil
}

// Unlock is safe to call on a lock that was never taken.
func (l *FileLock) Unlock() error {
	if !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("releasing %s: %w", l.flock.Path(), err)
	}
	return nil
}
