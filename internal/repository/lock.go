package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alexanderramin/aceflow/internal/domain"
	"github.com/gofrs/flock"
)

const (
	// DefaultLockTimeout bounds the wait for another process's lock.
	DefaultLockTimeout = 10 * time.Second

	lockPollInterval = 50 * time.Millisecond
)

// ProjectLock is an exclusive advisory lock on a project's state file. It is
// reentrant within one process: nested WithLock calls share the held lock
// and only the outermost call releases it.
type ProjectLock struct {
	path    string
	timeout time.Duration

	mu    sync.Mutex
	flock *flock.Flock
	depth int
	// createdDir is the lock directory when acquire had to create it.
	createdDir string
}

// NewProjectLock returns a lock on layout's lock file. A non-positive
// timeout tries once without waiting.
func NewProjectLock(layout Layout, timeout time.Duration) *ProjectLock {
	return &ProjectLock{path: layout.LockFile(), timeout: timeout}
}

// Path is the lock file location.
func (l *ProjectLock) Path() string { return l.path }

// WithLock runs fn while holding the lock, releasing it on every return
// path including a panic in fn.
func (l *ProjectLock) WithLock(ctx context.Context, fn func() error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()
	return fn()
}

func (l *ProjectLock) acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.depth > 0 {
		l.depth++
		return nil
	}
	dir := filepath.Dir(l.path)
	created := ""
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: creating lock directory: %v", domain.ErrPersistence, err)
		}
		created = dir
	}
	fl := flock.New(l.path)
	if err := tryLockWithRetry(ctx, fl, l.timeout); err != nil {
		if created != "" {
			removeLockDir(created, l.path)
		}
		return err
	}
	l.flock = fl
	l.depth = 1
	l.createdDir = created
	return nil
}

func (l *ProjectLock) release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.depth == 0 {
		return
	}
	l.depth--
	if l.depth == 0 && l.flock != nil {
		_ = l.flock.Unlock()
		l.flock = nil
		if l.createdDir != "" {
			removeLockDir(l.createdDir, l.path)
			l.createdDir = ""
		}
	}
}

// removeLockDir undoes the lock directory when the locked operation wrote
// nothing else into it, so a failed or read-only operation leaves no trace.
func removeLockDir(dir, lockPath string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if filepath.Join(dir, e.Name()) != lockPath {
			return
		}
	}
	_ = os.Remove(lockPath)
	_ = os.Remove(dir)
}

func tryLockWithRetry(ctx context.Context, fl *flock.Flock, timeout time.Duration) error {
	start := time.Now()
	locked, err := fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring project lock %s: %w", fl.Path(), err)
	}
	if locked {
		return nil
	}
	if timeout <= 0 {
		return fmt.Errorf("%w: %s is held by another process", domain.ErrLockTimeout, fl.Path())
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeoutCtx.Done():
			return fmt.Errorf("%w: waited %v for %s (another aceflow command may be running)",
				domain.ErrLockTimeout, time.Since(start).Round(time.Millisecond), fl.Path())
		case <-ticker.C:
		}
		locked, err := fl.TryLock()
		if err != nil {
			return fmt.Errorf("acquiring project lock %s: %w", fl.Path(), err)
		}
		if locked {
			return nil
		}
	}
}
