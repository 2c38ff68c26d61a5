// Package runlock provides a cross-process mutex protecting a signature
// store directory from being opened by two engine runs at once. It is a
// real advisory file lock rather than the hand-rolled mkdir-and-timestamp
// scheme the original used, backed by github.com/gofrs/flock so the OS
// itself guarantees release on process crash.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockFileName = ".sos.lock"

// ErrLockConflict is returned by TryLock when another process already
// holds the lock.
var ErrLockConflict = errors.New("runlock: lock is held by another process")

// LockOptions tunes retry and stale-lock behavior. A zero LockOptions
// (or a nil pointer to New) uses the defaults below.
type LockOptions struct {
	// StaleThreshold is how old an unheld lock file must be before
	// TryLock removes it rather than treating it as contended. Guards
	// against a lock file left behind by a host that rebooted without
	// ever running its deferred Unlock.
	StaleThreshold time.Duration
	// RetryInterval is how long Lock waits between TryLock attempts.
	RetryInterval time.Duration
}

const (
	defaultStaleThreshold = 30 * time.Second
	defaultRetryInterval  = 50 * time.Millisecond
)

// Lock is a directory-scoped cross-process mutex.
type Lock interface {
	TryLock() error
	Lock(ctx context.Context) error
	Unlock() error
	IsLocked() bool
	IsHeldByMe() bool
}

type fileLock struct {
	mu   sync.Mutex
	path string
	opts LockOptions
	fl   *flock.Flock
	held bool
}

// New builds a Lock scoped to dir. opts may be nil to accept the
// defaults.
func New(dir string, opts *LockOptions) Lock {
	o := LockOptions{StaleThreshold: defaultStaleThreshold, RetryInterval: defaultRetryInterval}
	if opts != nil {
		if opts.StaleThreshold > 0 {
			o.StaleThreshold = opts.StaleThreshold
		}
		if opts.RetryInterval > 0 {
			o.RetryInterval = opts.RetryInterval
		}
	}
	path := filepath.Join(dir, lockFileName)
	return &fileLock{path: path, opts: o, fl: flock.New(path)}
}

// TryLock attempts to acquire the lock once, returning ErrLockConflict
// immediately if another process holds it.
func (l *fileLock) TryLock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanStale()
	ok, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("runlock: acquire %s: %w", l.path, err)
	}
	if !ok {
		return ErrLockConflict
	}
	l.held = true
	return nil
}

// Lock blocks, retrying every RetryInterval, until the lock is acquired
// or ctx is done.
func (l *fileLock) Lock(ctx context.Context) error {
	for {
		err := l.TryLock()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrLockConflict) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.opts.RetryInterval):
		}
	}
}

// Unlock releases the lock if held by this Lock. It is a no-op,
// returning nil, if the lock was never acquired or was already released.
func (l *fileLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("runlock: release %s: %w", l.path, err)
	}
	l.held = false
	_ = os.Remove(l.path)
	return nil
}

// IsLocked reports whether the lock is currently held by anyone,
// including this Lock.
func (l *fileLock) IsLocked() bool {
	l.mu.Lock()
	if l.held {
		l.mu.Unlock()
		return true
	}
	l.mu.Unlock()

	probe := flock.New(l.path)
	ok, err := probe.TryLock()
	if err != nil {
		return false
	}
	if !ok {
		return true
	}
	_ = probe.Unlock()
	return false
}

// IsHeldByMe reports whether this particular Lock value currently holds
// the lock.
func (l *fileLock) IsHeldByMe() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// cleanStale removes the lock file if it is older than StaleThreshold
// and nothing currently holds it. Must be called with l.mu held.
func (l *fileLock) cleanStale() {
	info, err := os.Stat(l.path)
	if err != nil {
		return
	}
	if time.Since(info.ModTime()) < l.opts.StaleThreshold {
		return
	}
	probe := flock.New(l.path)
	ok, err := probe.TryLock()
	if err != nil || !ok {
		return
	}
	defer probe.Unlock()
	_ = os.Remove(l.path)
}

// ForceUnlock removes dir's lock file unconditionally, regardless of
// which process holds it. Intended for operator recovery after a host
// crash left a lock that StaleThreshold hasn't aged out yet.
func ForceUnlock(dir string) error {
	path := filepath.Join(dir, lockFileName)
	fl := flock.New(path)
	_ = fl.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("runlock: force unlock %s: %w", path, err)
	}
	return nil
}
