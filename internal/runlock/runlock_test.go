package runlock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_DefaultOptions(t *testing.T) {
	l := New(t.TempDir(), nil)
	fl := l.(*fileLock)
	require.Equal(t, defaultStaleThreshold, fl.opts.StaleThreshold)
	require.Equal(t, defaultRetryInterval, fl.opts.RetryInterval)
}

func TestTryLock_AcquireAndConflict(t *testing.T) {
	dir := t.TempDir()
	lock1 := New(dir, nil)
	lock2 := New(dir, nil)

	require.NoError(t, lock1.TryLock())
	require.True(t, lock1.IsHeldByMe())
	require.True(t, lock2.IsLocked())

	err := lock2.TryLock()
	require.ErrorIs(t, err, ErrLockConflict)
	require.False(t, lock2.IsHeldByMe())

	require.NoError(t, lock1.Unlock())
	require.False(t, lock1.IsLocked())
}

func TestLock_WaitsForRelease(t *testing.T) {
	dir := t.TempDir()
	opts := &LockOptions{RetryInterval: 5 * time.Millisecond}
	lock1 := New(dir, opts)
	lock2 := New(dir, opts)

	require.NoError(t, lock1.TryLock())

	released := make(chan struct{})
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = lock1.Unlock()
		close(released)
	}()

	require.NoError(t, lock2.Lock(context.Background()))
	<-released
	require.NoError(t, lock2.Unlock())
}

func TestLock_ContextCancellation(t *testing.T) {
	dir := t.TempDir()
	lock1 := New(dir, nil)
	lock2 := New(dir, &LockOptions{RetryInterval: 5 * time.Millisecond})

	require.NoError(t, lock1.TryLock())
	defer lock1.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := lock2.Lock(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, lock2.IsHeldByMe())
}

func TestUnlock_NotHeldIsNoop(t *testing.T) {
	lock := New(t.TempDir(), nil)
	require.NoError(t, lock.Unlock())
}

func TestTryLock_CleansStaleLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, lockFileName)
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	require.NoError(t, os.Chtimes(path, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))

	lock := New(dir, &LockOptions{StaleThreshold: time.Minute})
	require.NoError(t, lock.TryLock())
	require.NoError(t, lock.Unlock())
}

func TestForceUnlock(t *testing.T) {
	dir := t.TempDir()
	lock := New(dir, nil)
	require.NoError(t, lock.TryLock())
	require.True(t, lock.IsLocked())

	require.NoError(t, ForceUnlock(dir))

	other := New(dir, nil)
	require.NoError(t, other.TryLock())
	require.NoError(t, other.Unlock())
}
