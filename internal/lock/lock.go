// Package lock provides exclusive per-key locks used to serialize group migrations.
package lock

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/allisson/pseudonyms/internal/errors"
)

// ErrHeld indicates another holder owns the lock.
var ErrHeld = apperrors.Wrap(apperrors.ErrLocked, "lock is held")

// Release gives up a lock obtained from a Locker.
type Release func(ctx context.Context) error

// Locker acquires exclusive locks by key without waiting.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// LocalLocker holds locks in process memory. Suitable for a single instance.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

// NewLocalLocker creates a LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]time.Time), now: time.Now}
}

// TryLock acquires key or returns ErrHeld. A lock past its ttl is treated as free.
func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expiresAt, ok := l.held[key]; ok && now.Before(expiresAt) {
		return nil, ErrHeld
	}
	expiresAt := now.Add(ttl)
	l.held[key] = expiresAt

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// Only remove our own entry; after expiry someone else may hold it.
			if current, ok := l.held[key]; ok && current.Equal(expiresAt) {
				delete(l.held, key)
			}
		})
		return nil
	}, nil
}
