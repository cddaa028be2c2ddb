package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/application"
	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

const lockPrefix = "avero-reporting:lock:"

// Locker implements application.RunLocker with redislock.
type Locker struct {
	client *redislock.Client
}

// NewLocker creates a lock client on top of rdb.
func NewLocker(rdb redis.UniversalClient) *Locker {
	return &Locker{client: redislock.New(rdb)}
}

var _ application.RunLocker = (*Locker)(nil)

// Obtain takes the lock without retrying. A lock held elsewhere yields domain.ErrRunInProgress.
func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (application.RunLock, error) {
	lock, err := l.client.Obtain(ctx, lockPrefix+key, ttl, nil)
	if err != nil {
		return nil, lockError(key, err)
	}
	return &heldLock{key: key, lock: lock}, nil
}

type heldLock struct {
	key  string
	lock *redislock.Lock
}

// Refresh extends the TTL. A lock that already expired and was taken by another process
// yields domain.ErrRunInProgress.
func (h *heldLock) Refresh(ctx context.Context, ttl time.Duration) error {
	if err := h.lock.Refresh(ctx, ttl, nil); err != nil {
		return lockError(h.key, err)
	}
	return nil
}

func (h *heldLock) Release(ctx context.Context) error {
	err := h.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		// the TTL ran out before the run finished
		return nil
	}
	return err
}

func lockError(key string, err error) error {
	if errors.Is(err, redislock.ErrNotObtained) {
		return &lockHeldError{key: key}
	}
	return domain.WrapStore("obtain lock "+key, err)
}

type lockHeldError struct {
	key string
}

func (e *lockHeldError) Error() string {
	return domain.ErrRunInProgress.Error() + ": " + e.key
}

func (e *lockHeldError) Unwrap() error {
	return domain.ErrRunInProgress
}
