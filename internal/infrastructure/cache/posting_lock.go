package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockNotHeld is returned by unlock when the lock expired or was taken over
var ErrLockNotHeld = errors.New("lock was not held or already expired")

// DefaultPostingLockTTL bounds how long a crashed holder can block a key
const DefaultPostingLockTTL = 30 * time.Second

// lockHold is one held key of the in-memory locker
type lockHold struct {
	token     uuid.UUID
	expiresAt time.Time
}

// InMemoryPostingLocker is a keyed try-lock for single-instance deployments and tests.
// Holds expire after the TTL like their Redis counterparts.
type InMemoryPostingLocker struct {
	mu    sync.Mutex
	holds map[string]lockHold
	ttl   time.Duration
	now   func() time.Time
}

// NewInMemoryPostingLocker creates an in-process posting locker
func NewInMemoryPostingLocker(ttl time.Duration) *InMemoryPostingLocker {
	if ttl <= 0 {
		ttl = DefaultPostingLockTTL
	}
	return &InMemoryPostingLocker{
		holds: make(map[string]lockHold),
		ttl:   ttl,
		now:   time.Now,
	}
}

// TryLock acquires key or returns appledger.ErrLockHeld without waiting
func (l *InMemoryPostingLocker) TryLock(ctx context.Context, key string) (func(context.Context) error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if h, ok := l.holds[key]; ok && now.Before(h.expiresAt) {
		return nil, appledger.ErrLockHeld
	}

	token := uuid.New()
	l.holds[key] = lockHold{token: token, expiresAt: now.Add(l.ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		h, ok := l.holds[key]
		if !ok || h.token != token {
			return ErrLockNotHeld
		}
		delete(l.holds, key)
		if l.now().After(h.expiresAt) {
			return ErrLockNotHeld
		}
		return nil
	}, nil
}

// Held returns the number of unexpired holds
func (l *InMemoryPostingLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for key, h := range l.holds {
		if now.Before(h.expiresAt) {
			n++
		} else {
			delete(l.holds, key)
		}
	}
	return n
}

// RedisPostingLocker is a distributed try-lock on Redis using redsync.
// Every service instance sharing the Redis server sees the same holds.
type RedisPostingLocker struct {
	rs     *redsync.Redsync
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisPostingLocker creates a posting locker on an existing Redis client
func NewRedisPostingLocker(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisPostingLocker {
	if ttl <= 0 {
		ttl = DefaultPostingLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPostingLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    ttl,
		logger: logger,
	}
}

// TryLock makes a single acquisition attempt. Contention maps to appledger.ErrLockHeld;
// connection failures are returned as they are.
func (l *RedisPostingLocker) TryLock(ctx context.Context, key string) (func(context.Context) error, error) {
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if isLockContention(err) {
			l.logger.Debug("posting lock held by another owner", zap.String("lock_key", key))
			return nil, appledger.ErrLockHeld
		}
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		ok, err := mutex.UnlockContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to release lock %s: %w", key, err)
		}
		if !ok {
			return ErrLockNotHeld
		}
		return nil
	}, nil
}

// redsync reports contention either as ErrFailed or as a taken-nodes error
func isLockContention(err error) bool {
	var taken *redsync.ErrTaken
	return errors.Is(err, redsync.ErrFailed) ||
		errors.As(err, &taken) ||
		strings.Contains(err.Error(), "lock already taken")
}

// Ensure both lockers implement PostingLocker
var (
	_ appledger.PostingLocker = (*InMemoryPostingLocker)(nil)
	_ appledger.PostingLocker = (*RedisPostingLocker)(nil)
)
