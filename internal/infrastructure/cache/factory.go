package cache

import (
	"context"
	"fmt"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PostingLockerFactory creates posting lockers based on configuration
type PostingLockerFactory struct {
	redisConfig           config.RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// PostingLockerFactoryOption is a functional option for configuring the factory
type PostingLockerFactoryOption func(*PostingLockerFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) PostingLockerFactoryOption {
	return func(f *PostingLockerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to the in-process locker.
// Default is true.
func WithInMemoryFallback(allow bool) PostingLockerFactoryOption {
	return func(f *PostingLockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewPostingLockerFactory creates a new factory
func NewPostingLockerFactory(cfg config.RedisConfig, ttl time.Duration, opts ...PostingLockerFactoryOption) *PostingLockerFactory {
	f := &PostingLockerFactory{
		redisConfig:           cfg,
		ttl:                   ttl,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateLocker returns a Redis locker when Redis is configured and reachable.
// The returned close function releases the Redis client; it is a no-op for the in-memory locker.
func (f *PostingLockerFactory) CreateLocker(ctx context.Context) (appledger.PostingLocker, func() error, error) {
	if !f.redisConfig.Enabled() {
		f.logger.Info("Redis not configured, using in-memory posting locks")
		return NewInMemoryPostingLocker(f.ttl), func() error { return nil }, nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis posting locks", zap.String("addr", f.redisConfig.Addr()))
		return NewRedisPostingLocker(client, f.ttl, f.logger), client.Close, nil
	}

	if !f.allowInMemoryFallback {
		return nil, nil, fmt.Errorf("redis required for posting locks but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory posting locks. "+
		"Concurrent postings from other instances are not serialized.",
		zap.Error(err),
	)
	return NewInMemoryPostingLocker(f.ttl), func() error { return nil }, nil
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
