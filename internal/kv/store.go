// internal/kv/store.go
//
// Remote shared cache backed by Redis.
//
// Context
// -------
// Every process reads configuration through its own local cache, with
// Redis as the shared tier in front of the database.  Store is the narrow
// key-value surface the rest of the service needs: Get, Set with TTL, and
// Delete.  Other processes rely on Redis as the authoritative shared copy,
// which is why invalidation reports failure only when the Redis delete
// fails.
//
// Notes
// -----
//   - Deleting an absent key succeeds; DEL simply reports zero keys.
//   - No retries here.  go-redis applies its own MaxRetries; callers own
//     any policy above that.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("kv: key not found")

// Options configures Open.
type Options struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DefaultTTL   time.Duration
}

// Store is safe for concurrent use.
type Store struct {
	client     redis.UniversalClient
	defaultTTL time.Duration
	logger     *zap.Logger
}

// Open dials Redis, pings it, and returns a Store.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return New(client, opts.DefaultTTL, logger), nil
}

// New wraps an existing client.  A zero defaultTTL stores keys without
// expiry.
func New(client redis.UniversalClient, defaultTTL time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.L()
	}
	return &Store{
		client:     client,
		defaultTTL: defaultTTL,
		logger:     logger.Named("RedisStore"),
	}
}

// DefaultTTL is the expiry Set applies when passed a zero TTL.
func (s *Store) DefaultTTL() time.Duration { return s.defaultTTL }

// Get returns the raw value stored at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Error("Failed to get key from redis", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

// Set stores val at key.  ttl == 0 uses the store default.
func (s *Store) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if err := s.client.Set(ctx, key, val, ttl).Err(); err != nil {
		s.logger.Error("Failed to set key in redis", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.  An absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	s.logger.Debug("Deleted key from redis", zap.String("key", key), zap.Int64("deletedCount", n))
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.client.Close() }
