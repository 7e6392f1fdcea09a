package configs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/paycore/internal/cache"
	"github.com/yanizio/paycore/internal/invalidate"
	"github.com/yanizio/paycore/internal/kv"
)

// ErrEmptyKey rejects writes without a key.
var ErrEmptyKey = errors.New("config key must not be empty")

// LocalCache is the process-local tier.  *cache.Cache[string] satisfies it.
type LocalCache interface {
	GetOrLoad(ctx context.Context, key string, load cache.Loader[string]) (string, error)
}

// RemoteCache is the shared Redis tier.  *kv.Store satisfies it.
type RemoteCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Invalidator drops a key from both cache tiers.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) (invalidate.Status, error)
}

// Service reads configuration through local cache, then Redis, then the
// database.  Writes go to the database and then invalidate the key.
type Service struct {
	store  Storage
	local  LocalCache
	remote RemoteCache
	inv    Invalidator
	logger *zap.Logger
}

// NewService wires a Service.  A nil logger falls back to zap.L().
func NewService(store Storage, local LocalCache, remote RemoteCache, inv Invalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.L()
	}
	return &Service{store: store, local: local, remote: remote, inv: inv, logger: logger.Named("ConfigService")}
}

// Find returns the value for key.  A Redis read failure is logged and the
// database is consulted instead; a missing key returns ErrNotFound and is
// not cached.
func (s *Service) Find(ctx context.Context, key string) (string, error) {
	return s.local.GetOrLoad(ctx, key, func(ctx context.Context) (string, error) {
		b, err := s.remote.Get(ctx, key)
		switch {
		case err == nil:
			return string(b), nil
		case !errors.Is(err, kv.ErrNotFound):
			s.logger.Warn("redis read failed, falling back to database",
				zap.String("key", key), zap.Error(err))
		}

		c, err := s.store.Find(ctx, key)
		if err != nil {
			return "", err
		}
		if err := s.remote.Set(ctx, key, []byte(c.Config), 0); err != nil {
			s.logger.Warn("redis populate failed", zap.String("key", key), zap.Error(err))
		}
		return c.Config, nil
	})
}

// Set stores value under key and invalidates both cache tiers.
func (s *Service) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := s.store.Upsert(ctx, Config{Key: key, Config: value}); err != nil {
		return err
	}
	s.logger.Info("config stored", zap.String("key", key))
	return s.invalidate(ctx, key)
}

// Delete removes key and invalidates both cache tiers.  Deleting a missing
// key returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, key string) error {
	deleted, err := s.store.Delete(ctx, key)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	s.logger.Info("config deleted", zap.String("key", key))
	return s.invalidate(ctx, key)
}

// Invalidate drops key from both cache tiers without touching the database.
func (s *Service) Invalidate(ctx context.Context, key string) (invalidate.Status, error) {
	return s.inv.Invalidate(ctx, key)
}

func (s *Service) invalidate(ctx context.Context, key string) error {
	if _, err := s.inv.Invalidate(ctx, key); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}
