// Package invalidate drops a configuration key from the process-local cache
// and from the shared Redis cache.
//
// Order matters: the local entry goes first and unconditionally.  A stale
// local copy is worse than a stale remote one, because a local miss simply
// falls through to Redis or the database while other processes trust Redis
// as the shared copy.  If the remote delete then fails, the local entry
// stays removed and the caller gets ErrRemoveRedisKeyFailure; nothing is
// retried or rolled back.
package invalidate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/paycore/internal/metrics"
)

var (
	// ErrRemoveRedisKeyFailure is the only failure a remote delete reports.
	// The underlying cause is logged, not returned.
	ErrRemoveRedisKeyFailure = errors.New("failed to remove redis key")

	// ErrEmptyKey is returned before either tier is touched.
	ErrEmptyKey = errors.New("invalidate: empty key")
)

// Status acknowledges a completed invalidation.
type Status int

const (
	StatusUnknown Status = iota
	StatusOK
)

func (s Status) String() string {
	if s == StatusOK {
		return "ok"
	}
	return "unknown"
}

// LocalCache is the process-local side.  Remove must be a no-op for a
// missing key and safe for concurrent use.
type LocalCache interface {
	Remove(key string)
}

// RemoteStore is the shared side.  Deleting an absent key must succeed.
type RemoteStore interface {
	Delete(ctx context.Context, key string) error
}

// Invalidator binds one local cache to one remote store.
type Invalidator struct {
	local  LocalCache
	remote RemoteStore
	logger *zap.Logger
}

// New returns an Invalidator.  A nil logger falls back to zap.L().
func New(local LocalCache, remote RemoteStore, logger *zap.Logger) *Invalidator {
	if logger == nil {
		logger = zap.L()
	}
	return &Invalidator{local: local, remote: remote, logger: logger.Named("Invalidator")}
}

// Invalidate removes key locally, then remotely.
func (i *Invalidator) Invalidate(ctx context.Context, key string) (Status, error) {
	return Invalidate(ctx, i.local, i.remote, key, i.logger)
}

// Invalidate is the function form used when the caller already holds both
// sides.  key must be non-empty.
func Invalidate(ctx context.Context, local LocalCache, remote RemoteStore, key string, logger *zap.Logger) (Status, error) {
	if key == "" {
		return StatusUnknown, ErrEmptyKey
	}
	if logger == nil {
		logger = zap.L()
	}

	local.Remove(key)

	if err := remote.Delete(ctx, key); err != nil {
		logger.Error("remote cache delete failed; local entry already removed",
			zap.String("key", key), zap.Error(err))
		metrics.InvalidationsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		return StatusUnknown, fmt.Errorf("%w: %s", ErrRemoveRedisKeyFailure, key)
	}

	logger.Debug("cache key invalidated", zap.String("key", key))
	metrics.InvalidationsTotal.WithLabelValues(metrics.ResultOK).Inc()
	return StatusOK, nil
}
