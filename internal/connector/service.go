package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/paycore/internal/invalidate"
	"github.com/yanizio/paycore/internal/metrics"
)

// Invalidator drops one cache key from every cache tier.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) (invalidate.Status, error)
}

// Service is the account-binding API used by handlers.  Writes go to
// Storage first and then invalidate the binding's cache key.
type Service struct {
	store  Storage
	inv    Invalidator
	now    func() time.Time
	logger *zap.Logger
}

// NewService wires a Service.  A nil logger falls back to zap.L().
func NewService(store Storage, inv Invalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.L()
	}
	return &Service{store: store, inv: inv, now: Now, logger: logger.Named("ConnectorService")}
}

// Create fills defaults, validates and inserts n.
func (s *Service) Create(ctx context.Context, n MerchantConnectorAccountNew) (MerchantConnectorAccount, error) {
	n.ApplyDefaults(s.now())
	if err := n.Validate(); err != nil {
		return MerchantConnectorAccount{}, fmt.Errorf("invalid merchant connector account: %w", err)
	}
	rec, err := s.store.Insert(ctx, n)
	if err != nil {
		return MerchantConnectorAccount{}, err
	}
	s.logger.Info("merchant connector account created",
		zap.String("merchant_id", rec.MerchantID),
		zap.String("merchant_connector_id", rec.MerchantConnectorID),
		zap.String("connector_label", rec.ConnectorLabel))
	return rec, nil
}

// Get returns one binding.
func (s *Service) Get(ctx context.Context, merchantID, merchantConnectorID string) (MerchantConnectorAccount, error) {
	return s.store.FindByMerchantIDAndMerchantConnectorID(ctx, merchantID, merchantConnectorID)
}

// List returns a merchant's bindings.
func (s *Service) List(ctx context.Context, merchantID string, includeDisabled bool) ([]MerchantConnectorAccount, error) {
	return s.store.ListByMerchantID(ctx, merchantID, includeDisabled)
}

// Update applies u to the binding and invalidates its cache key.  When the
// row was written but invalidation failed, the updated row is returned
// together with an error wrapping invalidate.ErrRemoveRedisKeyFailure.
// ErrConflict means the row changed after it was read; nothing was written.
func (s *Service) Update(ctx context.Context, merchantID, merchantConnectorID string, u MerchantConnectorAccountUpdate) (MerchantConnectorAccount, error) {
	if err := u.Validate(); err != nil {
		return MerchantConnectorAccount{}, fmt.Errorf("invalid merchant connector account update: %w", err)
	}

	existing, err := s.store.FindByMerchantIDAndMerchantConnectorID(ctx, merchantID, merchantConnectorID)
	if err != nil {
		return MerchantConnectorAccount{}, err
	}

	changes := NewUpdateInternal(u, s.now())
	updated, err := s.store.Update(ctx, existing, changes)
	if err != nil {
		return MerchantConnectorAccount{}, err
	}
	metrics.AccountUpdatesTotal.WithLabelValues(u.Variant()).Inc()

	log := s.logger.With(
		zap.String("merchant_id", updated.MerchantID),
		zap.String("merchant_connector_id", updated.MerchantConnectorID),
		zap.String("variant", u.Variant()))
	log.Info("merchant connector account updated")

	keys := []string{AccountCacheKey(existing.MerchantID, existing.ConnectorLabel)}
	if updated.MerchantID != existing.MerchantID {
		keys = append(keys, AccountCacheKey(updated.MerchantID, updated.ConnectorLabel))
	}
	return updated, s.invalidate(ctx, log, keys...)
}

// Delete removes the binding and invalidates its cache key.  A missing
// binding returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, merchantID, merchantConnectorID string) error {
	existing, err := s.store.FindByMerchantIDAndMerchantConnectorID(ctx, merchantID, merchantConnectorID)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteByMerchantIDAndMerchantConnectorID(ctx, merchantID, merchantConnectorID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	log := s.logger.With(
		zap.String("merchant_id", merchantID),
		zap.String("merchant_connector_id", merchantConnectorID))
	log.Info("merchant connector account deleted")

	return s.invalidate(ctx, log, AccountCacheKey(existing.MerchantID, existing.ConnectorLabel))
}

func (s *Service) invalidate(ctx context.Context, log *zap.Logger, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if _, err := s.inv.Invalidate(ctx, key); err != nil {
			log.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
