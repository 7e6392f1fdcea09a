package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yanizio/paycore/internal/encryption"
	"github.com/yanizio/paycore/internal/invalidate"
	"github.com/yanizio/paycore/internal/secret"
)

// memStore is an in-memory Storage keyed by merchant id and mca id.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]MerchantConnectorAccount
}

func newMemStore(rows ...MerchantConnectorAccount) *memStore {
	s := &memStore{nextID: 100, rows: map[string]MerchantConnectorAccount{}}
	for _, r := range rows {
		s.rows[r.MerchantID+"/"+r.MerchantConnectorID] = r
	}
	return s
}

func (s *memStore) Insert(_ context.Context, n MerchantConnectorAccountNew) (MerchantConnectorAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec := MerchantConnectorAccount{
		ID:                  s.nextID,
		MerchantID:          *n.MerchantID,
		ConnectorName:       *n.ConnectorName,
		TestMode:            n.TestMode,
		Disabled:            n.Disabled,
		MerchantConnectorID: n.MerchantConnectorID,
		ConnectorType:       *n.ConnectorType,
		ConnectorLabel:      n.ConnectorLabel,
		BusinessCountry:     n.BusinessCountry,
		BusinessLabel:       n.BusinessLabel,
		CreatedAt:           n.CreatedAt,
		ModifiedAt:          n.ModifiedAt,
	}
	s.rows[rec.MerchantID+"/"+rec.MerchantConnectorID] = rec
	return rec, nil
}

func (s *memStore) FindByMerchantIDAndMerchantConnectorID(_ context.Context, merchantID, mcaID string) (MerchantConnectorAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rows[merchantID+"/"+mcaID]
	if !ok {
		return MerchantConnectorAccount{}, ErrNotFound
	}
	return rec, nil
}

func (s *memStore) FindByMerchantIDAndConnectorLabel(_ context.Context, merchantID, label string) (MerchantConnectorAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.MerchantID == merchantID && r.ConnectorLabel == label {
			return r, nil
		}
	}
	return MerchantConnectorAccount{}, ErrNotFound
}

func (s *memStore) ListByMerchantID(_ context.Context, merchantID string, includeDisabled bool) ([]MerchantConnectorAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []MerchantConnectorAccount
	for _, r := range s.rows {
		if r.MerchantID != merchantID {
			continue
		}
		if !includeDisabled && r.Disabled != nil && *r.Disabled {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) Update(_ context.Context, existing MerchantConnectorAccount, u MerchantConnectorAccountUpdateInternal) (MerchantConnectorAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := existing.MerchantID + "/" + existing.MerchantConnectorID
	if _, ok := s.rows[key]; !ok {
		return MerchantConnectorAccount{}, ErrNotFound
	}
	merged := u.Apply(existing)
	delete(s.rows, key)
	s.rows[merged.MerchantID+"/"+merged.MerchantConnectorID] = merged
	return merged, nil
}

func (s *memStore) DeleteByMerchantIDAndMerchantConnectorID(_ context.Context, merchantID, mcaID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := merchantID + "/" + mcaID
	if _, ok := s.rows[key]; !ok {
		return false, nil
	}
	delete(s.rows, key)
	return true, nil
}

// recordingInvalidator remembers every key and fails on request.
type recordingInvalidator struct {
	mu   sync.Mutex
	keys []string
	fail bool
}

func (r *recordingInvalidator) Invalidate(_ context.Context, key string) (invalidate.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	if r.fail {
		return invalidate.StatusUnknown, fmt.Errorf("%w: %s", invalidate.ErrRemoveRedisKeyFailure, key)
	}
	return invalidate.StatusOK, nil
}

func newTestService(store Storage, inv Invalidator) *Service {
	svc := NewService(store, inv, zap.NewNop())
	svc.now = func() time.Time { return t1 }
	return svc
}

func TestService_CreateAppliesDefaults(t *testing.T) {
	svc := newTestService(newMemStore(), &recordingInvalidator{})

	rec, err := svc.Create(context.Background(), MerchantConnectorAccountNew{
		MerchantID:      ptr("M1"),
		ConnectorName:   ptr("stripe"),
		BusinessCountry: "US",
		BusinessLabel:   "default",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ConnectorLabel != "stripe_US_default" || rec.ConnectorType != PaymentProcessor {
		t.Fatalf("defaults not applied: %#v", rec)
	}
	if !rec.CreatedAt.Equal(t1) {
		t.Fatalf("created_at = %v", rec.CreatedAt)
	}
}

func TestService_CreateRejectsInvalid(t *testing.T) {
	svc := newTestService(newMemStore(), &recordingInvalidator{})

	_, err := svc.Create(context.Background(), MerchantConnectorAccountNew{
		MerchantID:      ptr("M1"),
		ConnectorName:   ptr("stripe"),
		BusinessCountry: "XX",
		BusinessLabel:   "default",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestService_UpdateInvalidatesAccountKey(t *testing.T) {
	store := newMemStore(sampleAccount())
	inv := &recordingInvalidator{}
	svc := newTestService(store, inv)

	got, err := svc.Update(context.Background(), "M1", "mca_1", Update{Disabled: ptr(true)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Disabled == nil || !*got.Disabled || !got.ModifiedAt.Equal(t1) {
		t.Fatalf("unexpected row: %#v", got)
	}
	if len(inv.keys) != 1 || inv.keys[0] != "M1_stripe_US_default" {
		t.Fatalf("invalidated keys = %v", inv.keys)
	}
}

func TestService_UpdateMerchantChangeInvalidatesBothKeys(t *testing.T) {
	inv := &recordingInvalidator{}
	svc := newTestService(newMemStore(sampleAccount()), inv)

	if _, err := svc.Update(context.Background(), "M1", "mca_1", Update{MerchantID: ptr("M2")}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := []string{"M1_stripe_US_default", "M2_stripe_US_default"}
	if fmt.Sprint(inv.keys) != fmt.Sprint(want) {
		t.Fatalf("invalidated keys = %v, want %v", inv.keys, want)
	}
}

func TestService_UpdateReturnsRowWhenInvalidationFails(t *testing.T) {
	store := newMemStore(sampleAccount())
	svc := newTestService(store, &recordingInvalidator{fail: true})

	rotated := encryption.New([]byte("new"))
	got, err := svc.Update(context.Background(), "M1", "mca_1",
		CredentialsRotation{ConnectorAccountDetails: secret.New(rotated)})
	if !errors.Is(err, invalidate.ErrRemoveRedisKeyFailure) {
		t.Fatalf("err = %v, want ErrRemoveRedisKeyFailure", err)
	}
	if !got.ConnectorAccountDetails.Equal(rotated) {
		t.Fatalf("row not returned with the error: %#v", got)
	}

	stored, _ := store.FindByMerchantIDAndMerchantConnectorID(context.Background(), "M1", "mca_1")
	if !stored.ConnectorAccountDetails.Equal(rotated) {
		t.Fatal("update was not persisted")
	}
}

func TestService_UpdateMissing(t *testing.T) {
	inv := &recordingInvalidator{}
	svc := newTestService(newMemStore(), inv)

	_, err := svc.Update(context.Background(), "M1", "nope", Update{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(inv.keys) != 0 {
		t.Fatalf("nothing should be invalidated, got %v", inv.keys)
	}
}

func TestService_Delete(t *testing.T) {
	inv := &recordingInvalidator{}
	svc := newTestService(newMemStore(sampleAccount()), inv)

	if err := svc.Delete(context.Background(), "M1", "mca_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(inv.keys) != 1 || inv.keys[0] != "M1_stripe_US_default" {
		t.Fatalf("invalidated keys = %v", inv.keys)
	}
	if err := svc.Delete(context.Background(), "M1", "mca_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestService_ListSkipsDisabled(t *testing.T) {
	off := sampleAccount()
	off.MerchantConnectorID = "mca_2"
	off.Disabled = ptr(true)
	svc := newTestService(newMemStore(sampleAccount(), off), &recordingInvalidator{})

	enabled, err := svc.List(context.Background(), "M1", false)
	if err != nil || len(enabled) != 1 {
		t.Fatalf("enabled = %d, %v", len(enabled), err)
	}
	all, err := svc.List(context.Background(), "M1", true)
	if err != nil || len(all) != 2 {
		t.Fatalf("all = %d, %v", len(all), err)
	}
}

func TestService_UpdateRejectsEmptyIdentity(t *testing.T) {
	for name, u := range map[string]Update{
		"merchant_connector_id": {MerchantConnectorID: ptr("")},
		"merchant_id":           {MerchantID: ptr("")},
		"connector_name":        {ConnectorName: ptr("")},
	} {
		t.Run(name, func(t *testing.T) {
			store := newMemStore(sampleAccount())
			inv := &recordingInvalidator{}
			svc := newTestService(store, inv)

			_, err := svc.Update(context.Background(), "M1", "mca_1", u)
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("err = %v, want validation errors", err)
			}
			if _, err := store.FindByMerchantIDAndMerchantConnectorID(context.Background(), "M1", "mca_1"); err != nil {
				t.Fatalf("row no longer reachable: %v", err)
			}
			if len(inv.keys) != 0 {
				t.Fatalf("nothing should be invalidated, got %v", inv.keys)
			}
		})
	}
}

func TestService_UpdatePassesConflictThrough(t *testing.T) {
	inv := &recordingInvalidator{}
	svc := newTestService(conflictStore{newMemStore(sampleAccount())}, inv)

	_, err := svc.Update(context.Background(), "M1", "mca_1", Update{TestMode: ptr(true)})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if len(inv.keys) != 0 {
		t.Fatalf("nothing should be invalidated, got %v", inv.keys)
	}
}

// conflictStore fails every Update as if another writer got there first.
type conflictStore struct{ *memStore }

func (conflictStore) Update(context.Context, MerchantConnectorAccount, MerchantConnectorAccountUpdateInternal) (MerchantConnectorAccount, error) {
	return MerchantConnectorAccount{}, ErrConflict
}
