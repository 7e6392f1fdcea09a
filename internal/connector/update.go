// internal/connector/update.go
//
// Partial updates and the merge that applies them.
//
// Context
// -------
// Callers describe a change as one MerchantConnectorAccountUpdate variant.
// Each variant flattens itself into a MerchantConnectorAccountUpdateInternal,
// the storage-ready changeset whose ModifiedAt is stamped at construction.
// Apply then merges the changeset into the existing row:
//
//   - a set (non-nil) field replaces the existing value,
//   - an unset (nil) field keeps the existing value,
//   - credentials are unwrapped from their Secret holder when set and kept
//     as-is when unset,
//   - ModifiedAt always comes from the changeset,
//   - every other column is copied from the existing row.
//
// Notes
// -----
//   - Adding a variant means adding a type with isUpdate/toInternal.  Apply
//     does not change.
//   - Nullable columns cannot be reset to NULL through an update; nil means
//     "leave alone".
package connector

import (
	"encoding/json"
	"time"

	"github.com/yanizio/paycore/internal/encryption"
	"github.com/yanizio/paycore/internal/secret"
)

// Now returns the current time truncated to the column precision.
func Now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// MerchantConnectorAccountUpdate is the closed set of partial-update
// requests.  Implemented by Update and CredentialsRotation.
type MerchantConnectorAccountUpdate interface {
	isUpdate()
	// Variant names the case for logs and metrics.
	Variant() string
	// Validate rejects changes that would break the row's identity.
	Validate() error
	toInternal(now time.Time) MerchantConnectorAccountUpdateInternal
}

// Update is the general-purpose partial update.  nil fields are left alone.
// Identity fields may be replaced but never set to "".
type Update struct {
	MerchantID              *string `validate:"omitempty,min=1"`
	ConnectorType           *ConnectorType
	ConnectorName           *string `validate:"omitempty,min=1"`
	ConnectorAccountDetails *secret.Secret[encryption.Encryption]
	TestMode                *bool
	Disabled                *bool
	MerchantConnectorID     *string `validate:"omitempty,min=1"`
	PaymentMethodsEnabled   *PaymentMethods
	Metadata                *secret.Secret[json.RawMessage]
	FrmConfigs              *secret.Secret[json.RawMessage]
}

func (Update) isUpdate() {}
func (Update) Variant() string { return "update" }

// Validate checks the struct tags above.
func (u Update) Validate() error { return validate.Struct(u) }

func (u Update) toInternal(now time.Time) MerchantConnectorAccountUpdateInternal {
	return MerchantConnectorAccountUpdateInternal{
		MerchantID:              u.MerchantID,
		ConnectorType:           u.ConnectorType,
		ConnectorName:           u.ConnectorName,
		ConnectorAccountDetails: u.ConnectorAccountDetails,
		TestMode:                u.TestMode,
		Disabled:                u.Disabled,
		MerchantConnectorID:     u.MerchantConnectorID,
		PaymentMethodsEnabled:   u.PaymentMethodsEnabled,
		Metadata:                u.Metadata,
		FrmConfigs:              u.FrmConfigs,
		ModifiedAt:              now,
	}
}

// CredentialsRotation replaces the connector credentials and nothing else.
type CredentialsRotation struct {
	ConnectorAccountDetails secret.Secret[encryption.Encryption]
}

func (CredentialsRotation) isUpdate() {}
func (CredentialsRotation) Variant() string { return "credentials_rotation" }

// Validate always succeeds; a rotation touches no identity field.
func (CredentialsRotation) Validate() error { return nil }

func (c CredentialsRotation) toInternal(now time.Time) MerchantConnectorAccountUpdateInternal {
	details := c.ConnectorAccountDetails
	return MerchantConnectorAccountUpdateInternal{
		ConnectorAccountDetails: &details,
		ModifiedAt:              now,
	}
}

// MerchantConnectorAccountUpdateInternal is the flattened changeset.  Build
// it with NewUpdateInternal so ModifiedAt is stamped.
type MerchantConnectorAccountUpdateInternal struct {
	MerchantID              *string
	ConnectorType           *ConnectorType
	ConnectorName           *string
	ConnectorAccountDetails *secret.Secret[encryption.Encryption]
	TestMode                *bool
	Disabled                *bool
	MerchantConnectorID     *string
	PaymentMethodsEnabled   *PaymentMethods
	Metadata                *secret.Secret[json.RawMessage]
	FrmConfigs              *secret.Secret[json.RawMessage]
	ModifiedAt              time.Time
}

// NewUpdateInternal flattens u and stamps ModifiedAt with now.
func NewUpdateInternal(u MerchantConnectorAccountUpdate, now time.Time) MerchantConnectorAccountUpdateInternal {
	return u.toInternal(now)
}

// Merge is Apply in function form.
func Merge(existing MerchantConnectorAccount, u MerchantConnectorAccountUpdateInternal) MerchantConnectorAccount {
	return u.Apply(existing)
}

// Apply returns the row that results from applying u to existing.  It is
// pure: existing is not modified and the result shares no mutable state
// with either input.
func (u MerchantConnectorAccountUpdateInternal) Apply(existing MerchantConnectorAccount) MerchantConnectorAccount {
	details := existing.ConnectorAccountDetails
	if u.ConnectorAccountDetails != nil {
		details = u.ConnectorAccountDetails.Expose()
	}

	paymentMethods := existing.PaymentMethodsEnabled
	if u.PaymentMethodsEnabled != nil {
		paymentMethods = *u.PaymentMethodsEnabled
	}

	// Every column is listed.  A new column must be added here too.
	return MerchantConnectorAccount{
		ID:                      existing.ID,
		MerchantID:              valueOr(u.MerchantID, existing.MerchantID),
		ConnectorName:           valueOr(u.ConnectorName, existing.ConnectorName),
		ConnectorAccountDetails: encryption.New(details.Bytes()),
		TestMode:                clonePtr(ptrOr(u.TestMode, existing.TestMode)),
		Disabled:                clonePtr(ptrOr(u.Disabled, existing.Disabled)),
		MerchantConnectorID:     valueOr(u.MerchantConnectorID, existing.MerchantConnectorID),
		PaymentMethodsEnabled:   paymentMethods.Clone(),
		ConnectorType:           valueOr(u.ConnectorType, existing.ConnectorType),
		Metadata:                cloneSecret(ptrOr(u.Metadata, existing.Metadata)),
		ConnectorLabel:          existing.ConnectorLabel,
		BusinessCountry:         existing.BusinessCountry,
		BusinessLabel:           existing.BusinessLabel,
		BusinessSubLabel:        clonePtr(existing.BusinessSubLabel),
		FrmConfigs:              cloneSecret(ptrOr(u.FrmConfigs, existing.FrmConfigs)),
		CreatedAt:               existing.CreatedAt,
		ModifiedAt:              u.ModifiedAt,
	}
}

// IsEmpty reports whether u changes nothing but ModifiedAt.
func (u MerchantConnectorAccountUpdateInternal) IsEmpty() bool {
	return u.MerchantID == nil &&
		u.ConnectorType == nil &&
		u.ConnectorName == nil &&
		u.ConnectorAccountDetails == nil &&
		u.TestMode == nil &&
		u.Disabled == nil &&
		u.MerchantConnectorID == nil &&
		u.PaymentMethodsEnabled == nil &&
		u.Metadata == nil &&
		u.FrmConfigs == nil
}

func valueOr[T any](set *T, fallback T) T {
	if set != nil {
		return *set
	}
	return fallback
}

func ptrOr[T any](set, fallback *T) *T {
	if set != nil {
		return set
	}
	return fallback
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSecret(s *secret.Secret[json.RawMessage]) *secret.Secret[json.RawMessage] {
	if s == nil {
		return nil
	}
	raw := s.Expose()
	if raw == nil {
		return secret.Ptr[json.RawMessage](nil)
	}
	return secret.Ptr(append(json.RawMessage(nil), raw...))
}
