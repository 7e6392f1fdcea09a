// internal/connector/repository.go
//
// merchant_connector_account query helpers.
//
// Context
// -------
// Repository is the relational storage behind Service.  Each method runs
// one or two parameterised statements against a *sqlx.DB connected to the
// control-plane database:
//
//   - Insert: INSERT, then re-read the row by its new id so column
//     defaults come back populated.
//   - Find* / List: single SELECTs scanned into MerchantConnectorAccount.
//   - Update: merges the changeset in Go and writes every mutable
//     column back, guarded by the modified_at that was read.  A row changed
//     by someone else in between yields ErrConflict instead of a silent
//     overwrite.  created_at is never written.
//   - Delete: returns whether a row was removed.
//
// Notes
// -----
//   - sql.ErrNoRows is mapped to ErrNotFound; other errors are wrapped and
//     returned so callers can log them with their own fields.
//   - Column list matches the fields in MerchantConnectorAccount.
package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/paycore/internal/encryption"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("merchant connector account not found")

	// ErrConflict is returned by Update when the row was modified after it
	// was read.  Re-read and retry.
	ErrConflict = errors.New("merchant connector account modified concurrently")
)

// Storage is the relational storage interface Service depends on.
type Storage interface {
	Insert(ctx context.Context, n MerchantConnectorAccountNew) (MerchantConnectorAccount, error)
	FindByMerchantIDAndMerchantConnectorID(ctx context.Context, merchantID, merchantConnectorID string) (MerchantConnectorAccount, error)
	FindByMerchantIDAndConnectorLabel(ctx context.Context, merchantID, connectorLabel string) (MerchantConnectorAccount, error)
	ListByMerchantID(ctx context.Context, merchantID string, includeDisabled bool) ([]MerchantConnectorAccount, error)
	Update(ctx context.Context, existing MerchantConnectorAccount, u MerchantConnectorAccountUpdateInternal) (MerchantConnectorAccount, error)
	DeleteByMerchantIDAndMerchantConnectorID(ctx context.Context, merchantID, merchantConnectorID string) (bool, error)
}

const selectColumns = `
        SELECT id, merchant_id, connector_name, connector_account_details,
               test_mode, disabled, merchant_connector_id, payment_methods_enabled,
               connector_type, metadata, connector_label, business_country,
               business_label, business_sub_label, frm_configs, created_at,
               modified_at
        FROM   merchant_connector_account`

const (
	insertQuery = `
        INSERT INTO merchant_connector_account
               (merchant_id, connector_name, connector_account_details, test_mode,
                disabled, merchant_connector_id, payment_methods_enabled,
                connector_type, metadata, connector_label, business_country,
                business_label, business_sub_label, frm_configs, created_at,
                modified_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, COALESCE(?, 'payment_processor'), ?, ?, ?, ?, ?, ?, ?, ?)`

	byIDQuery = selectColumns + `
        WHERE  id = ?
        LIMIT  1`

	byMerchantAndMCAIDQuery = selectColumns + `
        WHERE  merchant_id = ?
          AND  merchant_connector_id = ?
        LIMIT  1`

	byMerchantAndLabelQuery = selectColumns + `
        WHERE  merchant_id = ?
          AND  connector_label = ?
        LIMIT  1`

	listByMerchantQuery = selectColumns + `
        WHERE  merchant_id = ?
        ORDER  BY id`

	listEnabledByMerchantQuery = selectColumns + `
        WHERE  merchant_id = ?
          AND  (disabled IS NULL OR disabled = FALSE)
        ORDER  BY id`

	updateQuery = `
        UPDATE merchant_connector_account
        SET    merchant_id = ?, connector_name = ?, connector_account_details = ?,
               test_mode = ?, disabled = ?, merchant_connector_id = ?,
               payment_methods_enabled = ?, connector_type = ?, metadata = ?,
               frm_configs = ?, modified_at = ?
        WHERE  id = ?
          AND  modified_at = ?`

	deleteQuery = `
        DELETE FROM merchant_connector_account
        WHERE  merchant_id = ?
          AND  merchant_connector_id = ?`
)

// Repository implements Storage over sqlx.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps db.
func NewRepository(db *sqlx.DB) *Repository { return &Repository{db: db} }

var _ Storage = (*Repository)(nil)

// Insert writes n and returns the stored row.  Callers run ApplyDefaults and
// Validate first; Service does both.
func (r *Repository) Insert(ctx context.Context, n MerchantConnectorAccountNew) (MerchantConnectorAccount, error) {
	var details encryption.Encryption
	if n.ConnectorAccountDetails != nil {
		details = *n.ConnectorAccountDetails
	}

	res, err := r.db.ExecContext(ctx, insertQuery,
		n.MerchantID, n.ConnectorName, details, n.TestMode,
		n.Disabled, n.MerchantConnectorID, n.PaymentMethodsEnabled,
		n.ConnectorType, n.Metadata, n.ConnectorLabel, n.BusinessCountry,
		n.BusinessLabel, n.BusinessSubLabel, n.FrmConfigs, n.CreatedAt,
		n.ModifiedAt,
	)
	if err != nil {
		return MerchantConnectorAccount{}, fmt.Errorf("insert merchant connector account %s: %w", n.MerchantConnectorID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return MerchantConnectorAccount{}, fmt.Errorf("insert merchant connector account %s: last insert id: %w", n.MerchantConnectorID, err)
	}
	return r.get(ctx, byIDQuery, id)
}

// FindByMerchantIDAndMerchantConnectorID fetches one binding by its id.
func (r *Repository) FindByMerchantIDAndMerchantConnectorID(ctx context.Context, merchantID, merchantConnectorID string) (MerchantConnectorAccount, error) {
	return r.get(ctx, byMerchantAndMCAIDQuery, merchantID, merchantConnectorID)
}

// FindByMerchantIDAndConnectorLabel fetches one binding by its label.
func (r *Repository) FindByMerchantIDAndConnectorLabel(ctx context.Context, merchantID, connectorLabel string) (MerchantConnectorAccount, error) {
	return r.get(ctx, byMerchantAndLabelQuery, merchantID, connectorLabel)
}

// ListByMerchantID returns every binding of a merchant.  Disabled ones are
// skipped unless includeDisabled is set.
func (r *Repository) ListByMerchantID(ctx context.Context, merchantID string, includeDisabled bool) ([]MerchantConnectorAccount, error) {
	q := listEnabledByMerchantQuery
	if includeDisabled {
		q = listByMerchantQuery
	}
	var rows []MerchantConnectorAccount
	if err := r.db.SelectContext(ctx, &rows, q, merchantID); err != nil {
		return nil, fmt.Errorf("list merchant connector accounts for %s: %w", merchantID, err)
	}
	return rows, nil
}

// Update merges u into existing and writes the result back.  The write only
// lands while the stored modified_at still equals existing.ModifiedAt.
func (r *Repository) Update(ctx context.Context, existing MerchantConnectorAccount, u MerchantConnectorAccountUpdateInternal) (MerchantConnectorAccount, error) {
	merged := u.Apply(existing)

	res, err := r.db.ExecContext(ctx, updateQuery,
		merged.MerchantID, merged.ConnectorName, merged.ConnectorAccountDetails,
		merged.TestMode, merged.Disabled, merged.MerchantConnectorID,
		merged.PaymentMethodsEnabled, merged.ConnectorType, merged.Metadata,
		merged.FrmConfigs, merged.ModifiedAt,
		existing.ID, existing.ModifiedAt,
	)
	if err != nil {
		return MerchantConnectorAccount{}, fmt.Errorf("update merchant connector account %s: %w", existing.MerchantConnectorID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return MerchantConnectorAccount{}, fmt.Errorf("update merchant connector account %s: rows affected: %w", existing.MerchantConnectorID, err)
	}
	if n == 0 {
		// Gone, or changed since it was read.
		if _, err := r.get(ctx, byIDQuery, existing.ID); err != nil {
			return MerchantConnectorAccount{}, err
		}
		return MerchantConnectorAccount{}, ErrConflict
	}
	return merged, nil
}

// DeleteByMerchantIDAndMerchantConnectorID reports whether a row was removed.
func (r *Repository) DeleteByMerchantIDAndMerchantConnectorID(ctx context.Context, merchantID, merchantConnectorID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, deleteQuery, merchantID, merchantConnectorID)
	if err != nil {
		return false, fmt.Errorf("delete merchant connector account %s: %w", merchantConnectorID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete merchant connector account %s: rows affected: %w", merchantConnectorID, err)
	}
	return n > 0, nil
}

func (r *Repository) get(ctx context.Context, q string, args ...any) (MerchantConnectorAccount, error) {
	var rec MerchantConnectorAccount
	if err := r.db.GetContext(ctx, &rec, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return MerchantConnectorAccount{}, ErrNotFound
		}
		return MerchantConnectorAccount{}, err
	}
	return rec, nil
}
