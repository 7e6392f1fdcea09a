// internal/connector/model.go
//
// `merchant_connector_account` table row model.
//
// Context
// -------
// One row binds one merchant to one downstream payment connector: which
// processor, which credentials (ciphertext from the encryption service),
// which payment methods, and how the binding is labelled for routing.
//
// Schema reference
//
//	CREATE TABLE merchant_connector_account (
//	    id                        BIGINT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    merchant_id               VARCHAR(64)   NOT NULL,
//	    connector_name            VARCHAR(64)   NOT NULL,
//	    connector_account_details BLOB          NOT NULL,
//	    test_mode                 TINYINT(1)    NULL,
//	    disabled                  TINYINT(1)    NULL,
//	    merchant_connector_id     VARCHAR(128)  NOT NULL,
//	    payment_methods_enabled   JSON          NULL,
//	    connector_type            VARCHAR(32)   NOT NULL DEFAULT 'payment_processor',
//	    metadata                  JSON          NULL,
//	    connector_label           VARCHAR(255)  NOT NULL,
//	    business_country          CHAR(2)       NOT NULL,
//	    business_label            VARCHAR(64)   NOT NULL,
//	    business_sub_label        VARCHAR(64)   NULL,
//	    frm_configs               JSON          NULL,
//	    created_at                DATETIME(6)   NOT NULL,
//	    modified_at               DATETIME(6)   NOT NULL,
//	    UNIQUE KEY uq_mca_merchant_mca_id (merchant_id, merchant_connector_id),
//	    UNIQUE KEY uq_mca_merchant_label  (merchant_id, connector_label)
//	);
//
// Notes
// -----
//   - Nullable columns are pointers; callers must nil-check before use.
//   - Timestamps are UTC with microsecond precision.  The DSN must carry
//     parseTime=true.
//   - Column list in repository.go matches these fields; update both
//     together.
package connector

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yanizio/paycore/internal/encryption"
	"github.com/yanizio/paycore/internal/secret"
)

// MerchantConnectorAccount mirrors one persisted row.
type MerchantConnectorAccount struct {
	ID                      int64                           `db:"id"`
	MerchantID              string                          `db:"merchant_id"`
	ConnectorName           string                          `db:"connector_name"`
	ConnectorAccountDetails encryption.Encryption           `db:"connector_account_details"`
	TestMode                *bool                           `db:"test_mode"`
	Disabled                *bool                           `db:"disabled"`
	MerchantConnectorID     string                          `db:"merchant_connector_id"`
	PaymentMethodsEnabled   PaymentMethods                  `db:"payment_methods_enabled"`
	ConnectorType           ConnectorType                   `db:"connector_type"`
	Metadata                *secret.Secret[json.RawMessage] `db:"metadata"`
	ConnectorLabel          string                          `db:"connector_label"`
	BusinessCountry         CountryAlpha2                   `db:"business_country"`
	BusinessLabel           string                          `db:"business_label"`
	BusinessSubLabel        *string                         `db:"business_sub_label"`
	FrmConfigs              *secret.Secret[json.RawMessage] `db:"frm_configs"`
	CreatedAt               time.Time                       `db:"created_at"`
	ModifiedAt              time.Time                       `db:"modified_at"`
}

// MerchantConnectorAccountNew is the insertion shape.  Optional fields are
// filled by ApplyDefaults or by column defaults.
type MerchantConnectorAccountNew struct {
	MerchantID              *string                         `validate:"omitempty,min=1"`
	ConnectorType           *ConnectorType                  `validate:"omitempty,connector_type"`
	ConnectorName           *string                         `validate:"omitempty,min=1"`
	ConnectorAccountDetails *encryption.Encryption          `validate:"omitempty"`
	TestMode                *bool                           `validate:"omitempty"`
	Disabled                *bool                           `validate:"omitempty"`
	MerchantConnectorID     string                          `validate:"required"`
	PaymentMethodsEnabled   PaymentMethods                  `validate:"omitempty"`
	Metadata                *secret.Secret[json.RawMessage] `validate:"omitempty"`
	ConnectorLabel          string                          `validate:"required"`
	BusinessCountry         CountryAlpha2                   `validate:"required,iso3166_1_alpha2"`
	BusinessLabel           string                          `validate:"required"`
	BusinessSubLabel        *string                         `validate:"omitempty"`
	FrmConfigs              *secret.Secret[json.RawMessage] `validate:"omitempty"`
	CreatedAt               time.Time                       `validate:"required"`
	ModifiedAt              time.Time                       `validate:"required"`
}

// PaymentMethods is the JSON array of payment-method descriptors a binding
// supports.  nil maps to SQL NULL.
type PaymentMethods []json.RawMessage

// Clone deep-copies every element.
func (p PaymentMethods) Clone() PaymentMethods {
	if p == nil {
		return nil
	}
	out := make(PaymentMethods, len(p))
	for i, m := range p {
		out[i] = bytes.Clone(m)
	}
	return out
}

// Value implements driver.Valuer.
func (p PaymentMethods) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal([]json.RawMessage(p))
}

// Scan implements sql.Scanner.
func (p *PaymentMethods) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("payment_methods_enabled: cannot scan %T", src)
	}
	var out []json.RawMessage
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("payment_methods_enabled: %w", err)
	}
	*p = out
	return nil
}
