package connector

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// merchantConnectorIDPrefix marks generated ids.
const merchantConnectorIDPrefix = "mca_"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("connector_type", func(fl validator.FieldLevel) bool {
		return ConnectorType(fl.Field().String()).Valid()
	})
	return v
}

// GenerateMerchantConnectorID returns a fresh "mca_<32 hex>" identifier.
func GenerateMerchantConnectorID() string {
	return merchantConnectorIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// DefaultConnectorLabel builds "<connector>_<country>_<business_label>", with
// "_<sub_label>" appended when a sub-label is present.
func DefaultConnectorLabel(connectorName string, country CountryAlpha2, businessLabel string, subLabel *string) string {
	parts := []string{connectorName, string(country), businessLabel}
	if subLabel != nil && *subLabel != "" {
		parts = append(parts, *subLabel)
	}
	return strings.Join(parts, "_")
}

// AccountCacheKey is the shared cache key for one account binding.
func AccountCacheKey(merchantID, connectorLabel string) string {
	return merchantID + "_" + connectorLabel
}

// ApplyDefaults fills the fields callers may leave empty.  Fields already
// set are never overwritten.
func (n *MerchantConnectorAccountNew) ApplyDefaults(now time.Time) {
	if n.MerchantConnectorID == "" {
		n.MerchantConnectorID = GenerateMerchantConnectorID()
	}
	if n.ConnectorType == nil {
		t := PaymentProcessor
		n.ConnectorType = &t
	}
	if n.ConnectorLabel == "" && n.ConnectorName != nil {
		n.ConnectorLabel = DefaultConnectorLabel(*n.ConnectorName, n.BusinessCountry, n.BusinessLabel, n.BusinessSubLabel)
	}
	if n.TestMode == nil {
		f := false
		n.TestMode = &f
	}
	if n.Disabled == nil {
		f := false
		n.Disabled = &f
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.ModifiedAt.IsZero() {
		n.ModifiedAt = n.CreatedAt
	}
}

// Validate checks the structural requirements of the insertion shape.
// Business rules about connector configuration live elsewhere.
func (n MerchantConnectorAccountNew) Validate() error {
	return validate.Struct(n)
}
