package connector

import (
	"fmt"
	"strings"
)

// ConnectorType classifies what a connector does for the merchant.
type ConnectorType string

const (
	PaymentProcessor  ConnectorType = "payment_processor"
	PaymentVas        ConnectorType = "payment_vas"
	FinOperations     ConnectorType = "fin_operations"
	FizOperations     ConnectorType = "fiz_operations"
	Networks          ConnectorType = "networks"
	BankingEntities   ConnectorType = "banking_entities"
	NonBankingFinance ConnectorType = "non_banking_finance"
	PayoutProcessor   ConnectorType = "payout_processor"
)

var connectorTypes = map[ConnectorType]struct{}{
	PaymentProcessor:  {},
	PaymentVas:        {},
	FinOperations:     {},
	FizOperations:     {},
	Networks:          {},
	BankingEntities:   {},
	NonBankingFinance: {},
	PayoutProcessor:   {},
}

// Valid reports whether t is a known connector type.
func (t ConnectorType) Valid() bool {
	_, ok := connectorTypes[t]
	return ok
}

// UnmarshalText rejects unknown values so bad request bodies fail early.
func (t *ConnectorType) UnmarshalText(b []byte) error {
	v := ConnectorType(strings.ToLower(string(b)))
	if !v.Valid() {
		return fmt.Errorf("unknown connector type %q", string(b))
	}
	*t = v
	return nil
}

// CountryAlpha2 is an ISO 3166-1 alpha-2 country code.  Validation uses the
// validator's iso3166_1_alpha2 rule (see Validate in defaults.go).
type CountryAlpha2 string

// UnmarshalText normalises to upper case.
func (c *CountryAlpha2) UnmarshalText(b []byte) error {
	*c = CountryAlpha2(strings.ToUpper(strings.TrimSpace(string(b))))
	return nil
}
