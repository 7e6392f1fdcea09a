package connector

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/yanizio/paycore/internal/encryption"
	"github.com/yanizio/paycore/internal/secret"
)

var (
	t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(90 * time.Second)
)

func ptr[T any](v T) *T { return &v }

func sampleAccount() MerchantConnectorAccount {
	return MerchantConnectorAccount{
		ID:                      7,
		MerchantID:              "M1",
		ConnectorName:           "stripe",
		ConnectorAccountDetails: encryption.New([]byte{0xde, 0xad, 0xbe, 0xef}),
		TestMode:                ptr(false),
		Disabled:                nil,
		MerchantConnectorID:     "mca_1",
		PaymentMethodsEnabled:   PaymentMethods{json.RawMessage(`{"payment_method":"card"}`)},
		ConnectorType:           PaymentProcessor,
		Metadata:                secret.Ptr(json.RawMessage(`{"city":"NY"}`)),
		ConnectorLabel:          "stripe_US_default",
		BusinessCountry:         "US",
		BusinessLabel:           "default",
		BusinessSubLabel:        ptr("online"),
		FrmConfigs:              nil,
		CreatedAt:               t0,
		ModifiedAt:              t0,
	}
}

func TestApply_EmptyUpdateOnlyTouchesModifiedAt(t *testing.T) {
	existing := sampleAccount()

	got := NewUpdateInternal(Update{}, t1).Apply(existing)

	want := sampleAccount()
	want.ModifiedAt = t1
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("identity merge mismatch:\n got  %#v\n want %#v", got, want)
	}
}

func TestApply_SetFieldOverrides(t *testing.T) {
	newDetails := encryption.New([]byte("rotated"))
	newMethods := PaymentMethods{json.RawMessage(`{"payment_method":"wallet"}`)}
	nt := Networks

	cases := []struct {
		name   string
		update Update
		mutate func(*MerchantConnectorAccount)
	}{
		{"merchant_id", Update{MerchantID: ptr("M2")}, func(a *MerchantConnectorAccount) { a.MerchantID = "M2" }},
		{"connector_type", Update{ConnectorType: &nt}, func(a *MerchantConnectorAccount) { a.ConnectorType = Networks }},
		{"connector_name", Update{ConnectorName: ptr("adyen")}, func(a *MerchantConnectorAccount) { a.ConnectorName = "adyen" }},
		{"connector_account_details", Update{ConnectorAccountDetails: secret.Ptr(newDetails)}, func(a *MerchantConnectorAccount) { a.ConnectorAccountDetails = newDetails }},
		{"test_mode", Update{TestMode: ptr(true)}, func(a *MerchantConnectorAccount) { a.TestMode = ptr(true) }},
		{"disabled", Update{Disabled: ptr(true)}, func(a *MerchantConnectorAccount) { a.Disabled = ptr(true) }},
		{"merchant_connector_id", Update{MerchantConnectorID: ptr("mca_2")}, func(a *MerchantConnectorAccount) { a.MerchantConnectorID = "mca_2" }},
		{"payment_methods_enabled", Update{PaymentMethodsEnabled: &newMethods}, func(a *MerchantConnectorAccount) { a.PaymentMethodsEnabled = newMethods }},
		{"metadata", Update{Metadata: secret.Ptr(json.RawMessage(`{"city":"SF"}`))}, func(a *MerchantConnectorAccount) {
			a.Metadata = secret.Ptr(json.RawMessage(`{"city":"SF"}`))
		}},
		{"frm_configs", Update{FrmConfigs: secret.Ptr(json.RawMessage(`[{"gateway":"x"}]`))}, func(a *MerchantConnectorAccount) {
			a.FrmConfigs = secret.Ptr(json.RawMessage(`[{"gateway":"x"}]`))
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NewUpdateInternal(tc.update, t1).Apply(sampleAccount())

			want := sampleAccount()
			tc.mutate(&want)
			want.ModifiedAt = t1
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("override mismatch:\n got  %#v\n want %#v", got, want)
			}
		})
	}
}

func TestApply_PreservesCredentialsWhenUnset(t *testing.T) {
	existing := sampleAccount()

	got := NewUpdateInternal(Update{ConnectorName: ptr("adyen")}, t1).Apply(existing)

	if !got.ConnectorAccountDetails.Equal(existing.ConnectorAccountDetails) {
		t.Fatalf("credentials changed: got %v want %v", got.ConnectorAccountDetails, existing.ConnectorAccountDetails)
	}
	if got.ConnectorAccountDetails.IsEmpty() {
		t.Fatal("credentials were reset to empty")
	}
}

func TestApply_DisableStripeBinding(t *testing.T) {
	e1 := encryption.New([]byte("E1"))
	existing := MerchantConnectorAccount{
		MerchantID:              "M1",
		ConnectorName:           "stripe",
		Disabled:                nil,
		ConnectorAccountDetails: e1,
		ModifiedAt:              t0,
	}

	got := NewUpdateInternal(Update{Disabled: ptr(true)}, t1).Apply(existing)

	if got.MerchantID != "M1" || got.ConnectorName != "stripe" {
		t.Fatalf("identity fields changed: %s/%s", got.MerchantID, got.ConnectorName)
	}
	if got.Disabled == nil || !*got.Disabled {
		t.Fatalf("disabled = %v, want true", got.Disabled)
	}
	if !got.ConnectorAccountDetails.Equal(e1) {
		t.Fatalf("credentials = %v, want E1", got.ConnectorAccountDetails)
	}
	if !got.ModifiedAt.After(t0) {
		t.Fatalf("modified_at %v not after %v", got.ModifiedAt, t0)
	}
}

func TestApply_CredentialsRotation(t *testing.T) {
	rotated := encryption.New([]byte("fresh-ciphertext"))
	u := NewUpdateInternal(CredentialsRotation{ConnectorAccountDetails: secret.New(rotated)}, t1)

	if u.ConnectorAccountDetails == nil {
		t.Fatal("rotation must set credentials")
	}
	u.ConnectorAccountDetails = nil
	if !u.IsEmpty() {
		t.Fatalf("rotation touched more than credentials: %#v", u)
	}

	got := NewUpdateInternal(CredentialsRotation{ConnectorAccountDetails: secret.New(rotated)}, t1).Apply(sampleAccount())
	want := sampleAccount()
	want.ConnectorAccountDetails = rotated
	want.ModifiedAt = t1
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rotation mismatch:\n got  %#v\n want %#v", got, want)
	}
}

func TestApply_DoesNotAlias(t *testing.T) {
	existing := sampleAccount()
	got := Merge(existing, NewUpdateInternal(Update{}, t1))

	*got.TestMode = true
	*got.BusinessSubLabel = "changed"
	got.PaymentMethodsEnabled[0][0] = 'X'
	raw := got.Metadata.Expose()
	raw[0] = 'X'

	if !reflect.DeepEqual(existing, sampleAccount()) {
		t.Fatalf("existing was mutated through the result: %#v", existing)
	}
}

func TestUpdateVariants(t *testing.T) {
	var u MerchantConnectorAccountUpdate = Update{}
	if u.Variant() != "update" {
		t.Fatalf("Update variant = %q", u.Variant())
	}
	u = CredentialsRotation{}
	if u.Variant() != "credentials_rotation" {
		t.Fatalf("CredentialsRotation variant = %q", u.Variant())
	}
	if !NewUpdateInternal(Update{}, t1).IsEmpty() {
		t.Fatal("empty Update should flatten to an empty changeset")
	}
}

func TestUpdateValidate(t *testing.T) {
	ok := []MerchantConnectorAccountUpdate{
		Update{},
		Update{MerchantID: ptr("M2"), MerchantConnectorID: ptr("mca_2"), ConnectorName: ptr("adyen")},
		Update{Disabled: ptr(true), Metadata: secret.Ptr(json.RawMessage(`{}`))},
		CredentialsRotation{ConnectorAccountDetails: secret.New(encryption.New([]byte("c")))},
	}
	for i, u := range ok {
		if err := u.Validate(); err != nil {
			t.Errorf("case %d: unexpected error %v", i, err)
		}
	}

	bad := []Update{
		{MerchantID: ptr("")},
		{MerchantConnectorID: ptr("")},
		{ConnectorName: ptr(""), Disabled: ptr(true)},
	}
	for i, u := range bad {
		if err := u.Validate(); err == nil {
			t.Errorf("case %d: expected error for empty identity field", i)
		}
	}
}
