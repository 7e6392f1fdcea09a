package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/paycore/internal/connector"
	"github.com/yanizio/paycore/internal/encryption"
	"github.com/yanizio/paycore/internal/secret"
)

var errRotationNeedsDetails = errors.New("credentials_rotation requires connector_account_details")

// accountView is the wire shape of an account.  Credentials never leave
// the service; metadata and frm_configs render masked.
type accountView struct {
	MerchantID            string                          `json:"merchant_id"`
	MerchantConnectorID   string                          `json:"merchant_connector_id"`
	ConnectorName         string                          `json:"connector_name"`
	ConnectorType         connector.ConnectorType         `json:"connector_type"`
	ConnectorLabel        string                          `json:"connector_label"`
	BusinessCountry       connector.CountryAlpha2         `json:"business_country"`
	BusinessLabel         string                          `json:"business_label"`
	BusinessSubLabel      *string                         `json:"business_sub_label,omitempty"`
	TestMode              *bool                           `json:"test_mode,omitempty"`
	Disabled              *bool                           `json:"disabled,omitempty"`
	PaymentMethodsEnabled connector.PaymentMethods        `json:"payment_methods_enabled,omitempty"`
	Metadata              *secret.Secret[json.RawMessage] `json:"metadata,omitempty"`
	FrmConfigs            *secret.Secret[json.RawMessage] `json:"frm_configs,omitempty"`
	CreatedAt             time.Time                       `json:"created_at"`
	ModifiedAt            time.Time                       `json:"modified_at"`
}

func viewOf(a connector.MerchantConnectorAccount) accountView {
	return accountView{
		MerchantID:            a.MerchantID,
		MerchantConnectorID:   a.MerchantConnectorID,
		ConnectorName:         a.ConnectorName,
		ConnectorType:         a.ConnectorType,
		ConnectorLabel:        a.ConnectorLabel,
		BusinessCountry:       a.BusinessCountry,
		BusinessLabel:         a.BusinessLabel,
		BusinessSubLabel:      a.BusinessSubLabel,
		TestMode:              a.TestMode,
		Disabled:              a.Disabled,
		PaymentMethodsEnabled: a.PaymentMethodsEnabled,
		Metadata:              a.Metadata,
		FrmConfigs:            a.FrmConfigs,
		CreatedAt:             a.CreatedAt,
		ModifiedAt:            a.ModifiedAt,
	}
}

// createRequest is the POST body.  connector_account_details is base64
// ciphertext from the encryption service.
type createRequest struct {
	ConnectorName           string                   `json:"connector_name"`
	ConnectorType           *connector.ConnectorType `json:"connector_type"`
	ConnectorAccountDetails *encryption.Encryption   `json:"connector_account_details"`
	TestMode                *bool                    `json:"test_mode"`
	Disabled                *bool                    `json:"disabled"`
	MerchantConnectorID     string                   `json:"merchant_connector_id"`
	PaymentMethodsEnabled   connector.PaymentMethods `json:"payment_methods_enabled"`
	Metadata                json.RawMessage          `json:"metadata"`
	ConnectorLabel          string                   `json:"connector_label"`
	BusinessCountry         connector.CountryAlpha2  `json:"business_country"`
	BusinessLabel           string                   `json:"business_label"`
	BusinessSubLabel        *string                  `json:"business_sub_label"`
	FrmConfigs              json.RawMessage          `json:"frm_configs"`
}

func (c createRequest) toNew(merchantID string) connector.MerchantConnectorAccountNew {
	n := connector.MerchantConnectorAccountNew{
		MerchantID:              &merchantID,
		ConnectorType:           c.ConnectorType,
		ConnectorAccountDetails: c.ConnectorAccountDetails,
		TestMode:                c.TestMode,
		Disabled:                c.Disabled,
		MerchantConnectorID:     c.MerchantConnectorID,
		PaymentMethodsEnabled:   c.PaymentMethodsEnabled,
		ConnectorLabel:          c.ConnectorLabel,
		BusinessCountry:         c.BusinessCountry,
		BusinessLabel:           c.BusinessLabel,
		BusinessSubLabel:        c.BusinessSubLabel,
	}
	if c.ConnectorName != "" {
		n.ConnectorName = &c.ConnectorName
	}
	if len(c.Metadata) > 0 {
		n.Metadata = secret.Ptr(c.Metadata)
	}
	if len(c.FrmConfigs) > 0 {
		n.FrmConfigs = secret.Ptr(c.FrmConfigs)
	}
	return n
}

// patchRequest is the PATCH body.  "type" selects the update variant:
// "update" (default) or "credentials_rotation".  Absent or null fields are
// left unchanged.
type patchRequest struct {
	Type                    string                    `json:"type"`
	MerchantID              *string                   `json:"merchant_id"`
	ConnectorType           *connector.ConnectorType  `json:"connector_type"`
	ConnectorName           *string                   `json:"connector_name"`
	ConnectorAccountDetails *encryption.Encryption    `json:"connector_account_details"`
	TestMode                *bool                     `json:"test_mode"`
	Disabled                *bool                     `json:"disabled"`
	MerchantConnectorID     *string                   `json:"merchant_connector_id"`
	PaymentMethodsEnabled   *connector.PaymentMethods `json:"payment_methods_enabled"`
	Metadata                *json.RawMessage          `json:"metadata"`
	FrmConfigs              *json.RawMessage          `json:"frm_configs"`
}

func (p patchRequest) toUpdate() (connector.MerchantConnectorAccountUpdate, error) {
	switch p.Type {
	case "", "update":
		u := connector.Update{
			MerchantID:            p.MerchantID,
			ConnectorType:         p.ConnectorType,
			ConnectorName:         p.ConnectorName,
			TestMode:              p.TestMode,
			Disabled:              p.Disabled,
			MerchantConnectorID:   p.MerchantConnectorID,
			PaymentMethodsEnabled: p.PaymentMethodsEnabled,
		}
		if p.ConnectorAccountDetails != nil {
			u.ConnectorAccountDetails = secret.Ptr(*p.ConnectorAccountDetails)
		}
		if p.Metadata != nil {
			u.Metadata = secret.Ptr(*p.Metadata)
		}
		if p.FrmConfigs != nil {
			u.FrmConfigs = secret.Ptr(*p.FrmConfigs)
		}
		return u, nil
	case "credentials_rotation":
		if p.ConnectorAccountDetails == nil {
			return nil, errRotationNeedsDetails
		}
		return connector.CredentialsRotation{
			ConnectorAccountDetails: secret.New(*p.ConnectorAccountDetails),
		}, nil
	default:
		return nil, fmt.Errorf("unknown update type %q", p.Type)
	}
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(w, r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	rec, err := h.accounts.Create(r.Context(), req.toNew(chi.URLParam(r, "merchant_id")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(rec))
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	includeDisabled := r.URL.Query().Get("include_disabled") == "true"
	recs, err := h.accounts.List(r.Context(), chi.URLParam(r, "merchant_id"), includeDisabled)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]accountView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, viewOf(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	rec, err := h.accounts.Get(r.Context(), chi.URLParam(r, "merchant_id"), chi.URLParam(r, "merchant_connector_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rec))
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := decode(w, r, &req); err != nil {
		h.badRequest(w, err)
		return
	}
	u, err := req.toUpdate()
	if err != nil {
		h.badRequest(w, err)
		return
	}
	rec, err := h.accounts.Update(r.Context(), chi.URLParam(r, "merchant_id"), chi.URLParam(r, "merchant_connector_id"), u)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rec))
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Delete(r.Context(), chi.URLParam(r, "merchant_id"), chi.URLParam(r, "merchant_connector_id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
