package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/paycore/internal/configs"
	"github.com/yanizio/paycore/internal/connector"
	"github.com/yanizio/paycore/internal/encryption"
	"github.com/yanizio/paycore/internal/invalidate"
	"github.com/yanizio/paycore/internal/secret"
)

type fakeConfigs struct {
	vals        map[string]string
	invalidated []string
	failRedis   bool
}

func (f *fakeConfigs) Find(_ context.Context, key string) (string, error) {
	v, ok := f.vals[key]
	if !ok {
		return "", configs.ErrNotFound
	}
	return v, nil
}

func (f *fakeConfigs) Set(_ context.Context, key, value string) error {
	f.vals[key] = value
	return nil
}

func (f *fakeConfigs) Delete(_ context.Context, key string) error {
	if _, ok := f.vals[key]; !ok {
		return configs.ErrNotFound
	}
	delete(f.vals, key)
	return nil
}

func (f *fakeConfigs) Invalidate(_ context.Context, key string) (invalidate.Status, error) {
	f.invalidated = append(f.invalidated, key)
	if f.failRedis {
		return invalidate.StatusUnknown, fmt.Errorf("%w: %s", invalidate.ErrRemoveRedisKeyFailure, key)
	}
	return invalidate.StatusOK, nil
}

type fakeAccounts struct {
	rec      connector.MerchantConnectorAccount
	created  connector.MerchantConnectorAccountNew
	updates  []connector.MerchantConnectorAccountUpdate
	conflict bool
}

func (f *fakeAccounts) Create(_ context.Context, n connector.MerchantConnectorAccountNew) (connector.MerchantConnectorAccount, error) {
	f.created = n
	return f.rec, nil
}

func (f *fakeAccounts) Get(_ context.Context, merchantID, mcaID string) (connector.MerchantConnectorAccount, error) {
	if merchantID != f.rec.MerchantID || mcaID != f.rec.MerchantConnectorID {
		return connector.MerchantConnectorAccount{}, connector.ErrNotFound
	}
	return f.rec, nil
}

func (f *fakeAccounts) List(_ context.Context, merchantID string, _ bool) ([]connector.MerchantConnectorAccount, error) {
	if merchantID != f.rec.MerchantID {
		return nil, nil
	}
	return []connector.MerchantConnectorAccount{f.rec}, nil
}

func (f *fakeAccounts) Update(ctx context.Context, merchantID, mcaID string, u connector.MerchantConnectorAccountUpdate) (connector.MerchantConnectorAccount, error) {
	if err := u.Validate(); err != nil {
		return connector.MerchantConnectorAccount{}, fmt.Errorf("invalid merchant connector account update: %w", err)
	}
	if _, err := f.Get(ctx, merchantID, mcaID); err != nil {
		return connector.MerchantConnectorAccount{}, err
	}
	if f.conflict {
		return connector.MerchantConnectorAccount{}, connector.ErrConflict
	}
	f.updates = append(f.updates, u)
	return connector.NewUpdateInternal(u, f.rec.ModifiedAt.Add(time.Minute)).Apply(f.rec), nil
}

func (f *fakeAccounts) Delete(ctx context.Context, merchantID, mcaID string) error {
	_, err := f.Get(ctx, merchantID, mcaID)
	return err
}

func testAccount() connector.MerchantConnectorAccount {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return connector.MerchantConnectorAccount{
		ID:                      7,
		MerchantID:              "M1",
		ConnectorName:           "stripe",
		ConnectorAccountDetails: encryption.New([]byte("ciphertext")),
		MerchantConnectorID:     "mca_1",
		ConnectorType:           connector.PaymentProcessor,
		Metadata:                secret.Ptr(json.RawMessage(`{"api_hint":"sk_live"}`)),
		ConnectorLabel:          "stripe_US_default",
		BusinessCountry:         "US",
		BusinessLabel:           "default",
		CreatedAt:               ts,
		ModifiedAt:              ts,
	}
}

func newServer(t *testing.T) (*httptest.Server, *fakeConfigs, *fakeAccounts) {
	t.Helper()
	cfgs := &fakeConfigs{vals: map[string]string{"routing.retry": "3"}}
	accts := &fakeAccounts{rec: testAccount()}
	srv := httptest.NewServer(NewHandler(cfgs, accts, zap.NewNop()).Routes())
	t.Cleanup(srv.Close)
	return srv, cfgs, accts
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(b)
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Fatalf("healthz = %d %s", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestInvalidateKey(t *testing.T) {
	srv, cfgs, _ := newServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/cache/invalidate/M1_stripe_US_default", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var got statusBody
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Key != "M1_stripe_US_default" || got.Status != "ok" {
		t.Fatalf("body = %+v", got)
	}
	if len(cfgs.invalidated) != 1 || cfgs.invalidated[0] != "M1_stripe_US_default" {
		t.Fatalf("invalidated = %v", cfgs.invalidated)
	}
}

func TestInvalidateKey_RedisFailure(t *testing.T) {
	srv, cfgs, _ := newServer(t)
	cfgs.failRedis = true

	resp, body := do(t, http.MethodPost, srv.URL+"/cache/invalidate/k1", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, invalidate.ErrRemoveRedisKeyFailure.Error()) {
		t.Fatalf("body = %s", body)
	}
}

func TestConfigRoutes(t *testing.T) {
	srv, cfgs, _ := newServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/configs/routing.retry", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"config":"3"`) {
		t.Fatalf("get = %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/configs/absent", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing get = %d", resp.StatusCode)
	}

	resp, _ = do(t, http.MethodPut, srv.URL+"/configs/routing.retry", `{"config":"5"}`)
	if resp.StatusCode != http.StatusOK || cfgs.vals["routing.retry"] != "5" {
		t.Fatalf("put = %d, stored %q", resp.StatusCode, cfgs.vals["routing.retry"])
	}

	resp, _ = do(t, http.MethodPut, srv.URL+"/configs/routing.retry", `{"value":"5"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field put = %d", resp.StatusCode)
	}

	resp, _ = do(t, http.MethodDelete, srv.URL+"/configs/routing.retry", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete = %d", resp.StatusCode)
	}
}

func TestGetAccount_MasksSecrets(t *testing.T) {
	srv, _, _ := newServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/accounts/M1/mca_1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if strings.Contains(body, "sk_live") || strings.Contains(body, "ciphertext") {
		t.Fatalf("secret leaked: %s", body)
	}
	if !strings.Contains(body, secret.Mask) {
		t.Fatalf("metadata not masked: %s", body)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/accounts/M1/nope", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing account = %d", resp.StatusCode)
	}
}

func TestPatchAccount(t *testing.T) {
	srv, _, accts := newServer(t)

	resp, body := do(t, http.MethodPatch, srv.URL+"/accounts/M1/mca_1", `{"disabled":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	u, ok := accts.updates[0].(connector.Update)
	if !ok || u.Disabled == nil || !*u.Disabled || u.ConnectorAccountDetails != nil {
		t.Fatalf("update = %#v", accts.updates[0])
	}
	if !strings.Contains(body, `"disabled":true`) {
		t.Fatalf("body = %s", body)
	}
}

func TestPatchAccount_CredentialsRotation(t *testing.T) {
	srv, _, accts := newServer(t)

	resp, body := do(t, http.MethodPatch, srv.URL+"/accounts/M1/mca_1",
		`{"type":"credentials_rotation","connector_account_details":"3q2+7w=="}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	rot, ok := accts.updates[0].(connector.CredentialsRotation)
	if !ok {
		t.Fatalf("update = %#v", accts.updates[0])
	}
	if !rot.ConnectorAccountDetails.Expose().Equal(encryption.New([]byte{0xde, 0xad, 0xbe, 0xef})) {
		t.Fatal("rotated credentials not decoded from base64")
	}
}

func TestPatchAccount_BadBodies(t *testing.T) {
	srv, _, _ := newServer(t)

	for _, body := range []string{
		`{"type":"credentials_rotation"}`,
		`{"type":"nuke"}`,
		`{"connector_type":"teleporter"}`,
		`{"disabled":`,
		`{"merchant_connector_id":""}`,
		`{"merchant_id":""}`,
	} {
		resp, _ := do(t, http.MethodPatch, srv.URL+"/accounts/M1/mca_1", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestCreateAccount(t *testing.T) {
	srv, _, accts := newServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/accounts/M1",
		`{"connector_name":"stripe","business_country":"us","business_label":"default","metadata":{"a":1}}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	n := accts.created
	if n.MerchantID == nil || *n.MerchantID != "M1" || n.BusinessCountry != "US" {
		t.Fatalf("new = %#v", n)
	}
	if n.Metadata == nil || string(n.Metadata.Expose()) != `{"a":1}` {
		t.Fatalf("metadata = %v", n.Metadata)
	}
}

func TestListAndDeleteAccounts(t *testing.T) {
	srv, _, _ := newServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/accounts/M1?include_disabled=true", "")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(strings.TrimSpace(body), "[") {
		t.Fatalf("list = %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, http.MethodDelete, srv.URL+"/accounts/M1/mca_1", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete = %d", resp.StatusCode)
	}
}

func TestPatchAccount_Conflict(t *testing.T) {
	srv, _, accts := newServer(t)
	accts.conflict = true

	resp, body := do(t, http.MethodPatch, srv.URL+"/accounts/M1/mca_1", `{"test_mode":true}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
}
