// internal/api/router.go
//
// Admin HTTP surface.
//
// Context
// -------
// Operators and the dashboard use these routes to invalidate cached
// configuration, read and write config values, and manage merchant
// connector accounts.  Every response is JSON.
//
//	GET    /healthz
//	POST   /cache/invalidate/{key}
//	GET    /configs/{key}
//	PUT    /configs/{key}
//	DELETE /configs/{key}
//	POST   /accounts/{merchant_id}
//	GET    /accounts/{merchant_id}
//	GET    /accounts/{merchant_id}/{merchant_connector_id}
//	PATCH  /accounts/{merchant_id}/{merchant_connector_id}
//	DELETE /accounts/{merchant_id}/{merchant_connector_id}
//
// Notes
// -----
//   - Middleware order: request id, panic recovery, request log, security
//     headers.
//   - /metrics is mounted by cmd/paycore, outside this router.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/paycore/internal/connector"
	"github.com/yanizio/paycore/internal/invalidate"
	"github.com/yanizio/paycore/internal/middleware"
)

// ConfigService is the configuration API the handlers need.
// *configs.Service satisfies it.
type ConfigService interface {
	Find(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Invalidate(ctx context.Context, key string) (invalidate.Status, error)
}

// AccountService is the account API the handlers need.
// *connector.Service satisfies it.
type AccountService interface {
	Create(ctx context.Context, n connector.MerchantConnectorAccountNew) (connector.MerchantConnectorAccount, error)
	Get(ctx context.Context, merchantID, merchantConnectorID string) (connector.MerchantConnectorAccount, error)
	List(ctx context.Context, merchantID string, includeDisabled bool) ([]connector.MerchantConnectorAccount, error)
	Update(ctx context.Context, merchantID, merchantConnectorID string, u connector.MerchantConnectorAccountUpdate) (connector.MerchantConnectorAccount, error)
	Delete(ctx context.Context, merchantID, merchantConnectorID string) error
}

// Handler holds the services behind the routes.
type Handler struct {
	configs  ConfigService
	accounts AccountService
	logger   *zap.Logger
}

// NewHandler wires a Handler.  A nil logger falls back to zap.L().
func NewHandler(configs ConfigService, accounts AccountService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.L()
	}
	return &Handler{configs: configs, accounts: accounts, logger: logger.Named("API")}
}

// Routes builds the chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLog(h.logger))
	r.Use(middleware.Security)

	r.Get("/healthz", h.healthz)
	r.Post("/cache/invalidate/{key}", h.invalidateKey)

	r.Route("/configs/{key}", func(r chi.Router) {
		r.Get("/", h.getConfig)
		r.Put("/", h.putConfig)
		r.Delete("/", h.deleteConfig)
	})

	r.Route("/accounts/{merchant_id}", func(r chi.Router) {
		r.Post("/", h.createAccount)
		r.Get("/", h.listAccounts)
		r.Get("/{merchant_connector_id}", h.getAccount)
		r.Patch("/{merchant_connector_id}", h.updateAccount)
		r.Delete("/{merchant_connector_id}", h.deleteAccount)
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
