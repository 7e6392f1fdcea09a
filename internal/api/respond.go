package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yanizio/paycore/internal/configs"
	"github.com/yanizio/paycore/internal/connector"
	"github.com/yanizio/paycore/internal/invalidate"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, connector.ErrNotFound), errors.Is(err, configs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, connector.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, configs.ErrEmptyKey), errors.Is(err, invalidate.ErrEmptyKey), errors.As(err, &verrs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs 5xx causes and hides them from the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= 500 {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = http.StatusText(status)
		if errors.Is(err, invalidate.ErrRemoveRedisKeyFailure) {
			msg = invalidate.ErrRemoveRedisKeyFailure.Error()
		}
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (h *Handler) badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
}
