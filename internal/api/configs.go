package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type configBody struct {
	Key    string `json:"key"`
	Config string `json:"config"`
}

type statusBody struct {
	Key    string `json:"key"`
	Status string `json:"status"`
}

func (h *Handler) invalidateKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	status, err := h.configs.Invalidate(r.Context(), key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusBody{Key: key, Status: status.String()})
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	val, err := h.configs.Find(r.Context(), key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configBody{Key: key, Config: val})
}

func (h *Handler) putConfig(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var body struct {
		Config string `json:"config"`
	}
	if err := decode(w, r, &body); err != nil {
		h.badRequest(w, err)
		return
	}
	if err := h.configs.Set(r.Context(), key, body.Config); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configBody{Key: key, Config: body.Config})
}

func (h *Handler) deleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.configs.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
