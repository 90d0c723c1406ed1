// Package handler exposes the threshold tunables for admin inspection and
// adjustment. Changes take effect on the next assessment; no redeploy.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"benefid/internal/thresholds"
	"benefid/internal/transport/http/shared"
	dErrors "benefid/pkg/domain-errors"
	"benefid/pkg/platform/sentinel"
)

// Handler handles threshold endpoints.
type Handler struct {
	provider *thresholds.Provider
	store    thresholds.Store
	logger   *slog.Logger
}

// New creates a thresholds Handler. store may be nil when the process runs
// on defaults only; writes then return 503.
func New(provider *thresholds.Provider, store thresholds.Store, logger *slog.Logger) *Handler {
	return &Handler{provider: provider, store: store, logger: logger}
}

// Register mounts the threshold routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/thresholds", h.handleList)
	r.Put("/thresholds/{key}", h.handleSet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	values := map[string]int{}
	for _, key := range thresholds.Keys() {
		values[key] = h.provider.GetInt(ctx, key)
	}
	shared.WriteJSON(w, http.StatusOK, values)
}

type setRequest struct {
	Value int `json:"value"`
}

func (h *Handler) handleSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "key")
	if thresholds.Default(key) == 0 {
		shared.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "unknown threshold key %q", key))
		return
	}
	if h.store == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "threshold storage is not configured"))
		return
	}

	var req setRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if req.Value <= 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "threshold value must be positive"))
		return
	}

	if err := h.store.SetInt(ctx, key, req.Value); err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			shared.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "threshold storage unavailable"))
			return
		}
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store threshold"))
		return
	}
	h.logger.InfoContext(ctx, "threshold updated", "key", key, "value", req.Value)
	shared.WriteJSON(w, http.StatusOK, map[string]int{key: req.Value})
}
