// Package handler exposes the verified-pair whitelist over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"benefid/internal/pair/models"
	"benefid/internal/pair/service"
	"benefid/internal/transport/http/shared"
	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
	"benefid/pkg/requestcontext"
)

// Service defines the pair operations the transport needs.
type Service interface {
	Verify(ctx context.Context, input service.VerifyInput) (*models.VerifiedPair, error)
	Revoke(ctx context.Context, pairID id.PairID, actor id.ActorID, reason string) error
	Lookup(ctx context.Context, identityA, identityB id.IdentityID) (*models.VerifiedPair, error)
}

// Handler handles pair endpoints.
type Handler struct {
	pairs  Service
	logger *slog.Logger
}

// New creates a pair Handler.
func New(pairs Service, logger *slog.Logger) *Handler {
	return &Handler{pairs: pairs, logger: logger}
}

// Register mounts the pair routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/pairs", h.handleVerify)
	r.Get("/pairs/lookup", h.handleLookup)
	r.Post("/pairs/{pairID}/revoke", h.handleRevoke)
}

type verifyRequest struct {
	IdentityA string `json:"identity_a"`
	IdentityB string `json:"identity_b"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
	Distance  int    `json:"distance"`
	Score     int    `json:"score"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	identityA, err := id.ParseIdentityID(req.IdentityA)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	identityB, err := id.ParseIdentityID(req.IdentityB)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	pair, err := h.pairs.Verify(ctx, service.VerifyInput{
		IdentityA: identityA,
		IdentityB: identityB,
		Status:    models.Status(req.Status),
		Reason:    req.Reason,
		Distance:  req.Distance,
		Score:     req.Score,
		Actor:     requestcontext.Actor(ctx),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "pair verification failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, pair)
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	identityA, err := id.ParseIdentityID(r.URL.Query().Get("identity_a"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	identityB, err := id.ParseIdentityID(r.URL.Query().Get("identity_b"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	pair, err := h.pairs.Lookup(r.Context(), identityA, identityB)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if pair == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no active pair for these identities"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, pair)
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pairID, err := id.ParsePairID(chi.URLParam(r, "pairID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req revokeRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.pairs.Revoke(ctx, pairID, requestcontext.Actor(ctx), req.Reason); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
