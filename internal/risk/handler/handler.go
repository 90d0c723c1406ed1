// Package handler exposes ad-hoc risk assessment over HTTP, used by case
// workers to re-check an identity outside the automated fraud check.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	claimmodels "benefid/internal/claim/models"
	"benefid/internal/risk/models"
	"benefid/internal/transport/http/shared"
	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
	"benefid/pkg/requestcontext"
)

// Service defines the assessment operation the transport needs.
type Service interface {
	Assess(ctx context.Context, identityID id.IdentityID, assistanceType claimmodels.AssistanceType, excludeClaimID *id.ClaimID) (*models.Verdict, error)
}

// Handler handles the risk endpoint.
type Handler struct {
	risk   Service
	logger *slog.Logger
}

// New creates a risk Handler.
func New(risk Service, logger *slog.Logger) *Handler {
	return &Handler{risk: risk, logger: logger}
}

// Register mounts the risk routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/identities/{identityID}/risk", h.handleAssess)
}

type verdictResponse struct {
	Level        models.Level         `json:"level"`
	Risky        bool                 `json:"risky"`
	Detail       string               `json:"detail"`
	RuleHits     []models.Rule        `json:"rule_hits,omitempty"`
	Candidates   int                  `json:"candidate_count"`
	RecentClaims []*claimmodels.Claim `json:"recent_claims,omitempty"`
}

func (h *Handler) handleAssess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, err := id.ParseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	assistanceType := claimmodels.AssistanceType(r.URL.Query().Get("assistance_type"))
	if assistanceType == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "assistance_type query parameter is required"))
		return
	}

	verdict, err := h.risk.Assess(ctx, identityID, assistanceType, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "risk assessment failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, verdictResponse{
		Level:        verdict.Level,
		Risky:        verdict.Risky,
		Detail:       verdict.Detail,
		RuleHits:     verdict.RuleHits,
		Candidates:   len(verdict.Candidates),
		RecentClaims: verdict.RecentClaims,
	})
}
