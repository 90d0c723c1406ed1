// Package handler exposes the claim lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"benefid/internal/claim/models"
	"benefid/internal/claim/service"
	"benefid/internal/transport/http/shared"
	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
	"benefid/pkg/requestcontext"
)

// Service defines the claim operations the transport needs.
type Service interface {
	Create(ctx context.Context, input models.NewClaimInput) (*models.Claim, error)
	Get(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	Transition(ctx context.Context, input service.TransitionInput) (*models.Claim, error)
	RecordProof(ctx context.Context, claimID id.ClaimID, proofRef string, actor id.ActorID) (*models.Claim, error)
}

// BudgetReader exposes the jurisdiction ledger read-back.
type BudgetReader interface {
	UsedBudget(ctx context.Context, jurisdictionID id.JurisdictionID) (decimal.Decimal, error)
}

// Handler handles claim endpoints.
type Handler struct {
	claims  Service
	budgets BudgetReader
	logger  *slog.Logger
}

// New creates a claim Handler.
func New(claims Service, budgets BudgetReader, logger *slog.Logger) *Handler {
	return &Handler{claims: claims, budgets: budgets, logger: logger}
}

// Register mounts the claim routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/claims", h.handleCreate)
	r.Get("/claims/{claimID}", h.handleGet)
	r.Post("/claims/{claimID}/transition", h.handleTransition)
	r.Post("/claims/{claimID}/proof", h.handleRecordProof)
	r.Get("/jurisdictions/{jurisdictionID}/budget", h.handleUsedBudget)
}

type createRequest struct {
	IdentityID     string `json:"identity_id"`
	JurisdictionID string `json:"jurisdiction_id"`
	AssistanceType string `json:"assistance_type"`
	Amount         string `json:"amount"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	identityID, err := id.ParseIdentityID(req.IdentityID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	jurisdictionID, err := id.ParseJurisdictionID(req.JurisdictionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "amount must be a decimal number"))
		return
	}

	claim, err := h.claims.Create(ctx, models.NewClaimInput{
		IdentityID:     identityID,
		JurisdictionID: jurisdictionID,
		Type:           models.AssistanceType(req.AssistanceType),
		Amount:         amount,
		Actor:          requestcontext.Actor(ctx),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "claim creation failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, claim)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	claim, err := h.claims.Get(r.Context(), claimID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, claim)
}

type transitionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req transitionRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	claim, err := h.claims.Transition(ctx, service.TransitionInput{
		ClaimID: claimID,
		Action:  models.Action(req.Action),
		Actor:   requestcontext.Actor(ctx),
		Reason:  req.Reason,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "claim transition rejected",
			"request_id", requestcontext.RequestID(ctx),
			"claim_id", claimID,
			"action", req.Action,
			"error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, claim)
}

type proofRequest struct {
	ProofRef string `json:"proof_ref"`
}

func (h *Handler) handleRecordProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claimID, err := id.ParseClaimID(chi.URLParam(r, "claimID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req proofRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	claim, err := h.claims.RecordProof(ctx, claimID, req.ProofRef, requestcontext.Actor(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, claim)
}

func (h *Handler) handleUsedBudget(w http.ResponseWriter, r *http.Request) {
	jurisdictionID, err := id.ParseJurisdictionID(chi.URLParam(r, "jurisdictionID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	used, err := h.budgets.UsedBudget(r.Context(), jurisdictionID)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "budget lookup failed"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"jurisdiction_id": jurisdictionID.String(),
		"used_budget":     used.String(),
	})
}
