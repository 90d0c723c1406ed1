// Package handler exposes identity resolution over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"benefid/internal/identity/models"
	"benefid/internal/transport/http/shared"
	id "benefid/pkg/domain"
	dErrors "benefid/pkg/domain-errors"
	"benefid/pkg/requestcontext"
)

// Service defines the identity operations the transport needs.
type Service interface {
	Resolve(ctx context.Context, input models.NewIdentityInput) (*models.Identity, error)
	Get(ctx context.Context, identityID id.IdentityID) (*models.Identity, error)
	Deactivate(ctx context.Context, identityID id.IdentityID, actor id.ActorID) error
	FindCandidates(ctx context.Context, firstName, lastName string, birthDate time.Time, excludeID *id.IdentityID) ([]models.CandidateMatch, error)
}

// Handler handles identity endpoints.
type Handler struct {
	identities Service
	logger     *slog.Logger
}

// New creates an identity Handler.
func New(identities Service, logger *slog.Logger) *Handler {
	return &Handler{identities: identities, logger: logger}
}

// Register mounts the identity routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/identities/resolve", h.handleResolve)
	r.Post("/identities/candidates", h.handleCandidates)
	r.Get("/identities/{identityID}", h.handleGet)
	r.Delete("/identities/{identityID}", h.handleDeactivate)
}

const dateLayout = "2006-01-02"

type resolveRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	MiddleName     string `json:"middle_name,omitempty"`
	Suffix         string `json:"suffix,omitempty"`
	BirthDate      string `json:"birth_date"`
	Gender         string `json:"gender,omitempty"`
	JurisdictionID string `json:"jurisdiction_id"`
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resolveRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	birthDate, err := time.Parse(dateLayout, req.BirthDate)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "birth_date must be YYYY-MM-DD"))
		return
	}
	jurisdictionID, err := id.ParseJurisdictionID(req.JurisdictionID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	identity, err := h.identities.Resolve(ctx, models.NewIdentityInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		MiddleName:     req.MiddleName,
		Suffix:         req.Suffix,
		BirthDate:      birthDate,
		Gender:         req.Gender,
		JurisdictionID: jurisdictionID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "identity resolution failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, identity)
}

type candidatesRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	ExcludeID string `json:"exclude_id,omitempty"`
}

func (h *Handler) handleCandidates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req candidatesRequest
	if err := shared.Decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	birthDate, err := time.Parse(dateLayout, req.BirthDate)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "birth_date must be YYYY-MM-DD"))
		return
	}
	var excludeID *id.IdentityID
	if req.ExcludeID != "" {
		parsed, err := id.ParseIdentityID(req.ExcludeID)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		excludeID = &parsed
	}

	matches, err := h.identities.FindCandidates(ctx, req.FirstName, req.LastName, birthDate, excludeID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"candidates": matches})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	identityID, err := id.ParseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	identity, err := h.identities.Get(r.Context(), identityID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, identity)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, err := id.ParseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.identities.Deactivate(ctx, identityID, requestcontext.Actor(ctx)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
