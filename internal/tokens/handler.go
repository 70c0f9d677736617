package tokens

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatewise/gatewise/internal/guard"
	"github.com/gatewise/gatewise/internal/platform/httpx"
)

// Permissions guarding the token management endpoints.
const (
	PermIssue  = "tokens.issue"
	PermRevoke = "tokens.revoke"
)

// Handler wires HTTP endpoints for token management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     guard.Guard
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, g guard.Guard) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		guard:     g,
		validator: validator.New(),
	}
}

// MountRoutes registers token routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(PermIssue))
		r.Post("/", h.issue)
		r.Post("/{id}/rotate", h.rotate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(PermRevoke))
		r.Delete("/{id}", h.revoke)
	})
}

type issueRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	TTLSeconds int64  `json:"ttl_seconds" validate:"required,gt=0"`
}

type issueResponse struct {
	Token     string    `json:"token"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: user_id and a positive ttl_seconds are required", httpx.ErrValidation))
		return
	}

	plaintext, record, err := h.service.Issue(r.Context(), req.UserID, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		h.fail(w, "issue token", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, issueResponse{
		Token:     plaintext,
		ID:        record.ID,
		UserID:    record.UserID,
		ExpiresAt: record.ExpiresAt,
	})
}

func (h *Handler) rotate(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: user_id and a positive ttl_seconds are required", httpx.ErrValidation))
		return
	}

	plaintext, record, err := h.service.Rotate(r.Context(), chi.URLParam(r, "id"), req.UserID, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		h.fail(w, "rotate token", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, issueResponse{
		Token:     plaintext,
		ID:        record.ID,
		UserID:    record.UserID,
		ExpiresAt: record.ExpiresAt,
	})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Revoke(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "revoke token", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.RespondError(w, fmt.Errorf("%w: token", httpx.ErrNotFound))
		return
	}
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
