// Package authzhttp exposes the decision engine over HTTP for non-Go
// callers: a remote authorize endpoint plus registry introspection.
package authzhttp

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatewise/gatewise/internal/authz"
	"github.com/gatewise/gatewise/internal/guard"
	"github.com/gatewise/gatewise/internal/observability"
	"github.com/gatewise/gatewise/internal/platform/httpx"
)

// PermRolesView guards registry introspection.
const PermRolesView = "authz.roles.view"

// Handler wires the authorization HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *authz.Service
	registry  *authz.Registry
	guard     guard.Guard
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *authz.Service, registry *authz.Registry, g guard.Guard, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		registry:  registry,
		guard:     g,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers authorization routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/decisions", h.decide)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(PermRolesView))
		r.Get("/roles", h.listRoles)
		r.Get("/roles/{name}", h.getRole)
	})
}

type decisionRequest struct {
	Token      string `json:"token" validate:"required"`
	Role       string `json:"role" validate:"required_without=Permission,excluded_with=Permission"`
	Permission string `json:"permission" validate:"required_without=Role"`
}

type principalResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type decisionResponse struct {
	Allowed   bool              `json:"allowed"`
	Principal principalResponse `json:"principal"`
}

// decide runs the full authorize state machine for a caller-supplied token.
// The token under test travels in the body; the endpoint itself is open so
// that resource servers can ask about their own callers' tokens.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: exactly one of role or permission, and a token, must be given", httpx.ErrValidation))
		return
	}

	requirement := authz.RequirePermission(req.Permission)
	if req.Role != "" {
		requirement = authz.RequireRole(req.Role)
	}

	user, err := h.service.Authorize(r.Context(), req.Token, requirement)
	if err != nil {
		h.observe(err)
		if h.logger != nil && errors.Is(err, authz.ErrProviderUnavailable) {
			h.logger.Error("decision provider unavailable", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	h.metrics.ObserveDecision(observability.OutcomeAllowed)
	httpx.JSON(w, http.StatusOK, decisionResponse{
		Allowed:   true,
		Principal: principalResponse{ID: user.ID, Username: user.Username},
	})
}

type roleResponse struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	names := h.registry.RoleNames()
	roles := make([]roleResponse, 0, len(names))
	for _, name := range names {
		roles = append(roles, roleResponse{Name: name, Permissions: h.registry.PermissionsOf(name)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, defined := range h.registry.RoleNames() {
		if defined == name {
			httpx.JSON(w, http.StatusOK, roleResponse{Name: name, Permissions: h.registry.PermissionsOf(name)})
			return
		}
	}
	httpx.RespondError(w, fmt.Errorf("%w: role %s", httpx.ErrNotFound, name))
}

func (h *Handler) observe(err error) {
	if errors.Is(err, authz.ErrUnauthorized) {
		h.metrics.ObserveDecision(observability.OutcomeDenied)
		return
	}
	h.metrics.ObserveDecision(observability.OutcomeAuthFailed)
}
