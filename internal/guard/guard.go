// Package guard adapts the authorization engine to chi: route-level
// middleware that resolves the bearer token, evaluates the declared
// requirement and either passes the principal down the chain or translates
// the failure into an HTTP response.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gatewise/gatewise/internal/authz"
	"github.com/gatewise/gatewise/internal/observability"
	"github.com/gatewise/gatewise/internal/platform/httpx"
)

type contextKey struct{}

// ContextWithPrincipal stores the authenticated principal on the context.
func ContextWithPrincipal(ctx context.Context, u authz.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// PrincipalFromContext returns the principal placed by a guard, if any.
func PrincipalFromContext(ctx context.Context) (authz.User, bool) {
	u, ok := ctx.Value(contextKey{}).(authz.User)
	return u, ok
}

// Guard wires authorization middleware for HTTP handlers. Each protected
// route declares exactly one required role or one required permission.
type Guard struct {
	Service *authz.Service
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// RequireRole protects a route with a role requirement.
func (g Guard) RequireRole(role string) func(http.Handler) http.Handler {
	return g.require(authz.RequireRole(role))
}

// RequirePermission protects a route with a permission requirement.
func (g Guard) RequirePermission(perm string) func(http.Handler) http.Handler {
	return g.require(authz.RequirePermission(perm))
}

func (g Guard) require(req authz.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				g.Metrics.ObserveDecision(observability.OutcomeAuthFailed)
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "bearer token required")
				return
			}
			user, err := g.Service.Authorize(r.Context(), token, req)
			if err != nil {
				g.observe(err)
				if g.Logger != nil {
					g.Logger.Warn("request rejected",
						slog.String("path", r.URL.Path),
						slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			g.Metrics.ObserveDecision(observability.OutcomeAllowed)
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), user)))
		})
	}
}

func (g Guard) observe(err error) {
	if errors.Is(err, authz.ErrUnauthorized) {
		g.Metrics.ObserveDecision(observability.OutcomeDenied)
		return
	}
	g.Metrics.ObserveDecision(observability.OutcomeAuthFailed)
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
