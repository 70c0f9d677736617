package authz

import (
	"context"
	"errors"
	"sync/atomic"
)

// TokenProvider resolves an opaque bearer token to a principal. An
// implementation may perform arbitrary I/O and must honor context
// cancellation; it reports failures with the sentinel errors of this package,
// wrapping causes where useful. When the caller's context is cancelled the
// raw context error may surface instead of a sentinel, since the caller has
// already abandoned the result.
type TokenProvider interface {
	AuthenticateToken(ctx context.Context, token string) (User, error)
}

// Requirement names what a protected operation demands: exactly one role or
// one permission. Build one with RequireRole or RequirePermission.
type Requirement struct {
	role       string
	permission string
}

// RequireRole builds a requirement for the named role.
func RequireRole(name string) Requirement {
	return Requirement{role: name}
}

// RequirePermission builds a requirement for the named permission.
func RequirePermission(name string) Requirement {
	return Requirement{permission: name}
}

// ErrNoProvider indicates that no TokenProvider has been installed yet.
var ErrNoProvider = errors.New("authz: no token provider installed")

// errBadRequirement is reported when a Requirement names neither a role nor
// a permission (zero value misuse).
var errBadRequirement = errors.New("authz: requirement must name a role or a permission")

type providerSlot struct {
	provider TokenProvider
}

// Service combines the active token provider with the decision engine. It
// holds the single swappable provider slot: replacing the provider takes
// effect for authentications started afterwards, while in-flight calls
// complete against the instance they started with.
type Service struct {
	authorizer *Authorizer
	provider   atomic.Pointer[providerSlot]
}

// NewService constructs a Service over the registry. The provider may be nil
// and installed later with SetProvider.
func NewService(registry *Registry, provider TokenProvider) *Service {
	s := &Service{authorizer: NewAuthorizer(registry)}
	if provider != nil {
		s.provider.Store(&providerSlot{provider: provider})
	}
	return s
}

// SetProvider installs the active token provider, replacing any previous one
// atomically.
func (s *Service) SetProvider(p TokenProvider) {
	s.provider.Store(&providerSlot{provider: p})
}

// Authorizer exposes the pure decision operations.
func (s *Service) Authorizer() *Authorizer {
	return s.authorizer
}

// AuthenticateToken resolves the token through the active provider. Provider
// errors propagate unchanged.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (User, error) {
	slot := s.provider.Load()
	if slot == nil {
		return User{}, ErrNoProvider
	}
	return slot.provider.AuthenticateToken(ctx, token)
}

// Authorize runs the full decision for one call: authenticate the token, then
// evaluate the requirement. Authentication failures short-circuit with the
// provider's error; an authenticated principal that does not meet the
// requirement yields ErrUnauthorized with no further detail.
func (s *Service) Authorize(ctx context.Context, token string, req Requirement) (User, error) {
	user, err := s.AuthenticateToken(ctx, token)
	if err != nil {
		return User{}, err
	}
	switch {
	case req.role != "":
		if !s.authorizer.HasRole(user, req.role) {
			return User{}, ErrUnauthorized
		}
	case req.permission != "":
		if !s.authorizer.HasPermission(user, req.permission) {
			return User{}, ErrUnauthorized
		}
	default:
		return User{}, errBadRequirement
	}
	return user, nil
}
