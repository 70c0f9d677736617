package authz

import "errors"

// The closed set of authorization failures. Providers wrap causes with %w so
// callers can match with errors.Is; the engine never reinterprets a provider
// error on its way out.
var (
	// ErrInvalidToken indicates a syntactically or cryptographically bad token.
	ErrInvalidToken = errors.New("authz: invalid token")
	// ErrExpiredToken indicates a token that was once valid but has lapsed.
	ErrExpiredToken = errors.New("authz: token expired")
	// ErrProviderUnavailable indicates the token backend could not be reached.
	// Distinct from ErrInvalidToken so callers can retry or degrade instead of
	// rejecting outright.
	ErrProviderUnavailable = errors.New("authz: provider unavailable")
	// ErrUnauthorized indicates the principal authenticated but does not meet
	// the requirement. Carries no detail about what was required or held.
	ErrUnauthorized = errors.New("authz: unauthorized")
)
