package httpx

import (
	"errors"
	"net/http"

	"github.com/gatewise/gatewise/internal/authz"
)

// Sentinel errors for handlers outside the authz taxonomy.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
)

// RespondError maps domain errors to HTTP responses using RFC7807. Invalid
// and expired tokens both answer 401 with the same detail string, denial is a
// bare 403 (no hint about what was required), and an unreachable token
// backend answers 503 so callers may retry.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrInvalidToken), errors.Is(err, authz.ErrExpiredToken):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired token")
	case errors.Is(err, authz.ErrUnauthorized):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, authz.ErrProviderUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "authentication backend unavailable")
	case errors.Is(err, authz.ErrNoProvider):
		Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "no token provider installed")
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
