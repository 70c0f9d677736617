package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	users  map[string]User
	errors map[string]error
}

func (s *stubProvider) AuthenticateToken(ctx context.Context, token string) (User, error) {
	if err, ok := s.errors[token]; ok {
		return User{}, err
	}
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return User{}, ErrInvalidToken
}

func newTestService() *Service {
	provider := &stubProvider{
		users: map[string]User{
			"admin_token": {ID: "1", Username: "root", Roles: []string{"admin"}},
			"user_token":  {ID: "123", Username: "jane", Roles: []string{"user"}, Permissions: []string{"custom_permission"}},
		},
		errors: map[string]error{
			"stale": ErrExpiredToken,
			"down":  ErrProviderUnavailable,
		},
	}
	return NewService(newTestRegistry(), provider)
}

func TestAuthorizeAllowsByRole(t *testing.T) {
	svc := newTestService()

	user, err := svc.Authorize(context.Background(), "admin_token", RequireRole("admin"))
	require.NoError(t, err)
	assert.Equal(t, "1", user.ID)
}

func TestAuthorizeAllowsByPermission(t *testing.T) {
	svc := newTestService()

	user, err := svc.Authorize(context.Background(), "user_token", RequirePermission("view_profile"))
	require.NoError(t, err)
	assert.Equal(t, "123", user.ID)

	_, err = svc.Authorize(context.Background(), "user_token", RequirePermission("custom_permission"))
	assert.NoError(t, err)
}

func TestAuthorizeDeniesWithoutDetail(t *testing.T) {
	svc := newTestService()

	_, err := svc.Authorize(context.Background(), "user_token", RequireRole("admin"))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Authorize(context.Background(), "user_token", RequirePermission("delete_user"))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

// Authentication failures must short-circuit with the provider's error, never
// be reported as a denial.
func TestAuthorizePropagatesProviderErrors(t *testing.T) {
	svc := newTestService()

	_, err := svc.Authorize(context.Background(), "stale", RequireRole("admin"))
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.NotErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Authorize(context.Background(), "down", RequireRole("admin"))
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	_, err = svc.Authorize(context.Background(), "garbage", RequireRole("admin"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthorizeRejectsEmptyRequirement(t *testing.T) {
	svc := newTestService()

	_, err := svc.Authorize(context.Background(), "admin_token", Requirement{})
	assert.ErrorIs(t, err, errBadRequirement)
}

func TestServiceWithoutProvider(t *testing.T) {
	svc := NewService(NewRegistry(), nil)

	_, err := svc.AuthenticateToken(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestSetProviderReplacesAtomically(t *testing.T) {
	svc := newTestService()

	_, err := svc.AuthenticateToken(context.Background(), "admin_token")
	require.NoError(t, err)

	svc.SetProvider(&stubProvider{users: map[string]User{
		"other_token": {ID: "9", Username: "swap"},
	}})

	_, err = svc.AuthenticateToken(context.Background(), "admin_token")
	assert.ErrorIs(t, err, ErrInvalidToken, "old provider's tokens no longer resolve")

	user, err := svc.AuthenticateToken(context.Background(), "other_token")
	require.NoError(t, err)
	assert.Equal(t, "9", user.ID)
}
