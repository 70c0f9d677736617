// Package redis provides a token provider backed by Redis, for deployments
// that keep session-style tokens in a shared cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gatewise/gatewise/internal/authz"
)

const keyPrefix = "authz:token:"

// principalPayload is the stored JSON shape for one token. ExpiresAt is kept
// alongside the Redis TTL so a payload that outlives its logical expiry is
// reported as expired rather than invalid.
type principalPayload struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Roles       []string  `json:"roles"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Provider resolves tokens from Redis.
type Provider struct {
	client *redis.Client
	now    func() time.Time
}

// New constructs a Provider over the given client.
func New(client *redis.Client) *Provider {
	return &Provider{client: client, now: time.Now}
}

// Store writes a token's principal payload with the given lifetime.
func (p *Provider) Store(ctx context.Context, token string, user authz.User, ttl time.Duration) error {
	payload := principalPayload{
		UserID:      user.ID,
		Username:    user.Username,
		Roles:       user.Roles,
		Permissions: user.Permissions,
		ExpiresAt:   p.now().Add(ttl).UTC(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, keyPrefix+token, data, ttl).Err()
}

// Revoke removes a token.
func (p *Provider) Revoke(ctx context.Context, token string) error {
	return p.client.Del(ctx, keyPrefix+token).Err()
}

// AuthenticateToken implements authz.TokenProvider.
func (p *Provider) AuthenticateToken(ctx context.Context, token string) (authz.User, error) {
	data, err := p.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return authz.User{}, authz.ErrInvalidToken
		}
		return authz.User{}, fmt.Errorf("%w: %v", authz.ErrProviderUnavailable, err)
	}

	var payload principalPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return authz.User{}, fmt.Errorf("%w: malformed payload", authz.ErrInvalidToken)
	}
	if !payload.ExpiresAt.IsZero() && !payload.ExpiresAt.After(p.now()) {
		return authz.User{}, authz.ErrExpiredToken
	}

	return authz.User{
		ID:          payload.UserID,
		Username:    payload.Username,
		Roles:       payload.Roles,
		Permissions: payload.Permissions,
	}, nil
}

var _ authz.TokenProvider = (*Provider)(nil)
