// Package memory provides an in-process token provider for tests and local
// development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gatewise/gatewise/internal/authz"
)

type entry struct {
	user      authz.User
	expiresAt time.Time
}

// Provider resolves tokens from an in-memory table.
type Provider struct {
	mu     sync.RWMutex
	tokens map[string]entry
	now    func() time.Time
}

// New constructs an empty Provider.
func New() *Provider {
	return &Provider{tokens: make(map[string]entry), now: time.Now}
}

// Add registers a token that never expires.
func (p *Provider) Add(token string, user authz.User) {
	p.AddWithExpiry(token, user, time.Time{})
}

// AddWithExpiry registers a token valid until expiresAt. A zero expiresAt
// means the token does not expire.
func (p *Provider) AddWithExpiry(token string, user authz.User, expiresAt time.Time) {
	p.mu.Lock()
	p.tokens[token] = entry{user: user, expiresAt: expiresAt}
	p.mu.Unlock()
}

// Remove drops a token.
func (p *Provider) Remove(token string) {
	p.mu.Lock()
	delete(p.tokens, token)
	p.mu.Unlock()
}

// AuthenticateToken implements authz.TokenProvider.
func (p *Provider) AuthenticateToken(ctx context.Context, token string) (authz.User, error) {
	if err := ctx.Err(); err != nil {
		return authz.User{}, err
	}
	p.mu.RLock()
	e, ok := p.tokens[token]
	p.mu.RUnlock()
	if !ok {
		return authz.User{}, authz.ErrInvalidToken
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(p.now()) {
		return authz.User{}, authz.ErrExpiredToken
	}
	return e.user, nil
}

var _ authz.TokenProvider = (*Provider)(nil)
