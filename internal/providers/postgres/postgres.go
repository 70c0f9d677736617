// Package postgres provides a token provider backed by PostgreSQL. Tokens
// take the form "<id>.<secret>": the id locates the row, the secret is
// compared against a bcrypt hash so a database dump does not leak usable
// credentials.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/gatewise/gatewise/internal/authz"
)

// Provider resolves tokens against the auth_tokens, users, user_roles and
// user_permissions tables.
type Provider struct {
	pool  *pgxpool.Pool
	group singleflight.Group
	now   func() time.Time

	// lookupFn is the flight body, replaceable in tests.
	lookupFn func(ctx context.Context, token string) (authz.User, error)
}

// New constructs a Provider over the given pool.
func New(pool *pgxpool.Pool) *Provider {
	p := &Provider{pool: pool, now: time.Now}
	p.lookupFn = p.lookup
	return p
}

// AuthenticateToken implements authz.TokenProvider. Concurrent calls for the
// same token share one database lookup. The shared flight runs on a context
// detached from any single caller, so one caller's cancellation neither
// fails the lookup for the others nor keeps that caller waiting.
func (p *Provider) AuthenticateToken(ctx context.Context, token string) (authz.User, error) {
	flightCtx := context.WithoutCancel(ctx)
	resultChan := p.group.DoChan(token, func() (any, error) {
		return p.lookupFn(flightCtx, token)
	})
	select {
	case <-ctx.Done():
		return authz.User{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return authz.User{}, res.Err
		}
		return res.Val.(authz.User), nil
	}
}

func (p *Provider) lookup(ctx context.Context, token string) (authz.User, error) {
	id, secret, err := splitToken(token)
	if err != nil {
		return authz.User{}, err
	}

	var (
		secretHash string
		userID     string
		expiresAt  time.Time
	)
	row := p.pool.QueryRow(ctx,
		`SELECT secret_hash, user_id, expires_at FROM auth_tokens WHERE id = $1 AND revoked_at IS NULL`,
		id)
	if err := row.Scan(&secretHash, &userID, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.User{}, authz.ErrInvalidToken
		}
		return authz.User{}, fmt.Errorf("%w: %v", authz.ErrProviderUnavailable, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(secret)) != nil {
		return authz.User{}, authz.ErrInvalidToken
	}
	if !expiresAt.After(p.now()) {
		return authz.User{}, authz.ErrExpiredToken
	}

	user := authz.User{ID: userID}
	row = p.pool.QueryRow(ctx, `SELECT username FROM users WHERE id = $1`, userID)
	if err := row.Scan(&user.Username); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Token row outlived its user.
			return authz.User{}, authz.ErrInvalidToken
		}
		return authz.User{}, fmt.Errorf("%w: %v", authz.ErrProviderUnavailable, err)
	}

	user.Roles, err = p.collect(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return authz.User{}, err
	}
	user.Permissions, err = p.collect(ctx,
		`SELECT permission FROM user_permissions WHERE user_id = $1 ORDER BY permission`, userID)
	if err != nil {
		return authz.User{}, err
	}
	return user, nil
}

func (p *Provider) collect(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := p.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authz.ErrProviderUnavailable, err)
	}
	defer rows.Close()
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%w: %v", authz.ErrProviderUnavailable, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", authz.ErrProviderUnavailable, err)
	}
	return values, nil
}

// splitToken separates "<id>.<secret>". Anything else is invalid before we
// touch the database.
func splitToken(token string) (id, secret string, err error) {
	id, secret, ok := strings.Cut(token, ".")
	if !ok || id == "" || secret == "" {
		return "", "", authz.ErrInvalidToken
	}
	return id, secret, nil
}

var _ authz.TokenProvider = (*Provider)(nil)
