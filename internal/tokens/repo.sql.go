package tokens

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatewise/gatewise/internal/platform/db"
)

// Repository defines persistence operations for issued tokens.
type Repository interface {
	Insert(ctx context.Context, t Token) error
	Revoke(ctx context.Context, id string) error
	// Replace revokes the old token and inserts its successor in one
	// transaction, so a rotation never leaves the caller with zero valid
	// credentials recorded.
	Replace(ctx context.Context, revokeID string, t Token) error
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert stores a freshly issued token.
func (r *PGRepository) Insert(ctx context.Context, t Token) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO auth_tokens (id, user_id, secret_hash, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.UserID, t.SecretHash, t.ExpiresAt, t.CreatedAt)
	return err
}

// Revoke marks a token revoked. Revoking an unknown or already revoked token
// reports ErrNotFound.
func (r *PGRepository) Revoke(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE auth_tokens SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Replace revokes revokeID and inserts t within one transaction.
func (r *PGRepository) Replace(ctx context.Context, revokeID string, t Token) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE auth_tokens SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, revokeID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO auth_tokens (id, user_id, secret_hash, expires_at, created_at) VALUES ($1, $2, $3, $4, $5)`,
			t.ID, t.UserID, t.SecretHash, t.ExpiresAt, t.CreatedAt)
		return err
	})
}

// PurgeExpired deletes tokens whose expiry predates the cutoff and returns
// the number removed.
func (r *PGRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
