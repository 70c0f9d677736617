package tokens

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound indicates that the referenced token does not exist or was
// already revoked.
var ErrNotFound = errors.New("tokens: not found")

const secretBytes = 32

// Service wraps token issuance and lifecycle rules.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Issue creates a token for the given user, valid for ttl, and returns the
// plaintext credential alongside the stored record. The plaintext cannot be
// recovered later.
func (s *Service) Issue(ctx context.Context, userID string, ttl time.Duration) (string, Token, error) {
	if userID == "" {
		return "", Token{}, errors.New("tokens: user id required")
	}
	if ttl <= 0 {
		return "", Token{}, errors.New("tokens: ttl must be positive")
	}
	plaintext, record, err := s.mint(userID, ttl)
	if err != nil {
		return "", Token{}, err
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		return "", Token{}, err
	}
	return plaintext, record, nil
}

// Revoke invalidates a token by id.
func (s *Service) Revoke(ctx context.Context, id string) error {
	return s.repo.Revoke(ctx, id)
}

// Rotate revokes the token identified by oldID and issues a replacement for
// the same user in a single step.
func (s *Service) Rotate(ctx context.Context, oldID, userID string, ttl time.Duration) (string, Token, error) {
	if ttl <= 0 {
		return "", Token{}, errors.New("tokens: ttl must be positive")
	}
	plaintext, record, err := s.mint(userID, ttl)
	if err != nil {
		return "", Token{}, err
	}
	if err := s.repo.Replace(ctx, oldID, record); err != nil {
		return "", Token{}, err
	}
	return plaintext, record, nil
}

// PurgeExpired removes tokens that expired before now.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpired(ctx, s.now().UTC())
}

func (s *Service) mint(userID string, ttl time.Duration) (string, Token, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", Token{}, fmt.Errorf("tokens: generate secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", Token{}, fmt.Errorf("tokens: hash secret: %w", err)
	}

	now := s.now().UTC()
	record := Token{
		ID:         uuid.NewString(),
		UserID:     userID,
		SecretHash: string(hash),
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
	return record.ID + "." + secret, record, nil
}
