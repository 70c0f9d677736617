package tokens

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockRepository struct {
	inserted []Token
	revoked  []string
	purged   time.Time

	insertError error
	revokeError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{}
}

func (m *mockRepository) Insert(ctx context.Context, t Token) error {
	if m.insertError != nil {
		return m.insertError
	}
	m.inserted = append(m.inserted, t)
	return nil
}

func (m *mockRepository) Revoke(ctx context.Context, id string) error {
	if m.revokeError != nil {
		return m.revokeError
	}
	m.revoked = append(m.revoked, id)
	return nil
}

func (m *mockRepository) Replace(ctx context.Context, revokeID string, t Token) error {
	if err := m.Revoke(ctx, revokeID); err != nil {
		return err
	}
	return m.Insert(ctx, t)
}

func (m *mockRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	m.purged = before
	return 3, nil
}

func TestIssueStoresHashNotSecret(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	plaintext, record, err := svc.Issue(context.Background(), "user-1", time.Hour)
	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)

	id, secret, found := strings.Cut(plaintext, ".")
	require.True(t, found)
	assert.Equal(t, record.ID, id)
	assert.NotContains(t, record.SecretHash, secret)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(record.SecretHash), []byte(secret)))
	assert.Equal(t, "user-1", record.UserID)
}

func TestIssueSetsExpiry(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	fixed := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	_, record, err := svc.Issue(context.Background(), "user-1", 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(30*time.Minute), record.ExpiresAt)
	assert.Equal(t, fixed, record.CreatedAt)
}

func TestIssueValidatesInput(t *testing.T) {
	svc := NewService(newMockRepository())

	_, _, err := svc.Issue(context.Background(), "", time.Hour)
	assert.Error(t, err)

	_, _, err = svc.Issue(context.Background(), "user-1", 0)
	assert.Error(t, err)
}

func TestRotateRevokesOldAndIssuesNew(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	plaintext, record, err := svc.Rotate(context.Background(), "old-id", "user-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old-id"}, repo.revoked)
	require.Len(t, repo.inserted, 1)
	assert.NotEqual(t, "old-id", record.ID)
	assert.True(t, strings.HasPrefix(plaintext, record.ID+"."))
}

func TestRotateUnknownToken(t *testing.T) {
	repo := newMockRepository()
	repo.revokeError = ErrNotFound
	svc := NewService(repo)

	_, _, err := svc.Rotate(context.Background(), "ghost", "user-1", time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurgeExpiredUsesCurrentTime(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	fixed := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	n, err := svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, fixed, repo.purged)
}

func TestIssuedSecretsAreUnique(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	a, _, err := svc.Issue(context.Background(), "user-1", time.Hour)
	require.NoError(t, err)
	b, _, err := svc.Issue(context.Background(), "user-1", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
