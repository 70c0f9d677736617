package tokens

import "time"

// Token is one issued bearer credential. Only the bcrypt hash of the secret
// is stored; the plaintext "<id>.<secret>" form exists once, in the issue
// response.
type Token struct {
	ID         string
	UserID     string
	SecretHash string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	RevokedAt  *time.Time
}
