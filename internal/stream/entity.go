// AngelaMos | 2026
// entity.go

package stream

import (
	"time"
)

// AccessToken backs the anonymous/e-mail watch flow. Only the sha256 hash is
// stored; the opaque token is returned once at mint time. Tokens are
// read-only after creation, and every re-verification mints a fresh one, so
// several may exist for the same entitlement at once.
type AccessToken struct {
	ID        string    `db:"id"`
	TokenHash string    `db:"token_hash"`
	UserID    string    `db:"user_id"`
	ContentID string    `db:"content_id"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

func (t *AccessToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Remaining is the unexpired portion of the token's lifetime. Signed URLs
// issued against a token never outlive it.
func (t *AccessToken) Remaining(now time.Time) time.Duration {
	return t.ExpiresAt.Sub(now)
}
