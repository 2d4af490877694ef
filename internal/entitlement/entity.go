// AngelaMos | 2026
// entity.go

package entitlement

import (
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Purchase is one entitlement row. The (user_id, content_id,
// payment_session_id) triple is unique and serves as the reconciliation
// idempotency key. NULL expires_at means permanent access.
type Purchase struct {
	ID               string     `db:"id"`
	UserID           string     `db:"user_id"`
	ContentID        string     `db:"content_id"`
	PaymentSessionID string     `db:"payment_session_id"`
	AmountCents      int64      `db:"amount_cents"`
	Currency         string     `db:"currency"`
	Status           string     `db:"status"`
	IsActive         bool       `db:"is_active"`
	ExpiresAt        *time.Time `db:"expires_at"`
	StrikeCount      int        `db:"strike_count"`
	BoundIP          *string    `db:"bound_ip"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (p *Purchase) IsCompleted() bool {
	return p.Status == StatusCompleted
}

// IsExpired reports whether a rental window has lapsed. Permanent purchases
// never expire.
func (p *Purchase) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

// StrikeState is the enforcement position of a purchase, derived from its
// strike count. Revocation forces the count to the threshold, so the count
// alone determines the state.
type StrikeState int

const (
	StrikeClean StrikeState = iota
	StrikeWarned
	StrikeFinalWarning
	StrikeRevoked
)

func (s StrikeState) String() string {
	switch s {
	case StrikeClean:
		return "clean"
	case StrikeWarned:
		return "warned"
	case StrikeFinalWarning:
		return "final_warning"
	case StrikeRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// StrikeStateFor derives the state exhaustively from a count against a
// threshold. Counts between 1 and threshold-2 are all Warned.
func StrikeStateFor(count, threshold int) StrikeState {
	switch {
	case count <= 0:
		return StrikeClean
	case count >= threshold:
		return StrikeRevoked
	case count == threshold-1:
		return StrikeFinalWarning
	default:
		return StrikeWarned
	}
}

func (p *Purchase) StrikeState(threshold int) StrikeState {
	return StrikeStateFor(p.StrikeCount, threshold)
}
