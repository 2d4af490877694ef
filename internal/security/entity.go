// AngelaMos | 2026
// entity.go

package security

import (
	"time"
)

// Security event types. The first three arrive from the player; the rest
// are emitted by this package itself.
const (
	EventScreenshotDetected    = "screenshot_detected"
	EventScreenCaptureDetected = "screen_capture_detected"
	EventDevtoolsDetected      = "devtools_detected"
	EventAccessRevoked         = "access_revoked"
	EventManualRevocation      = "manual_revocation"
	EventStrikesReset          = "strikes_reset"
)

// LogEntry is one append-only security_log row. Entries are written before
// the state change they describe and survive even when that change fails.
type LogEntry struct {
	ID         string    `db:"id"`
	PurchaseID string    `db:"purchase_id"`
	UserID     string    `db:"user_id"`
	EventType  string    `db:"event_type"`
	IPAddress  string    `db:"ip_address"`
	UserAgent  string    `db:"user_agent"`
	Details    string    `db:"details"`
	CreatedAt  time.Time `db:"created_at"`
}
