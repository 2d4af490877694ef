// AngelaMos | 2026
// dto.go

package payment

import (
	"encoding/json"
	"time"
)

// webhookEvent is the provider event envelope. Only the session id is taken
// from the body; session state is always re-fetched from the provider.
type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type webhookSessionRef struct {
	ID string `json:"id"`
}

type VerifyRequest struct {
	SessionID string `json:"session_id" validate:"required,max=255"`
	ContentID string `json:"content_id" validate:"omitempty,uuid"`
}

type ReplayRequest struct {
	SessionID string `json:"session_id" validate:"required,max=255"`
}

type VerifyResponse struct {
	Reconciled  bool             `json:"reconciled"`
	Result      *ReconcileResult `json:"result,omitempty"`
	AccessToken string           `json:"access_token,omitempty"`
	TokenExpiry *time.Time       `json:"token_expires_at,omitempty"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Handled  bool   `json:"handled"`
	EventID  string `json:"event_id,omitempty"`
}
