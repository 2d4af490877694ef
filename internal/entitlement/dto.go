// AngelaMos | 2026
// dto.go

package entitlement

import (
	"time"
)

type AccessCheckRequest struct {
	ContentID string `json:"content_id" validate:"required"`
	UserID    string `json:"user_id"    validate:"omitempty,uuid"`
}

type PurchaseResponse struct {
	ID          string     `json:"id"`
	ContentID   string     `json:"content_id"`
	Status      string     `json:"status"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	StrikeState string     `json:"strike_state"`
	CreatedAt   time.Time  `json:"created_at"`
}

type AccessCheckResponse struct {
	HasAccess   bool              `json:"has_access"`
	Entitlement *PurchaseResponse `json:"entitlement,omitempty"`
}

func ToPurchaseResponse(p *Purchase, strikeThreshold int) *PurchaseResponse {
	return &PurchaseResponse{
		ID:          p.ID,
		ContentID:   p.ContentID,
		Status:      p.Status,
		IsActive:    p.IsActive,
		ExpiresAt:   p.ExpiresAt,
		StrikeState: p.StrikeState(strikeThreshold).String(),
		CreatedAt:   p.CreatedAt,
	}
}
