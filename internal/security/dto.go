// AngelaMos | 2026
// dto.go

package security

import (
	"time"
)

type ReportRequest struct {
	EntitlementID string `json:"entitlement_id" validate:"required,uuid"`
	EventType     string `json:"event_type"     validate:"required,oneof=screenshot_detected screen_capture_detected devtools_detected"`
	Details       string `json:"details"        validate:"max=1000"`
}

type AdminActionRequest struct {
	Action        string `json:"action"         validate:"required,oneof=revoke_access reset_strikes"`
	EntitlementID string `json:"entitlement_id" validate:"required,uuid"`
	Reason        string `json:"reason"         validate:"required,max=500"`
}

type LogEntryResponse struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	IPAddress string    `json:"ip_address,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func ToLogEntryResponseList(entries []LogEntry) []LogEntryResponse {
	responses := make([]LogEntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, LogEntryResponse{
			ID:        e.ID,
			EventType: e.EventType,
			IPAddress: e.IPAddress,
			Details:   e.Details,
			CreatedAt: e.CreatedAt,
		})
	}
	return responses
}
