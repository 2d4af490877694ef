// AngelaMos | 2026
// service.go

package security

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/reelvault/reelvault/internal/entitlement"
)

// EntitlementStore is the slice of the entitlement repository the strike
// tracker mutates.
type EntitlementStore interface {
	GetByID(ctx context.Context, id string) (*entitlement.Purchase, error)
	IncrementStrike(ctx context.Context, id string) (int, error)
	Revoke(ctx context.Context, id string, strikeFloor int) error
	ResetStrikes(ctx context.Context, id string) error
}

type Report struct {
	EntitlementID string
	EventType     string
	IPAddress     string
	UserAgent     string
	Details       string
}

type ReportResult struct {
	StrikeCount int    `json:"strike_count"`
	Threshold   int    `json:"threshold"`
	Revoked     bool   `json:"revoked"`
	Reason      string `json:"reason,omitempty"`
}

// Service is the strike tracker and revocation engine. Every report appends
// to the audit log before any counter or entitlement mutation; a failed
// mutation never rolls the entry back.
type Service struct {
	log       Repository
	store     EntitlementStore
	threshold int
	logger    *slog.Logger
}

func NewService(
	log Repository,
	store EntitlementStore,
	threshold int,
	logger *slog.Logger,
) *Service {
	return &Service{
		log:       log,
		store:     store,
		threshold: threshold,
		logger:    logger,
	}
}

func (s *Service) Threshold() int {
	return s.threshold
}

// Report processes one player-side detection event. screen_capture_detected
// revokes immediately regardless of the counter; every other event
// increments and revokes at the threshold. Revocation lapses the
// entitlement (expires_at = now) and pins the counter at the threshold; the
// row survives for audit.
func (s *Service) Report(
	ctx context.Context,
	report Report,
) (*ReportResult, error) {
	purchase, err := s.store.GetByID(ctx, report.EntitlementID)
	if err != nil {
		return nil, err
	}

	if err := s.append(ctx, purchase, report.EventType, report.IPAddress,
		report.UserAgent, report.Details); err != nil {
		return nil, err
	}

	if report.EventType == EventScreenCaptureDetected {
		return s.revoke(ctx, purchase, report, "screen capture detected")
	}

	count, err := s.store.IncrementStrike(ctx, purchase.ID)
	if err != nil {
		return nil, fmt.Errorf("record strike: %w", err)
	}

	if count >= s.threshold {
		purchase.StrikeCount = count
		return s.revoke(ctx, purchase, report, "strike limit reached")
	}

	result := &ReportResult{
		StrikeCount: count,
		Threshold:   s.threshold,
	}
	if count == s.threshold-1 {
		result.Reason = "final warning"
	}

	s.logger.Info("strike recorded",
		"purchase_id", purchase.ID,
		"event_type", report.EventType,
		"strike_count", count,
	)

	return result, nil
}

func (s *Service) revoke(
	ctx context.Context,
	purchase *entitlement.Purchase,
	report Report,
	reason string,
) (*ReportResult, error) {
	if err := s.store.Revoke(ctx, purchase.ID, s.threshold); err != nil {
		return nil, fmt.Errorf("revoke entitlement: %w", err)
	}

	if err := s.append(ctx, purchase, EventAccessRevoked, report.IPAddress,
		report.UserAgent, reason); err != nil {
		// Revocation took effect; the missing second entry is the lesser
		// failure. Log loudly and keep going.
		s.logger.Error("revocation log append failed",
			"purchase_id", purchase.ID,
			"error", err,
		)
	}

	count := purchase.StrikeCount
	if count < s.threshold {
		count = s.threshold
	}

	s.logger.Warn("entitlement revoked",
		"purchase_id", purchase.ID,
		"user_id", purchase.UserID,
		"reason", reason,
	)

	return &ReportResult{
		StrikeCount: count,
		Threshold:   s.threshold,
		Revoked:     true,
		Reason:      reason,
	}, nil
}

// AdminRevoke forcibly lapses an entitlement outside the strike flow.
func (s *Service) AdminRevoke(
	ctx context.Context,
	entitlementID, adminID, reason string,
) (*ReportResult, error) {
	purchase, err := s.store.GetByID(ctx, entitlementID)
	if err != nil {
		return nil, err
	}

	if err := s.append(ctx, purchase, EventManualRevocation, "", "",
		fmt.Sprintf("by admin %s: %s", adminID, reason)); err != nil {
		return nil, err
	}

	return s.revoke(ctx, purchase, Report{}, "manual revocation")
}

// ResetStrikes clears the counter back to a clean state.
func (s *Service) ResetStrikes(
	ctx context.Context,
	entitlementID, adminID, reason string,
) (*ReportResult, error) {
	purchase, err := s.store.GetByID(ctx, entitlementID)
	if err != nil {
		return nil, err
	}

	if err := s.append(ctx, purchase, EventStrikesReset, "", "",
		fmt.Sprintf("by admin %s: %s", adminID, reason)); err != nil {
		return nil, err
	}

	if err := s.store.ResetStrikes(ctx, purchase.ID); err != nil {
		return nil, fmt.Errorf("reset strikes: %w", err)
	}

	return &ReportResult{
		StrikeCount: 0,
		Threshold:   s.threshold,
	}, nil
}

func (s *Service) History(
	ctx context.Context,
	entitlementID string,
) ([]LogEntry, error) {
	return s.log.ListByPurchase(ctx, entitlementID)
}

func (s *Service) append(
	ctx context.Context,
	purchase *entitlement.Purchase,
	eventType, ip, ua, details string,
) error {
	entry := &LogEntry{
		ID:         uuid.New().String(),
		PurchaseID: purchase.ID,
		UserID:     purchase.UserID,
		EventType:  eventType,
		IPAddress:  ip,
		UserAgent:  ua,
		Details:    details,
	}

	if err := s.log.Insert(ctx, entry); err != nil {
		return fmt.Errorf("append security log: %w", err)
	}

	return nil
}
