// AngelaMos | 2026
// service.go

package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/reelvault/reelvault/internal/core"
)

type Grant struct {
	UserID           string
	ContentID        string
	PaymentSessionID string
	AmountCents      int64
	Currency         string
	ExpiresAt        *time.Time
}

type Service struct {
	repo            Repository
	recentWindow    time.Duration
	strikeThreshold int
}

func NewService(
	repo Repository,
	recentWindow time.Duration,
	strikeThreshold int,
) *Service {
	return &Service{
		repo:            repo,
		recentWindow:    recentWindow,
		strikeThreshold: strikeThreshold,
	}
}

func (s *Service) StrikeThreshold() int {
	return s.strikeThreshold
}

// Grant inserts a completed, active purchase. A duplicate of the
// (user, content, session) triple is reported as created=false with no
// error: the event already reconciled and the call converged on the same
// end state.
func (s *Service) Grant(
	ctx context.Context,
	grant Grant,
) (*Purchase, bool, error) {
	purchase := &Purchase{
		ID:               uuid.New().String(),
		UserID:           grant.UserID,
		ContentID:        grant.ContentID,
		PaymentSessionID: grant.PaymentSessionID,
		AmountCents:      grant.AmountCents,
		Currency:         grant.Currency,
		Status:           StatusCompleted,
		IsActive:         true,
		ExpiresAt:        grant.ExpiresAt,
	}

	err := s.repo.Insert(ctx, purchase)
	if errors.Is(err, core.ErrDuplicateKey) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return purchase, true, nil
}

// HasAccess resolves access in three tiers, stopping at the first match:
//
//  1. completed + active purchase for the exact (user, content) pair
//  2. any active purchase for the pair
//  3. any active purchase by the user inside the recent-purchase window,
//     newest first, regardless of content - bridges reconciliation latency
//     right after checkout
//
// Every tier excludes lapsed rows: a past expires_at grants nothing,
// whatever the status, so a revoked purchase cannot re-enter through any
// tier. Plain absence is (false, nil, nil), never an error.
func (s *Service) HasAccess(
	ctx context.Context,
	userID, contentID string,
) (bool, *Purchase, error) {
	purchase, err := s.repo.FindCompletedActive(ctx, userID, contentID)
	if err == nil {
		return true, purchase, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return false, nil, fmt.Errorf("resolve access: %w", err)
	}

	purchase, err = s.repo.FindAnyActive(ctx, userID, contentID)
	if err == nil {
		return true, purchase, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return false, nil, fmt.Errorf("resolve access: %w", err)
	}

	since := time.Now().Add(-s.recentWindow)
	recent, err := s.repo.FindRecentByUser(ctx, userID, since)
	if err != nil {
		return false, nil, fmt.Errorf("resolve access: %w", err)
	}
	if len(recent) > 0 {
		return true, &recent[0], nil
	}

	return false, nil, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Purchase, error) {
	return s.repo.GetByID(ctx, id)
}

// BindIP pins a purchase to the first client address that streams it. The
// repository only writes when bound_ip is still NULL, so later calls with a
// different address are no-ops.
func (s *Service) BindIP(ctx context.Context, id, ip string) error {
	return s.repo.BindIP(ctx, id, ip)
}

func (s *Service) ListByUser(
	ctx context.Context,
	userID string,
) ([]Purchase, error) {
	return s.repo.ListByUser(ctx, userID)
}
