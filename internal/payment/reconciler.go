// AngelaMos | 2026
// reconciler.go

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/reelvault/reelvault/internal/auth"
	"github.com/reelvault/reelvault/internal/catalog"
	"github.com/reelvault/reelvault/internal/core"
	"github.com/reelvault/reelvault/internal/entitlement"
)

// Granter is the slice of the entitlement service the reconciler needs.
type Granter interface {
	Grant(
		ctx context.Context,
		grant entitlement.Grant,
	) (*entitlement.Purchase, bool, error)
}

// ContentResolver prices grants from the catalog. Provider amounts are never
// trusted for per-item pricing.
type ContentResolver interface {
	GetContent(ctx context.Context, contentID string) (*catalog.Content, error)
}

// UserDirectory resolves a payer e-mail to an account when the session
// carries no user id.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*auth.UserInfo, error)
}

// ReconcileResult reports what one pass over a session did. Duplicates are
// triples that already existed; they count as converged, not failed.
type ReconcileResult struct {
	SessionID  string   `json:"session_id"`
	UserID     string   `json:"user_id"`
	Granted    []string `json:"granted"`
	Duplicates []string `json:"duplicates"`
	Failed     []string `json:"failed,omitempty"`
}

// Includes reports whether the session reconciled an entitlement for the
// given content id, freshly granted or already present.
func (r *ReconcileResult) Includes(contentID string) bool {
	for _, id := range r.Granted {
		if id == contentID {
			return true
		}
	}
	for _, id := range r.Duplicates {
		if id == contentID {
			return true
		}
	}
	return false
}

// Reconciler turns a completed checkout session into entitlements. Process
// is idempotent: webhook retries, verify polling, and manual replay all
// converge on one completed, active purchase per (user, content, session)
// triple.
type Reconciler struct {
	client   Client
	granter  Granter
	contents ContentResolver
	users    UserDirectory
	logger   *slog.Logger
}

func NewReconciler(
	client Client,
	granter Granter,
	contents ContentResolver,
	users UserDirectory,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		client:   client,
		granter:  granter,
		contents: contents,
		users:    users,
		logger:   logger,
	}
}

// Reconcile is the single reconciliation path shared by all three adapters:
// fetch the session fresh from the provider by id, then process it. Webhook
// payload bodies are never trusted as the source of session state.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	sessionID string,
) (*ReconcileResult, error) {
	session, err := r.client.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session %s: %w", sessionID, err)
	}

	return r.Process(ctx, session)
}

func (r *Reconciler) Process(
	ctx context.Context,
	session *CheckoutSession,
) (*ReconcileResult, error) {
	if !session.Paid() {
		return nil, fmt.Errorf(
			"session %s not paid (payment_status=%s): %w",
			session.ID,
			session.PaymentStatus,
			core.ErrInvalidInput,
		)
	}

	contentIDs, err := extractContentIDs(session)
	if err != nil {
		return nil, err
	}

	userID, err := r.resolveUser(ctx, session)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{
		SessionID: session.ID,
		UserID:    userID,
	}

	for _, contentID := range contentIDs {
		if err := r.grantOne(ctx, session, userID, contentID, result); err != nil {
			result.Failed = append(result.Failed, contentID)
			r.logger.Error("reconciliation item failed",
				"session_id", session.ID,
				"user_id", userID,
				"content_id", contentID,
				"error", err,
			)
		}
	}

	if len(result.Failed) > 0 {
		return result, fmt.Errorf(
			"session %s: %d of %d items failed (%s); replay the event",
			session.ID,
			len(result.Failed),
			len(contentIDs),
			strings.Join(result.Failed, ", "),
		)
	}

	r.logger.Info("session reconciled",
		"session_id", session.ID,
		"user_id", userID,
		"granted", len(result.Granted),
		"duplicates", len(result.Duplicates),
	)

	return result, nil
}

// Covers reports whether a reconciled session entitles its payer to the
// given content: the id itself, or a video whose owning collection the
// session granted. An id the catalog does not know is simply not covered.
func (r *Reconciler) Covers(
	ctx context.Context,
	result *ReconcileResult,
	contentID string,
) (bool, error) {
	if result.Includes(contentID) {
		return true, nil
	}

	content, err := r.contents.GetContent(ctx, contentID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("coverage lookup for %s: %w", contentID, err)
	}

	return content.CollectionID != nil &&
		result.Includes(*content.CollectionID), nil
}

func (r *Reconciler) grantOne(
	ctx context.Context,
	session *CheckoutSession,
	userID, contentID string,
	result *ReconcileResult,
) error {
	content, err := r.contents.GetContent(ctx, contentID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf(
				"content %s not in catalog: %w",
				contentID,
				core.ErrInvalidInput,
			)
		}
		return fmt.Errorf("price lookup for %s: %w", contentID, err)
	}

	var expiresAt *time.Time
	if window, ok := content.RentalDuration(); ok {
		t := time.Now().Add(window)
		expiresAt = &t
	}

	_, created, err := r.granter.Grant(ctx, entitlement.Grant{
		UserID:           userID,
		ContentID:        contentID,
		PaymentSessionID: session.ID,
		AmountCents:      content.PriceCents,
		Currency:         content.Currency,
		ExpiresAt:        expiresAt,
	})
	if err != nil {
		return fmt.Errorf("grant %s: %w", contentID, err)
	}

	if created {
		result.Granted = append(result.Granted, contentID)
	} else {
		result.Duplicates = append(result.Duplicates, contentID)
	}

	return nil
}

// extractContentIDs prefers structured session metadata (collection_ids as a
// JSON array string plus collection_count), falls back to per-line-item
// metadata, and treats anything else as a data error. A grant is never
// fabricated from an empty event.
func extractContentIDs(session *CheckoutSession) ([]string, error) {
	if raw, ok := session.Metadata["collection_ids"]; ok && raw != "" {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, fmt.Errorf(
				"session %s: malformed collection_ids %q: %w",
				session.ID,
				raw,
				core.ErrInvalidInput,
			)
		}

		if countStr, ok := session.Metadata["collection_count"]; ok {
			count, err := strconv.Atoi(countStr)
			if err != nil || count != len(ids) {
				return nil, fmt.Errorf(
					"session %s: collection_count %q does not match %d ids: %w",
					session.ID,
					countStr,
					len(ids),
					core.ErrInvalidInput,
				)
			}
		}

		if len(ids) == 0 {
			return nil, fmt.Errorf(
				"session %s: empty collection_ids: %w",
				session.ID,
				core.ErrInvalidInput,
			)
		}

		return ids, nil
	}

	var ids []string
	for _, item := range session.LineItems {
		if id := item.Metadata["content_id"]; id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		return ids, nil
	}

	return nil, fmt.Errorf(
		"session %s: no content ids in metadata or line items: %w",
		session.ID,
		core.ErrInvalidInput,
	)
}

func (r *Reconciler) resolveUser(
	ctx context.Context,
	session *CheckoutSession,
) (string, error) {
	if userID := session.Metadata["user_id"]; userID != "" {
		return userID, nil
	}

	if session.CustomerEmail == "" {
		return "", fmt.Errorf(
			"session %s: no user_id metadata and no payer email: %w",
			session.ID,
			core.ErrInvalidInput,
		)
	}

	user, err := r.users.GetByEmail(ctx, session.CustomerEmail)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", fmt.Errorf(
				"session %s: no account for payer email: %w",
				session.ID,
				core.ErrInvalidInput,
			)
		}
		return "", fmt.Errorf("resolve payer: %w", err)
	}

	return user.ID, nil
}
