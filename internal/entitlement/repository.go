// AngelaMos | 2026
// repository.go

package entitlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reelvault/reelvault/internal/core"
)

type Repository interface {
	Insert(ctx context.Context, purchase *Purchase) error
	GetByID(ctx context.Context, id string) (*Purchase, error)
	FindCompletedActive(
		ctx context.Context,
		userID, contentID string,
	) (*Purchase, error)
	FindAnyActive(
		ctx context.Context,
		userID, contentID string,
	) (*Purchase, error)
	FindRecentByUser(
		ctx context.Context,
		userID string,
		since time.Time,
	) ([]Purchase, error)
	ListByUser(ctx context.Context, userID string) ([]Purchase, error)
	IncrementStrike(ctx context.Context, id string) (int, error)
	Revoke(ctx context.Context, id string, strikeFloor int) error
	ResetStrikes(ctx context.Context, id string) error
	BindIP(ctx context.Context, id, ip string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const purchaseColumns = `
	id, user_id, content_id, payment_session_id, amount_cents, currency,
	status, is_active, expires_at, strike_count, bound_ip,
	created_at, updated_at`

// Insert relies on the unique (user_id, content_id, payment_session_id)
// index: a 23505 surfaces as core.ErrDuplicateKey, which the reconciler
// treats as the idempotent success path.
func (r *repository) Insert(ctx context.Context, purchase *Purchase) error {
	query := `
		INSERT INTO purchases (
			id, user_id, content_id, payment_session_id, amount_cents,
			currency, status, is_active, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, purchase, query,
		purchase.ID,
		purchase.UserID,
		purchase.ContentID,
		purchase.PaymentSessionID,
		purchase.AmountCents,
		purchase.Currency,
		purchase.Status,
		purchase.IsActive,
		purchase.ExpiresAt,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("insert purchase: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("insert purchase: %w", err)
	}

	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*Purchase, error) {
	query := `SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE id = $1`

	var purchase Purchase
	err := r.db.GetContext(ctx, &purchase, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get purchase: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}

	return &purchase, nil
}

func (r *repository) FindCompletedActive(
	ctx context.Context,
	userID, contentID string,
) (*Purchase, error) {
	query := `SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE user_id = $1 AND content_id = $2
			AND status = 'completed' AND is_active = true
			AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at DESC
		LIMIT 1`

	var purchase Purchase
	err := r.db.GetContext(ctx, &purchase, query, userID, contentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find purchase: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find purchase: %w", err)
	}

	return &purchase, nil
}

func (r *repository) FindAnyActive(
	ctx context.Context,
	userID, contentID string,
) (*Purchase, error) {
	query := `SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE user_id = $1 AND content_id = $2 AND is_active = true
			AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at DESC
		LIMIT 1`

	var purchase Purchase
	err := r.db.GetContext(ctx, &purchase, query, userID, contentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find purchase: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find purchase: %w", err)
	}

	return &purchase, nil
}

func (r *repository) FindRecentByUser(
	ctx context.Context,
	userID string,
	since time.Time,
) ([]Purchase, error) {
	query := `SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE user_id = $1 AND created_at >= $2 AND is_active = true
			AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at DESC`

	var purchases []Purchase
	err := r.db.SelectContext(ctx, &purchases, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("find recent purchases: %w", err)
	}

	return purchases, nil
}

func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
) ([]Purchase, error) {
	query := `SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE user_id = $1
		ORDER BY created_at DESC`

	var purchases []Purchase
	err := r.db.SelectContext(ctx, &purchases, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}

	return purchases, nil
}

// IncrementStrike bumps the counter atomically and returns the new value.
// Concurrent reports serialize on the row, so no read-modify-write race.
func (r *repository) IncrementStrike(
	ctx context.Context,
	id string,
) (int, error) {
	query := `
		UPDATE purchases
		SET strike_count = strike_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING strike_count`

	var count int
	err := r.db.GetContext(ctx, &count, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("increment strike: %w", core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("increment strike: %w", err)
	}

	return count, nil
}

// Revoke lapses the purchase by setting expires_at to now and raising the
// strike counter to at least strikeFloor. The row itself is kept for audit.
func (r *repository) Revoke(
	ctx context.Context,
	id string,
	strikeFloor int,
) error {
	query := `
		UPDATE purchases
		SET expires_at = NOW(),
		    strike_count = GREATEST(strike_count, $2),
		    updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, strikeFloor)
	if err != nil {
		return fmt.Errorf("revoke purchase: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke purchase: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("revoke purchase: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) ResetStrikes(ctx context.Context, id string) error {
	query := `
		UPDATE purchases
		SET strike_count = 0, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("reset strikes: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset strikes: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("reset strikes: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) BindIP(ctx context.Context, id, ip string) error {
	query := `
		UPDATE purchases
		SET bound_ip = $2, updated_at = NOW()
		WHERE id = $1 AND bound_ip IS NULL`

	_, err := r.db.ExecContext(ctx, query, id, ip)
	if err != nil {
		return fmt.Errorf("bind ip: %w", err)
	}

	return nil
}
