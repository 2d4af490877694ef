// AngelaMos | 2026
// repository.go

package security

import (
	"context"
	"fmt"

	"github.com/reelvault/reelvault/internal/core"
)

// Repository is append-only by design: no update or delete surface exists.
type Repository interface {
	Insert(ctx context.Context, entry *LogEntry) error
	ListByPurchase(ctx context.Context, purchaseID string) ([]LogEntry, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, entry *LogEntry) error {
	query := `
		INSERT INTO security_log (
			id, purchase_id, user_id, event_type, ip_address, user_agent,
			details
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &entry.CreatedAt, query,
		entry.ID,
		entry.PurchaseID,
		entry.UserID,
		entry.EventType,
		entry.IPAddress,
		entry.UserAgent,
		entry.Details,
	)
	if err != nil {
		return fmt.Errorf("insert security log entry: %w", err)
	}

	return nil
}

func (r *repository) ListByPurchase(
	ctx context.Context,
	purchaseID string,
) ([]LogEntry, error) {
	query := `
		SELECT id, purchase_id, user_id, event_type, ip_address, user_agent,
		       details, created_at
		FROM security_log
		WHERE purchase_id = $1
		ORDER BY created_at ASC`

	var entries []LogEntry
	err := r.db.SelectContext(ctx, &entries, query, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("list security log: %w", err)
	}

	return entries, nil
}
