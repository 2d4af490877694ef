// AngelaMos | 2026
// repository.go

package stream

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/reelvault/reelvault/internal/core"
)

type Repository interface {
	Insert(ctx context.Context, token *AccessToken) error
	FindByHash(ctx context.Context, tokenHash string) (*AccessToken, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, token *AccessToken) error {
	query := `
		INSERT INTO access_tokens (
			id, token_hash, user_id, content_id, expires_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &token.CreatedAt, query,
		token.ID,
		token.TokenHash,
		token.UserID,
		token.ContentID,
		token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert access token: %w", err)
	}

	return nil
}

func (r *repository) FindByHash(
	ctx context.Context,
	tokenHash string,
) (*AccessToken, error) {
	query := `
		SELECT id, token_hash, user_id, content_id, expires_at, created_at
		FROM access_tokens
		WHERE token_hash = $1`

	var token AccessToken
	err := r.db.GetContext(ctx, &token, query, tokenHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find access token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find access token: %w", err)
	}

	return &token, nil
}

func (r *repository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM access_tokens
		WHERE expires_at < NOW()`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("delete expired access tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired access tokens: %w", err)
	}

	return rows, nil
}
