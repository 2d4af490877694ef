// AngelaMos | 2026
// repository.go

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/reelvault/reelvault/internal/core"
)

type Repository interface {
	CreateVideo(ctx context.Context, video *Video) error
	GetVideo(ctx context.Context, id string) (*Video, error)
	UpdateVideo(ctx context.Context, video *Video) error
	DeleteVideo(ctx context.Context, id string) error
	ListVideos(ctx context.Context, activeOnly bool) ([]Video, error)
	ListVideosByCollection(
		ctx context.Context,
		collectionID string,
	) ([]Video, error)

	CreateCollection(ctx context.Context, collection *Collection) error
	GetCollection(ctx context.Context, id string) (*Collection, error)
	ListCollections(ctx context.Context, activeOnly bool) ([]Collection, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) CreateVideo(ctx context.Context, video *Video) error {
	query := `
		INSERT INTO videos (
			id, collection_id, title, description, storage_path,
			price_cents, currency, duration_seconds, rental_duration_hours,
			is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, video, query,
		video.ID,
		video.CollectionID,
		video.Title,
		video.Description,
		video.StoragePath,
		video.PriceCents,
		video.Currency,
		video.DurationSeconds,
		video.RentalDurationHours,
		video.IsActive,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create video: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create video: %w", err)
	}

	return nil
}

func (r *repository) GetVideo(ctx context.Context, id string) (*Video, error) {
	query := `
		SELECT id, collection_id, title, description, storage_path,
		       price_cents, currency, duration_seconds, rental_duration_hours,
		       is_active, created_at, updated_at, deleted_at
		FROM videos
		WHERE id = $1 AND deleted_at IS NULL`

	var video Video
	err := r.db.GetContext(ctx, &video, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get video: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}

	return &video, nil
}

func (r *repository) UpdateVideo(ctx context.Context, video *Video) error {
	query := `
		UPDATE videos
		SET title = $2, description = $3, storage_path = $4,
		    price_cents = $5, rental_duration_hours = $6, is_active = $7,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &video.UpdatedAt, query,
		video.ID,
		video.Title,
		video.Description,
		video.StoragePath,
		video.PriceCents,
		video.RentalDurationHours,
		video.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update video: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}

	return nil
}

func (r *repository) DeleteVideo(ctx context.Context, id string) error {
	query := `
		UPDATE videos
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete video: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) ListVideos(
	ctx context.Context,
	activeOnly bool,
) ([]Video, error) {
	query := `
		SELECT id, collection_id, title, description, storage_path,
		       price_cents, currency, duration_seconds, rental_duration_hours,
		       is_active, created_at, updated_at, deleted_at
		FROM videos
		WHERE deleted_at IS NULL`

	if activeOnly {
		query += " AND is_active = true"
	}
	query += " ORDER BY created_at DESC"

	var videos []Video
	if err := r.db.SelectContext(ctx, &videos, query); err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	return videos, nil
}

func (r *repository) ListVideosByCollection(
	ctx context.Context,
	collectionID string,
) ([]Video, error) {
	query := `
		SELECT id, collection_id, title, description, storage_path,
		       price_cents, currency, duration_seconds, rental_duration_hours,
		       is_active, created_at, updated_at, deleted_at
		FROM videos
		WHERE collection_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC`

	var videos []Video
	err := r.db.SelectContext(ctx, &videos, query, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list collection videos: %w", err)
	}

	return videos, nil
}

func (r *repository) CreateCollection(
	ctx context.Context,
	collection *Collection,
) error {
	query := `
		INSERT INTO collections (
			id, title, description, price_cents, currency,
			rental_duration_hours, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, collection, query,
		collection.ID,
		collection.Title,
		collection.Description,
		collection.PriceCents,
		collection.Currency,
		collection.RentalDurationHours,
		collection.IsActive,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create collection: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create collection: %w", err)
	}

	return nil
}

func (r *repository) GetCollection(
	ctx context.Context,
	id string,
) (*Collection, error) {
	query := `
		SELECT id, title, description, price_cents, currency,
		       rental_duration_hours, is_active,
		       created_at, updated_at, deleted_at
		FROM collections
		WHERE id = $1 AND deleted_at IS NULL`

	var collection Collection
	err := r.db.GetContext(ctx, &collection, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get collection: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}

	return &collection, nil
}

func (r *repository) ListCollections(
	ctx context.Context,
	activeOnly bool,
) ([]Collection, error) {
	query := `
		SELECT id, title, description, price_cents, currency,
		       rental_duration_hours, is_active,
		       created_at, updated_at, deleted_at
		FROM collections
		WHERE deleted_at IS NULL`

	if activeOnly {
		query += " AND is_active = true"
	}
	query += " ORDER BY created_at DESC"

	var collections []Collection
	if err := r.db.SelectContext(ctx, &collections, query); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	return collections, nil
}
