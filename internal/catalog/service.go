// AngelaMos | 2026
// service.go

package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/reelvault/reelvault/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetContent resolves a content id to its purchasable form, trying videos
// first and falling back to collections. The reconciler prices grants from
// the returned Content, never from payment-provider amounts.
func (s *Service) GetContent(
	ctx context.Context,
	contentID string,
) (*Content, error) {
	video, err := s.repo.GetVideo(ctx, contentID)
	if err == nil {
		return &Content{
			ID:                  video.ID,
			Kind:                ContentVideo,
			CollectionID:        video.CollectionID,
			Title:               video.Title,
			StoragePath:         video.StoragePath,
			PriceCents:          video.PriceCents,
			Currency:            video.Currency,
			RentalDurationHours: video.RentalDurationHours,
		}, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	collection, err := s.repo.GetCollection(ctx, contentID)
	if err != nil {
		return nil, err
	}

	return &Content{
		ID:                  collection.ID,
		Kind:                ContentCollection,
		Title:               collection.Title,
		PriceCents:          collection.PriceCents,
		Currency:            collection.Currency,
		RentalDurationHours: collection.RentalDurationHours,
	}, nil
}

func (s *Service) GetVideo(ctx context.Context, id string) (*Video, error) {
	return s.repo.GetVideo(ctx, id)
}

func (s *Service) ListVideos(ctx context.Context) ([]Video, error) {
	return s.repo.ListVideos(ctx, true)
}

func (s *Service) GetCollection(
	ctx context.Context,
	id string,
) (*Collection, error) {
	return s.repo.GetCollection(ctx, id)
}

func (s *Service) ListCollections(ctx context.Context) ([]Collection, error) {
	return s.repo.ListCollections(ctx, true)
}

func (s *Service) ListCollectionVideos(
	ctx context.Context,
	collectionID string,
) ([]Video, error) {
	if _, err := s.repo.GetCollection(ctx, collectionID); err != nil {
		return nil, err
	}
	return s.repo.ListVideosByCollection(ctx, collectionID)
}

func (s *Service) CreateVideo(
	ctx context.Context,
	req CreateVideoRequest,
) (*Video, error) {
	if req.CollectionID != nil {
		if _, err := s.repo.GetCollection(ctx, *req.CollectionID); err != nil {
			return nil, fmt.Errorf("create video: %w", err)
		}
	}

	video := &Video{
		ID:                  uuid.New().String(),
		CollectionID:        req.CollectionID,
		Title:               req.Title,
		Description:         req.Description,
		StoragePath:         req.StoragePath,
		PriceCents:          req.PriceCents,
		Currency:            req.Currency,
		DurationSeconds:     req.DurationSeconds,
		RentalDurationHours: req.RentalDurationHours,
		IsActive:            true,
	}

	if err := s.repo.CreateVideo(ctx, video); err != nil {
		return nil, err
	}

	return video, nil
}

func (s *Service) UpdateVideo(
	ctx context.Context,
	id string,
	req UpdateVideoRequest,
) (*Video, error) {
	video, err := s.repo.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		video.Title = *req.Title
	}
	if req.Description != nil {
		video.Description = *req.Description
	}
	if req.StoragePath != nil {
		video.StoragePath = *req.StoragePath
	}
	if req.PriceCents != nil {
		video.PriceCents = *req.PriceCents
	}
	if req.RentalDurationHours != nil {
		video.RentalDurationHours = req.RentalDurationHours
	}
	if req.IsActive != nil {
		video.IsActive = *req.IsActive
	}

	if err := s.repo.UpdateVideo(ctx, video); err != nil {
		return nil, err
	}

	return video, nil
}

func (s *Service) DeleteVideo(ctx context.Context, id string) error {
	return s.repo.DeleteVideo(ctx, id)
}

func (s *Service) CreateCollection(
	ctx context.Context,
	req CreateCollectionRequest,
) (*Collection, error) {
	collection := &Collection{
		ID:                  uuid.New().String(),
		Title:               req.Title,
		Description:         req.Description,
		PriceCents:          req.PriceCents,
		Currency:            req.Currency,
		RentalDurationHours: req.RentalDurationHours,
		IsActive:            true,
	}

	if err := s.repo.CreateCollection(ctx, collection); err != nil {
		return nil, err
	}

	return collection, nil
}
