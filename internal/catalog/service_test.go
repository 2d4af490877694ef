// AngelaMos | 2026
// service_test.go

package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelvault/reelvault/internal/core"
)

type fakeCatalogRepo struct {
	videos      map[string]*Video
	collections map[string]*Collection
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		videos:      map[string]*Video{},
		collections: map[string]*Collection{},
	}
}

func (f *fakeCatalogRepo) CreateVideo(_ context.Context, v *Video) error {
	v.CreatedAt = time.Now()
	f.videos[v.ID] = v
	return nil
}

func (f *fakeCatalogRepo) GetVideo(
	_ context.Context,
	id string,
) (*Video, error) {
	if v, ok := f.videos[id]; ok {
		return v, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeCatalogRepo) UpdateVideo(_ context.Context, v *Video) error {
	if _, ok := f.videos[v.ID]; !ok {
		return core.ErrNotFound
	}
	f.videos[v.ID] = v
	return nil
}

func (f *fakeCatalogRepo) DeleteVideo(_ context.Context, id string) error {
	if _, ok := f.videos[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.videos, id)
	return nil
}

func (f *fakeCatalogRepo) ListVideos(
	_ context.Context,
	_ bool,
) ([]Video, error) {
	var out []Video
	for _, v := range f.videos {
		out = append(out, *v)
	}
	return out, nil
}

func (f *fakeCatalogRepo) ListVideosByCollection(
	_ context.Context,
	collectionID string,
) ([]Video, error) {
	var out []Video
	for _, v := range f.videos {
		if v.CollectionID != nil && *v.CollectionID == collectionID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeCatalogRepo) CreateCollection(
	_ context.Context,
	c *Collection,
) error {
	c.CreatedAt = time.Now()
	f.collections[c.ID] = c
	return nil
}

func (f *fakeCatalogRepo) GetCollection(
	_ context.Context,
	id string,
) (*Collection, error) {
	if c, ok := f.collections[id]; ok {
		return c, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeCatalogRepo) ListCollections(
	_ context.Context,
	_ bool,
) ([]Collection, error) {
	var out []Collection
	for _, c := range f.collections {
		out = append(out, *c)
	}
	return out, nil
}

func TestGetContentResolvesVideo(t *testing.T) {
	repo := newFakeCatalogRepo()
	collectionID := "col1"
	repo.videos["v1"] = &Video{
		ID:           "v1",
		CollectionID: &collectionID,
		Title:        "Episode 1",
		StoragePath:  "videos/v1/master.m3u8",
		PriceCents:   499,
		Currency:     "usd",
	}
	svc := NewService(repo)

	content, err := svc.GetContent(context.Background(), "v1")

	require.NoError(t, err)
	assert.Equal(t, ContentVideo, content.Kind)
	assert.Equal(t, "videos/v1/master.m3u8", content.StoragePath)
	require.NotNil(t, content.CollectionID)
	assert.Equal(t, "col1", *content.CollectionID)
}

func TestGetContentResolvesCollection(t *testing.T) {
	repo := newFakeCatalogRepo()
	rentalHours := 72
	repo.collections["col1"] = &Collection{
		ID:                  "col1",
		Title:               "Season 1",
		PriceCents:          2999,
		Currency:            "usd",
		RentalDurationHours: &rentalHours,
	}
	svc := NewService(repo)

	content, err := svc.GetContent(context.Background(), "col1")

	require.NoError(t, err)
	assert.Equal(t, ContentCollection, content.Kind)
	assert.Empty(t, content.StoragePath,
		"collections have no stream of their own")

	window, ok := content.RentalDuration()
	require.True(t, ok)
	assert.Equal(t, 72*time.Hour, window)
}

func TestGetContentUnknownID(t *testing.T) {
	svc := NewService(newFakeCatalogRepo())

	_, err := svc.GetContent(context.Background(), "ghost")

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestContentRentalDurationPermanent(t *testing.T) {
	content := &Content{ID: "c1"}

	_, ok := content.RentalDuration()
	assert.False(t, ok)
}

func TestCreateVideoValidatesCollection(t *testing.T) {
	repo := newFakeCatalogRepo()
	svc := NewService(repo)

	missing := "no-such-collection"
	_, err := svc.CreateVideo(context.Background(), CreateVideoRequest{
		CollectionID: &missing,
		Title:        "Orphan",
		StoragePath:  "videos/x/master.m3u8",
		Currency:     "usd",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, repo.videos)
}

func TestUpdateVideoAppliesPartialChanges(t *testing.T) {
	repo := newFakeCatalogRepo()
	repo.videos["v1"] = &Video{
		ID:          "v1",
		Title:       "Old title",
		StoragePath: "videos/v1/master.m3u8",
		PriceCents:  499,
		IsActive:    true,
	}
	svc := NewService(repo)

	newTitle := "New title"
	inactive := false
	updated, err := svc.UpdateVideo(context.Background(), "v1",
		UpdateVideoRequest{
			Title:    &newTitle,
			IsActive: &inactive,
		})

	require.NoError(t, err)
	assert.Equal(t, "New title", updated.Title)
	assert.False(t, updated.IsActive)
	assert.Equal(t, int64(499), updated.PriceCents, "untouched fields survive")
}
