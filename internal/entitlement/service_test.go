// AngelaMos | 2026
// service_test.go

package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelvault/reelvault/internal/core"
)

type fakeRepo struct {
	purchases []Purchase
	insertErr error
	findErr   error
	inserted  []*Purchase
}

func (f *fakeRepo) Insert(_ context.Context, p *Purchase) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, p)
	f.purchases = append(f.purchases, *p)
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Purchase, error) {
	for i := range f.purchases {
		if f.purchases[i].ID == id {
			return &f.purchases[i], nil
		}
	}
	return nil, core.ErrNotFound
}

// unlapsed mirrors the SQL predicate shared by every resolver tier:
// AND (expires_at IS NULL OR expires_at > NOW()).
func unlapsed(p *Purchase) bool {
	return p.ExpiresAt == nil || p.ExpiresAt.After(time.Now())
}

func (f *fakeRepo) FindCompletedActive(
	_ context.Context,
	userID, contentID string,
) (*Purchase, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for i := range f.purchases {
		p := &f.purchases[i]
		if p.UserID == userID && p.ContentID == contentID &&
			p.Status == StatusCompleted && p.IsActive && unlapsed(p) {
			return p, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeRepo) FindAnyActive(
	_ context.Context,
	userID, contentID string,
) (*Purchase, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for i := range f.purchases {
		p := &f.purchases[i]
		if p.UserID == userID && p.ContentID == contentID &&
			p.IsActive && unlapsed(p) {
			return p, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeRepo) FindRecentByUser(
	_ context.Context,
	userID string,
	since time.Time,
) ([]Purchase, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []Purchase
	for i := len(f.purchases) - 1; i >= 0; i-- {
		p := f.purchases[i]
		if p.UserID == userID && p.CreatedAt.After(since) &&
			p.IsActive && unlapsed(&p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListByUser(
	_ context.Context,
	userID string,
) ([]Purchase, error) {
	var out []Purchase
	for _, p := range f.purchases {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) IncrementStrike(
	_ context.Context,
	id string,
) (int, error) {
	for i := range f.purchases {
		if f.purchases[i].ID == id {
			f.purchases[i].StrikeCount++
			return f.purchases[i].StrikeCount, nil
		}
	}
	return 0, core.ErrNotFound
}

func (f *fakeRepo) Revoke(_ context.Context, id string, floor int) error {
	for i := range f.purchases {
		if f.purchases[i].ID == id {
			now := time.Now()
			f.purchases[i].ExpiresAt = &now
			if f.purchases[i].StrikeCount < floor {
				f.purchases[i].StrikeCount = floor
			}
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeRepo) ResetStrikes(_ context.Context, id string) error {
	for i := range f.purchases {
		if f.purchases[i].ID == id {
			f.purchases[i].StrikeCount = 0
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeRepo) BindIP(_ context.Context, id, ip string) error {
	for i := range f.purchases {
		if f.purchases[i].ID == id && f.purchases[i].BoundIP == nil {
			f.purchases[i].BoundIP = &ip
		}
	}
	return nil
}

func TestGrantCreatesCompletedActivePurchase(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, time.Hour, 3)

	purchase, created, err := svc.Grant(context.Background(), Grant{
		UserID:           "user-1",
		ContentID:        "content-1",
		PaymentSessionID: "cs_123",
		AmountCents:      1999,
		Currency:         "usd",
	})

	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, purchase)
	assert.Equal(t, StatusCompleted, purchase.Status)
	assert.True(t, purchase.IsActive)
	assert.Nil(t, purchase.ExpiresAt)
	assert.NotEmpty(t, purchase.ID)
}

func TestGrantDuplicateIsNotAnError(t *testing.T) {
	repo := &fakeRepo{insertErr: core.ErrDuplicateKey}
	svc := NewService(repo, time.Hour, 3)

	purchase, created, err := svc.Grant(context.Background(), Grant{
		UserID:           "user-1",
		ContentID:        "content-1",
		PaymentSessionID: "cs_123",
	})

	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, purchase)
}

func TestGrantPropagatesRepositoryErrors(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &fakeRepo{insertErr: boom}
	svc := NewService(repo, time.Hour, 3)

	_, created, err := svc.Grant(context.Background(), Grant{
		UserID:    "user-1",
		ContentID: "content-1",
	})

	require.Error(t, err)
	assert.False(t, created)
	assert.ErrorIs(t, err, boom)
}

func TestHasAccessPrefersCompletedActive(t *testing.T) {
	repo := &fakeRepo{purchases: []Purchase{
		{
			ID: "p-pending", UserID: "u1", ContentID: "c1",
			Status: StatusPending, IsActive: true,
			CreatedAt: time.Now(),
		},
		{
			ID: "p-done", UserID: "u1", ContentID: "c1",
			Status: StatusCompleted, IsActive: true,
			CreatedAt: time.Now(),
		},
	}}
	svc := NewService(repo, time.Hour, 3)

	ok, purchase, err := svc.HasAccess(context.Background(), "u1", "c1")

	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, purchase)
	assert.Equal(t, "p-done", purchase.ID)
}

func TestHasAccessFallsBackToAnyActive(t *testing.T) {
	repo := &fakeRepo{purchases: []Purchase{
		{
			ID: "p-pending", UserID: "u1", ContentID: "c1",
			Status: StatusPending, IsActive: true,
			CreatedAt: time.Now().Add(-48 * time.Hour),
		},
	}}
	svc := NewService(repo, time.Hour, 3)

	ok, purchase, err := svc.HasAccess(context.Background(), "u1", "c1")

	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, purchase)
	assert.Equal(t, "p-pending", purchase.ID)
}

func TestHasAccessBridgesRecentPurchaseWindow(t *testing.T) {
	// Purchase for a different content id, made moments ago. Covers the
	// gap between checkout completing and the webhook landing.
	repo := &fakeRepo{purchases: []Purchase{
		{
			ID: "p-old", UserID: "u1", ContentID: "other",
			Status: StatusCompleted, IsActive: true,
			CreatedAt: time.Now().Add(-10 * time.Minute),
		},
		{
			ID: "p-new", UserID: "u1", ContentID: "other",
			Status: StatusCompleted, IsActive: true,
			CreatedAt: time.Now().Add(-1 * time.Minute),
		},
	}}
	svc := NewService(repo, time.Hour, 3)

	ok, purchase, err := svc.HasAccess(context.Background(), "u1", "c1")

	require.NoError(t, err)
	assert.True(t, ok)
	require.NotNil(t, purchase)
	assert.Equal(t, "p-new", purchase.ID, "newest recent purchase wins")
}

func TestHasAccessDeniesLapsedRental(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	repo := &fakeRepo{purchases: []Purchase{
		{
			ID: "p-rental", UserID: "u1", ContentID: "c1",
			Status: StatusCompleted, IsActive: true,
			ExpiresAt: &past,
			CreatedAt: time.Now().Add(-48 * time.Hour),
		},
	}}
	svc := NewService(repo, time.Hour, 3)

	ok, purchase, err := svc.HasAccess(context.Background(), "u1", "c1")

	require.NoError(t, err)
	assert.False(t, ok, "a past expires_at grants nothing regardless of status")
	assert.Nil(t, purchase)
}

func TestHasAccessDeniedAfterStrikeRevocation(t *testing.T) {
	// Third strike revokes; the purchase row survives for audit but must
	// not match any resolver tier, including the recent-window fallback.
	repo := &fakeRepo{purchases: []Purchase{
		{
			ID: "p1", UserID: "u1", ContentID: "c1",
			Status: StatusCompleted, IsActive: true,
			StrikeCount: 2,
			CreatedAt:   time.Now().Add(-5 * time.Minute),
		},
	}}
	svc := NewService(repo, time.Hour, 3)

	ok, _, err := svc.HasAccess(context.Background(), "u1", "c1")
	require.NoError(t, err)
	require.True(t, ok, "still accessible before the final strike")

	_, err = repo.IncrementStrike(context.Background(), "p1")
	require.NoError(t, err)
	require.NoError(t, repo.Revoke(context.Background(), "p1", 3))

	ok, purchase, err := svc.HasAccess(context.Background(), "u1", "c1")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, purchase)
	assert.Equal(t, StrikeRevoked, repo.purchases[0].StrikeState(3))
}

func TestHasAccessAbsenceIsNotAnError(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, time.Hour, 3)

	ok, purchase, err := svc.HasAccess(context.Background(), "u1", "c1")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, purchase)
}

func TestHasAccessOutsideRecentWindow(t *testing.T) {
	repo := &fakeRepo{purchases: []Purchase{
		{
			ID: "p-stale", UserID: "u1", ContentID: "other",
			Status: StatusCompleted, IsActive: true,
			CreatedAt: time.Now().Add(-2 * time.Hour),
		},
	}}
	svc := NewService(repo, time.Hour, 3)

	ok, _, err := svc.HasAccess(context.Background(), "u1", "c1")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasAccessPropagatesRepositoryErrors(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &fakeRepo{findErr: boom}
	svc := NewService(repo, time.Hour, 3)

	ok, _, err := svc.HasAccess(context.Background(), "u1", "c1")

	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
}

func TestStrikeStateFor(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		threshold int
		want      StrikeState
	}{
		{"zero strikes", 0, 3, StrikeClean},
		{"negative count", -1, 3, StrikeClean},
		{"first strike", 1, 3, StrikeWarned},
		{"one below threshold", 2, 3, StrikeFinalWarning},
		{"at threshold", 3, 3, StrikeRevoked},
		{"above threshold", 7, 3, StrikeRevoked},
		{"higher threshold mid-range", 3, 5, StrikeWarned},
		{"higher threshold final", 4, 5, StrikeFinalWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StrikeStateFor(tt.count, tt.threshold))
		})
	}
}

func TestPurchaseIsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	permanent := &Purchase{}
	assert.False(t, permanent.IsExpired(now))

	lapsed := &Purchase{ExpiresAt: &past}
	assert.True(t, lapsed.IsExpired(now))

	active := &Purchase{ExpiresAt: &future}
	assert.False(t, active.IsExpired(now))

	boundary := &Purchase{ExpiresAt: &now}
	assert.True(t, boundary.IsExpired(now))
}
