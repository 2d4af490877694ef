// AngelaMos | 2026
// service_test.go

package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelvault/reelvault/internal/catalog"
	"github.com/reelvault/reelvault/internal/core"
	"github.com/reelvault/reelvault/internal/entitlement"
)

type fakeSigner struct {
	lastPath    string
	lastExpires time.Time
}

func (f *fakeSigner) Sign(path string, expiresAt time.Time) (string, error) {
	f.lastPath = path
	f.lastExpires = expiresAt
	return "https://edge.test/" + path + "?signed", nil
}

type fakeTokenRepo struct {
	byHash map[string]*AccessToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{byHash: map[string]*AccessToken{}}
}

func (f *fakeTokenRepo) Insert(_ context.Context, token *AccessToken) error {
	token.CreatedAt = time.Now()
	f.byHash[token.TokenHash] = token
	return nil
}

func (f *fakeTokenRepo) FindByHash(
	_ context.Context,
	hash string,
) (*AccessToken, error) {
	if token, ok := f.byHash[hash]; ok {
		return token, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

type fakeAccess struct {
	grants map[string]*entitlement.Purchase
	bound  map[string]string
}

func (f *fakeAccess) HasAccess(
	_ context.Context,
	userID, contentID string,
) (bool, *entitlement.Purchase, error) {
	if p, ok := f.grants[userID+"/"+contentID]; ok {
		return true, p, nil
	}
	return false, nil, nil
}

func (f *fakeAccess) BindIP(_ context.Context, id, ip string) error {
	if f.bound == nil {
		f.bound = map[string]string{}
	}
	if _, ok := f.bound[id]; !ok {
		f.bound[id] = ip
	}
	return nil
}

type fakeContents struct {
	contents map[string]*catalog.Content
}

func (f *fakeContents) GetContent(
	_ context.Context,
	contentID string,
) (*catalog.Content, error) {
	if c, ok := f.contents[contentID]; ok {
		return c, nil
	}
	return nil, core.ErrNotFound
}

func newStreamService(
	signer Signer,
	tokens Repository,
	access *fakeAccess,
	contents *fakeContents,
	now time.Time,
) *Service {
	svc := NewService(signer, tokens, access, contents, 90*time.Second, time.Hour)
	svc.now = func() time.Time { return now }
	return svc
}

func videoContent(id, path string) *catalog.Content {
	return &catalog.Content{
		ID:          id,
		Kind:        catalog.ContentVideo,
		Title:       "Sample",
		StoragePath: path,
		PriceCents:  1999,
		Currency:    "usd",
	}
}

func TestIssueForUserPermanentPurchaseGetsFixedTTL(t *testing.T) {
	now := time.Now()
	signer := &fakeSigner{}
	access := &fakeAccess{grants: map[string]*entitlement.Purchase{
		"u1/c1": {ID: "p1", UserID: "u1", ContentID: "c1"},
	}}
	contents := &fakeContents{contents: map[string]*catalog.Content{
		"c1": videoContent("c1", "videos/c1/master.m3u8"),
	}}
	svc := newStreamService(signer, newFakeTokenRepo(), access, contents, now)

	signed, err := svc.IssueForUser(context.Background(), "u1", "c1", "198.51.100.7")

	require.NoError(t, err)
	assert.Equal(t, "videos/c1/master.m3u8", signer.lastPath)
	assert.Equal(t, now.Add(90*time.Second), signed.ExpiresAt)
}

func TestIssueForUserRentalCapsTTLAtRemainingWindow(t *testing.T) {
	now := time.Now()
	rentalEnd := now.Add(30 * time.Second)
	signer := &fakeSigner{}
	access := &fakeAccess{grants: map[string]*entitlement.Purchase{
		"u1/c1": {ID: "p1", ExpiresAt: &rentalEnd},
	}}
	contents := &fakeContents{contents: map[string]*catalog.Content{
		"c1": videoContent("c1", "videos/c1/master.m3u8"),
	}}
	svc := newStreamService(signer, newFakeTokenRepo(), access, contents, now)

	signed, err := svc.IssueForUser(context.Background(), "u1", "c1", "198.51.100.7")

	require.NoError(t, err)
	assert.Equal(t, rentalEnd, signed.ExpiresAt,
		"URL must not outlive the rental")
}

func TestIssueForUserLapsedRental(t *testing.T) {
	now := time.Now()
	rentalEnd := now.Add(-time.Minute)
	access := &fakeAccess{grants: map[string]*entitlement.Purchase{
		"u1/c1": {ID: "p1", ExpiresAt: &rentalEnd},
	}}
	contents := &fakeContents{contents: map[string]*catalog.Content{
		"c1": videoContent("c1", "videos/c1/master.m3u8"),
	}}
	svc := newStreamService(&fakeSigner{}, newFakeTokenRepo(), access, contents, now)

	_, err := svc.IssueForUser(context.Background(), "u1", "c1", "198.51.100.7")

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAccessExpired)
}

func TestIssueForUserWithoutEntitlement(t *testing.T) {
	access := &fakeAccess{grants: map[string]*entitlement.Purchase{}}
	contents := &fakeContents{contents: map[string]*catalog.Content{
		"c1": videoContent("c1", "videos/c1/master.m3u8"),
	}}
	svc := newStreamService(
		&fakeSigner{}, newFakeTokenRepo(), access, contents, time.Now(),
	)

	_, err := svc.IssueForUser(context.Background(), "u1", "c1", "198.51.100.7")

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestIssueForUserCollectionOwnershipGrantsVideo(t *testing.T) {
	collectionID := "col1"
	video := videoContent("v1", "videos/v1/master.m3u8")
	video.CollectionID = &collectionID

	access := &fakeAccess{grants: map[string]*entitlement.Purchase{
		"u1/col1": {ID: "p1"},
	}}
	contents := &fakeContents{contents: map[string]*catalog.Content{
		"v1": video,
	}}
	svc := newStreamService(
		&fakeSigner{}, newFakeTokenRepo(), access, contents, time.Now(),
	)

	signed, err := svc.IssueForUser(context.Background(), "u1", "v1", "198.51.100.7")

	require.NoError(t, err)
	assert.NotEmpty(t, signed.URL)
}

func TestIssueForUserNonStreamableContent(t *testing.T) {
	access := &fakeAccess{grants: map[string]*entitlement.Purchase{
		"u1/col1": {ID: "p1"},
	}}
	contents := &fakeContents{contents: map[string]*catalog.Content{
		"col1": {ID: "col1", Kind: catalog.ContentCollection},
	}}
	svc := newStreamService(
		&fakeSigner{}, newFakeTokenRepo(), access, contents, time.Now(),
	)

	_, err := svc.IssueForUser(context.Background(), "u1", "col1", "198.51.100.7")

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestIssueForUserBindsFirstClientAddress(t *testing.T) {
	now := time.Now()
	access := &fakeAccess{grants: map[string]*entitlement.Purchase{
		"u1/c1": {ID: "p1", UserID: "u1", ContentID: "c1"},
	}}
	contents := &fakeContents{contents: map[string]*catalog.Content{
		"c1": videoContent("c1", "videos/c1/master.m3u8"),
	}}
	svc := newStreamService(&fakeSigner{}, newFakeTokenRepo(), access, contents, now)

	_, err := svc.IssueForUser(context.Background(), "u1", "c1", "198.51.100.7")

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"p1": "198.51.100.7"}, access.bound)
}

func TestIssueForUserDoesNotRebindAddress(t *testing.T) {
	now := time.Now()
	boundIP := "203.0.113.1"
	access := &fakeAccess{grants: map[string]*entitlement.Purchase{
		"u1/c1": {ID: "p1", BoundIP: &boundIP},
	}}
	contents := &fakeContents{contents: map[string]*catalog.Content{
		"c1": videoContent("c1", "videos/c1/master.m3u8"),
	}}
	svc := newStreamService(&fakeSigner{}, newFakeTokenRepo(), access, contents, now)

	_, err := svc.IssueForUser(context.Background(), "u1", "c1", "198.51.100.7")

	require.NoError(t, err)
	assert.Empty(t, access.bound, "an already-bound purchase is left alone")
}

func TestMintAndExchangeToken(t *testing.T) {
	now := time.Now()
	signer := &fakeSigner{}
	tokens := newFakeTokenRepo()
	contents := &fakeContents{contents: map[string]*catalog.Content{
		"c1": videoContent("c1", "videos/c1/master.m3u8"),
	}}
	svc := newStreamService(signer, tokens, &fakeAccess{}, contents, now)

	raw, expiresAt, err := svc.MintAccessToken(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, now.Add(time.Hour), expiresAt)
	assert.NotContains(t, tokens.byHash, raw,
		"raw token must never be stored")

	signed, err := svc.ExchangeToken(context.Background(), raw, "c1")
	require.NoError(t, err)
	assert.Equal(t, expiresAt, signed.ExpiresAt,
		"signed URL inherits the token expiry exactly")
}

func TestExchangeTokenNeverExtendsAccess(t *testing.T) {
	mintedAt := time.Now()
	signer := &fakeSigner{}
	tokens := newFakeTokenRepo()
	contents := &fakeContents{contents: map[string]*catalog.Content{
		"c1": videoContent("c1", "videos/c1/master.m3u8"),
	}}
	svc := newStreamService(signer, tokens, &fakeAccess{}, contents, mintedAt)

	raw, expiresAt, err := svc.MintAccessToken(context.Background(), "u1", "c1")
	require.NoError(t, err)

	// Exchange again much later; the URL still lapses with the token.
	svc.now = func() time.Time { return mintedAt.Add(50 * time.Minute) }
	signed, err := svc.ExchangeToken(context.Background(), raw, "c1")
	require.NoError(t, err)
	assert.Equal(t, expiresAt, signed.ExpiresAt)
}

func TestExchangeTokenExpired(t *testing.T) {
	mintedAt := time.Now()
	tokens := newFakeTokenRepo()
	contents := &fakeContents{contents: map[string]*catalog.Content{
		"c1": videoContent("c1", "videos/c1/master.m3u8"),
	}}
	svc := newStreamService(&fakeSigner{}, tokens, &fakeAccess{}, contents, mintedAt)

	raw, _, err := svc.MintAccessToken(context.Background(), "u1", "c1")
	require.NoError(t, err)

	svc.now = func() time.Time { return mintedAt.Add(2 * time.Hour) }
	_, err = svc.ExchangeToken(context.Background(), raw, "c1")

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrAccessExpired)
}

func TestExchangeTokenWrongContent(t *testing.T) {
	now := time.Now()
	tokens := newFakeTokenRepo()
	contents := &fakeContents{contents: map[string]*catalog.Content{
		"c1": videoContent("c1", "videos/c1/master.m3u8"),
		"c2": videoContent("c2", "videos/c2/master.m3u8"),
	}}
	svc := newStreamService(&fakeSigner{}, tokens, &fakeAccess{}, contents, now)

	raw, _, err := svc.MintAccessToken(context.Background(), "u1", "c1")
	require.NoError(t, err)

	_, err = svc.ExchangeToken(context.Background(), raw, "c2")

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestExchangeTokenUnknown(t *testing.T) {
	svc := newStreamService(
		&fakeSigner{},
		newFakeTokenRepo(),
		&fakeAccess{},
		&fakeContents{},
		time.Now(),
	)

	_, err := svc.ExchangeToken(context.Background(), "no-such-token", "c1")

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrForbidden,
		"unknown tokens look identical to forbidden ones")
}

func TestMintAccessTokenUnknownContent(t *testing.T) {
	svc := newStreamService(
		&fakeSigner{},
		newFakeTokenRepo(),
		&fakeAccess{},
		&fakeContents{},
		time.Now(),
	)

	_, _, err := svc.MintAccessToken(context.Background(), "u1", "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
