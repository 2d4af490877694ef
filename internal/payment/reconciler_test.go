// AngelaMos | 2026
// reconciler_test.go

package payment

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelvault/reelvault/internal/auth"
	"github.com/reelvault/reelvault/internal/catalog"
	"github.com/reelvault/reelvault/internal/core"
	"github.com/reelvault/reelvault/internal/entitlement"
)

type fakeClient struct {
	sessions map[string]*CheckoutSession
	err      error
	sigErr   error
}

func (f *fakeClient) GetCheckoutSession(
	_ context.Context,
	sessionID string,
) (*CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.sessions[sessionID]; ok {
		return s, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeClient) VerifyWebhookSignature(
	_ []byte,
	_ string,
) error {
	return f.sigErr
}

type fakeGranter struct {
	existing map[string]bool
	failOn   map[string]error
	grants   []entitlement.Grant
}

func (f *fakeGranter) Grant(
	_ context.Context,
	grant entitlement.Grant,
) (*entitlement.Purchase, bool, error) {
	if err, ok := f.failOn[grant.ContentID]; ok {
		return nil, false, err
	}
	key := grant.UserID + "/" + grant.ContentID + "/" + grant.PaymentSessionID
	if f.existing[key] {
		return nil, false, nil
	}
	if f.existing == nil {
		f.existing = map[string]bool{}
	}
	f.existing[key] = true
	f.grants = append(f.grants, grant)
	return &entitlement.Purchase{
		ID:        "p-" + grant.ContentID,
		UserID:    grant.UserID,
		ContentID: grant.ContentID,
	}, true, nil
}

type fakeCatalog struct {
	contents map[string]*catalog.Content
}

func (f *fakeCatalog) GetContent(
	_ context.Context,
	contentID string,
) (*catalog.Content, error) {
	if c, ok := f.contents[contentID]; ok {
		return c, nil
	}
	return nil, core.ErrNotFound
}

type fakeUsers struct {
	byEmail map[string]*auth.UserInfo
}

func (f *fakeUsers) GetByEmail(
	_ context.Context,
	email string,
) (*auth.UserInfo, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, core.ErrNotFound
}

func paidSession(id string, metadata map[string]string) *CheckoutSession {
	return &CheckoutSession{
		ID:            id,
		PaymentStatus: "paid",
		Status:        "complete",
		Currency:      "usd",
		Metadata:      metadata,
	}
}

func priced(id string, cents int64) *catalog.Content {
	return &catalog.Content{
		ID:         id,
		Kind:       catalog.ContentCollection,
		PriceCents: cents,
		Currency:   "usd",
	}
}

func newTestReconciler(
	client Client,
	granter *fakeGranter,
	contents *fakeCatalog,
	users *fakeUsers,
) *Reconciler {
	return NewReconciler(
		client, granter, contents, users,
		slog.New(slog.DiscardHandler),
	)
}

func TestProcessGrantsFromCollectionMetadata(t *testing.T) {
	granter := &fakeGranter{}
	contents := &fakeCatalog{contents: map[string]*catalog.Content{
		"c1": priced("c1", 1999),
		"c2": priced("c2", 2999),
	}}
	rec := newTestReconciler(&fakeClient{}, granter, contents, &fakeUsers{})

	session := paidSession("cs_1", map[string]string{
		"user_id":          "u1",
		"collection_ids":   `["c1","c2"]`,
		"collection_count": "2",
	})

	result, err := rec.Process(context.Background(), session)

	require.NoError(t, err)
	assert.Equal(t, "u1", result.UserID)
	assert.Equal(t, []string{"c1", "c2"}, result.Granted)
	assert.Empty(t, result.Duplicates)
	assert.Empty(t, result.Failed)

	require.Len(t, granter.grants, 2)
	assert.Equal(t, int64(1999), granter.grants[0].AmountCents,
		"price comes from the catalog, not the provider")
	assert.Equal(t, "cs_1", granter.grants[0].PaymentSessionID)
}

func TestProcessUnpaidSession(t *testing.T) {
	rec := newTestReconciler(
		&fakeClient{}, &fakeGranter{}, &fakeCatalog{}, &fakeUsers{},
	)

	session := paidSession("cs_1", map[string]string{"user_id": "u1"})
	session.PaymentStatus = "unpaid"

	_, err := rec.Process(context.Background(), session)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestProcessDuplicateIsConvergence(t *testing.T) {
	granter := &fakeGranter{}
	contents := &fakeCatalog{contents: map[string]*catalog.Content{
		"c1": priced("c1", 1999),
	}}
	rec := newTestReconciler(&fakeClient{}, granter, contents, &fakeUsers{})

	session := paidSession("cs_1", map[string]string{
		"user_id":        "u1",
		"collection_ids": `["c1"]`,
	})

	first, err := rec.Process(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, first.Granted)

	second, err := rec.Process(context.Background(), session)
	require.NoError(t, err, "replaying a reconciled event is a no-op")
	assert.Empty(t, second.Granted)
	assert.Equal(t, []string{"c1"}, second.Duplicates)
}

func TestProcessPartialFailureNamesItems(t *testing.T) {
	granter := &fakeGranter{failOn: map[string]error{
		"c2": errors.New("connection reset"),
	}}
	contents := &fakeCatalog{contents: map[string]*catalog.Content{
		"c1": priced("c1", 1999),
		"c2": priced("c2", 2999),
	}}
	rec := newTestReconciler(&fakeClient{}, granter, contents, &fakeUsers{})

	session := paidSession("cs_1", map[string]string{
		"user_id":        "u1",
		"collection_ids": `["c1","c2"]`,
	})

	result, err := rec.Process(context.Background(), session)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "c2")
	assert.Equal(t, []string{"c1"}, result.Granted,
		"successful items keep their grants")
	assert.Equal(t, []string{"c2"}, result.Failed)
}

func TestProcessCollectionCountMismatch(t *testing.T) {
	rec := newTestReconciler(
		&fakeClient{}, &fakeGranter{}, &fakeCatalog{}, &fakeUsers{},
	)

	session := paidSession("cs_1", map[string]string{
		"user_id":          "u1",
		"collection_ids":   `["c1","c2"]`,
		"collection_count": "3",
	})

	_, err := rec.Process(context.Background(), session)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestProcessMalformedCollectionIDs(t *testing.T) {
	rec := newTestReconciler(
		&fakeClient{}, &fakeGranter{}, &fakeCatalog{}, &fakeUsers{},
	)

	session := paidSession("cs_1", map[string]string{
		"user_id":        "u1",
		"collection_ids": "c1,c2",
	})

	_, err := rec.Process(context.Background(), session)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestProcessFallsBackToLineItemMetadata(t *testing.T) {
	granter := &fakeGranter{}
	contents := &fakeCatalog{contents: map[string]*catalog.Content{
		"v1": priced("v1", 499),
	}}
	rec := newTestReconciler(&fakeClient{}, granter, contents, &fakeUsers{})

	session := paidSession("cs_1", map[string]string{"user_id": "u1"})
	session.LineItems = []LineItem{
		{Quantity: 1, Metadata: map[string]string{"content_id": "v1"}},
		{Quantity: 1, Metadata: map[string]string{}},
	}

	result, err := rec.Process(context.Background(), session)

	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, result.Granted)
}

func TestProcessNoContentIDs(t *testing.T) {
	rec := newTestReconciler(
		&fakeClient{}, &fakeGranter{}, &fakeCatalog{}, &fakeUsers{},
	)

	session := paidSession("cs_1", map[string]string{"user_id": "u1"})

	_, err := rec.Process(context.Background(), session)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput,
		"a grant is never fabricated from an empty event")
}

func TestProcessResolvesUserByEmail(t *testing.T) {
	granter := &fakeGranter{}
	contents := &fakeCatalog{contents: map[string]*catalog.Content{
		"c1": priced("c1", 1999),
	}}
	users := &fakeUsers{byEmail: map[string]*auth.UserInfo{
		"buyer@example.com": {ID: "u42", Email: "buyer@example.com"},
	}}
	rec := newTestReconciler(&fakeClient{}, granter, contents, users)

	session := paidSession("cs_1", map[string]string{
		"collection_ids": `["c1"]`,
	})
	session.CustomerEmail = "buyer@example.com"

	result, err := rec.Process(context.Background(), session)

	require.NoError(t, err)
	assert.Equal(t, "u42", result.UserID)
}

func TestProcessUnknownPayerEmail(t *testing.T) {
	contents := &fakeCatalog{contents: map[string]*catalog.Content{
		"c1": priced("c1", 1999),
	}}
	rec := newTestReconciler(
		&fakeClient{}, &fakeGranter{}, contents, &fakeUsers{},
	)

	session := paidSession("cs_1", map[string]string{
		"collection_ids": `["c1"]`,
	})
	session.CustomerEmail = "stranger@example.com"

	_, err := rec.Process(context.Background(), session)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestProcessRentalSetsExpiry(t *testing.T) {
	granter := &fakeGranter{}
	rentalHours := 48
	content := priced("c1", 999)
	content.RentalDurationHours = &rentalHours
	contents := &fakeCatalog{contents: map[string]*catalog.Content{
		"c1": content,
	}}
	rec := newTestReconciler(&fakeClient{}, granter, contents, &fakeUsers{})

	session := paidSession("cs_1", map[string]string{
		"user_id":        "u1",
		"collection_ids": `["c1"]`,
	})

	before := time.Now()
	_, err := rec.Process(context.Background(), session)
	after := time.Now()

	require.NoError(t, err)
	require.Len(t, granter.grants, 1)
	expires := granter.grants[0].ExpiresAt
	require.NotNil(t, expires)
	assert.False(t, expires.Before(before.Add(48*time.Hour)))
	assert.False(t, expires.After(after.Add(48*time.Hour)))
}

func TestProcessUnknownContent(t *testing.T) {
	rec := newTestReconciler(
		&fakeClient{}, &fakeGranter{}, &fakeCatalog{}, &fakeUsers{},
	)

	session := paidSession("cs_1", map[string]string{
		"user_id":        "u1",
		"collection_ids": `["ghost"]`,
	})

	result, err := rec.Process(context.Background(), session)

	require.Error(t, err)
	assert.Equal(t, []string{"ghost"}, result.Failed)
}

func TestReconcileFetchesSessionFresh(t *testing.T) {
	granter := &fakeGranter{}
	contents := &fakeCatalog{contents: map[string]*catalog.Content{
		"c1": priced("c1", 1999),
	}}
	client := &fakeClient{sessions: map[string]*CheckoutSession{
		"cs_1": paidSession("cs_1", map[string]string{
			"user_id":        "u1",
			"collection_ids": `["c1"]`,
		}),
	}}
	rec := newTestReconciler(client, granter, contents, &fakeUsers{})

	result, err := rec.Reconcile(context.Background(), "cs_1")

	require.NoError(t, err)
	assert.Equal(t, []string{"c1"}, result.Granted)
}

func TestReconcileProviderFailure(t *testing.T) {
	client := &fakeClient{err: core.ErrUpstream}
	rec := newTestReconciler(
		client, &fakeGranter{}, &fakeCatalog{}, &fakeUsers{},
	)

	_, err := rec.Reconcile(context.Background(), "cs_1")

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUpstream)
}
