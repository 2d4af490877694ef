// AngelaMos | 2026
// handler_test.go

package payment

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelvault/reelvault/internal/catalog"
	"github.com/reelvault/reelvault/internal/core"
)

type fakeMinter struct {
	minted []string
}

func (f *fakeMinter) MintAccessToken(
	_ context.Context,
	userID, contentID string,
) (string, time.Time, error) {
	f.minted = append(f.minted, userID+"/"+contentID)
	return "opaque-token", time.Now().Add(time.Hour), nil
}

func newWebhookHandler(client Client) (*Handler, *fakeGranter) {
	granter := &fakeGranter{}
	contents := &fakeCatalog{contents: map[string]*catalog.Content{
		"c1": priced("c1", 1999),
	}}
	logger := slog.New(slog.DiscardHandler)
	rec := NewReconciler(client, granter, contents, &fakeUsers{}, logger)
	return NewHandler(client, rec, &fakeMinter{}, logger), granter
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	client := &fakeClient{sigErr: core.ErrBadSignature}
	handler, granter := newWebhookHandler(client)

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook",
		strings.NewReader(`{"type":"checkout.session.completed"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=forged")
	rec := httptest.NewRecorder()

	handler.Webhook(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, granter.grants, "nothing reconciles on a bad signature")
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	handler, granter := newWebhookHandler(&fakeClient{})

	req := httptest.NewRequest(http.MethodPost, "/payments/webhook",
		strings.NewReader(`{"id":"evt_1","type":"invoice.paid","data":{"object":{}}}`))
	rec := httptest.NewRecorder()

	handler.Webhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, granter.grants)
	assert.Contains(t, rec.Body.String(), `"received":true`)
	assert.Contains(t, rec.Body.String(), `"handled":false`)
}

func TestWebhookReconcilesFreshSession(t *testing.T) {
	// The webhook body claims unpaid; the provider says paid. Provider wins.
	client := &fakeClient{sessions: map[string]*CheckoutSession{
		"cs_1": paidSession("cs_1", map[string]string{
			"user_id":        "u1",
			"collection_ids": `["c1"]`,
		}),
	}}
	handler, granter := newWebhookHandler(client)

	body := `{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "payment_status": "unpaid"}}
	}`
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook",
		strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Webhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, granter.grants, 1)
	assert.Equal(t, "c1", granter.grants[0].ContentID)
}

func TestWebhookMissingSessionID(t *testing.T) {
	handler, _ := newWebhookHandler(&fakeClient{})

	body := `{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {}}
	}`
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook",
		strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Webhook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookProviderFailureIsRetryable(t *testing.T) {
	client := &fakeClient{err: core.ErrUpstream}
	handler, _ := newWebhookHandler(client)

	body := `{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1"}}
	}`
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook",
		strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Webhook(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code,
		"provider retries on 5xx-class responses")
}

const (
	grantedCollectionID = "5f3e8b1c-9a2d-4e7f-8c6b-1d2e3f4a5b6c"
	memberVideoID       = "a1b2c3d4-0000-4e7f-8c6b-1d2e3f4a5b6c"
	unrelatedContentID  = "9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b"
)

func newVerifyHandler(t *testing.T) (*Handler, *fakeMinter) {
	t.Helper()
	client := &fakeClient{sessions: map[string]*CheckoutSession{
		"cs_1": paidSession("cs_1", map[string]string{
			"user_id":        "u1",
			"collection_ids": `["` + grantedCollectionID + `"]`,
		}),
	}}
	granter := &fakeGranter{}
	collectionID := grantedCollectionID
	member := priced(memberVideoID, 499)
	member.Kind = catalog.ContentVideo
	member.CollectionID = &collectionID
	contents := &fakeCatalog{contents: map[string]*catalog.Content{
		grantedCollectionID: priced(grantedCollectionID, 1999),
		memberVideoID:       member,
		unrelatedContentID:  priced(unrelatedContentID, 999),
	}}
	logger := slog.New(slog.DiscardHandler)
	minter := &fakeMinter{}
	reconciler := NewReconciler(client, granter, contents, &fakeUsers{}, logger)
	return NewHandler(client, reconciler, minter, logger), minter
}

func verifyRequest(contentID string) *http.Request {
	body := `{"session_id": "cs_1", "content_id": "` + contentID + `"}`
	return httptest.NewRequest(http.MethodPost, "/payments/verify",
		strings.NewReader(body))
}

func TestVerifyMintsTokenForAnonymousBuyer(t *testing.T) {
	handler, minter := newVerifyHandler(t)

	rec := httptest.NewRecorder()
	handler.Verify(rec, verifyRequest(grantedCollectionID))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "opaque-token")
	assert.Equal(t, []string{"u1/" + grantedCollectionID}, minter.minted)
}

func TestVerifyMintsTokenForVideoInGrantedCollection(t *testing.T) {
	handler, minter := newVerifyHandler(t)

	rec := httptest.NewRecorder()
	handler.Verify(rec, verifyRequest(memberVideoID))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"u1/" + memberVideoID}, minter.minted)
}

func TestVerifyRefusesTokenForUngrantedContent(t *testing.T) {
	// The session paid for one collection; naming any other catalog item
	// must not produce a token.
	handler, minter := newVerifyHandler(t)

	rec := httptest.NewRecorder()
	handler.Verify(rec, verifyRequest(unrelatedContentID))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, minter.minted)
	assert.NotContains(t, rec.Body.String(), "opaque-token")
}

func TestVerifyRefusesTokenForUnknownContent(t *testing.T) {
	handler, minter := newVerifyHandler(t)

	rec := httptest.NewRecorder()
	handler.Verify(rec, verifyRequest("00000000-0000-4000-8000-000000000000"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, minter.minted)
}

func TestVerifyRequiresSessionID(t *testing.T) {
	handler, _ := newWebhookHandler(&fakeClient{})

	req := httptest.NewRequest(http.MethodPost, "/payments/verify",
		strings.NewReader(`{"content_id": "not-a-uuid"}`))
	rec := httptest.NewRecorder()

	handler.Verify(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
