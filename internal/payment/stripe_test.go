// AngelaMos | 2026
// stripe_test.go

package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelvault/reelvault/internal/config"
	"github.com/reelvault/reelvault/internal/core"
)

const testWebhookSecret = "whsec_test"

func signPayload(t *testing.T, payload []byte, timestamp string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestStripeClient(baseURL string) *StripeClient {
	return NewStripeClient(config.PaymentConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		APIBaseURL:    baseURL,
		CallTimeout:   5 * time.Second,
	})
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := newTestStripeClient("https://api.stripe.test/v1")
	payload := []byte(`{"type":"checkout.session.completed"}`)
	timestamp := "1756500000"
	sig := signPayload(t, payload, timestamp)

	tests := []struct {
		name    string
		header  string
		payload []byte
		wantErr bool
	}{
		{
			name:    "valid",
			header:  fmt.Sprintf("t=%s,v1=%s", timestamp, sig),
			payload: payload,
		},
		{
			name:    "valid among multiple v1 entries",
			header:  fmt.Sprintf("t=%s,v1=deadbeef,v1=%s", timestamp, sig),
			payload: payload,
		},
		{
			name:    "wrong signature",
			header:  fmt.Sprintf("t=%s,v1=deadbeef", timestamp),
			payload: payload,
			wantErr: true,
		},
		{
			name:    "tampered payload",
			header:  fmt.Sprintf("t=%s,v1=%s", timestamp, sig),
			payload: []byte(`{"type":"forged"}`),
			wantErr: true,
		},
		{
			name:    "timestamp swapped",
			header:  fmt.Sprintf("t=1756599999,v1=%s", sig),
			payload: payload,
			wantErr: true,
		},
		{
			name:    "missing timestamp",
			header:  "v1=" + sig,
			payload: payload,
			wantErr: true,
		},
		{
			name:    "empty header",
			header:  "",
			payload: payload,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.VerifyWebhookSignature(tt.payload, tt.header)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, core.ErrBadSignature)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGetCheckoutSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/checkout/sessions/cs_123", r.URL.Path)
			assert.Equal(t, "line_items", r.URL.Query().Get("expand[]"))

			user, _, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "sk_test_123", user)

			fmt.Fprint(w, `{
				"id": "cs_123",
				"payment_status": "paid",
				"status": "complete",
				"amount_total": 4998,
				"currency": "usd",
				"metadata": {"user_id": "u1"},
				"customer_details": {"email": "buyer@example.com"},
				"line_items": {
					"data": [
						{"quantity": 1, "price": {"metadata": {"content_id": "c1"}}},
						{"quantity": 1, "price": {"metadata": {"content_id": "c2"}}}
					]
				}
			}`)
		},
	))
	defer server.Close()

	client := newTestStripeClient(server.URL)
	session, err := client.GetCheckoutSession(context.Background(), "cs_123")

	require.NoError(t, err)
	assert.Equal(t, "cs_123", session.ID)
	assert.True(t, session.Paid())
	assert.Equal(t, int64(4998), session.AmountTotal)
	assert.Equal(t, "buyer@example.com", session.CustomerEmail,
		"falls back to customer_details when customer_email is absent")
	assert.Equal(t, "u1", session.Metadata["user_id"])
	require.Len(t, session.LineItems, 2)
	assert.Equal(t, "c1", session.LineItems[0].Metadata["content_id"])
}

func TestGetCheckoutSessionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": {"message": "No such checkout session"}}`)
		},
	))
	defer server.Close()

	client := newTestStripeClient(server.URL)
	_, err := client.GetCheckoutSession(context.Background(), "cs_missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGetCheckoutSessionProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	))
	defer server.Close()

	client := newTestStripeClient(server.URL)
	_, err := client.GetCheckoutSession(context.Background(), "cs_123")

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUpstream)
}
