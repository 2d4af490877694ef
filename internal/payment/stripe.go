// AngelaMos | 2026
// stripe.go

package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/reelvault/reelvault/internal/config"
	"github.com/reelvault/reelvault/internal/core"
)

// StripeClient is a minimal REST client for the Stripe checkout API. It only
// covers session retrieval and webhook signature verification; nothing here
// creates provider objects.
type StripeClient struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
}

func NewStripeClient(cfg config.PaymentConfig) *StripeClient {
	return &StripeClient{
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       strings.TrimSuffix(cfg.APIBaseURL, "/"),
		httpClient:    &http.Client{Timeout: cfg.CallTimeout},
	}
}

type stripeSession struct {
	ID             string            `json:"id"`
	PaymentStatus  string            `json:"payment_status"`
	Status         string            `json:"status"`
	AmountTotal    int64             `json:"amount_total"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
	CustomerEmail  string            `json:"customer_email"`
	CustomerDetail *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	LineItems struct {
		Data []struct {
			Quantity int64 `json:"quantity"`
			Price    struct {
				Metadata map[string]string `json:"metadata"`
			} `json:"price"`
		} `json:"data"`
	} `json:"line_items"`
}

func (c *StripeClient) GetCheckoutSession(
	ctx context.Context,
	sessionID string,
) (*CheckoutSession, error) {
	params := url.Values{}
	params.Add("expand[]", "line_items")

	body, err := c.request(
		ctx,
		http.MethodGet,
		"/checkout/sessions/"+url.PathEscape(sessionID),
		params,
	)
	if err != nil {
		return nil, err
	}

	var raw stripeSession
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf(
			"parse checkout session: %v: %w",
			err,
			core.ErrUpstream,
		)
	}

	session := &CheckoutSession{
		ID:            raw.ID,
		PaymentStatus: raw.PaymentStatus,
		Status:        raw.Status,
		AmountTotal:   raw.AmountTotal,
		Currency:      raw.Currency,
		CustomerEmail: raw.CustomerEmail,
		Metadata:      raw.Metadata,
	}
	if session.CustomerEmail == "" && raw.CustomerDetail != nil {
		session.CustomerEmail = raw.CustomerDetail.Email
	}
	for _, item := range raw.LineItems.Data {
		session.LineItems = append(session.LineItems, LineItem{
			Quantity: item.Quantity,
			Metadata: item.Price.Metadata,
		})
	}

	return session, nil
}

// VerifyWebhookSignature checks the provider signature header, format
// "t=<unix>,v1=<hex hmac>", where the mac is HMAC-SHA256 over
// "<timestamp>.<payload>". Any failure is core.ErrBadSignature; callers
// reject without retry.
func (c *StripeClient) VerifyWebhookSignature(
	payload []byte,
	signatureHeader string,
) error {
	var timestamp string
	var signatures []string

	for _, part := range strings.Split(signatureHeader, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf(
			"verify webhook: malformed signature header: %w",
			core.ErrBadSignature,
		)
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return nil
		}
	}

	return fmt.Errorf(
		"verify webhook: signature mismatch: %w",
		core.ErrBadSignature,
	)
}

func (c *StripeClient) request(
	ctx context.Context,
	method, path string,
	params url.Values,
) ([]byte, error) {
	endpoint := c.baseURL + path

	var req *http.Request
	var err error
	if method == http.MethodGet {
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}
		req, err = http.NewRequestWithContext(ctx, method, endpoint, nil)
	} else {
		req, err = http.NewRequestWithContext(
			ctx,
			method,
			endpoint,
			strings.NewReader(params.Encode()),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}

	req.SetBasicAuth(c.secretKey, "")
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider call: %v: %w", err, core.ErrUpstream)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf(
			"read provider response: %v: %w",
			err,
			core.ErrUpstream,
		)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("provider session: %w", core.ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf(
			"provider returned %s: %w",
			resp.Status,
			core.ErrUpstream,
		)
	}

	return body, nil
}

var _ Client = (*StripeClient)(nil)
