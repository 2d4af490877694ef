// AngelaMos | 2026
// client.go

package payment

import (
	"context"
)

// CheckoutSession is the provider-neutral view of a completed checkout. The
// reconciler consumes this and nothing else, so it can be fed from the REST
// client or from a fake in tests.
type CheckoutSession struct {
	ID            string
	PaymentStatus string
	Status        string
	AmountTotal   int64
	Currency      string
	CustomerEmail string
	Metadata      map[string]string
	LineItems     []LineItem
}

type LineItem struct {
	Quantity int64
	Metadata map[string]string
}

// Paid reports whether the session actually collected money. Sessions in any
// other state never produce a grant.
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == "paid"
}

// Client talks to the payment provider. Implementations must bound their
// calls and surface provider failures as core.ErrUpstream so callers can
// distinguish retryable errors from rejections.
type Client interface {
	GetCheckoutSession(
		ctx context.Context,
		sessionID string,
	) (*CheckoutSession, error)
	VerifyWebhookSignature(payload []byte, signatureHeader string) error
}
