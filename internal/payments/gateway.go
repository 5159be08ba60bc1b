package payments

import "context"

// CheckoutParams describes the session requested from the payment gateway.
type CheckoutParams struct {
	Amount     float64
	Currency   string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// CheckoutSession is the gateway's handle for a pending payment attempt.
type CheckoutSession struct {
	SessionID   string
	RedirectURL string
}

// SessionStatus is the gateway's live view of a checkout session.
type SessionStatus struct {
	Status        string
	PaymentStatus string
	AmountTotal   float64
	Currency      string
}

// WebhookEvent is a verified, parsed gateway notification. Events the
// gateway sends but this system does not act on decode to a zero SessionID.
type WebhookEvent struct {
	SessionID     string
	PaymentStatus string
	Metadata      map[string]string
}

// Gateway is the payment-session API consumed by the reconciliation flow.
type Gateway interface {
	CreateSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
	GetStatus(ctx context.Context, sessionID string) (*SessionStatus, error)
	VerifyWebhook(payload []byte, sigHeader string) (*WebhookEvent, error)
}
