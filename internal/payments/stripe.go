package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
)

// StripeGateway implements Gateway on top of Stripe Checkout sessions.
type StripeGateway struct {
	webhookSecret string
}

func NewStripeGateway(apiKey, webhookSecret string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreateSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.Currency),
					UnitAmount: stripe.Int64(toMinorUnits(p.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Order"),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	for key, value := range p.Metadata {
		params.AddMetadata(key, value)
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, err
	}

	return &CheckoutSession{SessionID: sess.ID, RedirectURL: sess.URL}, nil
}

func (g *StripeGateway) GetStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, err
	}

	return &SessionStatus{
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		AmountTotal:   fromMinorUnits(sess.AmountTotal),
		Currency:      string(sess.Currency),
	}, nil
}

func (g *StripeGateway) VerifyWebhook(payload []byte, sigHeader string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		return &WebhookEvent{
			SessionID:     sess.ID,
			PaymentStatus: string(sess.PaymentStatus),
			Metadata:      sess.Metadata,
		}, nil
	default:
		// Verified but not actionable.
		return &WebhookEvent{}, nil
	}
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}
