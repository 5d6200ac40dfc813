package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/pricing"
)

// StripeProvider implements Provider on Stripe Checkout Sessions.
type StripeProvider struct {
	currency   string
	successURL string
	cancelURL  string
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider configures the Stripe client. The secret key is set
// process-wide, matching how the stripe-go bindings are initialized.
func NewStripeProvider(secretKey, currency, successURL, cancelURL string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{
		currency:   currency,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// InitiateCheckout creates a Checkout Session charging the order's total.
// The coupon discount is applied to the total rather than per line, so the
// session carries a single consolidated line item per product at its
// effective price plus a proportional adjustment already folded into TotalAmt.
func (s *StripeProvider) InitiateCheckout(ctx context.Context, order *domain.Order) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(order.ID.String()),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.currency),
					UnitAmount: stripe.Int64(minorUnits(order.TotalAmt)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(orderLabel(order)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

// minorUnits converts a display amount to the gateway's integer minor units.
func minorUnits(amount decimal.Decimal) int64 {
	return pricing.RoundDisplay(amount).Mul(decimal.NewFromInt(100)).IntPart()
}

func orderLabel(order *domain.Order) string {
	if len(order.Items) == 1 {
		return order.Items[0].ProductName
	}
	return fmt.Sprintf("Order of %d items", len(order.Items))
}
