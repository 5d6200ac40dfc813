// Package payment abstracts online payment collection behind a Provider
// interface with a Stripe Checkout implementation and a mock for tests.
package payment

import (
	"context"

	"github.com/verdantmarket/verdant/internal/domain"
)

// Session is a hosted payment page created for an order. The customer is
// redirected to URL to complete payment.
type Session struct {
	ID  string
	URL string
}

// Provider creates payment sessions for orders placed with an online
// payment method. Cash-on-delivery orders never touch a Provider.
type Provider interface {
	InitiateCheckout(ctx context.Context, order *domain.Order) (*Session, error)
}
