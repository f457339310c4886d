// Package payment talks to the card payment gateway.
package payment

import (
	"context"
	"errors"
	"time"

	"conference/internal/domain/pricing"
)

var (
	ErrInvalidAmount    = errors.New("amount must be positive and in minor units")
	ErrInvalidSignature = errors.New("checkout signature does not match")
	ErrGateway          = errors.New("payment gateway request failed")
)

// Order is a gateway order that the checkout widget pays against.
type Order struct {
	ID       string
	Amount   int64
	Currency pricing.Currency
	Receipt  string
	Status   string
	// KeyID is the public key the browser checkout needs.
	KeyID string
}

// Customer identifies who a payment link is sent to.
type Customer struct {
	Name    string
	Email   string
	Contact string
}

// LinkRequest describes a payment link. Amount is in minor units.
type LinkRequest struct {
	Amount      int64
	Currency    pricing.Currency
	Description string
	Customer    Customer
	ExpireBy    time.Time
	Reference   string
}

// Link is a created payment link.
type Link struct {
	ID       string
	ShortURL string
	Status   string
}

// Gateway is the payment provider port. All amounts are minor units.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency pricing.Currency, receipt string) (Order, error)
	CreatePaymentLink(ctx context.Context, req LinkRequest) (Link, error)
	// VerifyCheckout confirms that the browser callback came from the gateway.
	VerifyCheckout(orderID, paymentID, signature string) error
}

// LinkExpiry is the expiry applied to admin-issued payment links.
var LinkExpiry = time.Date(2030, time.December, 31, 0, 0, 0, 0, time.UTC)
