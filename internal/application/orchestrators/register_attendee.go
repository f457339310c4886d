package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"conference/internal/adapters/payment"
	"conference/internal/domain/order"
	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

// Checkout is the gateway callback the browser forwards after payment.
type Checkout struct {
	OrderID   string
	PaymentID string
	Signature string
	// ClientAmount is what the page showed, in major units. When set it must equal the order amount.
	ClientAmount *float64
}

// CompletionResult is returned once a paid or offline record is saved.
type CompletionResult struct {
	ID string
	// AmountPaid is in major units of Currency.
	AmountPaid  float64
	Currency    pricing.Currency
	EmailStatus string
	Message     string
}

// RegistrationWriter defines the store interface needed to save registrations.
type RegistrationWriter interface {
	Save(ctx context.Context, r registration.Registration) error
}

// RegisterAttendeeInput carries the checkout callback for a registration order.
// The form and fee come from the order's intent.
type RegisterAttendeeInput struct {
	Checkout Checkout
}

// RegisterAttendeeDeps holds dependencies for RegisterAttendee.
type RegisterAttendeeDeps struct {
	Store      RegistrationWriter
	Intents    IntentStore
	Gateway    payment.Gateway
	Notifier   *Notifier
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteRegisterAttendee saves a paid conference registration and sends its confirmation.
// PRE: The checkout callback came from the gateway for an order opened by ExecuteCreateOrder
// POST: Registration persisted with the order's form and amount, or an error and nothing saved
// POST: A second checkout for the same order returns order.ErrAlreadyUsed
// POST: An email failure does not undo the save; EmailStatus reports it
func ExecuteRegisterAttendee(ctx context.Context, input RegisterAttendeeInput, deps RegisterAttendeeDeps) (CompletionResult, error) {
	co := input.Checkout
	if err := deps.Gateway.VerifyCheckout(co.OrderID, co.PaymentID, co.Signature); err != nil {
		slog.Warn("checkout_rejected", "kind", RecordRegistration, "order_id", co.OrderID, "error", err.Error())
		return CompletionResult{}, err
	}
	in, p, err := redeem(ctx, deps.Intents, OrderRegistration, co)
	if err != nil {
		return CompletionResult{}, err
	}
	if p.Registration == nil || p.Quote == nil {
		return CompletionResult{}, fmt.Errorf("order %s: %w", co.OrderID, errIntentPayload)
	}

	now := deps.Now()
	r, q := *p.Registration, *p.Quote
	r.ID = deps.GenerateID()
	r.AmountPaid = pricing.ToMajor(in.Amount)
	r.Currency = in.Currency
	r.PaymentID = co.PaymentID
	r.OrderID = co.OrderID
	r.PaymentMode = registration.PaymentOnline
	r.CouponCode = q.CouponCode
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := r.Validate(); err != nil {
		return CompletionResult{}, err
	}
	err = settle(ctx, deps.Intents, co.OrderID, r.ID, now, func() error { return deps.Store.Save(ctx, r) })
	if err != nil {
		if errors.Is(err, order.ErrAlreadyUsed) {
			return CompletionResult{}, err
		}
		return CompletionResult{}, fmt.Errorf("save registration: %w", err)
	}
	slog.Info("registration_saved", "id", r.ID, "payment_id", r.PaymentID, "order_id", r.OrderID,
		"amount", r.AmountPaid, "currency", string(r.Currency), "tier", string(q.Tier))

	req, err := registrationEmail(r, q)
	status, msg := confirm(ctx, deps.Notifier, RecordRegistration, r.ID, req, err)
	return CompletionResult{
		ID:          r.ID,
		AmountPaid:  r.AmountPaid,
		Currency:    r.Currency,
		EmailStatus: status,
		Message:     msg,
	}, nil
}
