package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"conference/internal/adapters/payment"
	"conference/internal/domain/accommodation"
	"conference/internal/domain/order"
	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

// BookingWriter defines the store interface needed to save bookings.
type BookingWriter interface {
	Save(ctx context.Context, b accommodation.Booking) error
}

// BookAccommodationInput carries the checkout callback for an accommodation order.
type BookAccommodationInput struct {
	Checkout Checkout
}

// BookAccommodationDeps holds dependencies for BookAccommodation.
type BookAccommodationDeps struct {
	Store      BookingWriter
	Intents    IntentStore
	Gateway    payment.Gateway
	Notifier   *Notifier
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteBookAccommodation saves a paid hotel booking and sends its confirmation.
// PRE: The checkout callback came from the gateway for an order opened by ExecuteCreateOrder
// POST: Booking persisted with the order's stay and amount, or an error and nothing saved
func ExecuteBookAccommodation(ctx context.Context, input BookAccommodationInput, deps BookAccommodationDeps) (CompletionResult, error) {
	co := input.Checkout
	if err := deps.Gateway.VerifyCheckout(co.OrderID, co.PaymentID, co.Signature); err != nil {
		slog.Warn("checkout_rejected", "kind", RecordAccommodation, "order_id", co.OrderID, "error", err.Error())
		return CompletionResult{}, err
	}
	in, p, err := redeem(ctx, deps.Intents, OrderAccommodation, co)
	if err != nil {
		return CompletionResult{}, err
	}
	if p.Accommodation == nil || p.Stay == nil {
		return CompletionResult{}, fmt.Errorf("order %s: %w", co.OrderID, errIntentPayload)
	}

	now := deps.Now()
	b := *p.Accommodation
	b.ID = deps.GenerateID()
	b.AmountPaid = pricing.ToMajor(in.Amount)
	b.Currency = in.Currency
	b.PaymentID = co.PaymentID
	b.OrderID = co.OrderID
	b.PaymentMode = registration.PaymentOnline
	b.CreatedAt = now
	b.UpdatedAt = now
	if err := b.Validate(); err != nil {
		return CompletionResult{}, err
	}
	err = settle(ctx, deps.Intents, co.OrderID, b.ID, now, func() error { return deps.Store.Save(ctx, b) })
	if err != nil {
		if errors.Is(err, order.ErrAlreadyUsed) {
			return CompletionResult{}, err
		}
		return CompletionResult{}, fmt.Errorf("save accommodation: %w", err)
	}
	slog.Info("accommodation_saved", "id", b.ID, "payment_id", b.PaymentID, "order_id", b.OrderID,
		"nights", p.Stay.Nights, "amount", b.AmountPaid, "currency", string(b.Currency))

	req, err := accommodationEmail(b)
	status, msg := confirm(ctx, deps.Notifier, RecordAccommodation, b.ID, req, err)
	return CompletionResult{
		ID:          b.ID,
		AmountPaid:  b.AmountPaid,
		Currency:    b.Currency,
		EmailStatus: status,
		Message:     msg,
	}, nil
}
