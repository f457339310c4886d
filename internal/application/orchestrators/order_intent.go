package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"conference/internal/domain/accommodation"
	"conference/internal/domain/course"
	"conference/internal/domain/order"
	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

// errIntentPayload means a stored intent does not carry the form its kind needs.
var errIntentPayload = errors.New("order intent payload is incomplete")

// IntentStore persists what each gateway order was opened for.
type IntentStore interface {
	Save(ctx context.Context, in order.Intent) error
	GetByOrderID(ctx context.Context, orderID string) (order.Intent, error)
	// Claim moves a pending intent to completed for recordID.
	// POST: Returns order.ErrAlreadyUsed when the intent is no longer pending
	Claim(ctx context.Context, orderID, recordID string, at time.Time) error
	// Release reopens a claimed intent whose record could not be saved.
	Release(ctx context.Context, orderID string) error
}

// intentPayload is the validated form an order was priced from. Only the fields
// for the intent's kind are set.
type intentPayload struct {
	Registration  *registration.Registration  `json:"registration,omitempty"`
	Quote         *pricing.Quote              `json:"quote,omitempty"`
	Accommodation *accommodation.Booking      `json:"accommodation,omitempty"`
	Stay          *pricing.AccommodationQuote `json:"stay,omitempty"`
	Course        *course.Registration        `json:"course,omitempty"`
}

func newIntentPayload(sel Selection, priced PricedSelection) intentPayload {
	var p intentPayload
	switch sel.Kind {
	case OrderRegistration:
		p.Registration, p.Quote = &sel.Registration, &priced.Registration
	case OrderAccommodation:
		p.Accommodation, p.Stay = &sel.Accommodation, &priced.Accommodation
	case OrderCourse:
		p.Course = &sel.Course
	}
	return p
}

// redeem loads the intent behind a verified checkout.
// PRE: co passed Gateway.VerifyCheckout
// POST: Returns order.ErrNotFound, order.ErrKindMismatch, order.ErrAlreadyUsed or
// order.ErrChargeMismatch when the checkout cannot complete a kind purchase
func redeem(ctx context.Context, intents IntentStore, kind OrderKind, co Checkout) (order.Intent, intentPayload, error) {
	in, err := intents.GetByOrderID(ctx, co.OrderID)
	if err != nil {
		if !errors.Is(err, order.ErrNotFound) {
			err = fmt.Errorf("load order intent: %w", err)
		}
		return order.Intent{}, intentPayload{}, err
	}
	if err := in.Redeemable(string(kind)); err != nil {
		slog.Warn("checkout_rejected", "kind", string(kind), "order_id", co.OrderID,
			"order_kind", in.Kind, "error", err.Error())
		return order.Intent{}, intentPayload{}, err
	}
	if co.ClientAmount != nil {
		if err := in.Matches(pricing.ToMinor(*co.ClientAmount), in.Currency); err != nil {
			slog.Warn("checkout_rejected", "kind", string(kind), "order_id", co.OrderID,
				"amount", in.Amount, "client_amount", *co.ClientAmount, "error", err.Error())
			return order.Intent{}, intentPayload{}, err
		}
	}
	var p intentPayload
	if err := json.Unmarshal([]byte(in.Payload), &p); err != nil {
		return order.Intent{}, intentPayload{}, fmt.Errorf("decode order intent %s: %w", in.OrderID, err)
	}
	return in, p, nil
}

// settle claims the intent for recordID and runs save. A failed save reopens the intent
// so the same payment can be completed again.
// INVARIANT: At most one record is saved per order
func settle(ctx context.Context, intents IntentStore, orderID, recordID string, at time.Time, save func() error) error {
	if err := intents.Claim(ctx, orderID, recordID, at); err != nil {
		return err
	}
	if err := save(); err != nil {
		if rerr := intents.Release(ctx, orderID); rerr != nil {
			slog.Error("order_release_failed", "order_id", orderID, "error", rerr.Error())
		}
		return err
	}
	return nil
}
