package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"conference/internal/adapters/payment"
	"conference/internal/domain/accommodation"
	"conference/internal/domain/course"
	"conference/internal/domain/order"
	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

// ErrSelectionIncomplete is returned when a selection prices to zero and cannot be charged.
var ErrSelectionIncomplete = errors.New("selection is incomplete: computed amount is zero")

// ErrUnknownOrderKind is returned for an order kind other than registration, accommodation or course.
var ErrUnknownOrderKind = errors.New("order kind must be registration, accommodation or course")

// OrderKind names what an order pays for.
type OrderKind string

// Order kinds.
const (
	OrderRegistration  OrderKind = "registration"
	OrderAccommodation OrderKind = "accommodation"
	OrderCourse        OrderKind = "course"
)

// maxReceiptLength is the gateway's receipt limit.
const maxReceiptLength = 40

// Selection is the full form the visitor is about to pay for. Only the fields for Kind are read.
// Amount, currency and payment fields on the forms are ignored.
type Selection struct {
	Kind          OrderKind
	Registration  registration.Registration
	Accommodation accommodation.Booking
	Course        course.Registration
}

// PricedSelection is a selection priced on the server.
type PricedSelection struct {
	// Amount is in minor units of Currency.
	Amount        int64
	Currency      pricing.Currency
	Registration  pricing.Quote
	Accommodation pricing.AccommodationQuote
	Course        course.Course
}

// SeatCounter counts course registrations.
type SeatCounter interface {
	CountByCourse(ctx context.Context, code string) (int, error)
}

// IntentWriter records what an order was opened for.
type IntentWriter interface {
	Save(ctx context.Context, in order.Intent) error
}

// CreateOrderDeps holds dependencies for CreateOrder.
type CreateOrderDeps struct {
	Quotes     QuoteDeps
	Courses    course.Catalog
	Seats      SeatCounter
	Gateway    payment.Gateway
	Intents    IntentWriter
	GenerateID func() string
}

// CreateOrderResult carries the gateway order and the breakdown it was priced from.
type CreateOrderResult struct {
	Order  payment.Order
	Priced PricedSelection
}

// ExecuteCreateOrder validates the form, prices it on the server and opens a gateway order
// for that amount. The form and amount are kept as a pending intent for the checkout to redeem.
// PRE: deps.Gateway and deps.Intents are configured
// POST: A form that fails validation returns its domain error and no order is created
// POST: Returns ErrSelectionIncomplete when the amount is zero, course.ErrSeatsFull for a full course
// INVARIANT: The order amount is the server-computed amount in minor units
func ExecuteCreateOrder(ctx context.Context, sel Selection, deps CreateOrderDeps) (CreateOrderResult, error) {
	if err := prepareSelection(&sel); err != nil {
		return CreateOrderResult{}, err
	}
	priced, err := priceSelection(ctx, sel, deps.Quotes, deps.Courses)
	if err != nil {
		return CreateOrderResult{}, err
	}
	if sel.Kind == OrderCourse {
		sel.Course.CourseName = priced.Course.Title
		if priced.Course.Capped() && deps.Seats != nil {
			taken, err := deps.Seats.CountByCourse(ctx, priced.Course.Code)
			if err != nil {
				return CreateOrderResult{}, fmt.Errorf("count course seats: %w", err)
			}
			if !priced.Course.HasSeat(taken) {
				return CreateOrderResult{}, course.ErrSeatsFull
			}
		}
	}

	receipt := receiptFor(sel.Kind, deps.GenerateID())
	o, err := deps.Gateway.CreateOrder(ctx, priced.Amount, priced.Currency, receipt)
	if err != nil {
		return CreateOrderResult{}, fmt.Errorf("create order: %w", err)
	}

	payload, err := json.Marshal(newIntentPayload(sel, priced))
	if err != nil {
		return CreateOrderResult{}, fmt.Errorf("encode order intent: %w", err)
	}
	in := order.Intent{
		OrderID:   o.ID,
		Kind:      string(sel.Kind),
		Amount:    priced.Amount,
		Currency:  priced.Currency,
		Receipt:   o.Receipt,
		Payload:   string(payload),
		CreatedAt: deps.Quotes.Now(),
	}
	if err := in.Matches(o.Amount, o.Currency); err != nil {
		slog.Error("order_amount_mismatch", "order_id", o.ID, "amount", priced.Amount, "gateway_amount", o.Amount)
		return CreateOrderResult{}, fmt.Errorf("create order: %w", payment.ErrGateway)
	}
	if err := in.Validate(); err != nil {
		return CreateOrderResult{}, err
	}
	if err := deps.Intents.Save(ctx, in); err != nil {
		return CreateOrderResult{}, fmt.Errorf("save order intent: %w", err)
	}
	slog.Info("order_created", "kind", string(sel.Kind), "order_id", o.ID,
		"amount", priced.Amount, "currency", string(priced.Currency))
	return CreateOrderResult{Order: o, Priced: priced}, nil
}

// prepareSelection normalizes the form for sel.Kind and checks everything the visitor typed.
func prepareSelection(sel *Selection) error {
	switch sel.Kind {
	case OrderRegistration:
		sel.Registration.Normalize()
		return sel.Registration.ValidateForm()
	case OrderAccommodation:
		sel.Accommodation.Normalize()
		return sel.Accommodation.ValidateForm()
	case OrderCourse:
		return sel.Course.Validate()
	default:
		return ErrUnknownOrderKind
	}
}

// priceSelection computes the amount for sel from the rates active now.
// POST: Returns ErrSelectionIncomplete rather than a zero amount
func priceSelection(ctx context.Context, sel Selection, quotes QuoteDeps, courses course.Catalog) (PricedSelection, error) {
	var out PricedSelection
	switch sel.Kind {
	case OrderRegistration:
		r := sel.Registration
		q := ExecuteQuote(ctx, QuoteInput{
			Category:             r.Category,
			EventType:            r.EventType,
			NumberOfAccompanying: r.NumberOfAccompanying,
			CouponCode:           r.CouponCode,
		}, quotes)
		out.Registration = q
		out.Amount, out.Currency = q.Amount, q.Currency
	case OrderAccommodation:
		b := sel.Accommodation
		q := ExecuteAccommodationQuote(ctx, AccommodationQuoteInput{
			DelegateType: b.DelegateType,
			RoomType:     b.RoomType,
			CheckIn:      b.CheckInDate,
			CheckOut:     b.CheckOutDate,
		}, quotes)
		out.Accommodation = q
		out.Amount, out.Currency = q.Amount, q.Currency
	case OrderCourse:
		c, err := courses.Find(sel.Course.CourseCode)
		if err != nil {
			return PricedSelection{}, err
		}
		out.Course = c
		out.Amount, out.Currency = pricing.ToMinor(c.Fee), pricing.INR
	default:
		return PricedSelection{}, ErrUnknownOrderKind
	}
	if out.Amount <= 0 {
		return PricedSelection{}, ErrSelectionIncomplete
	}
	return out, nil
}

func receiptFor(kind OrderKind, id string) string {
	prefix := string(kind)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	r := prefix + "_" + strings.ReplaceAll(id, "-", "")
	if len(r) > maxReceiptLength {
		r = r[:maxReceiptLength]
	}
	return r
}
