package orchestrators

import (
	"context"
	"log/slog"
	"time"

	"conference/internal/domain/pricing"
)

// QuoteInput is a registration fee selection.
type QuoteInput struct {
	Category             string
	EventType            string
	NumberOfAccompanying int
	CouponCode           string
}

// AccommodationQuoteInput is a hotel stay selection.
type AccommodationQuoteInput struct {
	DelegateType string
	RoomType     string
	CheckIn      time.Time
	CheckOut     time.Time
}

// QuoteDeps holds dependencies for the quote orchestrators.
type QuoteDeps struct {
	Calculator *pricing.Calculator
	Now        func() time.Time
}

// ExecuteQuote prices a registration selection at the current time.
// POST: Incomplete or unknown selections return a zero-amount quote, never an error
// POST: An invalid coupon leaves CouponApplied false and the full amount
func ExecuteQuote(ctx context.Context, input QuoteInput, deps QuoteDeps) pricing.Quote {
	return deps.Calculator.Calculate(ctx, pricing.QuoteRequest{
		Category:             input.Category,
		EventType:            input.EventType,
		NumberOfAccompanying: max(input.NumberOfAccompanying, 0),
		At:                   deps.Now(),
		CouponCode:           input.CouponCode,
	})
}

// ExecuteAccommodationQuote prices a stay using the rates active now.
// POST: Amount is zero when the delegate or room is missing or the stay has no nights
func ExecuteAccommodationQuote(_ context.Context, input AccommodationQuoteInput, deps QuoteDeps) pricing.AccommodationQuote {
	tables, err := deps.Calculator.Tables(deps.Now())
	if err != nil {
		slog.Error("rate_tables_unavailable", "error", err.Error())
		return pricing.AccommodationQuote{Currency: pricing.INR}
	}
	return tables.QuoteAccommodation(input.DelegateType, input.RoomType, stayNights(input.CheckIn, input.CheckOut))
}

// stayNights is pricing.Nights with unset dates counting as no stay.
func stayNights(checkIn, checkOut time.Time) int {
	if checkIn.IsZero() || checkOut.IsZero() {
		return 0
	}
	return pricing.Nights(checkIn, checkOut)
}
