package pricing

import (
	"context"
	"time"
)

// RateSource supplies the USD to INR exchange rate.
// Implementations never fail; they substitute a fallback rate instead.
type RateSource interface {
	UsdToInr(ctx context.Context) float64
}

// FixedRate is a RateSource that always returns the same rate.
type FixedRate float64

func (r FixedRate) UsdToInr(context.Context) float64 { return float64(r) }

// QuoteRequest is a registrant's selection at a point in time.
type QuoteRequest struct {
	Category             string
	EventType            string
	NumberOfAccompanying int
	At                   time.Time
	CouponCode           string
}

// Quote is the fee breakdown. All int64 amounts are minor units of Currency.
type Quote struct {
	Amount              int64
	Currency            Currency
	Tier                Tier
	RateVersion         string
	BaseFee             string
	ConvenienceFee      string
	BaseFeeMinor        int64
	ConvenienceFeeMinor int64

	// PrimaryAmount is the registrant's share after any discount.
	PrimaryAmount         int64
	EffectiveAccompanying int
	AccompanyingAmount    int64

	CouponApplied  bool
	CouponCode     string
	Discount       int64
	OriginalAmount int64
}

// Ready reports whether the quote can be charged. A zero amount means the selection is incomplete.
func (q Quote) Ready() bool {
	return q.Amount > 0
}

// Calculator combines the rate schedule, tier resolver, coupon validator and currency converter.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	schedule Schedule
	rates    RateSource
}

// NewCalculator creates a fee calculator.
func NewCalculator(schedule Schedule, rates RateSource) *Calculator {
	return &Calculator{schedule: schedule, rates: rates}
}

// Schedule exposes the snapshots the calculator prices against.
func (c *Calculator) Schedule() Schedule {
	return c.schedule
}

// Tables returns the snapshot active at the given time.
func (c *Calculator) Tables(at time.Time) (Tables, error) {
	return c.schedule.Active(at)
}

// Calculate prices a registration.
// PRE: req.NumberOfAccompanying >= 0
// POST: Unknown selections return {Amount: 0, Currency: INR}
// POST: Amount = PrimaryAmount + AccompanyingAmount
// POST: International categories bill at most one accompanying person at the undiscounted primary rate
func (c *Calculator) Calculate(ctx context.Context, req QuoteRequest) Quote {
	empty := Quote{Currency: INR}
	tables, err := c.schedule.Active(req.At)
	if err != nil {
		return empty
	}
	tier := tables.Cutoffs.Resolve(req.At)
	empty.Tier = tier
	empty.RateVersion = tables.Version

	rate, ok := tables.PrimaryRate(req.Category, req.EventType)
	if !ok {
		return empty
	}
	fee, ok := rate.At(tier)
	if !ok {
		return empty
	}

	baseMinor := ToMinor(fee.Fee)
	convMinor := ToMinor(fee.ConvenienceFee)
	mainTotal := baseMinor + convMinor

	q := Quote{
		Currency:            rate.Currency,
		Tier:                tier,
		RateVersion:         tables.Version,
		BaseFee:             FormatMoney(baseMinor, rate.Currency),
		ConvenienceFee:      FormatMoney(convMinor, rate.Currency),
		BaseFeeMinor:        baseMinor,
		ConvenienceFeeMinor: convMinor,
		PrimaryAmount:       mainTotal,
	}

	if req.CouponCode != "" {
		res := tables.ApplyCoupon(req.CouponCode, req.Category, mainTotal, rate.Currency, req.At)
		if res.IsValid {
			q.PrimaryAmount = res.FinalAmount
			q.CouponApplied = true
			q.CouponCode = req.CouponCode
			q.Discount = res.Discount
			q.OriginalAmount = mainTotal
		}
	}

	if req.NumberOfAccompanying > 0 {
		q.EffectiveAccompanying, q.AccompanyingAmount = c.accompanying(ctx, tables, tier, req, rate.Currency, mainTotal)
	}

	q.Amount = q.PrimaryAmount + q.AccompanyingAmount
	return q
}

// accompanying returns the billed person count and their total charge in the primary currency.
func (c *Calculator) accompanying(ctx context.Context, tables Tables, tier Tier, req QuoteRequest, primary Currency, undiscounted int64) (int, int64) {
	if IsInternational(req.Category) {
		return 1, undiscounted
	}
	rate, ok := tables.AccompanyingRate(req.EventType)
	if !ok {
		return req.NumberOfAccompanying, 0
	}
	fee, ok := rate.At(tier)
	if !ok {
		return req.NumberOfAccompanying, 0
	}
	perPerson := ToMinor(fee.Fee) + ToMinor(fee.ConvenienceFee)
	if rate.Currency != primary {
		perPerson = Convert(perPerson, rate.Currency, primary, c.rates.UsdToInr(ctx))
	}
	return req.NumberOfAccompanying, perPerson * int64(req.NumberOfAccompanying)
}

// Convert moves a minor-unit amount between INR and USD at usdToInr.
// PRE: usdToInr > 0
// POST: Same-currency conversions return minor unchanged
func Convert(minor int64, from, to Currency, usdToInr float64) int64 {
	if from == to || usdToInr <= 0 {
		return minor
	}
	if from == USD && to == INR {
		return RoundHalfUp(float64(minor) * usdToInr)
	}
	return RoundHalfUp(float64(minor) / usdToInr)
}
