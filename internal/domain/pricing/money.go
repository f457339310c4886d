package pricing

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Currency is an ISO 4217 code accepted by the payment gateway.
type Currency string

// Supported currencies.
const (
	INR Currency = "INR"
	USD Currency = "USD"
)

// Valid reports whether c is a supported currency.
// INVARIANT: c is not mutated
func (c Currency) Valid() bool {
	return c == INR || c == USD
}

// Symbol returns the display prefix for the currency.
func (c Currency) Symbol() string {
	switch c {
	case INR:
		return "₹"
	case USD:
		return "$"
	}
	return string(c) + " "
}

// ParseCurrency normalises a user-supplied currency code. Empty input defaults to INR.
// PRE: none
// POST: Returns a supported currency and true, or ("", false) for unknown codes
func ParseCurrency(s string) (Currency, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return INR, true
	}
	c := Currency(s)
	return c, c.Valid()
}

// RoundHalfUp rounds x to the nearest integer, with halves rounded away from negative infinity.
func RoundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}

// ToMinor converts a major-unit amount (rupees, dollars) to minor units (paise, cents).
// It rounds the shortest decimal form of major, so 0.285 is 29 paise even though
// 0.285*100 is 28.499999999999996 in binary.
// PRE: major is finite
// POST: Returns major*100 with halves rounded away from zero
func ToMinor(major float64) int64 {
	s := strconv.FormatFloat(major, 'f', -1, 64)
	neg := strings.HasPrefix(s, "-")
	whole, frac, _ := strings.Cut(strings.TrimPrefix(s, "-"), ".")
	frac += "000"
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0
	}
	minor := units*100 + int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	if frac[2] >= '5' {
		minor++
	}
	if neg {
		return -minor
	}
	return minor
}

// ToMajor converts minor units back to major units for display and storage.
func ToMajor(minor int64) float64 {
	return float64(minor) / 100
}

// FormatMoney renders a minor-unit amount with its currency symbol, e.g. "₹15,700.00".
func FormatMoney(minor int64, c Currency) string {
	return c.Symbol() + humanize.FormatFloat("#,###.##", ToMajor(minor))
}
