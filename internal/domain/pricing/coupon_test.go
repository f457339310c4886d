package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyCoupon(t *testing.T) {
	tables := fixtureTables()
	at := date(2025, time.January, 1)
	const intl = "International Delegate (IADR Member)"

	tests := []struct {
		name     string
		code     string
		category string
		original int64
		currency Currency
		want     CouponResult
	}{
		{"empty code", "", intl, 46100, USD, CouponResult{FinalAmount: 46100}},
		{"unknown code", "FREE", intl, 46100, USD, CouponResult{FinalAmount: 46100}},
		{"category not covered", "IADR2025", "International Delegate (Non-IADR)", 51200, USD, CouponResult{FinalAmount: 51200}},
		{"currency mismatch", "IADR2025", intl, 46100, INR, CouponResult{FinalAmount: 46100}},
		{"fixed pins to target", "IADR2025", intl, 46100, USD, CouponResult{IsValid: true, Discount: 5100, FinalAmount: 41000}},
		{"case-insensitive code", " iadr2025 ", intl, 46100, USD, CouponResult{IsValid: true, Discount: 5100, FinalAmount: 41000}},
		{"already at target", "IADR2025", intl, 41000, USD, CouponResult{IsValid: true, Discount: 0, FinalAmount: 41000}},
		{"below target never raises price", "IADR2025", intl, 30000, USD, CouponResult{IsValid: true, Discount: 0, FinalAmount: 30000}},
		{"percentage", "ISDR10", "ISDR Member", 1570000, INR, CouponResult{IsValid: true, Discount: 157000, FinalAmount: 1413000}},
		{"percentage rounds half up", "ISDR10", "ISDR Member", 15, INR, CouponResult{IsValid: true, Discount: 2, FinalAmount: 13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tables.ApplyCoupon(tt.code, tt.category, tt.original, tt.currency, at)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got.Discount, int64(0))
			assert.GreaterOrEqual(t, got.FinalAmount, int64(0))
		})
	}
}

func TestCoupon_Expiry(t *testing.T) {
	expires := date(2025, time.June, 30)
	c := Coupon{Code: "ISDR10", Type: DiscountPercentage, Currency: INR, Percentage: 10, Categories: []string{"ISDR Member"}, ExpiresAt: &expires}

	assert.True(t, c.Apply("ISDR Member", 1000, INR, expires).IsValid)
	assert.False(t, c.Apply("ISDR Member", 1000, INR, expires.Add(time.Second)).IsValid)
}

func TestCoupon_Validate(t *testing.T) {
	assert.ErrorIs(t, Coupon{Type: DiscountFixed, Currency: USD}.Validate(), ErrCouponCode)
	assert.ErrorIs(t, Coupon{Code: "X", Type: "bogo", Currency: USD}.Validate(), ErrCouponType)
	assert.ErrorIs(t, Coupon{Code: "X", Type: DiscountFixed, Currency: "EUR"}.Validate(), ErrCouponCurrency)
	assert.ErrorIs(t, Coupon{Code: "X", Type: DiscountPercentage, Currency: INR, Percentage: 120}.Validate(), ErrCouponPercent)
	assert.NoError(t, Coupon{Code: "X", Type: DiscountPercentage, Currency: INR, Percentage: 25}.Validate())
}
