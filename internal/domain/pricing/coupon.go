package pricing

import (
	"errors"
	"slices"
	"time"
)

var (
	ErrCouponCode     = errors.New("coupon code is required")
	ErrCouponType     = errors.New("coupon type must be fixed or percentage")
	ErrCouponCurrency = errors.New("coupon currency is not supported")
	ErrCouponPercent  = errors.New("coupon percentage must be between 0 and 100")
)

// DiscountType selects how a coupon reduces the total.
type DiscountType string

const (
	// DiscountFixed pins the total to a per-category target amount.
	DiscountFixed DiscountType = "fixed"
	// DiscountPercentage removes a percentage of the total.
	DiscountPercentage DiscountType = "percentage"
)

// Coupon is a discount definition. Targets are in minor units of Currency.
type Coupon struct {
	Code       string           `json:"code"`
	Type       DiscountType     `json:"type"`
	Currency   Currency         `json:"currency"`
	Percentage float64          `json:"percentage,omitempty"`
	Targets    map[string]int64 `json:"targets,omitempty"`
	Categories []string         `json:"categories,omitempty"`
	ExpiresAt  *time.Time       `json:"expiresAt,omitempty"`
}

// CouponResult is the outcome of applying a coupon to an amount.
type CouponResult struct {
	IsValid     bool
	Discount    int64
	FinalAmount int64
}

// Validate checks the coupon definition.
func (c Coupon) Validate() error {
	if c.Code == "" {
		return ErrCouponCode
	}
	if !c.Currency.Valid() {
		return ErrCouponCurrency
	}
	switch c.Type {
	case DiscountFixed:
	case DiscountPercentage:
		if c.Percentage < 0 || c.Percentage > 100 {
			return ErrCouponPercent
		}
	default:
		return ErrCouponType
	}
	return nil
}

// AppliesTo reports whether the coupon covers category.
func (c Coupon) AppliesTo(category string) bool {
	if c.Type == DiscountFixed {
		_, ok := c.Targets[category]
		return ok
	}
	return slices.Contains(c.Categories, category)
}

// Apply computes the discount on original for category.
// PRE: original >= 0
// POST: Invalid results carry Discount 0 and FinalAmount original
// POST: Valid results satisfy 0 <= Discount <= original and FinalAmount = original - Discount
func (c Coupon) Apply(category string, original int64, currency Currency, at time.Time) CouponResult {
	invalid := CouponResult{FinalAmount: original}
	if c.ExpiresAt != nil && at.After(*c.ExpiresAt) {
		return invalid
	}
	if c.Currency != currency || !c.AppliesTo(category) {
		return invalid
	}

	var discount int64
	switch c.Type {
	case DiscountFixed:
		discount = original - c.Targets[category]
	case DiscountPercentage:
		discount = RoundHalfUp(float64(original) * c.Percentage / 100)
	default:
		return invalid
	}
	discount = max(0, min(discount, original))
	return CouponResult{IsValid: true, Discount: discount, FinalAmount: original - discount}
}

// ApplyCoupon resolves code against the snapshot and applies it.
// POST: Unknown or empty codes yield an invalid result
func (t Tables) ApplyCoupon(code, category string, original int64, currency Currency, at time.Time) CouponResult {
	c, ok := t.Coupon(code)
	if !ok {
		return CouponResult{FinalAmount: original}
	}
	return c.Apply(category, original, currency, at)
}
