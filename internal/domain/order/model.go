package order

import (
	"errors"
	"time"

	"conference/internal/domain/pricing"
)

// Intent lifecycle.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrAlreadyUsed      = errors.New("order has already been used")
	ErrKindMismatch     = errors.New("order was created for a different purchase")
	ErrChargeMismatch   = errors.New("payment does not match the order amount")
	ErrOrderIDEmpty     = errors.New("order id is required")
	ErrKindEmpty        = errors.New("order kind is required")
	ErrAmountNotCharged = errors.New("order amount must be positive")
	ErrCurrency         = errors.New("currency must be INR or USD")
	ErrPayloadEmpty     = errors.New("payload is required")
	ErrCreatedAtUnset   = errors.New("created_at must be set")
)

// Intent is what a gateway order was opened for.
// It is written before the visitor pays and claimed once by the matching checkout.
type Intent struct {
	// OrderID is the gateway's order id.
	OrderID string
	Kind    string
	// Amount is in minor units of Currency, as sent to the gateway.
	Amount   int64
	Currency pricing.Currency
	Receipt  string
	// Payload is the JSON of the validated form and the quote it was priced from.
	Payload     string
	Status      string
	RecordID    string
	CreatedAt   time.Time
	CompletedAt time.Time
}

// Validate checks a new intent and defaults its status to pending.
// PRE: Intent struct is populated
// POST: Returns nil if valid, Status is set
func (i *Intent) Validate() error {
	if i.OrderID == "" {
		return ErrOrderIDEmpty
	}
	if i.Kind == "" {
		return ErrKindEmpty
	}
	if i.Amount <= 0 {
		return ErrAmountNotCharged
	}
	if !i.Currency.Valid() {
		return ErrCurrency
	}
	if i.Payload == "" {
		return ErrPayloadEmpty
	}
	if i.CreatedAt.IsZero() {
		return ErrCreatedAtUnset
	}
	if i.Status == "" {
		i.Status = StatusPending
	}
	return nil
}

// Redeemable reports whether a checkout for kind may complete this intent.
// POST: ErrKindMismatch for another kind, ErrAlreadyUsed once completed
func (i Intent) Redeemable(kind string) error {
	if i.Kind != kind {
		return ErrKindMismatch
	}
	if i.Status != StatusPending {
		return ErrAlreadyUsed
	}
	return nil
}

// Matches reports whether a gateway charge covers this intent exactly.
func (i Intent) Matches(amount int64, currency pricing.Currency) error {
	if amount != i.Amount || currency != i.Currency {
		return ErrChargeMismatch
	}
	return nil
}
