package order

import (
	"errors"
	"testing"
	"time"

	"conference/internal/domain/pricing"
)

func validIntent() Intent {
	return Intent{
		OrderID:   "order_1",
		Kind:      "course",
		Amount:    180000,
		Currency:  pricing.INR,
		Payload:   `{"course":{}}`,
		CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestIntent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Intent)
		wantErr error
	}{
		{"valid", func(i *Intent) {}, nil},
		{"missing order id", func(i *Intent) { i.OrderID = "" }, ErrOrderIDEmpty},
		{"missing kind", func(i *Intent) { i.Kind = "" }, ErrKindEmpty},
		{"zero amount", func(i *Intent) { i.Amount = 0 }, ErrAmountNotCharged},
		{"bad currency", func(i *Intent) { i.Currency = "EUR" }, ErrCurrency},
		{"empty payload", func(i *Intent) { i.Payload = "" }, ErrPayloadEmpty},
		{"no timestamp", func(i *Intent) { i.CreatedAt = time.Time{} }, ErrCreatedAtUnset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := validIntent()
			tt.mutate(&i)
			if err := i.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	i := validIntent()
	if err := i.Validate(); err != nil || i.Status != StatusPending {
		t.Errorf("status = %q err = %v, want pending", i.Status, err)
	}
}

func TestIntent_Redeemable(t *testing.T) {
	i := validIntent()
	i.Status = StatusPending
	if err := i.Redeemable("course"); err != nil {
		t.Errorf("pending course order: %v", err)
	}
	if err := i.Redeemable("registration"); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("course order used for registration: %v, want %v", err, ErrKindMismatch)
	}
	i.Status = StatusCompleted
	if err := i.Redeemable("course"); !errors.Is(err, ErrAlreadyUsed) {
		t.Errorf("completed order: %v, want %v", err, ErrAlreadyUsed)
	}
}

func TestIntent_Matches(t *testing.T) {
	i := validIntent()
	if err := i.Matches(180000, pricing.INR); err != nil {
		t.Errorf("exact charge: %v", err)
	}
	if err := i.Matches(51200, pricing.USD); !errors.Is(err, ErrChargeMismatch) {
		t.Errorf("other currency: %v", err)
	}
	if err := i.Matches(179999, pricing.INR); !errors.Is(err, ErrChargeMismatch) {
		t.Errorf("short amount: %v", err)
	}
}
