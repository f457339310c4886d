package registration

import (
	"errors"
	"testing"

	"conference/internal/domain/pricing"
)

func validRegistration() Registration {
	return Registration{
		Contact: Contact{
			FullName: "Dr Meera Iyer",
			Email:    "meera@example.com",
			Phone:    "+91 98000 00000",
			City:     "Chennai",
			Country:  "India",
			Pincode:  "600001",
			Address:  "12 Marina Road",
		},
		Category:     "ISDR Member",
		EventType:    "IADR-APR",
		Accompanying: AccompanyingNo,
		Currency:     pricing.INR,
		PaymentID:    "pay_123",
		PaymentMode:  PaymentOnline,
	}
}

func TestRegistration_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Registration)
		wantErr error
	}{
		{"valid online", func(r *Registration) {}, nil},
		{"valid offline without payment id", func(r *Registration) { r.PaymentMode = PaymentOffline; r.PaymentID = "" }, nil},
		{"empty name", func(r *Registration) { r.FullName = "  " }, ErrFullNameEmpty},
		{"bad email", func(r *Registration) { r.Email = "meera@" }, ErrEmailInvalid},
		{"missing phone", func(r *Registration) { r.Phone = "" }, ErrPhoneEmpty},
		{"missing pincode", func(r *Registration) { r.Pincode = "" }, ErrAddressIncomplete},
		{"missing category", func(r *Registration) { r.Category = "" }, ErrCategoryEmpty},
		{"missing event", func(r *Registration) { r.EventType = "" }, ErrEventTypeEmpty},
		{"flag without persons", func(r *Registration) { r.Accompanying = AccompanyingYes }, ErrAccompanyingFlag},
		{"count without persons", func(r *Registration) {
			r.Accompanying = AccompanyingYes
			r.NumberOfAccompanying = 2
			r.AccompanyingPersons = []Person{{Name: "A"}}
		}, ErrAccompanyingCount},
		{"blank person name", func(r *Registration) {
			r.Accompanying = AccompanyingYes
			r.NumberOfAccompanying = 1
			r.AccompanyingPersons = []Person{{Name: " "}}
		}, ErrAccompanyingNameEmpty},
		{"international with two", func(r *Registration) {
			r.Category = "International Delegate (Non-IADR)"
			r.Currency = pricing.USD
			r.Accompanying = AccompanyingYes
			r.NumberOfAccompanying = 2
			r.AccompanyingPersons = []Person{{Name: "A"}, {Name: "B"}}
		}, ErrInternationalLimit},
		{"bad currency", func(r *Registration) { r.Currency = "EUR" }, ErrCurrency},
		{"online without payment", func(r *Registration) { r.PaymentID = "" }, ErrPaymentIDRequired},
		{"unknown mode", func(r *Registration) { r.PaymentMode = "cash" }, ErrPaymentMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRegistration()
			tt.mutate(&r)
			if err := r.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistration_ValidateForm(t *testing.T) {
	r := validRegistration()
	r.Currency = ""
	r.PaymentID = ""
	r.PaymentMode = ""
	if err := r.ValidateForm(); err != nil {
		t.Errorf("ValidateForm() ignores payment fields, got %v", err)
	}

	r.NumberOfAccompanying = 1
	r.Accompanying = AccompanyingYes
	if err := r.ValidateForm(); !errors.Is(err, ErrAccompanyingCount) {
		t.Errorf("ValidateForm() = %v, want %v", err, ErrAccompanyingCount)
	}
}

func TestRegistration_Normalize(t *testing.T) {
	r := validRegistration()
	r.Email = "  Meera@Example.COM "
	r.NumberOfAccompanying = 1
	r.AccompanyingPersons = []Person{{Name: "  Ravi  "}}
	r.Normalize()

	if r.Email != "meera@example.com" {
		t.Errorf("Email = %q", r.Email)
	}
	if r.Accompanying != AccompanyingYes {
		t.Errorf("Accompanying = %q, want Yes", r.Accompanying)
	}
	if r.AccompanyingPersons[0].Name != "Ravi" {
		t.Errorf("person name = %q", r.AccompanyingPersons[0].Name)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("normalized registration should validate: %v", err)
	}
}
