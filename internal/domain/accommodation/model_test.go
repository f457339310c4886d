package accommodation

import (
	"errors"
	"testing"
	"time"

	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

func validBooking() Booking {
	in := time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC)
	return Booking{
		Contact: registration.Contact{
			FullName: "Dr Tom Hale",
			Email:    "tom@example.com",
			Phone:    "+61 400 000 000",
			City:     "Perth",
			Country:  "Australia",
			Pincode:  "6000",
			Address:  "1 Hay St",
		},
		DelegateType: pricing.DelegateInternational,
		RoomType:     pricing.RoomSingleOccupancy,
		CheckInDate:  in,
		CheckOutDate: in.AddDate(0, 0, 3),
		AmountPaid:   450,
		Currency:     pricing.USD,
		PaymentID:    "pay_1",
		PaymentMode:  registration.PaymentOnline,
	}
}

func TestBooking_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Booking)
		wantErr error
	}{
		{"valid", func(b *Booking) {}, nil},
		{"bad delegate", func(b *Booking) { b.DelegateType = "Speaker" }, ErrDelegateType},
		{"bad room", func(b *Booking) { b.RoomType = "Suite" }, ErrRoomType},
		{"missing dates", func(b *Booking) { b.CheckInDate = time.Time{} }, ErrDatesMissing},
		{"checkout equals checkin", func(b *Booking) { b.CheckOutDate = b.CheckInDate }, ErrDatesOrder},
		{"bad currency", func(b *Booking) { b.Currency = "" }, ErrCurrency},
		{"online without payment", func(b *Booking) { b.PaymentID = "" }, ErrPaymentRequired},
		{"offline without payment", func(b *Booking) { b.PaymentID = ""; b.PaymentMode = registration.PaymentOffline }, nil},
		{"contact checked", func(b *Booking) { b.Email = "nope" }, registration.ErrEmailInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBooking()
			tt.mutate(&b)
			if err := b.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBooking_NightsAndNormalize(t *testing.T) {
	b := validBooking()
	if got := b.Nights(); got != 3 {
		t.Errorf("Nights() = %d, want 3", got)
	}

	b.TwinSharingDelegateName = "Someone"
	b.Normalize()
	if b.TwinSharingDelegateName != "" {
		t.Error("single occupancy should not keep a co-delegate name")
	}

	b.RoomType = pricing.RoomTwinSharing
	b.TwinSharingDelegateName = "  Dr Lee "
	b.Normalize()
	if b.TwinSharingDelegateName != "Dr Lee" {
		t.Errorf("TwinSharingDelegateName = %q", b.TwinSharingDelegateName)
	}
}

func TestBooking_ValidateForm(t *testing.T) {
	b := validBooking()
	b.Currency = ""
	b.PaymentID = ""
	if err := b.ValidateForm(); err != nil {
		t.Errorf("ValidateForm() ignores payment fields, got %v", err)
	}
	b.CheckOutDate = b.CheckInDate.AddDate(0, 0, -1)
	if err := b.ValidateForm(); !errors.Is(err, ErrDatesOrder) {
		t.Errorf("ValidateForm() = %v, want %v", err, ErrDatesOrder)
	}
}
