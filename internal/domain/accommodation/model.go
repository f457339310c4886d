package accommodation

import (
	"errors"
	"slices"
	"strings"
	"time"

	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

// Domain errors
var (
	ErrNotFound        = errors.New("accommodation booking not found")
	ErrDelegateType    = errors.New("delegate type must be Indian Delegate or International Delegate")
	ErrRoomType        = errors.New("room type must be Twin Sharing or Single Occupancy")
	ErrDatesMissing    = errors.New("check-in and check-out dates are required")
	ErrDatesOrder      = errors.New("check-out date must be after check-in date")
	ErrCurrency        = errors.New("currency must be INR or USD")
	ErrPaymentMode     = errors.New("payment mode must be online or offline")
	ErrPaymentRequired = errors.New("online bookings require a payment id")
)

var (
	delegateTypes = []string{pricing.DelegateIndian, pricing.DelegateInternational}
	roomTypes     = []string{pricing.RoomTwinSharing, pricing.RoomSingleOccupancy}
)

// Booking holds state for a hotel booking.
type Booking struct {
	ID    string
	Title string
	registration.Contact
	DelegateType            string
	RoomType                string
	TwinSharingDelegateName string
	CheckInDate             time.Time
	CheckOutDate            time.Time
	// AmountPaid is in major units of Currency.
	AmountPaid  float64
	Currency    pricing.Currency
	PaymentID   string
	OrderID     string
	PaymentMode string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the booking.
// PRE: Booking struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (b *Booking) Validate() error {
	if err := b.ValidateForm(); err != nil {
		return err
	}
	if !b.Currency.Valid() {
		return ErrCurrency
	}
	switch b.PaymentMode {
	case registration.PaymentOnline:
		if b.PaymentID == "" {
			return ErrPaymentRequired
		}
	case registration.PaymentOffline:
	default:
		return ErrPaymentMode
	}
	return nil
}

// ValidateForm checks the guest and the stay, leaving out amount and payment fields.
// INVARIANT: CheckOutDate is after CheckInDate
func (b *Booking) ValidateForm() error {
	if err := b.Contact.Validate(); err != nil {
		return err
	}
	if !slices.Contains(delegateTypes, b.DelegateType) {
		return ErrDelegateType
	}
	if !slices.Contains(roomTypes, b.RoomType) {
		return ErrRoomType
	}
	if b.CheckInDate.IsZero() || b.CheckOutDate.IsZero() {
		return ErrDatesMissing
	}
	if !b.CheckOutDate.After(b.CheckInDate) {
		return ErrDatesOrder
	}
	return nil
}

// Nights returns the billable night count for the stay.
func (b *Booking) Nights() int {
	return pricing.Nights(b.CheckInDate, b.CheckOutDate)
}

// Normalize trims free-text fields and drops the co-delegate name for single rooms.
func (b *Booking) Normalize() {
	b.Email = strings.ToLower(strings.TrimSpace(b.Email))
	b.FullName = strings.TrimSpace(b.FullName)
	b.TwinSharingDelegateName = strings.TrimSpace(b.TwinSharingDelegateName)
	if b.RoomType != pricing.RoomTwinSharing {
		b.TwinSharingDelegateName = ""
	}
}
