package registration

import (
	"errors"
	"strings"
	"time"

	"conference/internal/domain/pricing"
)

// Accompanying flag values.
const (
	AccompanyingNo  = "No"
	AccompanyingYes = "Yes"
)

// Payment modes.
const (
	PaymentOnline  = "online"
	PaymentOffline = "offline"
)

// MaxNameLength bounds free-text name fields.
const MaxNameLength = 120

// Domain errors
var (
	ErrNotFound              = errors.New("registration not found")
	ErrFullNameEmpty         = errors.New("full name is required")
	ErrFullNameTooLong       = errors.New("full name cannot exceed 120 characters")
	ErrEmailInvalid          = errors.New("email must be valid")
	ErrPhoneEmpty            = errors.New("phone is required")
	ErrAddressIncomplete     = errors.New("city, country, pincode and address are required")
	ErrCategoryEmpty         = errors.New("category is required")
	ErrEventTypeEmpty        = errors.New("event type is required")
	ErrAccompanyingFlag      = errors.New("accompanying must be Yes exactly when numberOfAccompanying is positive")
	ErrAccompanyingCount     = errors.New("accompanying persons must match numberOfAccompanying")
	ErrAccompanyingNameEmpty = errors.New("accompanying person name is required")
	ErrInternationalLimit    = errors.New("international delegates may bring at most one accompanying person")
	ErrCurrency              = errors.New("currency must be INR or USD")
	ErrPaymentMode           = errors.New("payment mode must be online or offline")
	ErrPaymentIDRequired     = errors.New("online registrations require a payment id")
)

// Person is an accompanying person.
type Person struct {
	Name string
}

// Contact is the postal and contact block shared by registrations and bookings.
type Contact struct {
	FullName string
	Email    string
	Phone    string
	City     string
	Country  string
	Pincode  string
	Address  string
}

// Validate checks the contact fields.
// POST: Returns the first failing field error, nil otherwise
func (c Contact) Validate() error {
	name := strings.TrimSpace(c.FullName)
	if name == "" {
		return ErrFullNameEmpty
	}
	if len(name) > MaxNameLength {
		return ErrFullNameTooLong
	}
	at := strings.Index(c.Email, "@")
	if at < 1 || at == len(c.Email)-1 {
		return ErrEmailInvalid
	}
	if strings.TrimSpace(c.Phone) == "" {
		return ErrPhoneEmpty
	}
	for _, f := range []string{c.City, c.Country, c.Pincode, c.Address} {
		if strings.TrimSpace(f) == "" {
			return ErrAddressIncomplete
		}
	}
	return nil
}

// Registration holds state for a conference attendee.
type Registration struct {
	ID string
	Contact
	Category             string
	EventType            string
	Accompanying         string
	NumberOfAccompanying int
	AccompanyingPersons  []Person
	// AmountPaid is in major units of Currency.
	AmountPaid  float64
	Currency    pricing.Currency
	PaymentID   string
	OrderID     string
	PaymentMode string
	CouponCode  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the registration.
// PRE: Registration struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (r *Registration) Validate() error {
	if err := r.ValidateForm(); err != nil {
		return err
	}
	if !r.Currency.Valid() {
		return ErrCurrency
	}
	switch r.PaymentMode {
	case PaymentOnline:
		if r.PaymentID == "" {
			return ErrPaymentIDRequired
		}
	case PaymentOffline:
	default:
		return ErrPaymentMode
	}
	return nil
}

// ValidateForm checks what the registrant typed, leaving out amount and payment fields.
// INVARIANT: NumberOfAccompanying == len(AccompanyingPersons)
// INVARIANT: International categories have NumberOfAccompanying in {0, 1}
func (r *Registration) ValidateForm() error {
	if err := r.Contact.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrCategoryEmpty
	}
	if strings.TrimSpace(r.EventType) == "" {
		return ErrEventTypeEmpty
	}
	return r.validateAccompanying()
}

func (r *Registration) validateAccompanying() error {
	if r.NumberOfAccompanying < 0 {
		return ErrAccompanyingCount
	}
	wantFlag := AccompanyingNo
	if r.NumberOfAccompanying > 0 {
		wantFlag = AccompanyingYes
	}
	if r.Accompanying != wantFlag {
		return ErrAccompanyingFlag
	}
	if len(r.AccompanyingPersons) != r.NumberOfAccompanying {
		return ErrAccompanyingCount
	}
	if pricing.IsInternational(r.Category) && r.NumberOfAccompanying > 1 {
		return ErrInternationalLimit
	}
	for _, p := range r.AccompanyingPersons {
		if strings.TrimSpace(p.Name) == "" {
			return ErrAccompanyingNameEmpty
		}
	}
	return nil
}

// Normalize derives the accompanying flag from the count and trims person names.
// POST: Accompanying is Yes iff NumberOfAccompanying > 0
func (r *Registration) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)
	if r.NumberOfAccompanying > 0 {
		r.Accompanying = AccompanyingYes
	} else {
		r.Accompanying = AccompanyingNo
	}
	for i := range r.AccompanyingPersons {
		r.AccompanyingPersons[i].Name = strings.TrimSpace(r.AccompanyingPersons[i].Name)
	}
}

// IsOffline reports whether the registration was entered manually by an admin.
// INVARIANT: PaymentMode field is not mutated
func (r *Registration) IsOffline() bool {
	return r.PaymentMode == PaymentOffline
}
