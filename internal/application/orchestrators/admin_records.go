package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"conference/internal/application/listutil"
	"conference/internal/domain/accommodation"
	"conference/internal/domain/course"
	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

// RecordLister is satisfied by every admin-listable store.
type RecordLister[T any] interface {
	List(ctx context.Context, q listutil.Query) ([]T, int, error)
}

// ExecuteListRecords returns one page of records for the back-office tables.
// POST: Items is never nil
func ExecuteListRecords[T any](ctx context.Context, lp listutil.ListParams, store RecordLister[T]) (listutil.Page[T], error) {
	items, total, err := store.List(ctx, lp.Query())
	if err != nil {
		return listutil.Page[T]{}, fmt.Errorf("list records: %w", err)
	}
	return listutil.NewPage(items, lp, total), nil
}

// --- Registrations ---

// RegistrationStore defines the store interface needed by admin registration edits.
type RegistrationStore interface {
	GetByID(ctx context.Context, id string) (registration.Registration, error)
	Save(ctx context.Context, r registration.Registration) error
}

// UpdateRegistrationDeps holds dependencies for UpdateRegistration.
type UpdateRegistrationDeps struct {
	Store RegistrationStore
	Now   func() time.Time
}

// ExecuteUpdateRegistration replaces the editable fields of a saved registration.
// PRE: id names an existing registration
// POST: ID, CreatedAt and OrderID are kept; empty payment fields keep their saved values
func ExecuteUpdateRegistration(ctx context.Context, id string, in registration.Registration, deps UpdateRegistrationDeps) (registration.Registration, error) {
	existing, err := deps.Store.GetByID(ctx, id)
	if err != nil {
		return registration.Registration{}, err
	}
	r := in
	r.ID = existing.ID
	r.CreatedAt = existing.CreatedAt
	r.OrderID = existing.OrderID
	if r.PaymentMode == "" {
		r.PaymentMode = existing.PaymentMode
	}
	if r.PaymentID == "" {
		r.PaymentID = existing.PaymentID
	}
	if r.Currency == "" {
		r.Currency = existing.Currency
	}
	r.Normalize()
	r.UpdatedAt = deps.Now()
	if err := r.Validate(); err != nil {
		return registration.Registration{}, err
	}
	if err := deps.Store.Save(ctx, r); err != nil {
		return registration.Registration{}, fmt.Errorf("save registration: %w", err)
	}
	slog.Info("registration_updated", "id", r.ID)
	return r, nil
}

// OfflineRegistrationInput is an admin-entered registration paid outside the gateway.
type OfflineRegistrationInput struct {
	Registration registration.Registration
	SendEmail    bool
}

// OfflineRegistrationDeps holds dependencies for CreateOfflineRegistration.
type OfflineRegistrationDeps struct {
	Store      RegistrationWriter
	Calculator *pricing.Calculator
	Notifier   *Notifier
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteCreateOfflineRegistration saves a manual registration with paymentMode=offline.
// POST: A zero AmountPaid is filled from the current quote; ErrSelectionIncomplete if that is zero too
func ExecuteCreateOfflineRegistration(ctx context.Context, input OfflineRegistrationInput, deps OfflineRegistrationDeps) (CompletionResult, error) {
	now := deps.Now()
	r := input.Registration
	r.Normalize()
	q := deps.Calculator.Calculate(ctx, pricing.QuoteRequest{
		Category:             r.Category,
		EventType:            r.EventType,
		NumberOfAccompanying: r.NumberOfAccompanying,
		At:                   now,
		CouponCode:           r.CouponCode,
	})
	if r.AmountPaid <= 0 {
		if !q.Ready() {
			return CompletionResult{}, ErrSelectionIncomplete
		}
		r.AmountPaid = pricing.ToMajor(q.Amount)
		r.Currency = q.Currency
	}
	if r.Currency == "" {
		r.Currency = q.Currency
	}
	r.ID = deps.GenerateID()
	r.PaymentMode = registration.PaymentOffline
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := r.Validate(); err != nil {
		return CompletionResult{}, err
	}
	if err := deps.Store.Save(ctx, r); err != nil {
		return CompletionResult{}, fmt.Errorf("save registration: %w", err)
	}
	slog.Info("offline_registration_saved", "id", r.ID, "amount", r.AmountPaid, "currency", string(r.Currency))

	result := CompletionResult{ID: r.ID, AmountPaid: r.AmountPaid, Currency: r.Currency, EmailStatus: EmailStatusSkipped}
	if input.SendEmail {
		req, err := registrationEmail(r, q)
		result.EmailStatus, result.Message = confirm(ctx, deps.Notifier, RecordRegistration, r.ID, req, err)
	}
	return result, nil
}

// --- Accommodations ---

// BookingStore defines the store interface needed by admin booking edits.
type BookingStore interface {
	GetByID(ctx context.Context, id string) (accommodation.Booking, error)
	Save(ctx context.Context, b accommodation.Booking) error
}

// UpdateBookingDeps holds dependencies for UpdateBooking.
type UpdateBookingDeps struct {
	Store BookingStore
	Now   func() time.Time
}

// ExecuteUpdateBooking replaces the editable fields of a saved booking.
// PRE: id names an existing booking
// POST: ID, CreatedAt and OrderID are kept; empty payment fields keep their saved values
func ExecuteUpdateBooking(ctx context.Context, id string, in accommodation.Booking, deps UpdateBookingDeps) (accommodation.Booking, error) {
	existing, err := deps.Store.GetByID(ctx, id)
	if err != nil {
		return accommodation.Booking{}, err
	}
	b := in
	b.ID = existing.ID
	b.CreatedAt = existing.CreatedAt
	b.OrderID = existing.OrderID
	if b.PaymentMode == "" {
		b.PaymentMode = existing.PaymentMode
	}
	if b.PaymentID == "" {
		b.PaymentID = existing.PaymentID
	}
	if b.Currency == "" {
		b.Currency = existing.Currency
	}
	b.Normalize()
	b.UpdatedAt = deps.Now()
	if err := b.Validate(); err != nil {
		return accommodation.Booking{}, err
	}
	if err := deps.Store.Save(ctx, b); err != nil {
		return accommodation.Booking{}, fmt.Errorf("save accommodation: %w", err)
	}
	slog.Info("accommodation_updated", "id", b.ID)
	return b, nil
}

// OfflineBookingInput is an admin-entered booking paid outside the gateway.
type OfflineBookingInput struct {
	Booking   accommodation.Booking
	SendEmail bool
}

// OfflineBookingDeps holds dependencies for CreateOfflineBooking.
type OfflineBookingDeps struct {
	Store      BookingWriter
	Calculator *pricing.Calculator
	Notifier   *Notifier
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteCreateOfflineBooking saves a manual booking with paymentMode=offline.
// POST: A zero AmountPaid is filled from the stay quote; ErrSelectionIncomplete if that is zero too
func ExecuteCreateOfflineBooking(ctx context.Context, input OfflineBookingInput, deps OfflineBookingDeps) (CompletionResult, error) {
	now := deps.Now()
	b := input.Booking
	b.Normalize()
	if b.AmountPaid <= 0 {
		q := ExecuteAccommodationQuote(ctx, AccommodationQuoteInput{
			DelegateType: b.DelegateType,
			RoomType:     b.RoomType,
			CheckIn:      b.CheckInDate,
			CheckOut:     b.CheckOutDate,
		}, QuoteDeps{Calculator: deps.Calculator, Now: deps.Now})
		if q.Amount <= 0 {
			return CompletionResult{}, ErrSelectionIncomplete
		}
		b.AmountPaid = pricing.ToMajor(q.Amount)
		b.Currency = q.Currency
	}
	if b.Currency == "" {
		b.Currency = pricing.INR
		if b.DelegateType != pricing.DelegateIndian {
			b.Currency = pricing.USD
		}
	}
	b.ID = deps.GenerateID()
	b.PaymentMode = registration.PaymentOffline
	b.CreatedAt = now
	b.UpdatedAt = now
	if err := b.Validate(); err != nil {
		return CompletionResult{}, err
	}
	if err := deps.Store.Save(ctx, b); err != nil {
		return CompletionResult{}, fmt.Errorf("save accommodation: %w", err)
	}
	slog.Info("offline_accommodation_saved", "id", b.ID, "amount", b.AmountPaid, "currency", string(b.Currency))

	result := CompletionResult{ID: b.ID, AmountPaid: b.AmountPaid, Currency: b.Currency, EmailStatus: EmailStatusSkipped}
	if input.SendEmail {
		req, err := accommodationEmail(b)
		result.EmailStatus, result.Message = confirm(ctx, deps.Notifier, RecordAccommodation, b.ID, req, err)
	}
	return result, nil
}

// --- Course registrations ---

// CourseRecordStore defines the store interface needed by admin course registration edits.
type CourseRecordStore interface {
	GetByID(ctx context.Context, id string) (course.Registration, error)
	CourseRegistrationStore
}

// UpdateCourseRegistrationDeps holds dependencies for UpdateCourseRegistration.
type UpdateCourseRegistrationDeps struct {
	Store   CourseRecordStore
	Courses course.Catalog
	Now     func() time.Time
}

// ExecuteUpdateCourseRegistration replaces the editable fields of a course registration.
// PRE: id names an existing registration
// POST: Moving to another course requires a free seat there; course.ErrSeatsFull otherwise
func ExecuteUpdateCourseRegistration(ctx context.Context, id string, in course.Registration, deps UpdateCourseRegistrationDeps) (course.Registration, error) {
	existing, err := deps.Store.GetByID(ctx, id)
	if err != nil {
		return course.Registration{}, err
	}
	c, err := deps.Courses.Find(in.CourseCode)
	if err != nil {
		return course.Registration{}, err
	}
	r := in
	r.ID = existing.ID
	r.CreatedAt = existing.CreatedAt
	r.CourseName = c.Title
	if r.PaymentID == "" {
		r.PaymentID = existing.PaymentID
	}
	r.Amount = max(r.Amount, 0)
	r.UpdatedAt = deps.Now()
	if err := r.Validate(); err != nil {
		return course.Registration{}, err
	}
	if r.CourseCode != existing.CourseCode && c.Capped() {
		taken, err := deps.Store.CountByCourse(ctx, c.Code)
		if err != nil {
			return course.Registration{}, fmt.Errorf("count course seats: %w", err)
		}
		if !c.HasSeat(taken) {
			return course.Registration{}, course.ErrSeatsFull
		}
	}
	if err := deps.Store.Save(ctx, r); err != nil {
		return course.Registration{}, fmt.Errorf("save course registration: %w", err)
	}
	slog.Info("course_registration_updated", "id", r.ID, "code", r.CourseCode)
	return r, nil
}
