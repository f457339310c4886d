package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"conference/internal/adapters/email"
	"conference/internal/domain/accommodation"
	"conference/internal/domain/course"
	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

var (
	ErrNoRecordsSelected = errors.New("no records selected")
	ErrUnknownRecordKind = errors.New("record kind must be registration, accommodation or pcc_registration")
)

// MaxConfirmationBatch is the most confirmations resent in one request.
const MaxConfirmationBatch = 100

// RegistrationReader, BookingReader and CourseRegistrationReader look records up by id.
type (
	RegistrationReader interface {
		GetByID(ctx context.Context, id string) (registration.Registration, error)
	}
	BookingReader interface {
		GetByID(ctx context.Context, id string) (accommodation.Booking, error)
	}
	CourseRegistrationReader interface {
		GetByID(ctx context.Context, id string) (course.Registration, error)
	}
)

// ResendConfirmationsInput selects saved records of one kind.
type ResendConfirmationsInput struct {
	RecordKind string
	IDs        []string
}

// ResendConfirmationsDeps holds dependencies for ResendConfirmations.
type ResendConfirmationsDeps struct {
	Registrations  RegistrationReader
	Accommodations BookingReader
	Courses        CourseRegistrationReader
	Calculator     *pricing.Calculator
	Notifier       *Notifier
}

// ResendConfirmationsResult reports how many emails the relay accepted.
type ResendConfirmationsResult struct {
	Sent       int
	MessageIDs []string
}

// ExecuteResendConfirmations re-renders the confirmation for each record and sends them as one batch.
// Registration fee lines are priced with the rates that applied when the record was created.
// PRE: 1 <= len(IDs) <= MaxConfirmationBatch
// POST: Returns the first lookup error before anything is sent
func ExecuteResendConfirmations(ctx context.Context, input ResendConfirmationsInput, deps ResendConfirmationsDeps) (ResendConfirmationsResult, error) {
	if len(input.IDs) == 0 {
		return ResendConfirmationsResult{}, ErrNoRecordsSelected
	}
	if len(input.IDs) > MaxConfirmationBatch {
		return ResendConfirmationsResult{}, fmt.Errorf("at most %d records per resend", MaxConfirmationBatch)
	}

	reqs := make([]email.SendRequest, 0, len(input.IDs))
	for _, id := range input.IDs {
		req, err := confirmationFor(ctx, input.RecordKind, id, deps)
		if err != nil {
			return ResendConfirmationsResult{}, err
		}
		reqs = append(reqs, req)
	}

	results, err := deps.Notifier.DeliverBatch(ctx, reqs)
	if err != nil {
		return ResendConfirmationsResult{}, fmt.Errorf("send confirmations: %w", err)
	}
	out := ResendConfirmationsResult{Sent: len(results)}
	for _, r := range results {
		out.MessageIDs = append(out.MessageIDs, r.MessageID)
	}
	slog.Info("confirmations_resent", "record_kind", input.RecordKind, "count", out.Sent)
	return out, nil
}

func confirmationFor(ctx context.Context, kind, id string, deps ResendConfirmationsDeps) (email.SendRequest, error) {
	switch kind {
	case RecordRegistration:
		r, err := deps.Registrations.GetByID(ctx, id)
		if err != nil {
			return email.SendRequest{}, err
		}
		q := deps.Calculator.Calculate(ctx, pricing.QuoteRequest{
			Category:             r.Category,
			EventType:            r.EventType,
			NumberOfAccompanying: r.NumberOfAccompanying,
			At:                   r.CreatedAt,
			CouponCode:           r.CouponCode,
		})
		return registrationEmail(r, q)
	case RecordAccommodation:
		b, err := deps.Accommodations.GetByID(ctx, id)
		if err != nil {
			return email.SendRequest{}, err
		}
		return accommodationEmail(b)
	case RecordCourse:
		r, err := deps.Courses.GetByID(ctx, id)
		if err != nil {
			return email.SendRequest{}, err
		}
		return courseEmail(r)
	}
	return email.SendRequest{}, ErrUnknownRecordKind
}
