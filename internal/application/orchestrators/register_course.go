package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"conference/internal/adapters/payment"
	"conference/internal/adapters/storage/pcc"
	"conference/internal/domain/course"
	"conference/internal/domain/order"
	"conference/internal/domain/pricing"
)

// CourseRegistrationStore defines the store interface needed to admit course registrations.
// Stores that also implement pcc.SeatReserver get an atomic seat check.
type CourseRegistrationStore interface {
	Save(ctx context.Context, r course.Registration) error
	CountByCourse(ctx context.Context, code string) (int, error)
}

// RegisterCourseInput carries a course sign-up.
// Online sign-ups take the form and fee from the checkout's order intent and ignore Registration.
// Offline entries skip checkout verification and keep the admin-entered Amount.
type RegisterCourseInput struct {
	Registration course.Registration
	Checkout     Checkout
	Offline      bool
	// SendEmail applies to offline entries; online sign-ups always get a confirmation.
	SendEmail bool
}

// RegisterCourseDeps holds dependencies for RegisterCourse.
type RegisterCourseDeps struct {
	Store      CourseRegistrationStore
	Intents    IntentStore
	Courses    course.Catalog
	Gateway    payment.Gateway
	Notifier   *Notifier
	GenerateID func() string
	Now        func() time.Time
}

// ExecuteRegisterCourse admits a registration to a pre-conference course.
// PRE: Registration.CourseCode names a catalog course
// POST: Returns course.ErrSeatsFull and saves nothing when the course has no seat left
// POST: An online order completes at most once; a full course reopens it
// INVARIANT: When the store implements pcc.SeatReserver, registrations never exceed pax
func ExecuteRegisterCourse(ctx context.Context, input RegisterCourseInput, deps RegisterCourseDeps) (CompletionResult, error) {
	r := input.Registration
	var intent order.Intent
	if input.Offline {
		r.Amount = max(r.Amount, 0)
	} else {
		co := input.Checkout
		if err := deps.Gateway.VerifyCheckout(co.OrderID, co.PaymentID, co.Signature); err != nil {
			slog.Warn("checkout_rejected", "kind", RecordCourse, "order_id", co.OrderID, "error", err.Error())
			return CompletionResult{}, err
		}
		in, p, err := redeem(ctx, deps.Intents, OrderCourse, co)
		if err != nil {
			return CompletionResult{}, err
		}
		if p.Course == nil {
			return CompletionResult{}, fmt.Errorf("order %s: %w", co.OrderID, errIntentPayload)
		}
		intent = in
		r = *p.Course
		r.PaymentID = co.PaymentID
		r.Amount = pricing.ToMajor(in.Amount)
	}
	c, err := deps.Courses.Find(r.CourseCode)
	if err != nil {
		return CompletionResult{}, err
	}

	now := deps.Now()
	r.ID = deps.GenerateID()
	r.CourseName = c.Title
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := r.Validate(); err != nil {
		return CompletionResult{}, err
	}
	save := func() error { return admit(ctx, deps.Store, c, r) }
	if !input.Offline {
		err = settle(ctx, deps.Intents, intent.OrderID, r.ID, now, save)
	} else {
		err = save()
	}
	if err != nil {
		switch {
		case errors.Is(err, course.ErrSeatsFull):
			slog.Info("course_full", "code", c.Code, "pax", c.Pax, "order_id", intent.OrderID)
			return CompletionResult{}, err
		case errors.Is(err, order.ErrAlreadyUsed):
			return CompletionResult{}, err
		}
		return CompletionResult{}, fmt.Errorf("save course registration: %w", err)
	}
	slog.Info("course_registration_saved", "id", r.ID, "code", c.Code, "offline", input.Offline)

	result := CompletionResult{ID: r.ID, AmountPaid: r.Amount, Currency: pricing.INR, EmailStatus: EmailStatusSkipped}
	if !input.Offline || input.SendEmail {
		req, err := courseEmail(r)
		result.EmailStatus, result.Message = confirm(ctx, deps.Notifier, RecordCourse, r.ID, req, err)
	}
	return result, nil
}

// admit writes r if the course still has a seat.
// Without a SeatReserver the count and the save are separate round trips, so two
// concurrent requests can both pass the check for the last seat.
func admit(ctx context.Context, store CourseRegistrationStore, c course.Course, r course.Registration) error {
	if !c.Capped() {
		return store.Save(ctx, r)
	}
	if reserver, ok := store.(pcc.SeatReserver); ok {
		return reserver.Reserve(ctx, r, c.Pax)
	}
	taken, err := store.CountByCourse(ctx, c.Code)
	if err != nil {
		return err
	}
	if !c.HasSeat(taken) {
		return course.ErrSeatsFull
	}
	return store.Save(ctx, r)
}
