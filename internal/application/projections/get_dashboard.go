package projections

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"conference/internal/application/listutil"
	"conference/internal/domain/accommodation"
	"conference/internal/domain/course"
	"conference/internal/domain/outbox"
	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

// scanPageSize is how many records each List call fetches while totalling.
const scanPageSize = 200

// outboxScanLimit caps how many entries per status are counted.
const outboxScanLimit = 1000

// DashboardRegistrationStore defines the registration store interface needed by the dashboard projection.
type DashboardRegistrationStore interface {
	List(ctx context.Context, q listutil.Query) ([]registration.Registration, int, error)
}

// DashboardBookingStore defines the accommodation store interface needed by the dashboard projection.
type DashboardBookingStore interface {
	List(ctx context.Context, q listutil.Query) ([]accommodation.Booking, int, error)
}

// DashboardCourseStore defines the course store interface needed by the dashboard projection.
type DashboardCourseStore interface {
	List(ctx context.Context, q listutil.Query) ([]course.Registration, int, error)
	CountByCourse(ctx context.Context, code string) (int, error)
}

// DashboardOutboxStore defines the outbox store interface needed by the dashboard projection.
type DashboardOutboxStore interface {
	List(ctx context.Context, status string, limit int) ([]outbox.Entry, error)
}

// GetDashboardDeps holds dependencies for the dashboard projection.
type GetDashboardDeps struct {
	Registrations  DashboardRegistrationStore
	Accommodations DashboardBookingStore
	Courses        DashboardCourseStore
	Outbox         DashboardOutboxStore // optional: nil reports zero queued emails
	Catalog        course.Catalog
}

// KindSummary totals one record kind.
type KindSummary struct {
	Count   int
	Online  int
	Offline int

	// Revenue is in major units per currency.
	Revenue map[pricing.Currency]float64
}

func (k *KindSummary) add(mode string, amount float64, c pricing.Currency) {
	k.Count++
	if mode == registration.PaymentOffline {
		k.Offline++
	} else {
		k.Online++
	}
	k.Revenue[c] += amount
}

// DashboardResult carries the output of the dashboard projection.
type DashboardResult struct {
	Registrations  KindSummary
	Accommodations KindSummary
	Courses        KindSummary

	// ByCategory counts registrations per delegate category.
	ByCategory map[string]int

	// ByRoomType counts bookings per room type.
	ByRoomType map[string]int

	// Seats is occupancy per catalog course, in catalog order.
	Seats []course.Seats

	OutboxPending int
	OutboxFailed  int
}

func newKindSummary() KindSummary {
	return KindSummary{Revenue: map[pricing.Currency]float64{}}
}

// QueryGetDashboard totals every saved record for the back office overview.
// PRE: Registrations, Accommodations and Courses stores are set
// POST: Record counts match the stores' totals at read time
// INVARIANT: Read-only; nothing is written
func QueryGetDashboard(ctx context.Context, deps GetDashboardDeps) (DashboardResult, error) {
	res := DashboardResult{
		Registrations:  newKindSummary(),
		Accommodations: newKindSummary(),
		Courses:        newKindSummary(),
		ByCategory:     map[string]int{},
		ByRoomType:     map[string]int{},
		Seats:          make([]course.Seats, len(deps.Catalog)),
	}

	// Each goroutine writes only its own fields of res.
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scan(ctx, deps.Registrations.List, func(r registration.Registration) {
			res.Registrations.add(r.PaymentMode, r.AmountPaid, r.Currency)
			res.ByCategory[r.Category]++
		})
	})
	g.Go(func() error {
		return scan(ctx, deps.Accommodations.List, func(b accommodation.Booking) {
			res.Accommodations.add(b.PaymentMode, b.AmountPaid, b.Currency)
			res.ByRoomType[b.RoomType]++
		})
	})
	g.Go(func() error {
		return scan(ctx, deps.Courses.List, func(r course.Registration) {
			mode := registration.PaymentOnline
			if r.PaymentID == "" {
				mode = registration.PaymentOffline
			}
			res.Courses.add(mode, r.Amount, pricing.INR)
		})
	})
	g.Go(func() error {
		for i, c := range deps.Catalog {
			taken, err := deps.Courses.CountByCourse(ctx, c.Code)
			if err != nil {
				return fmt.Errorf("count %s: %w", c.Code, err)
			}
			res.Seats[i] = course.Seats{Course: c, Taken: taken}
		}
		return nil
	})
	if deps.Outbox != nil {
		g.Go(func() error {
			pending, err := deps.Outbox.List(ctx, outbox.StatusPending, outboxScanLimit)
			if err != nil {
				return fmt.Errorf("list pending outbox: %w", err)
			}
			retrying, err := deps.Outbox.List(ctx, outbox.StatusRetrying, outboxScanLimit)
			if err != nil {
				return fmt.Errorf("list retrying outbox: %w", err)
			}
			failed, err := deps.Outbox.List(ctx, outbox.StatusFailed, outboxScanLimit)
			if err != nil {
				return fmt.Errorf("list failed outbox: %w", err)
			}
			res.OutboxPending = len(pending) + len(retrying)
			res.OutboxFailed = len(failed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return DashboardResult{}, err
	}
	return res, nil
}

// scan walks every page of a listing in creation order.
func scan[T any](ctx context.Context, list func(context.Context, listutil.Query) ([]T, int, error), each func(T)) error {
	q := listutil.Query{Sort: "created_at", Limit: scanPageSize}
	for {
		items, total, err := list(ctx, q)
		if err != nil {
			return err
		}
		for _, it := range items {
			each(it)
		}
		q.Offset += len(items)
		if len(items) == 0 || q.Offset >= total {
			return nil
		}
	}
}
