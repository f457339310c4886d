package projections

import (
	"context"
	"errors"
	"testing"

	"conference/internal/application/listutil"
	"conference/internal/domain/accommodation"
	"conference/internal/domain/course"
	"conference/internal/domain/outbox"
	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

// pagedStore serves items in Limit/Offset pages and counts List calls.
type pagedStore[T any] struct {
	items []T
	calls int
	err   error
}

func (s *pagedStore[T]) List(_ context.Context, q listutil.Query) ([]T, int, error) {
	s.calls++
	if s.err != nil {
		return nil, 0, s.err
	}
	lo := min(q.Offset, len(s.items))
	hi := min(lo+q.Limit, len(s.items))
	return s.items[lo:hi], len(s.items), nil
}

type mockCourseStore struct {
	pagedStore[course.Registration]
	counts map[string]int
}

func (m *mockCourseStore) CountByCourse(_ context.Context, code string) (int, error) {
	return m.counts[code], nil
}

type mockOutboxStore struct {
	entries []outbox.Entry
}

func (m *mockOutboxStore) List(_ context.Context, status string, _ int) ([]outbox.Entry, error) {
	var out []outbox.Entry
	for _, e := range m.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestQueryGetDashboard_Totals(t *testing.T) {
	regs := &pagedStore[registration.Registration]{}
	for i := range scanPageSize + 5 {
		r := registration.Registration{
			Category:    "ISDR Member",
			AmountPaid:  15700,
			Currency:    pricing.INR,
			PaymentMode: registration.PaymentOnline,
		}
		if i%2 == 0 {
			r.PaymentMode = registration.PaymentOffline
		}
		regs.items = append(regs.items, r)
	}
	regs.items = append(regs.items, registration.Registration{
		Category: "International Delegate (IADR Member)", AmountPaid: 410, Currency: pricing.USD,
		PaymentMode: registration.PaymentOnline,
	})

	bookings := &pagedStore[accommodation.Booking]{items: []accommodation.Booking{
		{RoomType: "Twin Sharing", AmountPaid: 10000, Currency: pricing.INR, PaymentMode: registration.PaymentOnline},
		{RoomType: "Single Occupancy", AmountPaid: 150, Currency: pricing.USD, PaymentMode: registration.PaymentOffline},
	}}

	courses := &mockCourseStore{
		pagedStore: pagedStore[course.Registration]{items: []course.Registration{
			{CourseCode: "M1", Amount: 1500, PaymentID: "pay_1"},
			{CourseCode: "M1", Amount: 1500},
		}},
		counts: map[string]int{"M1": 2},
	}
	catalog := course.Catalog{{Code: "M1", Title: "Meta-analysis", Pax: 30}, {Code: "A1", Title: "Open", Pax: 0}}

	ob := &mockOutboxStore{entries: []outbox.Entry{
		{Status: outbox.StatusPending}, {Status: outbox.StatusRetrying}, {Status: outbox.StatusFailed}, {Status: outbox.StatusDone},
	}}

	res, err := QueryGetDashboard(context.Background(), GetDashboardDeps{
		Registrations:  regs,
		Accommodations: bookings,
		Courses:        courses,
		Outbox:         ob,
		Catalog:        catalog,
	})
	if err != nil {
		t.Fatalf("QueryGetDashboard: %v", err)
	}

	if res.Registrations.Count != scanPageSize+6 {
		t.Errorf("registrations = %d, want %d", res.Registrations.Count, scanPageSize+6)
	}
	if regs.calls != 2 {
		t.Errorf("registration pages fetched = %d, want 2", regs.calls)
	}
	if got := res.Registrations.Revenue[pricing.INR]; got != float64(scanPageSize+5)*15700 {
		t.Errorf("INR revenue = %v", got)
	}
	if got := res.Registrations.Revenue[pricing.USD]; got != 410 {
		t.Errorf("USD revenue = %v, want 410", got)
	}
	if res.Registrations.Offline+res.Registrations.Online != res.Registrations.Count {
		t.Errorf("online %d + offline %d != count", res.Registrations.Online, res.Registrations.Offline)
	}
	if res.ByCategory["International Delegate (IADR Member)"] != 1 {
		t.Errorf("by category = %v", res.ByCategory)
	}

	if res.Accommodations.Count != 2 || res.ByRoomType["Twin Sharing"] != 1 || res.Accommodations.Offline != 1 {
		t.Errorf("accommodations = %+v, rooms %v", res.Accommodations, res.ByRoomType)
	}
	if res.Courses.Count != 2 || res.Courses.Offline != 1 || res.Courses.Revenue[pricing.INR] != 3000 {
		t.Errorf("courses = %+v", res.Courses)
	}
	if len(res.Seats) != 2 || res.Seats[0].Taken != 2 || res.Seats[1].Course.Code != "A1" {
		t.Errorf("seats = %+v", res.Seats)
	}
	if res.OutboxPending != 2 || res.OutboxFailed != 1 {
		t.Errorf("outbox pending %d failed %d, want 2 and 1", res.OutboxPending, res.OutboxFailed)
	}
}

func TestQueryGetDashboard_Empty(t *testing.T) {
	res, err := QueryGetDashboard(context.Background(), GetDashboardDeps{
		Registrations:  &pagedStore[registration.Registration]{},
		Accommodations: &pagedStore[accommodation.Booking]{},
		Courses:        &mockCourseStore{},
	})
	if err != nil {
		t.Fatalf("QueryGetDashboard: %v", err)
	}
	if res.Registrations.Count != 0 || len(res.Seats) != 0 || res.OutboxFailed != 0 {
		t.Errorf("res = %+v", res)
	}
}

func TestQueryGetDashboard_StoreError(t *testing.T) {
	boom := errors.New("disk I/O error")
	_, err := QueryGetDashboard(context.Background(), GetDashboardDeps{
		Registrations:  &pagedStore[registration.Registration]{},
		Accommodations: &pagedStore[accommodation.Booking]{err: boom},
		Courses:        &mockCourseStore{},
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
