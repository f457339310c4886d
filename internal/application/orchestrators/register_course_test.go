package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"conference/internal/domain/course"
	"conference/internal/domain/order"
)

func courseDeps(t *testing.T, store CourseRegistrationStore, catalog course.Catalog, sender *mockSender) RegisterCourseDeps {
	if catalog == nil {
		catalog = testRates(t).Courses
	}
	return RegisterCourseDeps{
		Store:      store,
		Intents:    newMockIntentStore(),
		Courses:    catalog,
		Gateway:    &mockGateway{},
		Notifier:   testNotifier(sender, newMockOutboxStore()),
		GenerateID: sequentialIDs("pcc"),
		Now:        fixedNow(earlyBird),
	}
}

// paidCourse opens an order for code against the deps' catalog and returns the sign-up
// its checkout would complete. Seats are not counted so tests can oversell on purpose.
func paidCourse(t *testing.T, deps RegisterCourseDeps, code string) RegisterCourseInput {
	t.Helper()
	co := openOrder(t, CreateOrderDeps{
		Quotes:     quoteDeps(t),
		Courses:    deps.Courses,
		Gateway:    deps.Gateway,
		Intents:    deps.Intents,
		GenerateID: sequentialIDs("rcpt"),
	}, Selection{Kind: OrderCourse, Course: courseForm(code)})
	return RegisterCourseInput{Checkout: co}
}

func TestExecuteRegisterCourse_Success(t *testing.T) {
	store := newMockCourseStore()
	sender := &mockSender{}
	deps := courseDeps(t, store, nil, sender)
	in := paidCourse(t, deps, "M1")
	in.Registration = course.Registration{FullName: "Someone Else", CourseCode: "F1"} // ignored online
	res, err := ExecuteRegisterCourse(context.Background(), in, deps)
	if err != nil {
		t.Fatalf("ExecuteRegisterCourse: %v", err)
	}
	saved := store.records[res.ID]
	if saved.Amount != 1800 || saved.CourseCode != "M1" || saved.FullName != "Asha Rao" || saved.CourseName == "" || saved.PaymentID != in.Checkout.PaymentID {
		t.Errorf("saved = %+v", saved)
	}
	if res.EmailStatus != EmailStatusSent || len(sender.sent) != 1 {
		t.Errorf("email status %q, sent %d", res.EmailStatus, len(sender.sent))
	}
}

func TestExecuteRegisterCourse_UnknownCourse(t *testing.T) {
	in := RegisterCourseInput{Registration: courseForm("Z9"), Offline: true}
	_, err := ExecuteRegisterCourse(context.Background(), in, courseDeps(t, newMockCourseStore(), nil, &mockSender{}))
	if !errors.Is(err, course.ErrCourseNotFound) {
		t.Errorf("err = %v, want ErrCourseNotFound", err)
	}
}

func TestExecuteRegisterCourse_OrderMisuseRejected(t *testing.T) {
	store := newMockCourseStore()
	deps := courseDeps(t, store, nil, &mockSender{})
	intents := deps.Intents.(*mockIntentStore)

	regOrder := openOrder(t, CreateOrderDeps{
		Quotes: quoteDeps(t), Courses: deps.Courses, Gateway: deps.Gateway, Intents: intents, GenerateID: sequentialIDs("rcpt"),
	}, Selection{Kind: OrderRegistration, Registration: attendeeForm()})
	_, err := ExecuteRegisterCourse(context.Background(), RegisterCourseInput{Checkout: regOrder}, deps)
	if !errors.Is(err, order.ErrKindMismatch) {
		t.Errorf("registration order err = %v, want order.ErrKindMismatch", err)
	}

	in := paidCourse(t, deps, "M1")
	if _, err := ExecuteRegisterCourse(context.Background(), in, deps); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	for range 2 {
		if _, err := ExecuteRegisterCourse(context.Background(), in, deps); !errors.Is(err, order.ErrAlreadyUsed) {
			t.Errorf("replay err = %v, want order.ErrAlreadyUsed", err)
		}
	}
	if got := store.count("M1"); got != 1 {
		t.Errorf("registrations = %d, want 1", got)
	}
}

func TestExecuteRegisterCourse_RejectsWhenFull(t *testing.T) {
	catalog := course.Catalog{{Code: "T1", Title: "Tiny", Fee: 1800, Pax: 2}}
	for _, name := range []string{"count-then-save", "reserver"} {
		t.Run(name, func(t *testing.T) {
			base := newMockCourseStore()
			var store CourseRegistrationStore = base
			if name == "reserver" {
				store = reservingCourseStore{base}
			}
			deps := courseDeps(t, store, catalog, &mockSender{})
			for i := range 2 {
				if _, err := ExecuteRegisterCourse(context.Background(), paidCourse(t, deps, "T1"), deps); err != nil {
					t.Fatalf("registration %d: %v", i+1, err)
				}
			}
			late := paidCourse(t, deps, "T1")
			_, err := ExecuteRegisterCourse(context.Background(), late, deps)
			if !errors.Is(err, course.ErrSeatsFull) {
				t.Fatalf("third registration err = %v, want ErrSeatsFull", err)
			}
			if got := base.count("T1"); got != 2 {
				t.Errorf("registrations = %d, want 2", got)
			}
			if in := deps.Intents.(*mockIntentStore).get(late.Checkout.OrderID); in.Status != order.StatusPending {
				t.Errorf("full course should reopen the order, status %q", in.Status)
			}
		})
	}
}

func TestExecuteRegisterCourse_UncappedNeverFull(t *testing.T) {
	catalog := course.Catalog{{Code: "OPEN", Title: "Open", Fee: 1000}}
	store := newMockCourseStore()
	deps := courseDeps(t, store, catalog, &mockSender{})
	for range 5 {
		if _, err := ExecuteRegisterCourse(context.Background(), paidCourse(t, deps, "OPEN"), deps); err != nil {
			t.Fatalf("ExecuteRegisterCourse: %v", err)
		}
	}
	if store.count("OPEN") != 5 {
		t.Errorf("count = %d", store.count("OPEN"))
	}
}

// Two requests that both count before either saves are both admitted by the
// count-then-save path. This is why capped courses prefer a SeatReserver store.
func TestExecuteRegisterCourse_CountThenSaveRaceAdmitsOverCap(t *testing.T) {
	catalog := course.Catalog{{Code: "T1", Title: "Tiny", Fee: 1800, Pax: 1}}
	store := newMockCourseStore()
	deps := courseDeps(t, store, catalog, &mockSender{})
	inputs := []RegisterCourseInput{paidCourse(t, deps, "T1"), paidCourse(t, deps, "T1")}

	var counted sync.WaitGroup
	counted.Add(2)
	store.countFn = func() {
		counted.Done()
		counted.Wait()
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = ExecuteRegisterCourse(context.Background(), inputs[i], deps)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if got := store.count("T1"); got != 2 {
		t.Errorf("count = %d, want 2 (both requests passed the check)", got)
	}
}

func TestExecuteRegisterCourse_ReserverHoldsCapUnderConcurrency(t *testing.T) {
	catalog := course.Catalog{{Code: "T1", Title: "Tiny", Fee: 1800, Pax: 3}}
	base := newMockCourseStore()
	deps := courseDeps(t, reservingCourseStore{base}, catalog, &mockSender{})
	inputs := make([]RegisterCourseInput, 10)
	for i := range inputs {
		inputs[i] = paidCourse(t, deps, "T1")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	full := 0
	for i := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ExecuteRegisterCourse(context.Background(), inputs[i], deps)
			if errors.Is(err, course.ErrSeatsFull) {
				mu.Lock()
				full++
				mu.Unlock()
			} else if err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := base.count("T1"); got != 3 {
		t.Errorf("count = %d, want 3", got)
	}
	if full != 7 {
		t.Errorf("rejected = %d, want 7", full)
	}
}

func TestExecuteRegisterCourse_Offline(t *testing.T) {
	store := newMockCourseStore()
	sender := &mockSender{}
	in := RegisterCourseInput{Registration: courseForm("F1"), Offline: true}
	in.Registration.Amount = 2500
	res, err := ExecuteRegisterCourse(context.Background(), in, courseDeps(t, store, nil, sender))
	if err != nil {
		t.Fatalf("ExecuteRegisterCourse: %v", err)
	}
	if res.AmountPaid != 2500 || res.EmailStatus != EmailStatusSkipped || len(sender.sent) != 0 {
		t.Errorf("result = %+v, sent %d", res, len(sender.sent))
	}
	if saved := store.records[res.ID]; saved.PaymentID != "" {
		t.Errorf("offline payment id = %q", saved.PaymentID)
	}
}

func TestExecuteCourseSeats(t *testing.T) {
	store := newMockCourseStore()
	for i := range 4 {
		id := fmt.Sprintf("r%d", i)
		store.records[id] = course.Registration{ID: id, CourseCode: "A3"}
	}
	catalog := testRates(t).Courses
	seats, err := ExecuteCourseSeats(context.Background(), CourseSeatsDeps{Store: store, Courses: catalog})
	if err != nil {
		t.Fatalf("ExecuteCourseSeats: %v", err)
	}
	if len(seats) != len(catalog) {
		t.Fatalf("seats = %d, want %d", len(seats), len(catalog))
	}
	for i, s := range seats {
		if s.Course.Code != catalog[i].Code {
			t.Errorf("seats[%d] = %s, want catalog order", i, s.Course.Code)
		}
		if s.Course.Code == "A3" && (s.Taken != 4 || s.Course.SeatsAvailable(s.Taken) != 21) {
			t.Errorf("A3 = %+v", s)
		}
	}

	one, err := ExecuteCourseCount(context.Background(), "A3", CourseSeatsDeps{Store: store, Courses: catalog})
	if err != nil || one.Taken != 4 {
		t.Errorf("ExecuteCourseCount = %+v, %v", one, err)
	}
	if _, err := ExecuteCourseCount(context.Background(), "nope", CourseSeatsDeps{Store: store, Courses: catalog}); !errors.Is(err, course.ErrCourseNotFound) {
		t.Errorf("unknown code err = %v", err)
	}
}
