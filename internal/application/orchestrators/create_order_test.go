package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"conference/internal/domain/accommodation"
	"conference/internal/domain/course"
	"conference/internal/domain/order"
	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

func quoteDeps(t *testing.T) QuoteDeps {
	return QuoteDeps{Calculator: testCalculator(t), Now: fixedNow(earlyBird)}
}

func TestExecuteQuote_EarlyBird(t *testing.T) {
	q := ExecuteQuote(context.Background(), QuoteInput{Category: "ISDR Member", EventType: "IADR-APR"}, quoteDeps(t))
	if q.Amount != 1570000 || q.Currency != pricing.INR {
		t.Fatalf("quote = %d %s, want 1570000 INR", q.Amount, q.Currency)
	}
	if q.Tier != pricing.TierEarlyBird {
		t.Errorf("tier = %s, want earlyBird", q.Tier)
	}
}

func TestExecuteQuote_NegativeAccompanyingTreatedAsNone(t *testing.T) {
	q := ExecuteQuote(context.Background(), QuoteInput{Category: "ISDR Member", EventType: "IADR-APR", NumberOfAccompanying: -2}, quoteDeps(t))
	if q.AccompanyingAmount != 0 || q.Amount != 1570000 {
		t.Errorf("quote = %+v, want primary fee only", q)
	}
}

func TestExecuteAccommodationQuote(t *testing.T) {
	in := time.Date(2025, time.September, 10, 14, 0, 0, 0, ist)
	tests := []struct {
		name       string
		input      AccommodationQuoteInput
		wantAmount int64
		wantNights int
	}{
		{"indian twin three nights", AccommodationQuoteInput{pricing.DelegateIndian, pricing.RoomTwinSharing, in, in.AddDate(0, 0, 3)}, 1500000, 3},
		{"international single", AccommodationQuoteInput{pricing.DelegateInternational, pricing.RoomSingleOccupancy, in, in.AddDate(0, 0, 2)}, 30000, 2},
		{"partial day rounds up", AccommodationQuoteInput{pricing.DelegateIndian, pricing.RoomSingleOccupancy, in, in.Add(25 * time.Hour)}, 2000000, 2},
		{"missing room", AccommodationQuoteInput{pricing.DelegateIndian, "", in, in.AddDate(0, 0, 3)}, 0, 0},
		{"checkout before checkin", AccommodationQuoteInput{pricing.DelegateIndian, pricing.RoomTwinSharing, in, in.AddDate(0, 0, -1)}, 0, 0},
		{"unset checkin", AccommodationQuoteInput{pricing.DelegateIndian, pricing.RoomTwinSharing, time.Time{}, in}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ExecuteAccommodationQuote(context.Background(), tt.input, quoteDeps(t))
			if q.Amount != tt.wantAmount || q.Nights != tt.wantNights {
				t.Errorf("quote = %d over %d nights, want %d over %d", q.Amount, q.Nights, tt.wantAmount, tt.wantNights)
			}
		})
	}
}

func orderDeps(t *testing.T, gw *mockGateway, seats SeatCounter, intents *mockIntentStore) CreateOrderDeps {
	if intents == nil {
		intents = newMockIntentStore()
	}
	return CreateOrderDeps{
		Quotes:     quoteDeps(t),
		Courses:    testRates(t).Courses,
		Seats:      seats,
		Gateway:    gw,
		Intents:    intents,
		GenerateID: func() string { return "3f1c2a9e-7b4d-4e21-9a55-0c8d6b1e2f30" },
	}
}

func attendeeForm() registration.Registration {
	return registration.Registration{Contact: validContact(), Category: "ISDR Member", EventType: "IADR-APR"}
}

func courseForm(code string) course.Registration {
	return course.Registration{FullName: "Asha Rao", Phone: "9800000000", Email: "asha@example.com", CourseCode: code, CourseDate: "2025-09-11"}
}

// openOrder creates an order for sel and returns the checkout a successful payment would post.
func openOrder(t *testing.T, deps CreateOrderDeps, sel Selection) Checkout {
	t.Helper()
	res, err := ExecuteCreateOrder(context.Background(), sel, deps)
	if err != nil {
		t.Fatalf("ExecuteCreateOrder: %v", err)
	}
	return Checkout{OrderID: res.Order.ID, PaymentID: "pay_" + strings.TrimPrefix(res.Order.ID, "order_"), Signature: "sig"}
}

func TestExecuteCreateOrder_RegistrationUsesServerAmount(t *testing.T) {
	gw := &mockGateway{}
	intents := newMockIntentStore()
	res, err := ExecuteCreateOrder(context.Background(), Selection{
		Kind:         OrderRegistration,
		Registration: attendeeForm(),
	}, orderDeps(t, gw, nil, intents))
	if err != nil {
		t.Fatalf("ExecuteCreateOrder: %v", err)
	}
	if len(gw.orders) != 1 || gw.orders[0].Amount != 1570000 || gw.orders[0].Currency != pricing.INR {
		t.Fatalf("gateway orders = %+v", gw.orders)
	}
	if res.Priced.Registration.Tier != pricing.TierEarlyBird {
		t.Errorf("priced tier = %s", res.Priced.Registration.Tier)
	}
	if r := gw.orders[0].Receipt; len(r) > maxReceiptLength || !strings.HasPrefix(r, "reg_") {
		t.Errorf("receipt = %q", r)
	}

	in := intents.get(res.Order.ID)
	if in.Status != order.StatusPending || in.Kind != string(OrderRegistration) || in.Amount != 1570000 || in.Currency != pricing.INR {
		t.Errorf("intent = %+v", in)
	}
	if !strings.Contains(in.Payload, "asha@example.com") {
		t.Errorf("intent payload should carry the normalized form: %s", in.Payload)
	}
}

func TestExecuteCreateOrder_InvalidFormNeverReachesGateway(t *testing.T) {
	mismatched := attendeeForm()
	mismatched.Accompanying = registration.AccompanyingYes
	mismatched.NumberOfAccompanying = 2
	mismatched.AccompanyingPersons = []registration.Person{{Name: "Ravi"}}

	noPhone := attendeeForm()
	noPhone.Phone = ""

	backwards := validBooking()
	backwards.CheckOutDate = backwards.CheckInDate.AddDate(0, 0, -2)

	tests := []struct {
		name    string
		sel     Selection
		wantErr error
	}{
		{"persons count mismatch", Selection{Kind: OrderRegistration, Registration: mismatched}, registration.ErrAccompanyingCount},
		{"missing phone", Selection{Kind: OrderRegistration, Registration: noPhone}, registration.ErrPhoneEmpty},
		{"checkout before checkin", Selection{Kind: OrderAccommodation, Accommodation: backwards}, accommodation.ErrDatesOrder},
		{"course without name", Selection{Kind: OrderCourse, Course: course.Registration{Email: "a@b.c", Phone: "1", CourseCode: "M1"}}, course.ErrFullNameEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockGateway{}
			intents := newMockIntentStore()
			_, err := ExecuteCreateOrder(context.Background(), tt.sel, orderDeps(t, gw, newMockCourseStore(), intents))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(gw.orders) != 0 || len(intents.intents) != 0 {
				t.Errorf("orders = %d intents = %d, want none", len(gw.orders), len(intents.intents))
			}
		})
	}
}

func TestExecuteCreateOrder_ZeroAmountRejected(t *testing.T) {
	gw := &mockGateway{}
	form := attendeeForm()
	form.Category = "Unknown"
	_, err := ExecuteCreateOrder(context.Background(), Selection{
		Kind:         OrderRegistration,
		Registration: form,
	}, orderDeps(t, gw, nil, nil))
	if !errors.Is(err, ErrSelectionIncomplete) {
		t.Fatalf("err = %v, want ErrSelectionIncomplete", err)
	}
	if len(gw.orders) != 0 {
		t.Error("no gateway order should be created for a zero amount")
	}
}

func TestExecuteCreateOrder_Accommodation(t *testing.T) {
	gw := &mockGateway{}
	b := validBooking()
	b.DelegateType = pricing.DelegateInternational
	b.CheckOutDate = b.CheckInDate.AddDate(0, 0, 4)
	res, err := ExecuteCreateOrder(context.Background(), Selection{
		Kind:          OrderAccommodation,
		Accommodation: b,
	}, orderDeps(t, gw, nil, nil))
	if err != nil {
		t.Fatalf("ExecuteCreateOrder: %v", err)
	}
	if res.Order.Amount != 30000 || res.Order.Currency != pricing.USD {
		t.Errorf("order = %d %s, want 30000 USD", res.Order.Amount, res.Order.Currency)
	}
}

func TestExecuteCreateOrder_Course(t *testing.T) {
	store := newMockCourseStore()
	gw := &mockGateway{}
	res, err := ExecuteCreateOrder(context.Background(), Selection{Kind: OrderCourse, Course: courseForm("F1")}, orderDeps(t, gw, store, nil))
	if err != nil {
		t.Fatalf("ExecuteCreateOrder: %v", err)
	}
	if res.Order.Amount != 300000 {
		t.Errorf("F1 order amount = %d, want 300000", res.Order.Amount)
	}

	_, err = ExecuteCreateOrder(context.Background(), Selection{Kind: OrderCourse, Course: courseForm("Z9")}, orderDeps(t, gw, store, nil))
	if !errors.Is(err, course.ErrCourseNotFound) {
		t.Errorf("unknown course err = %v", err)
	}
}

func TestExecuteCreateOrder_FullCourseRejectedBeforePayment(t *testing.T) {
	store := newMockCourseStore()
	for i := range 25 {
		store.records[string(rune('a'+i))] = course.Registration{ID: string(rune('a' + i)), CourseCode: "A3"}
	}
	gw := &mockGateway{}
	_, err := ExecuteCreateOrder(context.Background(), Selection{Kind: OrderCourse, Course: courseForm("A3")}, orderDeps(t, gw, store, nil))
	if !errors.Is(err, course.ErrSeatsFull) {
		t.Fatalf("err = %v, want ErrSeatsFull", err)
	}
	if len(gw.orders) != 0 {
		t.Error("no gateway order should be created for a full course")
	}
}

func TestExecuteCreateOrder_UnknownKind(t *testing.T) {
	_, err := ExecuteCreateOrder(context.Background(), Selection{Kind: "sponsorship"}, orderDeps(t, &mockGateway{}, nil, nil))
	if !errors.Is(err, ErrUnknownOrderKind) {
		t.Errorf("err = %v, want ErrUnknownOrderKind", err)
	}
}

func TestExecuteCreateOrder_GatewayErrorWrapped(t *testing.T) {
	gw := &mockGateway{orderErr: errors.New("timeout")}
	intents := newMockIntentStore()
	_, err := ExecuteCreateOrder(context.Background(), Selection{
		Kind:         OrderRegistration,
		Registration: attendeeForm(),
	}, orderDeps(t, gw, nil, intents))
	if err == nil || !strings.Contains(err.Error(), "create order") {
		t.Errorf("err = %v", err)
	}
	if len(intents.intents) != 0 {
		t.Error("no intent should be kept without a gateway order")
	}
}
