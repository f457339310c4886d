package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"conference/internal/adapters/email"
	"conference/internal/adapters/payment"
	"conference/internal/application/listutil"
	"conference/internal/config"
	"conference/internal/domain/accommodation"
	"conference/internal/domain/course"
	"conference/internal/domain/order"
	"conference/internal/domain/outbox"
	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

var ist = time.FixedZone("IST", 330*60)

// earlyBird is inside the early bird window of the embedded rate snapshot.
var earlyBird = time.Date(2025, time.January, 10, 12, 0, 0, 0, ist)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func testRates(t *testing.T) config.Rates {
	t.Helper()
	rates, err := config.LoadRates("")
	if err != nil {
		t.Fatalf("LoadRates: %v", err)
	}
	return rates
}

func testCalculator(t *testing.T) *pricing.Calculator {
	t.Helper()
	return pricing.NewCalculator(testRates(t).Schedule, pricing.FixedRate(83))
}

// --- Mock payment gateway ---

type mockGateway struct {
	mu        sync.Mutex
	orders    []payment.Order
	links     []payment.LinkRequest
	verifyErr error
	orderErr  error
}

// CreateOrder records the requested order.
// PRE: amount is in minor units
// POST: Returns an order with a deterministic id
func (g *mockGateway) CreateOrder(_ context.Context, amount int64, currency pricing.Currency, receipt string) (payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.orderErr != nil {
		return payment.Order{}, g.orderErr
	}
	o := payment.Order{ID: fmt.Sprintf("order_%d", len(g.orders)+1), Amount: amount, Currency: currency, Receipt: receipt, Status: "created", KeyID: "rzp_test"}
	g.orders = append(g.orders, o)
	return o, nil
}

// CreatePaymentLink records the link request.
// POST: Returns a link whose short URL embeds the amount
func (g *mockGateway) CreatePaymentLink(_ context.Context, req payment.LinkRequest) (payment.Link, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.links = append(g.links, req)
	return payment.Link{ID: "plink_1", ShortURL: fmt.Sprintf("https://rzp.io/l/%d", req.Amount), Status: "created"}, nil
}

// VerifyCheckout returns the configured error.
func (g *mockGateway) VerifyCheckout(_, paymentID, _ string) error {
	if g.verifyErr != nil {
		return g.verifyErr
	}
	if paymentID == "" {
		return payment.ErrInvalidSignature
	}
	return nil
}

// --- Mock order intent store ---

type mockIntentStore struct {
	mu       sync.Mutex
	intents  map[string]order.Intent
	releases int
}

func newMockIntentStore() *mockIntentStore {
	return &mockIntentStore{intents: make(map[string]order.Intent)}
}

// Save records a new intent.
func (m *mockIntentStore) Save(_ context.Context, in order.Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.intents[in.OrderID]; ok {
		return fmt.Errorf("duplicate order %s", in.OrderID)
	}
	m.intents[in.OrderID] = in
	return nil
}

// GetByOrderID retrieves an intent.
// POST: Returns order.ErrNotFound for unknown orders
func (m *mockIntentStore) GetByOrderID(_ context.Context, orderID string) (order.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intents[orderID]
	if !ok {
		return order.Intent{}, order.ErrNotFound
	}
	return in, nil
}

// Claim completes a pending intent under the lock.
func (m *mockIntentStore) Claim(_ context.Context, orderID, recordID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intents[orderID]
	if !ok {
		return order.ErrNotFound
	}
	if in.Status != order.StatusPending {
		return order.ErrAlreadyUsed
	}
	in.Status, in.RecordID, in.CompletedAt = order.StatusCompleted, recordID, at
	m.intents[orderID] = in
	return nil
}

// Release reopens a completed intent.
func (m *mockIntentStore) Release(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intents[orderID]
	if !ok {
		return order.ErrNotFound
	}
	in.Status, in.RecordID, in.CompletedAt = order.StatusPending, "", time.Time{}
	m.intents[orderID] = in
	m.releases++
	return nil
}

func (m *mockIntentStore) get(orderID string) order.Intent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.intents[orderID]
}

// --- Mock email sender ---

type mockSender struct {
	mu   sync.Mutex
	fail bool
	sent []email.SendRequest
}

// Send records req, or fails when configured to.
func (s *mockSender) Send(_ context.Context, req email.SendRequest) (email.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return email.SendResult{}, errors.New("relay unavailable")
	}
	s.sent = append(s.sent, req)
	return email.SendResult{MessageID: fmt.Sprintf("msg-%d", len(s.sent))}, nil
}

// SendBatch records every request.
func (s *mockSender) SendBatch(ctx context.Context, reqs []email.SendRequest) ([]email.SendResult, error) {
	out := make([]email.SendResult, 0, len(reqs))
	for _, r := range reqs {
		res, err := s.Send(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// --- Mock outbox store ---

type mockOutboxStore struct {
	mu      sync.Mutex
	entries map[string]outbox.Entry
}

func newMockOutboxStore() *mockOutboxStore {
	return &mockOutboxStore{entries: make(map[string]outbox.Entry)}
}

// GetByID retrieves a mock entry by ID.
// POST: Returns outbox.ErrNotFound for unknown ids
func (m *mockOutboxStore) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return outbox.Entry{}, outbox.ErrNotFound
	}
	return e, nil
}

// Save persists a mock entry.
func (m *mockOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

// ListDue returns due entries, oldest first.
func (m *mockOutboxStore) ListDue(_ context.Context, now time.Time, limit int) ([]outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbox.Entry
	for _, e := range m.entries {
		if (e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying) && e.Due(now) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b outbox.Entry) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// List returns entries with status, newest first.
func (m *mockOutboxStore) List(_ context.Context, status string, limit int) ([]outbox.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbox.Entry
	for _, e := range m.entries {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b outbox.Entry) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes a mock entry.
func (m *mockOutboxStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return outbox.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *mockOutboxStore) all() []outbox.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []outbox.Entry
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out
}

// --- Mock record stores ---

type mockRegistrationStore struct {
	mu      sync.Mutex
	records map[string]registration.Registration
	saveErr error
}

func newMockRegistrationStore() *mockRegistrationStore {
	return &mockRegistrationStore{records: make(map[string]registration.Registration)}
}

// GetByID retrieves a mock registration by ID.
// POST: Returns registration.ErrNotFound for unknown ids
func (m *mockRegistrationStore) GetByID(_ context.Context, id string) (registration.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return registration.Registration{}, registration.ErrNotFound
	}
	return r, nil
}

// Save persists a mock registration.
func (m *mockRegistrationStore) Save(_ context.Context, r registration.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[r.ID] = r
	return nil
}

// List returns every registration, ignoring q apart from paging.
func (m *mockRegistrationStore) List(_ context.Context, q listutil.Query) ([]registration.Registration, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []registration.Registration
	for _, r := range m.records {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b registration.Registration) int { return a.CreatedAt.Compare(b.CreatedAt) })
	total := len(out)
	if q.Offset < len(out) {
		out = out[q.Offset:]
	} else {
		out = nil
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, total, nil
}

type mockBookingStore struct {
	mu      sync.Mutex
	records map[string]accommodation.Booking
}

func newMockBookingStore() *mockBookingStore {
	return &mockBookingStore{records: make(map[string]accommodation.Booking)}
}

// GetByID retrieves a mock booking by ID.
// POST: Returns accommodation.ErrNotFound for unknown ids
func (m *mockBookingStore) GetByID(_ context.Context, id string) (accommodation.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.records[id]
	if !ok {
		return accommodation.Booking{}, accommodation.ErrNotFound
	}
	return b, nil
}

// Save persists a mock booking.
func (m *mockBookingStore) Save(_ context.Context, b accommodation.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[b.ID] = b
	return nil
}

// mockCourseStore counts and saves without any seat check of its own.
type mockCourseStore struct {
	mu      sync.Mutex
	records map[string]course.Registration
	countFn func() // called inside CountByCourse after the count is taken
	saves   int
}

func newMockCourseStore() *mockCourseStore {
	return &mockCourseStore{records: make(map[string]course.Registration)}
}

// GetByID retrieves a mock course registration by ID.
func (m *mockCourseStore) GetByID(_ context.Context, id string) (course.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return course.Registration{}, course.ErrRegistrationNotFound
	}
	return r, nil
}

// Save persists a mock course registration.
func (m *mockCourseStore) Save(_ context.Context, r course.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
	m.saves++
	return nil
}

// CountByCourse counts saved registrations for code.
func (m *mockCourseStore) CountByCourse(_ context.Context, code string) (int, error) {
	m.mu.Lock()
	n := 0
	for _, r := range m.records {
		if r.CourseCode == code {
			n++
		}
	}
	hook := m.countFn
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return n, nil
}

func (m *mockCourseStore) count(code string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.CourseCode == code {
			n++
		}
	}
	return n
}

// reservingCourseStore adds an atomic Reserve, like the SQLite store.
type reservingCourseStore struct {
	*mockCourseStore
}

// Reserve counts and inserts under one lock.
// POST: Returns course.ErrSeatsFull when pax registrations already exist
func (s reservingCourseStore) Reserve(_ context.Context, r course.Registration, pax int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, existing := range s.records {
		if existing.CourseCode == r.CourseCode {
			n++
		}
	}
	if n >= pax {
		return course.ErrSeatsFull
	}
	s.records[r.ID] = r
	s.saves++
	return nil
}

func validContact() registration.Contact {
	return registration.Contact{
		FullName: "Asha Rao",
		Email:    "Asha@Example.com ",
		Phone:    "9800000000",
		City:     "New Delhi",
		Country:  "India",
		Pincode:  "110001",
		Address:  "12 Janpath",
	}
}

func testNotifier(sender email.Sender, store OutboxWriter) *Notifier {
	return &Notifier{
		Sender:     sender,
		Outbox:     store,
		From:       "Conference <noreply@example.org>",
		ReplyTo:    "info@example.org",
		GenerateID: sequentialIDs("ob"),
		Now:        fixedNow(earlyBird),
	}
}
