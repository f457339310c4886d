package web

import (
	"strings"
	"time"

	"conference/internal/application/orchestrators"
	"conference/internal/application/projections"
	"conference/internal/domain/accommodation"
	"conference/internal/domain/course"
	"conference/internal/domain/outbox"
	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

// dateLayout is the wire format for check-in and check-out dates.
const dateLayout = "2006-01-02"

func parseDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// --- Requests ---

type contactRequest struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,max=20"`
	City     string `json:"city" validate:"required"`
	Country  string `json:"country" validate:"required"`
	Pincode  string `json:"pincode" validate:"required,max=12"`
	Address  string `json:"address" validate:"required"`
}

func (c contactRequest) contact() registration.Contact {
	return registration.Contact{
		FullName: c.FullName, Email: c.Email, Phone: c.Phone,
		City: c.City, Country: c.Country, Pincode: c.Pincode, Address: c.Address,
	}
}

// checkoutRequest is what the checkout widget hands back on success.
type checkoutRequest struct {
	OrderID   string `json:"razorpayOrderId" validate:"required"`
	PaymentID string `json:"razorpayPaymentId" validate:"required"`
	Signature string `json:"razorpaySignature" validate:"required"`
}

func (c checkoutRequest) checkout() orchestrators.Checkout {
	return orchestrators.Checkout{OrderID: c.OrderID, PaymentID: c.PaymentID, Signature: c.Signature}
}

// withAmount attaches the amount the page displayed, if the client sent one.
func withAmount(co orchestrators.Checkout, shown *float64) orchestrators.Checkout {
	co.ClientAmount = shown
	return co
}

type quoteRequest struct {
	Category             string `json:"category"`
	EventType            string `json:"eventType"`
	NumberOfAccompanying int    `json:"numberOfAccompanying" validate:"gte=0,lte=10"`
	CouponCode           string `json:"couponCode" validate:"max=40"`
}

func (q quoteRequest) input() orchestrators.QuoteInput {
	return orchestrators.QuoteInput{
		Category:             q.Category,
		EventType:            q.EventType,
		NumberOfAccompanying: q.NumberOfAccompanying,
		CouponCode:           strings.TrimSpace(q.CouponCode),
	}
}

type accommodationQuoteRequest struct {
	DelegateType string `json:"delegateType"`
	RoomType     string `json:"roomType"`
	CheckInDate  string `json:"checkInDate" validate:"omitempty,datetime=2006-01-02"`
	CheckOutDate string `json:"checkOutDate" validate:"omitempty,datetime=2006-01-02"`
}

func (q accommodationQuoteRequest) input() orchestrators.AccommodationQuoteInput {
	return orchestrators.AccommodationQuoteInput{
		DelegateType: q.DelegateType,
		RoomType:     q.RoomType,
		CheckIn:      parseDate(q.CheckInDate),
		CheckOut:     parseDate(q.CheckOutDate),
	}
}

type personRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type registrationRequest struct {
	contactRequest
	Category             string          `json:"category" validate:"required"`
	EventType            string          `json:"eventType" validate:"required"`
	Accompanying         string          `json:"accompanying" validate:"omitempty,oneof=Yes No"`
	NumberOfAccompanying int             `json:"numberOfAccompanying" validate:"gte=0,lte=10"`
	AccompanyingPersons  []personRequest `json:"accompanyingPersons" validate:"dive"`
	CouponCode           string          `json:"couponCode" validate:"max=40"`
}

func (r registrationRequest) registration() registration.Registration {
	persons := make([]registration.Person, len(r.AccompanyingPersons))
	for i, p := range r.AccompanyingPersons {
		persons[i] = registration.Person{Name: p.Name}
	}
	return registration.Registration{
		Contact:              r.contact(),
		Category:             r.Category,
		EventType:            r.EventType,
		Accompanying:         r.Accompanying,
		NumberOfAccompanying: r.NumberOfAccompanying,
		AccompanyingPersons:  persons,
		CouponCode:           strings.TrimSpace(r.CouponCode),
	}
}

// orderRequest carries the whole form so it is validated before the visitor pays.
// Exactly the form named by Kind must be present.
type orderRequest struct {
	Kind          string                `json:"kind" validate:"required,oneof=registration accommodation course"`
	Registration  *registrationRequest  `json:"registration,omitempty"`
	Accommodation *accommodationRequest `json:"accommodation,omitempty"`
	Course        *courseRequest        `json:"course,omitempty"`
}

func (o orderRequest) selection() (orchestrators.Selection, error) {
	sel := orchestrators.Selection{Kind: orchestrators.OrderKind(o.Kind)}
	switch sel.Kind {
	case orchestrators.OrderRegistration:
		if o.Registration == nil {
			return sel, errBadRequest("registration is required for a registration order")
		}
		sel.Registration = o.Registration.registration()
	case orchestrators.OrderAccommodation:
		if o.Accommodation == nil {
			return sel, errBadRequest("accommodation is required for an accommodation order")
		}
		sel.Accommodation = o.Accommodation.booking()
	case orchestrators.OrderCourse:
		if o.Course == nil {
			return sel, errBadRequest("course is required for a course order")
		}
		sel.Course = o.Course.registration()
	}
	return sel, nil
}

// completeRegistrationRequest is the checkout for a registration order. The form was sent with the order.
type completeRegistrationRequest struct {
	checkoutRequest
	// ClientAmount, when sent, must equal the order amount.
	ClientAmount *float64 `json:"amountPaid,omitempty"`
}

type adminRegistrationRequest struct {
	registrationRequest
	AmountPaid  float64 `json:"amountPaid" validate:"gte=0"`
	Currency    string  `json:"currency" validate:"omitempty,oneof=INR USD"`
	PaymentID   string  `json:"paymentId"`
	PaymentMode string  `json:"paymentMode" validate:"omitempty,oneof=online offline"`
	SendEmail   bool    `json:"sendEmail"`
}

func (a adminRegistrationRequest) registration() registration.Registration {
	r := a.registrationRequest.registration()
	r.AmountPaid = a.AmountPaid
	r.Currency = pricing.Currency(a.Currency)
	r.PaymentID = a.PaymentID
	r.PaymentMode = a.PaymentMode
	return r
}

type accommodationRequest struct {
	Title string `json:"title" validate:"max=20"`
	contactRequest
	DelegateType            string `json:"delegateType" validate:"required"`
	RoomType                string `json:"roomType" validate:"required"`
	TwinSharingDelegateName string `json:"twinSharingDelegateName" validate:"max=120"`
	CheckInDate             string `json:"checkInDate" validate:"required,datetime=2006-01-02"`
	CheckOutDate            string `json:"checkOutDate" validate:"required,datetime=2006-01-02"`
}

func (a accommodationRequest) booking() accommodation.Booking {
	return accommodation.Booking{
		Title:                   a.Title,
		Contact:                 a.contact(),
		DelegateType:            a.DelegateType,
		RoomType:                a.RoomType,
		TwinSharingDelegateName: a.TwinSharingDelegateName,
		CheckInDate:             parseDate(a.CheckInDate),
		CheckOutDate:            parseDate(a.CheckOutDate),
	}
}

type completeAccommodationRequest struct {
	checkoutRequest
	ClientAmount *float64 `json:"amountPaid,omitempty"`
}

type adminAccommodationRequest struct {
	accommodationRequest
	AmountPaid  float64 `json:"amountPaid" validate:"gte=0"`
	Currency    string  `json:"currency" validate:"omitempty,oneof=INR USD"`
	PaymentID   string  `json:"paymentId"`
	PaymentMode string  `json:"paymentMode" validate:"omitempty,oneof=online offline"`
	SendEmail   bool    `json:"sendEmail"`
}

func (a adminAccommodationRequest) booking() accommodation.Booking {
	b := a.accommodationRequest.booking()
	b.AmountPaid = a.AmountPaid
	b.Currency = pricing.Currency(a.Currency)
	b.PaymentID = a.PaymentID
	b.PaymentMode = a.PaymentMode
	return b
}

type courseRequest struct {
	FullName   string `json:"fullName" validate:"required,max=120"`
	Phone      string `json:"phone" validate:"required,max=20"`
	Email      string `json:"email" validate:"required,email"`
	CourseCode string `json:"courseCode" validate:"required"`
	CourseDate string `json:"courseDate" validate:"max=40"`
}

func (c courseRequest) registration() course.Registration {
	return course.Registration{
		FullName:   strings.TrimSpace(c.FullName),
		Phone:      strings.TrimSpace(c.Phone),
		Email:      strings.ToLower(strings.TrimSpace(c.Email)),
		CourseCode: strings.TrimSpace(c.CourseCode),
		CourseDate: c.CourseDate,
	}
}

type completeCourseRequest struct {
	checkoutRequest
	ClientAmount *float64 `json:"amount,omitempty"`
}

type adminCourseRequest struct {
	courseRequest
	// Amount is optional; a missing amount is stored as 0.
	Amount    *float64 `json:"amount" validate:"omitempty,gte=0"`
	PaymentID string   `json:"paymentId"`
	SendEmail bool     `json:"sendEmail"`
}

func (a adminCourseRequest) registration() course.Registration {
	r := a.courseRequest.registration()
	if a.Amount != nil {
		r.Amount = *a.Amount
	}
	r.PaymentID = a.PaymentID
	return r
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

type paymentLinkRequest struct {
	FullName string `json:"fullName" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"max=20"`
	// Amount is in major units (rupees or dollars).
	Amount      float64 `json:"amount" validate:"gt=0"`
	Currency    string  `json:"currency" validate:"required"`
	Description string  `json:"description" validate:"max=255"`
	Note        string  `json:"note" validate:"max=4000"`
}

type confirmationRequest struct {
	RecordKind string   `json:"recordKind" validate:"required"`
	IDs        []string `json:"ids" validate:"required,min=1,max=100,dive,required"`
}

// --- Responses ---

type quoteResponse struct {
	Amount                float64 `json:"amount"`
	AmountMinor           int64   `json:"amountMinor"`
	Currency              string  `json:"currency"`
	Formatted             string  `json:"formatted"`
	Tier                  string  `json:"tier"`
	RateVersion           string  `json:"rateVersion"`
	BaseFee               string  `json:"baseFee"`
	ConvenienceFee        string  `json:"convenienceFee"`
	PrimaryAmount         int64   `json:"primaryAmountMinor"`
	EffectiveAccompanying int     `json:"effectiveAccompanying"`
	AccompanyingAmount    int64   `json:"accompanyingAmountMinor"`
	CouponApplied         bool    `json:"couponApplied"`
	CouponCode            string  `json:"couponCode,omitempty"`
	Discount              int64   `json:"discountMinor,omitempty"`
	OriginalAmount        int64   `json:"originalAmountMinor,omitempty"`
}

func newQuoteResponse(q pricing.Quote) quoteResponse {
	return quoteResponse{
		Amount:                pricing.ToMajor(q.Amount),
		AmountMinor:           q.Amount,
		Currency:              string(q.Currency),
		Formatted:             pricing.FormatMoney(q.Amount, q.Currency),
		Tier:                  string(q.Tier),
		RateVersion:           q.RateVersion,
		BaseFee:               q.BaseFee,
		ConvenienceFee:        q.ConvenienceFee,
		PrimaryAmount:         q.PrimaryAmount,
		EffectiveAccompanying: q.EffectiveAccompanying,
		AccompanyingAmount:    q.AccompanyingAmount,
		CouponApplied:         q.CouponApplied,
		CouponCode:            q.CouponCode,
		Discount:              q.Discount,
		OriginalAmount:        q.OriginalAmount,
	}
}

type accommodationQuoteResponse struct {
	Amount      float64 `json:"amount"`
	AmountMinor int64   `json:"amountMinor"`
	Currency    string  `json:"currency"`
	DailyRate   float64 `json:"dailyRate"`
	Nights      int     `json:"nights"`
	Formatted   string  `json:"formatted"`
}

func newAccommodationQuoteResponse(q pricing.AccommodationQuote) accommodationQuoteResponse {
	return accommodationQuoteResponse{
		Amount:      pricing.ToMajor(q.Amount),
		AmountMinor: q.Amount,
		Currency:    string(q.Currency),
		DailyRate:   pricing.ToMajor(q.DailyRate),
		Nights:      q.Nights,
		Formatted:   pricing.FormatMoney(q.Amount, q.Currency),
	}
}

type orderResponse struct {
	OrderID string `json:"orderId"`
	// Amount is in minor units, as the checkout widget expects.
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	KeyID    string `json:"keyId,omitempty"`
}

type completionResponse struct {
	ID          string  `json:"id"`
	AmountPaid  float64 `json:"amountPaid"`
	Currency    string  `json:"currency"`
	EmailStatus string  `json:"emailStatus"`
	Message     string  `json:"message,omitempty"`
}

func newCompletionResponse(c orchestrators.CompletionResult) completionResponse {
	return completionResponse{
		ID:          c.ID,
		AmountPaid:  c.AmountPaid,
		Currency:    string(c.Currency),
		EmailStatus: c.EmailStatus,
		Message:     c.Message,
	}
}

type courseSeatsResponse struct {
	Code               string   `json:"code"`
	CourseName         string   `json:"courseName"`
	Type               string   `json:"type,omitempty"`
	Fee                float64  `json:"fee"`
	Conductors         []string `json:"conductors,omitempty"`
	TotalRegistrations int      `json:"totalRegistrations"`
	MaxSeats           int      `json:"maxSeats"`
	// SeatsAvailable is -1 for uncapped courses.
	SeatsAvailable int `json:"seatsAvailable"`
}

func newCourseSeatsResponse(s course.Seats) courseSeatsResponse {
	return courseSeatsResponse{
		Code:               s.Course.Code,
		CourseName:         s.Course.Title,
		Type:               s.Course.Type,
		Fee:                s.Course.Fee,
		Conductors:         s.Course.Conductors,
		TotalRegistrations: s.Taken,
		MaxSeats:           s.Course.Pax,
		SeatsAvailable:     s.Course.SeatsAvailable(s.Taken),
	}
}

type personView struct {
	Name string `json:"name"`
}

type registrationView struct {
	ID                   string       `json:"id"`
	FullName             string       `json:"fullName"`
	Email                string       `json:"email"`
	Phone                string       `json:"phone"`
	City                 string       `json:"city"`
	Country              string       `json:"country"`
	Pincode              string       `json:"pincode"`
	Address              string       `json:"address"`
	Category             string       `json:"category"`
	EventType            string       `json:"eventType"`
	Accompanying         string       `json:"accompanying"`
	NumberOfAccompanying int          `json:"numberOfAccompanying"`
	AccompanyingPersons  []personView `json:"accompanyingPersons"`
	AmountPaid           float64      `json:"amountPaid"`
	Currency             string       `json:"currency"`
	PaymentID            string       `json:"paymentId,omitempty"`
	OrderID              string       `json:"orderId,omitempty"`
	PaymentMode          string       `json:"paymentMode"`
	CouponCode           string       `json:"couponCode,omitempty"`
	CreatedAt            time.Time    `json:"createdAt"`
	UpdatedAt            time.Time    `json:"updatedAt"`
}

func newRegistrationView(r registration.Registration) registrationView {
	persons := make([]personView, len(r.AccompanyingPersons))
	for i, p := range r.AccompanyingPersons {
		persons[i] = personView{Name: p.Name}
	}
	return registrationView{
		ID: r.ID, FullName: r.FullName, Email: r.Email, Phone: r.Phone,
		City: r.City, Country: r.Country, Pincode: r.Pincode, Address: r.Address,
		Category: r.Category, EventType: r.EventType,
		Accompanying: r.Accompanying, NumberOfAccompanying: r.NumberOfAccompanying, AccompanyingPersons: persons,
		AmountPaid: r.AmountPaid, Currency: string(r.Currency),
		PaymentID: r.PaymentID, OrderID: r.OrderID, PaymentMode: r.PaymentMode, CouponCode: r.CouponCode,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type bookingView struct {
	ID                      string    `json:"id"`
	Title                   string    `json:"title,omitempty"`
	FullName                string    `json:"fullName"`
	Email                   string    `json:"email"`
	Phone                   string    `json:"phone"`
	City                    string    `json:"city"`
	Country                 string    `json:"country"`
	Pincode                 string    `json:"pincode"`
	Address                 string    `json:"address"`
	DelegateType            string    `json:"delegateType"`
	RoomType                string    `json:"roomType"`
	TwinSharingDelegateName string    `json:"twinSharingDelegateName,omitempty"`
	CheckInDate             string    `json:"checkInDate"`
	CheckOutDate            string    `json:"checkOutDate"`
	Nights                  int       `json:"nights"`
	AmountPaid              float64   `json:"amountPaid"`
	Currency                string    `json:"currency"`
	PaymentID               string    `json:"paymentId,omitempty"`
	OrderID                 string    `json:"orderId,omitempty"`
	PaymentMode             string    `json:"paymentMode"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

func newBookingView(b accommodation.Booking) bookingView {
	return bookingView{
		ID: b.ID, Title: b.Title, FullName: b.FullName, Email: b.Email, Phone: b.Phone,
		City: b.City, Country: b.Country, Pincode: b.Pincode, Address: b.Address,
		DelegateType: b.DelegateType, RoomType: b.RoomType, TwinSharingDelegateName: b.TwinSharingDelegateName,
		CheckInDate: formatDate(b.CheckInDate), CheckOutDate: formatDate(b.CheckOutDate), Nights: b.Nights(),
		AmountPaid: b.AmountPaid, Currency: string(b.Currency),
		PaymentID: b.PaymentID, OrderID: b.OrderID, PaymentMode: b.PaymentMode,
		CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}
}

type courseRegistrationView struct {
	ID         string    `json:"id"`
	FullName   string    `json:"fullName"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email"`
	CourseCode string    `json:"courseCode"`
	CourseName string    `json:"courseName"`
	CourseDate string    `json:"courseDate,omitempty"`
	PaymentID  string    `json:"paymentId,omitempty"`
	Amount     float64   `json:"amount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func newCourseRegistrationView(r course.Registration) courseRegistrationView {
	return courseRegistrationView{
		ID: r.ID, FullName: r.FullName, Phone: r.Phone, Email: r.Email,
		CourseCode: r.CourseCode, CourseName: r.CourseName, CourseDate: r.CourseDate,
		PaymentID: r.PaymentID, Amount: r.Amount, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type outboxEntryView struct {
	ID              string     `json:"id"`
	ActionType      string     `json:"actionType"`
	Status          string     `json:"status"`
	RecordKind      string     `json:"recordKind,omitempty"`
	RecordID        string     `json:"recordId,omitempty"`
	Attempts        int        `json:"attempts"`
	MaxAttempts     int        `json:"maxAttempts"`
	LastAttemptedAt *time.Time `json:"lastAttemptedAt,omitempty"`
	NextAttemptAt   *time.Time `json:"nextAttemptAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	ExternalID      string     `json:"externalId,omitempty"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func newOutboxEntryView(e outbox.Entry) outboxEntryView {
	return outboxEntryView{
		ID: e.ID, ActionType: e.ActionType, Status: e.Status,
		RecordKind: e.RecordKind, RecordID: e.RecordID,
		Attempts: e.Attempts, MaxAttempts: e.MaxAttempts,
		LastAttemptedAt: optionalTime(e.LastAttemptedAt), NextAttemptAt: optionalTime(e.NextAttemptAt),
		CreatedAt: e.CreatedAt, ExternalID: e.ExternalID, ErrorMessage: e.ErrorMessage,
	}
}

// mapPage converts page items for the wire.
func mapPage[T, V any](items []T, conv func(T) V) []V {
	out := make([]V, len(items))
	for i, it := range items {
		out[i] = conv(it)
	}
	return out
}

type kindSummaryView struct {
	Count   int `json:"count"`
	Online  int `json:"online"`
	Offline int `json:"offline"`

	// Revenue is keyed by currency code; Display holds the same totals formatted.
	Revenue map[string]float64 `json:"revenue"`
	Display map[string]string  `json:"display"`
}

func newKindSummaryView(k projections.KindSummary) kindSummaryView {
	v := kindSummaryView{
		Count: k.Count, Online: k.Online, Offline: k.Offline,
		Revenue: make(map[string]float64, len(k.Revenue)),
		Display: make(map[string]string, len(k.Revenue)),
	}
	for c, amount := range k.Revenue {
		v.Revenue[string(c)] = amount
		v.Display[string(c)] = pricing.FormatMoney(pricing.ToMinor(amount), c)
	}
	return v
}

type dashboardResponse struct {
	Registrations  kindSummaryView       `json:"registrations"`
	Accommodations kindSummaryView       `json:"accommodations"`
	Courses        kindSummaryView       `json:"pcc"`
	ByCategory     map[string]int        `json:"byCategory"`
	ByRoomType     map[string]int        `json:"byRoomType"`
	Seats          []courseSeatsResponse `json:"seats"`
	OutboxPending  int                   `json:"outboxPending"`
	OutboxFailed   int                   `json:"outboxFailed"`
}

func newDashboardResponse(d projections.DashboardResult) dashboardResponse {
	seats := make([]courseSeatsResponse, len(d.Seats))
	for i, s := range d.Seats {
		seats[i] = newCourseSeatsResponse(s)
	}
	return dashboardResponse{
		Registrations:  newKindSummaryView(d.Registrations),
		Accommodations: newKindSummaryView(d.Accommodations),
		Courses:        newKindSummaryView(d.Courses),
		ByCategory:     d.ByCategory,
		ByRoomType:     d.ByRoomType,
		Seats:          seats,
		OutboxPending:  d.OutboxPending,
		OutboxFailed:   d.OutboxFailed,
	}
}
