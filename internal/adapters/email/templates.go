package email

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
)

// Message kinds, also used as relay tags and outbox payload discriminators.
const (
	KindRegistration   = "registration"
	KindAccommodation  = "accommodation"
	KindCourse         = "course"
	KindPaymentRequest = "payment_request"
)

// RegistrationView is the data shown in a registration confirmation.
type RegistrationView struct {
	FullName       string
	Category       string
	EventType      string
	Accompanying   []string
	BaseFee        string
	ConvenienceFee string
	Discount       string
	AmountPaid     string
	PaymentID      string
	Offline        bool
}

// AccommodationView is the data shown in a booking confirmation.
type AccommodationView struct {
	FullName     string
	DelegateType string
	RoomType     string
	SharingWith  string
	CheckIn      string
	CheckOut     string
	Nights       int
	AmountPaid   string
	PaymentID    string
}

// CourseView is the data shown in a course confirmation.
type CourseView struct {
	FullName   string
	CourseCode string
	CourseName string
	CourseDate string
	AmountPaid string
	PaymentID  string
}

// PaymentRequestView is the data shown in an admin-issued payment request.
type PaymentRequestView struct {
	FullName    string
	Description string
	Amount      string
	Link        string
	// Note is admin-authored markdown.
	Note string
}

const layout = `{{define "layout"}}<!doctype html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<p>Dear <b>{{.FullName}}</b>,</p>
{{template "body" .}}
<p>Regards,<br>IADR-APR 2025 Organising Committee</p>
</body></html>{{end}}`

var templates = map[string]struct {
	subject string
	body    string
}{
	KindRegistration: {
		subject: "Registration Confirmation",
		body: `{{define "body"}}<p>Thank you for registering for <strong>{{.EventType}}</strong>.{{if not .Offline}} Your payment was successful.{{end}}</p>
<table cellpadding="4">
<tr><td>Category</td><td>{{.Category}}</td></tr>
<tr><td>Registration fee</td><td>{{.BaseFee}}</td></tr>
<tr><td>Convenience fee</td><td>{{.ConvenienceFee}}</td></tr>
{{if .Discount}}<tr><td>Coupon discount</td><td>-{{.Discount}}</td></tr>{{end}}
<tr><td>Amount paid</td><td><b>{{.AmountPaid}}</b></td></tr>
{{if .PaymentID}}<tr><td>Payment ID</td><td>{{.PaymentID}}</td></tr>{{end}}
</table>
{{if .Accompanying}}<p>Accompanying persons:</p><ul>{{range .Accompanying}}<li>{{.}}</li>{{end}}</ul>{{end}}{{end}}`,
	},
	KindAccommodation: {
		subject: "Hotel Leela Accommodation Booking Confirmation",
		body: `{{define "body"}}<p>Thank you for booking your accommodation for the conference. Your booking details are as follows:</p>
<table cellpadding="4">
<tr><td>Booking ID</td><td>{{.PaymentID}}</td></tr>
<tr><td>Delegate type</td><td>{{.DelegateType}}</td></tr>
<tr><td>Room type</td><td>{{.RoomType}}</td></tr>
{{if .SharingWith}}<tr><td>Sharing with</td><td>{{.SharingWith}}</td></tr>{{end}}
<tr><td>Check-in</td><td>{{.CheckIn}}</td></tr>
<tr><td>Check-out</td><td>{{.CheckOut}} ({{.Nights}} nights)</td></tr>
<tr><td>Amount paid</td><td><b>{{.AmountPaid}}</b></td></tr>
</table>{{end}}`,
	},
	KindCourse: {
		subject: "PCC Course Registration Confirmation",
		body: `{{define "body"}}<p>You are registered for the pre-conference course <strong>{{.CourseCode}}: {{.CourseName}}</strong>{{if .CourseDate}} on {{.CourseDate}}{{end}}.</p>
<p>Amount paid: <b>{{.AmountPaid}}</b>{{if .PaymentID}} (payment {{.PaymentID}}){{end}}</p>{{end}}`,
	},
	KindPaymentRequest: {
		subject: "Payment Request",
		body: `{{define "body"}}<p>Please complete your payment for <strong>{{.Description}}</strong> by clicking the link below:</p>
<p><a href="{{.Link}}" style="color:blue;font-weight:bold">Pay Now</a></p>
<p>Amount: {{.Amount}}</p>
{{if .NoteHTML}}<div>{{.NoteHTML}}</div>{{end}}{{end}}`,
	},
}

var parsed = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(templates))
	for kind, t := range templates {
		tmpl := template.Must(template.New(kind).Parse(layout))
		out[kind] = template.Must(tmpl.Parse(t.body))
	}
	return out
}()

// Rendered is a subject and HTML body ready for a SendRequest.
type Rendered struct {
	Subject string
	HTML    string
}

func render(kind string, data any) (Rendered, error) {
	tmpl, ok := parsed[kind]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown email kind %q", kind)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return Rendered{}, fmt.Errorf("render %s email: %w", kind, err)
	}
	return Rendered{Subject: templates[kind].subject, HTML: buf.String()}, nil
}

// RenderRegistration renders a registration confirmation.
func RenderRegistration(v RegistrationView) (Rendered, error) {
	return render(KindRegistration, v)
}

// RenderAccommodation renders a booking confirmation.
func RenderAccommodation(v AccommodationView) (Rendered, error) {
	return render(KindAccommodation, v)
}

// RenderCourse renders a course confirmation.
func RenderCourse(v CourseView) (Rendered, error) {
	return render(KindCourse, v)
}

// RenderPaymentRequest renders a payment request, converting the markdown note to HTML.
func RenderPaymentRequest(v PaymentRequestView) (Rendered, error) {
	note, err := markdown(v.Note)
	if err != nil {
		return Rendered{}, err
	}
	return render(KindPaymentRequest, struct {
		PaymentRequestView
		NoteHTML template.HTML
	}{v, note})
}

// markdown converts admin-authored markdown to HTML. goldmark drops raw HTML by default.
func markdown(src string) (template.HTML, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render note: %w", err)
	}
	return template.HTML(buf.String()), nil
}
