package email

import (
	"context"
	"strings"
	"testing"
)

func TestRenderRegistration(t *testing.T) {
	r, err := RenderRegistration(RegistrationView{
		FullName:       "Dr <Meera>",
		Category:       "ISDR Member",
		EventType:      "IADR-APR",
		Accompanying:   []string{"Ravi"},
		BaseFee:        "₹15,340.00",
		ConvenienceFee: "₹360.00",
		AmountPaid:     "₹15,700.00",
		PaymentID:      "pay_1",
	})
	if err != nil {
		t.Fatalf("RenderRegistration: %v", err)
	}
	if r.Subject != "Registration Confirmation" {
		t.Errorf("Subject = %q", r.Subject)
	}
	for _, want := range []string{"Dr &lt;Meera&gt;", "₹15,700.00", "pay_1", "<li>Ravi</li>", "payment was successful"} {
		if !strings.Contains(r.HTML, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	if strings.Contains(r.HTML, "Coupon discount") {
		t.Error("discount row should be omitted without a discount")
	}
}

func TestRenderRegistration_Offline(t *testing.T) {
	r, err := RenderRegistration(RegistrationView{FullName: "A", EventType: "WWW9 Meeting", Offline: true, AmountPaid: "₹0.00"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(r.HTML, "payment was successful") {
		t.Error("offline confirmation should not claim online payment")
	}
}

func TestRenderAccommodationAndCourse(t *testing.T) {
	a, err := RenderAccommodation(AccommodationView{FullName: "Tom", RoomType: "Twin Sharing", SharingWith: "Dr Lee", Nights: 3, AmountPaid: "$225.00"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(a.HTML, "Dr Lee") || !strings.Contains(a.HTML, "3 nights") {
		t.Errorf("accommodation HTML incomplete: %s", a.HTML)
	}

	c, err := RenderCourse(CourseView{FullName: "Asha", CourseCode: "A3", CourseName: "Inhalation Sedation", AmountPaid: "₹1,800.00"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Subject != "PCC Course Registration Confirmation" || !strings.Contains(c.HTML, "A3: Inhalation Sedation") {
		t.Errorf("course email incomplete: %+v", c)
	}
}

func TestRenderPaymentRequest_MarkdownNote(t *testing.T) {
	r, err := RenderPaymentRequest(PaymentRequestView{
		FullName:    "Asha",
		Description: "Balance for Combo registration",
		Amount:      "₹2,500.00",
		Link:        "https://rzp.io/i/abc",
		Note:        "Pay by **Friday**.\n\n<script>alert(1)</script>",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.HTML, "<strong>Friday</strong>") {
		t.Errorf("markdown not rendered: %s", r.HTML)
	}
	if strings.Contains(r.HTML, "<script>") {
		t.Error("raw HTML in note must not pass through")
	}
	if !strings.Contains(r.HTML, `href="https://rzp.io/i/abc"`) {
		t.Error("payment link missing")
	}
}

func TestNoopSender_RecordsMessages(t *testing.T) {
	s := NewNoopSender()
	if _, err := s.Send(context.Background(), SendRequest{}); err != ErrNoRecipients {
		t.Errorf("Send without recipient = %v, want ErrNoRecipients", err)
	}
	results, err := s.SendBatch(context.Background(), []SendRequest{
		{To: []string{"a@example.com"}, Subject: "one"},
		{To: []string{"b@example.com"}, Subject: "two"},
	})
	if err != nil || len(results) != 2 {
		t.Fatalf("SendBatch = %v, %v", results, err)
	}
	if sent := s.Sent(); len(sent) != 2 || sent[1].Subject != "two" {
		t.Errorf("Sent() = %+v", sent)
	}
}
