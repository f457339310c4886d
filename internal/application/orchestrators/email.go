package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"conference/internal/adapters/email"
	"conference/internal/domain/accommodation"
	"conference/internal/domain/course"
	"conference/internal/domain/outbox"
	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

// Confirmation email outcomes reported alongside a saved record.
const (
	EmailStatusSent    = "sent"
	EmailStatusFailed  = "failed"
	EmailStatusSkipped = "skipped"
)

// EmailFailedMessage accompanies EmailStatusFailed. The record is saved and the email is queued.
const EmailFailedMessage = "payment and registration succeeded, confirmation email failed; it has been queued for retry"

// Record kinds stored on outbox entries.
const (
	RecordRegistration  = "registration"
	RecordAccommodation = "accommodation"
	RecordCourse        = "pcc_registration"
	RecordPaymentLink   = "payment_link"
)

var errNoOutbox = errors.New("no outbox store configured")

// OutboxWriter is the store interface needed to queue a failed email.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// Notifier sends confirmation emails and hands failures to the outbox.
type Notifier struct {
	Sender     email.Sender
	Outbox     OutboxWriter
	From       string
	ReplyTo    string
	GenerateID func() string
	Now        func() time.Time
	// Observe, when set, is called with the message kind and whether the relay accepted it.
	Observe func(kind string, sent bool)
}

// Deliver sends req on behalf of the record identified by recordKind and recordID.
// PRE: req has at least one recipient
// POST: Returns EmailStatusSent, or EmailStatusFailed after queueing an outbox entry
// POST: A nil Notifier returns EmailStatusSkipped without sending
func (n *Notifier) Deliver(ctx context.Context, recordKind, recordID string, req email.SendRequest) string {
	if n == nil || n.Sender == nil {
		return EmailStatusSkipped
	}
	req = n.withDefaults(req)
	res, err := n.Sender.Send(ctx, req)
	n.observe(req.Kind, err == nil)
	if err == nil {
		slog.Info("email_sent", "kind", req.Kind, "record_id", recordID, "message_id", res.MessageID)
		return EmailStatusSent
	}
	slog.Warn("email_send_failed", "kind", req.Kind, "record_id", recordID, "error", err.Error())
	if qerr := n.enqueue(ctx, recordKind, recordID, req, err); qerr != nil {
		slog.Error("outbox_enqueue_failed", "record_id", recordID, "error", qerr.Error())
	}
	return EmailStatusFailed
}

// DeliverBatch sends reqs in one relay call. Failures are returned to the caller, not queued.
func (n *Notifier) DeliverBatch(ctx context.Context, reqs []email.SendRequest) ([]email.SendResult, error) {
	if n == nil || n.Sender == nil {
		return nil, errors.New("no email sender configured")
	}
	for i := range reqs {
		reqs[i] = n.withDefaults(reqs[i])
	}
	results, err := n.Sender.SendBatch(ctx, reqs)
	for _, r := range reqs {
		n.observe(r.Kind, err == nil)
	}
	return results, err
}

func (n *Notifier) withDefaults(req email.SendRequest) email.SendRequest {
	if req.From == "" {
		req.From = n.From
	}
	if req.ReplyTo == "" {
		req.ReplyTo = n.ReplyTo
	}
	return req
}

func (n *Notifier) observe(kind string, sent bool) {
	if n.Observe != nil {
		n.Observe(kind, sent)
	}
}

func (n *Notifier) enqueue(ctx context.Context, recordKind, recordID string, req email.SendRequest, cause error) error {
	if n.Outbox == nil {
		return errNoOutbox
	}
	payload, err := json.Marshal(newEmailPayload(req))
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}
	now := n.Now()
	entry := outbox.Entry{
		ID:            n.GenerateID(),
		ActionType:    outbox.ActionTypeEmail,
		Payload:       string(payload),
		RecordKind:    recordKind,
		RecordID:      recordID,
		CreatedAt:     now,
		NextAttemptAt: now,
		ErrorMessage:  cause.Error(),
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := n.Outbox.Save(ctx, entry); err != nil {
		return fmt.Errorf("save outbox entry: %w", err)
	}
	slog.Info("outbox_entry_queued", "entry_id", entry.ID, "record_kind", recordKind, "record_id", recordID)
	return nil
}

// confirm delivers a rendered confirmation and maps the outcome onto a status and user message.
func confirm(ctx context.Context, n *Notifier, recordKind, recordID string, req email.SendRequest, renderErr error) (string, string) {
	if renderErr != nil {
		slog.Error("email_render_failed", "record_kind", recordKind, "record_id", recordID, "error", renderErr.Error())
		return EmailStatusFailed, EmailFailedMessage
	}
	status := n.Deliver(ctx, recordKind, recordID, req)
	if status == EmailStatusFailed {
		return status, EmailFailedMessage
	}
	return status, ""
}

const emailDateLayout = "2 Jan 2006"

func registrationEmail(r registration.Registration, q pricing.Quote) (email.SendRequest, error) {
	names := make([]string, len(r.AccompanyingPersons))
	for i, p := range r.AccompanyingPersons {
		names[i] = p.Name
	}
	view := email.RegistrationView{
		FullName:       r.FullName,
		Category:       r.Category,
		EventType:      r.EventType,
		Accompanying:   names,
		BaseFee:        q.BaseFee,
		ConvenienceFee: q.ConvenienceFee,
		AmountPaid:     pricing.FormatMoney(pricing.ToMinor(r.AmountPaid), r.Currency),
		PaymentID:      r.PaymentID,
		Offline:        r.IsOffline(),
	}
	if q.CouponApplied {
		view.Discount = pricing.FormatMoney(q.Discount, q.Currency)
	}
	out, err := email.RenderRegistration(view)
	return request(r.Email, email.KindRegistration, out), err
}

func accommodationEmail(b accommodation.Booking) (email.SendRequest, error) {
	out, err := email.RenderAccommodation(email.AccommodationView{
		FullName:     b.FullName,
		DelegateType: b.DelegateType,
		RoomType:     b.RoomType,
		SharingWith:  b.TwinSharingDelegateName,
		CheckIn:      b.CheckInDate.Format(emailDateLayout),
		CheckOut:     b.CheckOutDate.Format(emailDateLayout),
		Nights:       b.Nights(),
		AmountPaid:   pricing.FormatMoney(pricing.ToMinor(b.AmountPaid), b.Currency),
		PaymentID:    b.PaymentID,
	})
	return request(b.Email, email.KindAccommodation, out), err
}

func courseEmail(r course.Registration) (email.SendRequest, error) {
	out, err := email.RenderCourse(email.CourseView{
		FullName:   r.FullName,
		CourseCode: r.CourseCode,
		CourseName: r.CourseName,
		CourseDate: r.CourseDate,
		AmountPaid: pricing.FormatMoney(pricing.ToMinor(r.Amount), pricing.INR),
		PaymentID:  r.PaymentID,
	})
	return request(r.Email, email.KindCourse, out), err
}

func request(to, kind string, r email.Rendered) email.SendRequest {
	return email.SendRequest{
		To:      []string{to},
		Subject: r.Subject,
		HTML:    r.HTML,
		Kind:    kind,
	}
}
