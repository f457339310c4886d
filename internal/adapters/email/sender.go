package email

import (
	"context"
	"errors"
	"time"
)

// ErrNoRecipients is returned when a request has no To address.
var ErrNoRecipients = errors.New("email has no recipients")

// SendRequest contains the data needed to send one email through the relay.
type SendRequest struct {
	To      []string
	From    string // "IADR-APR 2025 <noreply@iadrapr2025.org>"
	Subject string
	HTML    string
	ReplyTo string
	// Kind labels the message for the relay dashboard, e.g. "registration".
	Kind string
}

// Validate checks the request is deliverable.
func (r SendRequest) Validate() error {
	if len(r.To) == 0 || r.To[0] == "" {
		return ErrNoRecipients
	}
	return nil
}

// SendResult contains the response from the relay.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender is the email relay port.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error)
}
