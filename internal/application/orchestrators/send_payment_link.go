package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"conference/internal/adapters/email"
	"conference/internal/adapters/payment"
	"conference/internal/domain/pricing"
)

var (
	ErrLinkCurrency  = errors.New("payment link currency must be INR or USD")
	ErrLinkRecipient = errors.New("payment link needs a name and an email address")
)

// SendPaymentLinkInput is an admin payment request. Amount is in major units.
type SendPaymentLinkInput struct {
	FullName    string
	Email       string
	Phone       string
	Amount      float64
	Currency    pricing.Currency
	Description string
	// Note is optional markdown shown under the link.
	Note string
}

// SendPaymentLinkDeps holds dependencies for SendPaymentLink.
type SendPaymentLinkDeps struct {
	Gateway  payment.Gateway
	Notifier *Notifier
	Now      func() time.Time
}

// SendPaymentLinkResult describes the created link.
type SendPaymentLinkResult struct {
	LinkID      string
	ShortURL    string
	AmountMinor int64
	Currency    pricing.Currency
	EmailStatus string
	Message     string
}

// ExecuteSendPaymentLink creates a gateway payment link and emails it to the recipient.
// PRE: Amount > 0 in major units
// POST: The gateway receives Amount converted to minor units exactly once
func ExecuteSendPaymentLink(ctx context.Context, input SendPaymentLinkInput, deps SendPaymentLinkDeps) (SendPaymentLinkResult, error) {
	if strings.TrimSpace(input.FullName) == "" || !strings.Contains(input.Email, "@") {
		return SendPaymentLinkResult{}, ErrLinkRecipient
	}
	if !input.Currency.Valid() {
		return SendPaymentLinkResult{}, ErrLinkCurrency
	}
	minor := pricing.ToMinor(input.Amount)
	if minor <= 0 {
		return SendPaymentLinkResult{}, payment.ErrInvalidAmount
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = "Conference payment"
	}

	link, err := deps.Gateway.CreatePaymentLink(ctx, payment.LinkRequest{
		Amount:      minor,
		Currency:    input.Currency,
		Description: description,
		Customer:    payment.Customer{Name: input.FullName, Email: input.Email, Contact: input.Phone},
		ExpireBy:    payment.LinkExpiry,
		Reference:   fmt.Sprintf("admin_%d", deps.Now().Unix()),
	})
	if err != nil {
		return SendPaymentLinkResult{}, fmt.Errorf("create payment link: %w", err)
	}
	slog.Info("payment_link_created", "link_id", link.ID, "amount", minor, "currency", string(input.Currency))

	out, err := email.RenderPaymentRequest(email.PaymentRequestView{
		FullName:    input.FullName,
		Description: description,
		Amount:      pricing.FormatMoney(minor, input.Currency),
		Link:        link.ShortURL,
		Note:        input.Note,
	})
	status, _ := confirm(ctx, deps.Notifier, RecordPaymentLink, link.ID, request(input.Email, email.KindPaymentRequest, out), err)
	result := SendPaymentLinkResult{
		LinkID:      link.ID,
		ShortURL:    link.ShortURL,
		AmountMinor: minor,
		Currency:    input.Currency,
		EmailStatus: status,
	}
	if status == EmailStatusFailed {
		result.Message = "payment link created, email failed; it has been queued for retry"
	}
	return result, nil
}
