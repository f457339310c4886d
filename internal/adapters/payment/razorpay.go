package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"conference/internal/domain/pricing"
)

// DefaultBaseURL is the Razorpay REST endpoint.
const DefaultBaseURL = "https://api.razorpay.com"

// Doer sends an HTTP request; the heimdall client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// RazorpayGateway implements Gateway against the Razorpay REST API.
type RazorpayGateway struct {
	client    Doer
	baseURL   string
	keyID     string
	keySecret string
}

// NewRazorpayGateway creates a gateway using basic auth with the key pair.
func NewRazorpayGateway(client Doer, baseURL, keyID, keySecret string) *RazorpayGateway {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &RazorpayGateway{client: client, baseURL: baseURL, keyID: keyID, keySecret: keySecret}
}

type orderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CreateOrder creates an auto-capture order.
// PRE: amount > 0 in minor units
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency pricing.Currency, receipt string) (Order, error) {
	if amount <= 0 {
		return Order{}, ErrInvalidAmount
	}
	var resp orderResponse
	err := g.post(ctx, "/v1/orders", orderRequest{
		Amount:         amount,
		Currency:       string(currency),
		Receipt:        receipt,
		PaymentCapture: 1,
	}, &resp)
	if err != nil {
		return Order{}, err
	}
	return Order{
		ID:       resp.ID,
		Amount:   resp.Amount,
		Currency: pricing.Currency(resp.Currency),
		Receipt:  resp.Receipt,
		Status:   resp.Status,
		KeyID:    g.keyID,
	}, nil
}

type linkRequest struct {
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	AcceptPartial bool              `json:"accept_partial"`
	Description   string            `json:"description"`
	Customer      linkCustomer      `json:"customer"`
	Notify        linkNotify        `json:"notify"`
	ExpireBy      int64             `json:"expire_by"`
	Notes         map[string]string `json:"notes,omitempty"`
}

type linkCustomer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

type linkNotify struct {
	SMS   bool `json:"sms"`
	Email bool `json:"email"`
}

type linkResponse struct {
	ID       string `json:"id"`
	ShortURL string `json:"short_url"`
	Status   string `json:"status"`
}

// CreatePaymentLink creates a link and asks the gateway to notify the customer by SMS and email.
// PRE: req.Amount > 0 in minor units
func (g *RazorpayGateway) CreatePaymentLink(ctx context.Context, req LinkRequest) (Link, error) {
	if req.Amount <= 0 {
		return Link{}, ErrInvalidAmount
	}
	if req.Description == "" {
		req.Description = "Payment Request"
	}
	if req.ExpireBy.IsZero() {
		req.ExpireBy = LinkExpiry
	}
	body := linkRequest{
		Amount:      req.Amount,
		Currency:    string(req.Currency),
		Description: req.Description,
		Customer:    linkCustomer{Name: req.Customer.Name, Email: req.Customer.Email, Contact: req.Customer.Contact},
		Notify:      linkNotify{SMS: true, Email: true},
		ExpireBy:    req.ExpireBy.Unix(),
	}
	if req.Reference != "" {
		body.Notes = map[string]string{"internal_ref": req.Reference}
	}
	var resp linkResponse
	if err := g.post(ctx, "/v1/payment_links", body, &resp); err != nil {
		return Link{}, err
	}
	return Link{ID: resp.ID, ShortURL: resp.ShortURL, Status: resp.Status}, nil
}

// VerifyCheckout checks hex(HMAC-SHA256(orderID|paymentID, keySecret)) against signature.
func (g *RazorpayGateway) VerifyCheckout(orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return ErrInvalidSignature
	}
	expected := Sign(g.keySecret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the checkout signature for an order and payment pair.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (g *RazorpayGateway) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s: %w", path, err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrGateway, path, err)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrGateway, path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		slog.Warn("gateway_error", "path", path, "status", resp.StatusCode, "code", apiErr.Error.Code)
		if apiErr.Error.Description != "" {
			return fmt.Errorf("%w: %s", ErrGateway, apiErr.Error.Description)
		}
		return fmt.Errorf("%w: %s returned %d", ErrGateway, path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrGateway, path, err)
	}
	return nil
}
