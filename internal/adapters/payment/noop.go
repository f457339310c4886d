package payment

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"conference/internal/domain/pricing"
)

// NoopGateway is used when no gateway keys are configured. It issues local ids and accepts any signature.
type NoopGateway struct {
	seq atomic.Int64
}

// NewNoopGateway creates a gateway for development.
func NewNoopGateway() *NoopGateway {
	return &NoopGateway{}
}

func (g *NoopGateway) CreateOrder(_ context.Context, amount int64, currency pricing.Currency, receipt string) (Order, error) {
	if amount <= 0 {
		return Order{}, ErrInvalidAmount
	}
	id := fmt.Sprintf("order_noop_%d", g.seq.Add(1))
	slog.Info("noop_order_created", "order_id", id, "amount", amount, "currency", currency)
	return Order{ID: id, Amount: amount, Currency: currency, Receipt: receipt, Status: "created"}, nil
}

func (g *NoopGateway) CreatePaymentLink(_ context.Context, req LinkRequest) (Link, error) {
	if req.Amount <= 0 {
		return Link{}, ErrInvalidAmount
	}
	id := fmt.Sprintf("plink_noop_%d", g.seq.Add(1))
	slog.Info("noop_payment_link_created", "link_id", id, "amount", req.Amount, "email", req.Customer.Email)
	return Link{ID: id, ShortURL: "http://localhost/pay/" + id, Status: "created"}, nil
}

func (g *NoopGateway) VerifyCheckout(orderID, paymentID, _ string) error {
	if orderID == "" || paymentID == "" {
		return ErrInvalidSignature
	}
	return nil
}
