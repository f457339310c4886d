package order

import (
	"context"
	"time"

	domain "conference/internal/domain/order"
)

// Store defines the interface for order intent persistence.
type Store interface {
	// Save inserts a new intent. The order id is unique.
	// PRE: intent has been validated
	Save(ctx context.Context, in domain.Intent) error

	// GetByOrderID retrieves the intent for a gateway order.
	// POST: Returns the intent or domain.ErrNotFound
	GetByOrderID(ctx context.Context, orderID string) (domain.Intent, error)

	// Claim marks a pending intent completed by recordID in one conditional write.
	// POST: Returns domain.ErrNotFound for an unknown order, domain.ErrAlreadyUsed when it is not pending
	Claim(ctx context.Context, orderID, recordID string, at time.Time) error

	// Release returns a completed intent to pending.
	// POST: Returns domain.ErrNotFound when no completed intent matched
	Release(ctx context.Context, orderID string) error
}
