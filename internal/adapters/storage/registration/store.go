package registration

import (
	"context"

	"conference/internal/application/listutil"
	domain "conference/internal/domain/registration"
)

// ListColumns are the sort and filter parameters accepted by List.
var ListColumns = listutil.Columns{
	Sort:   []string{"full_name", "email", "category", "event_type", "amount_paid", "created_at"},
	Filter: []string{"category", "event_type", "payment_mode", "currency"},
}

// Store defines the interface for registration persistence.
type Store interface {
	// GetByID retrieves a registration by its ID.
	// PRE: id is non-empty
	// POST: Returns the registration or domain.ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Registration, error)

	// Save persists a registration (insert or update).
	// PRE: registration has been validated
	Save(ctx context.Context, r domain.Registration) error

	// Delete removes a registration.
	// POST: Returns domain.ErrNotFound when nothing was deleted
	Delete(ctx context.Context, id string) error

	// List returns one page of registrations matching q and the total match count.
	List(ctx context.Context, q listutil.Query) ([]domain.Registration, int, error)
}
