package accommodation

import (
	"context"

	"conference/internal/application/listutil"
	domain "conference/internal/domain/accommodation"
)

// ListColumns are the sort and filter parameters accepted by List.
var ListColumns = listutil.Columns{
	Sort:   []string{"full_name", "email", "delegate_type", "room_type", "check_in_date", "amount_paid", "created_at"},
	Filter: []string{"delegate_type", "room_type", "payment_mode"},
}

// Store defines the interface for accommodation booking persistence.
type Store interface {
	// GetByID retrieves a booking by its ID.
	// POST: Returns the booking or domain.ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Booking, error)

	// Save persists a booking (insert or update).
	// PRE: booking has been validated
	Save(ctx context.Context, b domain.Booking) error

	// Delete removes a booking.
	// POST: Returns domain.ErrNotFound when nothing was deleted
	Delete(ctx context.Context, id string) error

	// List returns one page of bookings matching q and the total match count.
	List(ctx context.Context, q listutil.Query) ([]domain.Booking, int, error)
}
