package outbox

import (
	"context"
	"time"

	domain "conference/internal/domain/outbox"
)

// Store defines the interface for outbox entry persistence.
type Store interface {
	// GetByID retrieves an outbox entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or domain.ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save persists an outbox entry (insert or update).
	// PRE: entry has been validated
	Save(ctx context.Context, e domain.Entry) error

	// ListDue returns retryable entries whose next attempt is at or before now.
	// PRE: limit > 0
	// POST: Returns up to limit entries, oldest first
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error)

	// List returns entries with the given status, or every entry when status is empty.
	// POST: Returns up to limit entries, newest first
	List(ctx context.Context, status string, limit int) ([]domain.Entry, error)

	// Delete removes an outbox entry.
	// POST: Returns domain.ErrNotFound when nothing was deleted
	Delete(ctx context.Context, id string) error
}
