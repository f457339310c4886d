package pcc

import (
	"context"

	"conference/internal/application/listutil"
	"conference/internal/domain/course"
)

// ListColumns are the sort and filter parameters accepted by List.
var ListColumns = listutil.Columns{
	Sort:   []string{"full_name", "email", "course_code", "amount", "created_at"},
	Filter: []string{"course_code"},
}

// Store defines the interface for pre-conference course registration persistence.
type Store interface {
	// GetByID retrieves a course registration by its ID.
	// POST: Returns the registration or course.ErrRegistrationNotFound
	GetByID(ctx context.Context, id string) (course.Registration, error)

	// Save persists a course registration (insert or update). No seat check is made.
	Save(ctx context.Context, r course.Registration) error

	// Delete removes a course registration.
	// POST: Returns course.ErrRegistrationNotFound when nothing was deleted
	Delete(ctx context.Context, id string) error

	// List returns one page of course registrations matching q and the total match count.
	List(ctx context.Context, q listutil.Query) ([]course.Registration, int, error)

	// CountByCourse returns how many registrations exist for code.
	CountByCourse(ctx context.Context, code string) (int, error)
}

// SeatReserver is implemented by stores that can insert conditionally on remaining capacity
// in one statement, closing the gap between CountByCourse and Save.
type SeatReserver interface {
	// Reserve inserts r only if fewer than pax registrations exist for r.CourseCode.
	// POST: Returns course.ErrSeatsFull and writes nothing when the course is full
	Reserve(ctx context.Context, r course.Registration, pax int) error
}
