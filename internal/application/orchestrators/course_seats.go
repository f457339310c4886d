package orchestrators

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"conference/internal/domain/course"
)

// seatCountParallelism bounds concurrent count queries.
const seatCountParallelism = 4

// CourseSeatsDeps holds dependencies for the seat summary orchestrators.
type CourseSeatsDeps struct {
	Store   SeatCounter
	Courses course.Catalog
}

// ExecuteCourseSeats returns occupancy for every catalog course, in catalog order.
// POST: len(result) == len(deps.Courses); the first failing count aborts the rest
func ExecuteCourseSeats(ctx context.Context, deps CourseSeatsDeps) ([]course.Seats, error) {
	seats := make([]course.Seats, len(deps.Courses))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seatCountParallelism)
	for i, c := range deps.Courses {
		g.Go(func() error {
			taken, err := deps.Store.CountByCourse(ctx, c.Code)
			if err != nil {
				return fmt.Errorf("count %s: %w", c.Code, err)
			}
			seats[i] = course.Seats{Course: c, Taken: taken}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return seats, nil
}

// ExecuteCourseCount returns occupancy for one course.
// POST: Returns course.ErrCourseNotFound for codes outside the catalog
func ExecuteCourseCount(ctx context.Context, code string, deps CourseSeatsDeps) (course.Seats, error) {
	c, err := deps.Courses.Find(code)
	if err != nil {
		return course.Seats{}, err
	}
	taken, err := deps.Store.CountByCourse(ctx, c.Code)
	if err != nil {
		return course.Seats{}, fmt.Errorf("count %s: %w", c.Code, err)
	}
	return course.Seats{Course: c, Taken: taken}, nil
}
