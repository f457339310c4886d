package course

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrCourseNotFound       = errors.New("course not found")
	ErrRegistrationNotFound = errors.New("course registration not found")
	ErrSeatsFull            = errors.New("seats are full for this course")
	ErrFullNameEmpty        = errors.New("full name is required")
	ErrEmailInvalid         = errors.New("email is invalid")
	ErrPhoneEmpty           = errors.New("phone is required")
	ErrCodeEmpty            = errors.New("course code is required")
)

// Course is an entry in the static pre-conference course catalog.
type Course struct {
	Code       string   `json:"code"`
	Title      string   `json:"title"`
	Fee        float64  `json:"fee"`
	Pax        int      `json:"pax"`
	Type       string   `json:"type"`
	Conductors []string `json:"conductors"`
}

// Capped reports whether the course enforces a seat limit.
func (c Course) Capped() bool {
	return c.Pax > 0
}

// HasSeat reports whether a new registration fits given the current count.
// POST: Uncapped courses always have a seat
func (c Course) HasSeat(taken int) bool {
	return !c.Capped() || taken < c.Pax
}

// SeatsAvailable returns remaining seats, or -1 when the course is uncapped.
func (c Course) SeatsAvailable(taken int) int {
	if !c.Capped() {
		return -1
	}
	return max(c.Pax-taken, 0)
}

// Catalog is the ordered course list.
type Catalog []Course

// Find returns the course with the given code.
// POST: Returns ErrCourseNotFound when no course matches
func (c Catalog) Find(code string) (Course, error) {
	for _, course := range c {
		if course.Code == code {
			return course, nil
		}
	}
	return Course{}, ErrCourseNotFound
}

// Registration is a sign-up for a single course.
type Registration struct {
	ID         string
	FullName   string
	Phone      string
	Email      string
	CourseCode string
	CourseName string
	CourseDate string
	PaymentID  string
	// Amount is stored in major units, as charged at checkout.
	Amount    float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the required registration fields.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.FullName) == "" {
		return ErrFullNameEmpty
	}
	if !strings.Contains(r.Email, "@") {
		return ErrEmailInvalid
	}
	if strings.TrimSpace(r.Phone) == "" {
		return ErrPhoneEmpty
	}
	if r.CourseCode == "" {
		return ErrCodeEmpty
	}
	return nil
}

// Seats summarises occupancy for one course.
type Seats struct {
	Course Course
	Taken  int
}
