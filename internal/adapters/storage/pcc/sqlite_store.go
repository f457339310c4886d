package pcc

import (
	"context"
	"database/sql"
	"errors"

	"conference/internal/adapters/storage"
	"conference/internal/application/listutil"
	"conference/internal/domain/course"
)

const columns = `id, full_name, phone, email, course_code, course_name, course_date, payment_id, amount, created_at, updated_at`

var listSpec = storage.ListSpec{
	SearchColumns: []string{"full_name", "email", "phone", "payment_id"},
	FilterColumns: map[string]string{"course_code": "course_code"},
	SortColumns: map[string]string{
		"full_name":   "full_name",
		"email":       "email",
		"course_code": "course_code",
		"amount":      "amount",
		"created_at":  "created_at",
	},
}

// SQLiteStore implements Store and SeatReserver using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

var (
	_ Store        = (*SQLiteStore)(nil)
	_ SeatReserver = (*SQLiteStore)(nil)
)

// NewSQLiteStore creates a new course registration store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a course registration by its ID.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (course.Registration, error) {
	r, err := scanRegistration(s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM pcc_registration WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return course.Registration{}, course.ErrRegistrationNotFound
	}
	return r, err
}

// Save persists a course registration (insert or update).
func (s *SQLiteStore) Save(ctx context.Context, r course.Registration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pcc_registration (`+columns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   full_name=excluded.full_name, phone=excluded.phone, email=excluded.email,
		   course_code=excluded.course_code, course_name=excluded.course_name, course_date=excluded.course_date,
		   payment_id=excluded.payment_id, amount=excluded.amount, updated_at=excluded.updated_at`,
		insertArgs(r)...)
	return err
}

// Reserve inserts r only while the course has fewer than pax registrations.
// The count and the insert run as one statement, so concurrent writers cannot overfill the course.
// PRE: pax > 0
// POST: Returns course.ErrSeatsFull and writes nothing when the course is full
func (s *SQLiteStore) Reserve(ctx context.Context, r course.Registration, pax int) error {
	args := append(insertArgs(r), r.CourseCode, pax)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pcc_registration (`+columns+`)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		 WHERE (SELECT COUNT(*) FROM pcc_registration WHERE course_code = ?) < ?`,
		args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return course.ErrSeatsFull
	}
	return nil
}

// Delete removes a course registration.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pcc_registration WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrRegistrationNotFound
	}
	return nil
}

// List returns one page of course registrations matching q and the total match count.
func (s *SQLiteStore) List(ctx context.Context, q listutil.Query) ([]course.Registration, int, error) {
	where, args := listSpec.Where(q)
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pcc_registration`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, pageArgs := storage.Page(q)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM pcc_registration`+where+listSpec.OrderBy(q)+limit,
		append(args, pageArgs...)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []course.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// CountByCourse returns how many registrations exist for code.
func (s *SQLiteStore) CountByCourse(ctx context.Context, code string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pcc_registration WHERE course_code = ?`, code).Scan(&n)
	return n, err
}

func insertArgs(r course.Registration) []any {
	return []any{
		r.ID, r.FullName, r.Phone, r.Email, r.CourseCode, r.CourseName, r.CourseDate,
		r.PaymentID, r.Amount, storage.FormatTime(r.CreatedAt), storage.FormatTime(r.UpdatedAt),
	}
}

func scanRegistration(row storage.Scanner) (course.Registration, error) {
	var r course.Registration
	var createdAt, updatedAt string
	err := row.Scan(&r.ID, &r.FullName, &r.Phone, &r.Email, &r.CourseCode, &r.CourseName, &r.CourseDate,
		&r.PaymentID, &r.Amount, &createdAt, &updatedAt)
	if err != nil {
		return course.Registration{}, err
	}
	r.CreatedAt = storage.ParseTime(createdAt)
	r.UpdatedAt = storage.ParseTime(updatedAt)
	return r, nil
}
