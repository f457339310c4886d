package registration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"conference/internal/adapters/storage"
	"conference/internal/application/listutil"
	"conference/internal/domain/pricing"
	domain "conference/internal/domain/registration"
)

const columns = `id, full_name, email, phone, city, country, pincode, address, category, event_type,
	accompanying, number_of_accompanying, accompanying_persons, amount_paid, currency,
	payment_id, order_id, payment_mode, coupon_code, created_at, updated_at`

var listSpec = storage.ListSpec{
	SearchColumns: []string{"full_name", "email", "phone", "payment_id"},
	FilterColumns: map[string]string{
		"category":     "category",
		"event_type":   "event_type",
		"payment_mode": "payment_mode",
		"currency":     "currency",
	},
	SortColumns: map[string]string{
		"full_name":   "full_name",
		"email":       "email",
		"category":    "category",
		"event_type":  "event_type",
		"amount_paid": "amount_paid",
		"created_at":  "created_at",
	},
}

type personRow struct {
	Name string `json:"name"`
}

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new registration store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a registration by its ID.
// PRE: id is non-empty
// POST: Returns the registration or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Registration, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM registration WHERE id = ?`, id)
	r, err := scanRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Registration{}, domain.ErrNotFound
	}
	return r, err
}

// Save persists a registration (insert or update).
// PRE: registration has been validated
// POST: created_at is never overwritten on update
func (s *SQLiteStore) Save(ctx context.Context, r domain.Registration) error {
	persons := make([]personRow, len(r.AccompanyingPersons))
	for i, p := range r.AccompanyingPersons {
		persons[i] = personRow{Name: p.Name}
	}
	personsJSON, err := json.Marshal(persons)
	if err != nil {
		return fmt.Errorf("encode accompanying persons: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO registration (`+columns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   full_name=excluded.full_name, email=excluded.email, phone=excluded.phone,
		   city=excluded.city, country=excluded.country, pincode=excluded.pincode, address=excluded.address,
		   category=excluded.category, event_type=excluded.event_type, accompanying=excluded.accompanying,
		   number_of_accompanying=excluded.number_of_accompanying, accompanying_persons=excluded.accompanying_persons,
		   amount_paid=excluded.amount_paid, currency=excluded.currency, payment_id=excluded.payment_id,
		   order_id=excluded.order_id, payment_mode=excluded.payment_mode, coupon_code=excluded.coupon_code,
		   updated_at=excluded.updated_at`,
		r.ID, r.FullName, r.Email, r.Phone, r.City, r.Country, r.Pincode, r.Address,
		r.Category, r.EventType, r.Accompanying, r.NumberOfAccompanying, string(personsJSON),
		r.AmountPaid, string(r.Currency), r.PaymentID, r.OrderID, r.PaymentMode, r.CouponCode,
		storage.FormatTime(r.CreatedAt), storage.FormatTime(r.UpdatedAt))
	return err
}

// Delete removes a registration.
// POST: Returns domain.ErrNotFound when nothing was deleted
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registration WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns one page of registrations matching q and the total match count.
func (s *SQLiteStore) List(ctx context.Context, q listutil.Query) ([]domain.Registration, int, error) {
	where, args := listSpec.Where(q)
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registration`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, pageArgs := storage.Page(q)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM registration`+where+listSpec.OrderBy(q)+limit,
		append(args, pageArgs...)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []domain.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func scanRegistration(row storage.Scanner) (domain.Registration, error) {
	var r domain.Registration
	var currency, personsJSON, createdAt, updatedAt string
	err := row.Scan(&r.ID, &r.FullName, &r.Email, &r.Phone, &r.City, &r.Country, &r.Pincode, &r.Address,
		&r.Category, &r.EventType, &r.Accompanying, &r.NumberOfAccompanying, &personsJSON,
		&r.AmountPaid, &currency, &r.PaymentID, &r.OrderID, &r.PaymentMode, &r.CouponCode,
		&createdAt, &updatedAt)
	if err != nil {
		return domain.Registration{}, err
	}
	var persons []personRow
	if err := json.Unmarshal([]byte(personsJSON), &persons); err != nil {
		return domain.Registration{}, fmt.Errorf("decode accompanying persons for %s: %w", r.ID, err)
	}
	r.AccompanyingPersons = make([]domain.Person, len(persons))
	for i, p := range persons {
		r.AccompanyingPersons[i] = domain.Person{Name: p.Name}
	}
	r.Currency = pricing.Currency(currency)
	r.CreatedAt = storage.ParseTime(createdAt)
	r.UpdatedAt = storage.ParseTime(updatedAt)
	return r, nil
}
