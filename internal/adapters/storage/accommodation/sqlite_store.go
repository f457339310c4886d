package accommodation

import (
	"context"
	"database/sql"
	"errors"

	"conference/internal/adapters/storage"
	"conference/internal/application/listutil"
	domain "conference/internal/domain/accommodation"
	"conference/internal/domain/pricing"
)

const columns = `id, title, full_name, email, phone, city, country, pincode, address,
	delegate_type, room_type, twin_sharing_delegate_name, check_in_date, check_out_date,
	amount_paid, currency, payment_id, order_id, payment_mode, created_at, updated_at`

var listSpec = storage.ListSpec{
	SearchColumns: []string{"full_name", "email", "phone", "twin_sharing_delegate_name"},
	FilterColumns: map[string]string{
		"delegate_type": "delegate_type",
		"room_type":     "room_type",
		"payment_mode":  "payment_mode",
	},
	SortColumns: map[string]string{
		"full_name":     "full_name",
		"email":         "email",
		"delegate_type": "delegate_type",
		"room_type":     "room_type",
		"check_in_date": "check_in_date",
		"amount_paid":   "amount_paid",
		"created_at":    "created_at",
	},
}

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new accommodation store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a booking by its ID.
// POST: Returns the booking or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Booking, error) {
	b, err := scanBooking(s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM accommodation WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

// Save persists a booking (insert or update).
// PRE: booking has been validated
// POST: created_at is never overwritten on update
func (s *SQLiteStore) Save(ctx context.Context, b domain.Booking) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accommodation (`+columns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title=excluded.title, full_name=excluded.full_name, email=excluded.email, phone=excluded.phone,
		   city=excluded.city, country=excluded.country, pincode=excluded.pincode, address=excluded.address,
		   delegate_type=excluded.delegate_type, room_type=excluded.room_type,
		   twin_sharing_delegate_name=excluded.twin_sharing_delegate_name,
		   check_in_date=excluded.check_in_date, check_out_date=excluded.check_out_date,
		   amount_paid=excluded.amount_paid, currency=excluded.currency, payment_id=excluded.payment_id,
		   order_id=excluded.order_id, payment_mode=excluded.payment_mode, updated_at=excluded.updated_at`,
		b.ID, b.Title, b.FullName, b.Email, b.Phone, b.City, b.Country, b.Pincode, b.Address,
		b.DelegateType, b.RoomType, b.TwinSharingDelegateName,
		storage.FormatTime(b.CheckInDate), storage.FormatTime(b.CheckOutDate),
		b.AmountPaid, string(b.Currency), b.PaymentID, b.OrderID, b.PaymentMode,
		storage.FormatTime(b.CreatedAt), storage.FormatTime(b.UpdatedAt))
	return err
}

// Delete removes a booking.
// POST: Returns domain.ErrNotFound when nothing was deleted
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accommodation WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns one page of bookings matching q and the total match count.
func (s *SQLiteStore) List(ctx context.Context, q listutil.Query) ([]domain.Booking, int, error) {
	where, args := listSpec.Where(q)
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accommodation`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, pageArgs := storage.Page(q)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM accommodation`+where+listSpec.OrderBy(q)+limit,
		append(args, pageArgs...)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func scanBooking(row storage.Scanner) (domain.Booking, error) {
	var b domain.Booking
	var checkIn, checkOut, currency, createdAt, updatedAt string
	err := row.Scan(&b.ID, &b.Title, &b.FullName, &b.Email, &b.Phone, &b.City, &b.Country, &b.Pincode, &b.Address,
		&b.DelegateType, &b.RoomType, &b.TwinSharingDelegateName, &checkIn, &checkOut,
		&b.AmountPaid, &currency, &b.PaymentID, &b.OrderID, &b.PaymentMode, &createdAt, &updatedAt)
	if err != nil {
		return domain.Booking{}, err
	}
	b.CheckInDate = storage.ParseTime(checkIn)
	b.CheckOutDate = storage.ParseTime(checkOut)
	b.Currency = pricing.Currency(currency)
	b.CreatedAt = storage.ParseTime(createdAt)
	b.UpdatedAt = storage.ParseTime(updatedAt)
	return b, nil
}
