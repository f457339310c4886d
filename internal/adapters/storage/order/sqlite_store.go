package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"conference/internal/adapters/storage"
	domain "conference/internal/domain/order"
	"conference/internal/domain/pricing"
)

const columns = `order_id, kind, amount, currency, receipt, payload, status, record_id, created_at, completed_at`

// SQLiteStore implements the order intent Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new order intent store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save inserts the intent. A second intent for the same order fails on the primary key.
func (s *SQLiteStore) Save(ctx context.Context, in domain.Intent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO order_intent (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.OrderID, in.Kind, in.Amount, string(in.Currency), in.Receipt, in.Payload, in.Status, in.RecordID,
		storage.FormatTime(in.CreatedAt), storage.FormatTime(in.CompletedAt))
	return err
}

// GetByOrderID retrieves the intent for a gateway order.
// POST: Returns the intent or domain.ErrNotFound
func (s *SQLiteStore) GetByOrderID(ctx context.Context, orderID string) (domain.Intent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM order_intent WHERE order_id = ?`, orderID)
	var in domain.Intent
	var currency, createdAt, completedAt string
	err := row.Scan(&in.OrderID, &in.Kind, &in.Amount, &currency, &in.Receipt, &in.Payload,
		&in.Status, &in.RecordID, &createdAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Intent{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Intent{}, err
	}
	in.Currency = pricing.Currency(currency)
	in.CreatedAt = storage.ParseTime(createdAt)
	in.CompletedAt = storage.ParseTime(completedAt)
	return in, nil
}

// Claim marks a pending intent completed.
// INVARIANT: Of two concurrent claims for one order, exactly one affects a row
func (s *SQLiteStore) Claim(ctx context.Context, orderID, recordID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE order_intent SET status = ?, record_id = ?, completed_at = ?
		 WHERE order_id = ? AND status = ?`,
		domain.StatusCompleted, recordID, storage.FormatTime(at), orderID, domain.StatusPending)
	if err != nil {
		return err
	}
	return s.claimOutcome(ctx, res, orderID)
}

// Release returns a completed intent to pending.
func (s *SQLiteStore) Release(ctx context.Context, orderID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE order_intent SET status = ?, record_id = '', completed_at = ''
		 WHERE order_id = ? AND status = ?`,
		domain.StatusPending, orderID, domain.StatusCompleted)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// claimOutcome tells an unknown order apart from one that was already used.
func (s *SQLiteStore) claimOutcome(ctx context.Context, res sql.Result, orderID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetByOrderID(ctx, orderID); err != nil {
		return err
	}
	return domain.ErrAlreadyUsed
}
