package outbox

import (
	"errors"
	"time"
)

// Entry lifecycle.
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// ActionTypeEmail replays a confirmation or payment-request email.
const ActionTypeEmail = "email"

// DefaultMaxAttempts applies when an entry is created without a limit.
const DefaultMaxAttempts = 5

var (
	ErrNotFound        = errors.New("outbox entry not found")
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
	ErrCreatedAtUnset  = errors.New("created_at must be set")
	ErrNotRetryable    = errors.New("outbox entry cannot be retried")
)

// Entry is one deferred side effect, usually an email that failed after its record was saved.
type Entry struct {
	ID         string
	ActionType string
	// Payload is the JSON needed to replay the action.
	Payload string
	Status  string
	// RecordKind and RecordID point at the persisted record the action belongs to.
	RecordKind      string
	RecordID        string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	NextAttemptAt   time.Time
	CreatedAt       time.Time
	ExternalID      string
	ErrorMessage    string
}

// Validate checks the entry and fills in the default attempt limit.
// PRE: Entry struct is populated
// POST: Returns nil if valid, MaxAttempts is positive
func (e *Entry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return ErrCreatedAtUnset
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	return nil
}

// CanRetry returns true if the entry can be retried.
// POST: True for pending, retrying or failed entries below the attempt limit
func (e *Entry) CanRetry() bool {
	return (e.Status == StatusPending || e.Status == StatusRetrying || e.Status == StatusFailed) &&
		e.Attempts < e.MaxAttempts
}

// Due reports whether the entry is retryable and its backoff has elapsed.
func (e *Entry) Due(now time.Time) bool {
	return e.CanRetry() && !now.Before(e.NextAttemptAt)
}

// IsTerminal returns true once no further automatic attempts will be made.
func (e *Entry) IsTerminal() bool {
	switch e.Status {
	case StatusDone, StatusAbandoned:
		return true
	case StatusFailed:
		return e.Attempts >= e.MaxAttempts
	}
	return false
}

// MarkAttempt records an attempt starting at now.
// POST: Attempts incremented, status set to retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSuccess marks the entry as delivered.
// POST: Status set to done, ErrorMessage cleared
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records err and schedules the next attempt with exponential backoff.
// POST: Status is failed once the attempt limit is reached, retrying otherwise
func (e *Entry) MarkFailed(err error, baseDelay, maxDelay time.Duration) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
		return
	}
	e.NextAttemptAt = e.LastAttemptedAt.Add(e.NextRetryDelay(baseDelay, maxDelay))
}

// MarkAbandoned stops all further attempts.
func (e *Entry) MarkAbandoned() {
	e.Status = StatusAbandoned
}

// Reset grants a manual retry to a failed entry.
// PRE: Entry is not done or abandoned
// POST: One more attempt is available immediately
func (e *Entry) Reset(now time.Time) error {
	if e.Status == StatusDone || e.Status == StatusAbandoned {
		return ErrNotRetryable
	}
	if e.Attempts >= e.MaxAttempts {
		e.MaxAttempts = e.Attempts + 1
	}
	e.Status = StatusPending
	e.NextAttemptAt = now
	return nil
}

// NextRetryDelay is 2^attempts * baseDelay, capped at maxDelay.
func (e *Entry) NextRetryDelay(baseDelay time.Duration, maxDelay time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return maxDelay
	}
	delay := baseDelay * (1 << e.Attempts)
	if delay > maxDelay || delay <= 0 {
		return maxDelay
	}
	return delay
}
