package orchestrators

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"conference/internal/adapters/email"
	outboxStore "conference/internal/adapters/storage/outbox"
	domain "conference/internal/domain/outbox"
)

// OutboxProcessor replays side effects that failed after their record was saved.
type OutboxProcessor struct {
	store     outboxStore.Store
	executors map[string]ActionExecutor
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	now       func() time.Time
}

// ActionExecutor executes a specific type of external action.
type ActionExecutor interface {
	// Execute runs the external action with the given payload.
	// Returns the external ID (e.g. the relay message id) and any error.
	Execute(ctx context.Context, payload string) (string, error)
}

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(store outboxStore.Store, executors map[string]ActionExecutor) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		baseDelay: 30 * time.Second,
		maxDelay:  1 * time.Hour,
		batchSize: 10,
		now:       time.Now,
	}
}

// ProcessPending runs every entry whose backoff has elapsed.
// PRE: Context is valid
// POST: Due entries are attempted once; failures are rescheduled or marked failed
func (p *OutboxProcessor) ProcessPending(ctx context.Context) error {
	entries, err := p.store.ListDue(ctx, p.now(), p.batchSize)
	if err != nil {
		return fmt.Errorf("list due outbox entries: %w", err)
	}

	for _, entry := range entries {
		if err := p.processEntry(ctx, entry); err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err.Error())
		}
	}

	return nil
}

func (p *OutboxProcessor) processEntry(ctx context.Context, entry domain.Entry) error {
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkAttempt(p.now())
		entry.Status = domain.StatusFailed
		entry.ErrorMessage = "no executor registered for action type: " + entry.ActionType
		return p.store.Save(ctx, entry)
	}

	entry.MarkAttempt(p.now())
	externalID, err := executor.Execute(ctx, entry.Payload)
	if err != nil {
		entry.MarkFailed(err, p.baseDelay, p.maxDelay)
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "error", err.Error())
	} else {
		entry.MarkSuccess(externalID)
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}

	return p.store.Save(ctx, entry)
}

// ProcessSingle runs one entry now, granting an extra attempt if its limit was reached.
// PRE: entryID is non-empty
// POST: Returns the updated entry; domain.ErrNotRetryable for done or abandoned entries
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get outbox entry: %w", err)
	}
	if err := entry.Reset(p.now()); err != nil {
		return entry, err
	}
	if err := p.processEntry(ctx, entry); err != nil {
		return entry, err
	}
	slog.Info("outbox_manual_retry", "entry_id", entryID)
	return p.store.GetByID(ctx, entryID)
}

// AbandonEntry marks an entry as abandoned by admin.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get outbox entry: %w", err)
	}

	entry.MarkAbandoned()
	slog.Info("outbox_entry_abandoned", "entry_id", entryID)
	return entry, p.store.Save(ctx, entry)
}

// ListEntries returns entries with the given status (all when empty), newest first.
func (p *OutboxProcessor) ListEntries(ctx context.Context, status string, limit int) ([]domain.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	return p.store.List(ctx, status, limit)
}

// --- Email Executor ---

// EmailPayload is the JSON stored on email outbox entries.
type EmailPayload struct {
	To      []string `json:"to"`
	From    string   `json:"from"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Kind    string   `json:"kind"`
}

func newEmailPayload(req email.SendRequest) EmailPayload {
	return EmailPayload{
		To:      req.To,
		From:    req.From,
		Subject: req.Subject,
		HTML:    req.HTML,
		ReplyTo: req.ReplyTo,
		Kind:    req.Kind,
	}
}

func (p EmailPayload) request() email.SendRequest {
	return email.SendRequest{
		To:      p.To,
		From:    p.From,
		Subject: p.Subject,
		HTML:    p.HTML,
		ReplyTo: p.ReplyTo,
		Kind:    p.Kind,
	}
}

// EmailExecutor resends queued emails through the relay.
type EmailExecutor struct {
	Sender email.Sender
}

// Execute sends the email described by payload.
// PRE: payload is valid JSON matching EmailPayload
// POST: email sent via configured sender, returns message ID
// INVARIANT: outbox entry status managed by caller
func (e *EmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p EmailPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	res, err := e.Sender.Send(ctx, p.request())
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

// --- Background Worker ---

// StartBackgroundWorker starts a background goroutine that periodically processes due outbox entries.
// PRE: stopCh is provided to signal shutdown
// POST: Worker runs until stopCh is closed
func StartBackgroundWorker(processor *OutboxProcessor, interval time.Duration, stopCh <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if err := processor.ProcessPending(ctx); err != nil {
					slog.Error("outbox_background_process_failed", "error", err.Error())
				}
				cancel()
			case <-stopCh:
				slog.Info("outbox_background_worker_stopped")
				return
			}
		}
	}()
}
