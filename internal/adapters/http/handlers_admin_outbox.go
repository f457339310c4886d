package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"conference/internal/domain/outbox"
)

// handleListOutbox lists queued side effects.
// Query: status (default failed; "all" for every status), limit (1..100, default 50).
func handleListOutbox(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 100 {
		limit = n
	}

	status := r.URL.Query().Get("status")
	switch status {
	case "":
		status = outbox.StatusFailed
	case "all":
		status = ""
	}

	entries, err := app.Processor.ListEntries(r.Context(), status, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPage(entries, newOutboxEntryView))
}

// handleRetryOutbox resets an entry and attempts it immediately.
// Done and abandoned entries answer 409.
func handleRetryOutbox(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, err := app.Processor.ProcessSingle(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	slog.Info("outbox_manual_retry", "id", id, "status", e.Status, "admin", adminName(r))
	writeJSON(w, http.StatusOK, newOutboxEntryView(e))
}

// handleAbandonOutbox stops further attempts for an entry.
func handleAbandonOutbox(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, err := app.Processor.AbandonEntry(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	slog.Info("outbox_abandoned", "id", id, "admin", adminName(r))
	writeJSON(w, http.StatusOK, newOutboxEntryView(e))
}
