package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"conference/internal/adapters/http/middleware"
	"conference/internal/adapters/http/perf"
	accommodationStore "conference/internal/adapters/storage/accommodation"
	pccStore "conference/internal/adapters/storage/pcc"
	registrationStore "conference/internal/adapters/storage/registration"
	"conference/internal/application/listutil"
	"conference/internal/application/orchestrators"
	"conference/internal/application/projections"
	"conference/internal/domain/accommodation"
	"conference/internal/domain/course"
	"conference/internal/domain/pricing"
	"conference/internal/domain/registration"
)

// adminName returns the acting admin for audit log lines.
func adminName(r *http.Request) string {
	sess, _ := middleware.GetSessionFromContext(r.Context())
	return sess.Username
}

// handleLogin checks the configured admin credentials and sets the session cookie.
// Accepts JSON or a CSRF-protected form post.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := strictDecode(w, r, &req); err != nil {
			writeErr(w, err)
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form")
			return
		}
		req = loginRequest{Username: r.PostFormValue("username"), Password: r.PostFormValue("password")}
		if err := validate.Struct(req); err != nil {
			writeErr(w, err)
			return
		}
	}

	res, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Username: req.Username,
		Password: req.Password,
	}, orchestrators.LoginDeps{Credentials: app.Credentials})
	if err != nil {
		writeErr(w, err)
		return
	}
	token, sess, err := app.Sessions.Issue(res.Username)
	if err != nil {
		internalError(w, err)
		return
	}
	app.Sessions.SetCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{"username": sess.Username, "expiresAt": sess.ExpiresAt})
}

// handleLogout clears the session cookie. Tokens are stateless and expire on their own.
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if name := adminName(r); name != "" {
		slog.Info("auth_event", "event", "logout", "username", name)
	}
	app.Sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// --- Registrations ---

func handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	lp := listutil.Parse(r.URL.Query(), registrationStore.ListColumns)
	page, err := orchestrators.ExecuteListRecords[registration.Registration](r.Context(), lp, app.Stores.Registrations)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listutil.Page[registrationView]{
		Items:    mapPage(page.Items, newRegistrationView),
		PageInfo: page.PageInfo,
	})
}

func handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := app.Stores.Registrations.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRegistrationView(reg))
}

// handleCreateOfflineRegistration records a registration paid outside the gateway.
func handleCreateOfflineRegistration(w http.ResponseWriter, r *http.Request) {
	var req adminRegistrationRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	res, err := orchestrators.ExecuteCreateOfflineRegistration(r.Context(), orchestrators.OfflineRegistrationInput{
		Registration: req.registration(),
		SendEmail:    req.SendEmail,
	}, orchestrators.OfflineRegistrationDeps{
		Store:      app.Stores.Registrations,
		Calculator: app.Calculator,
		Notifier:   app.Notifier,
		GenerateID: app.GenerateID,
		Now:        app.Now,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	app.Metrics.RecordSaved(orchestrators.RecordRegistration, registration.PaymentOffline)
	slog.Info("admin_record_created", "kind", orchestrators.RecordRegistration, "id", res.ID, "admin", adminName(r))
	writeJSON(w, http.StatusCreated, newCompletionResponse(res))
}

func handleUpdateRegistration(w http.ResponseWriter, r *http.Request) {
	var req adminRegistrationRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	reg, err := orchestrators.ExecuteUpdateRegistration(r.Context(), r.PathValue("id"), req.registration(),
		orchestrators.UpdateRegistrationDeps{Store: app.Stores.Registrations, Now: app.Now})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRegistrationView(reg))
}

func handleDeleteRegistration(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := app.Stores.Registrations.Delete(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	slog.Info("admin_record_deleted", "kind", orchestrators.RecordRegistration, "id", id, "admin", adminName(r))
	w.WriteHeader(http.StatusNoContent)
}

// --- Accommodations ---

func handleListAccommodations(w http.ResponseWriter, r *http.Request) {
	lp := listutil.Parse(r.URL.Query(), accommodationStore.ListColumns)
	page, err := orchestrators.ExecuteListRecords[accommodation.Booking](r.Context(), lp, app.Stores.Accommodations)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listutil.Page[bookingView]{
		Items:    mapPage(page.Items, newBookingView),
		PageInfo: page.PageInfo,
	})
}

func handleGetAccommodation(w http.ResponseWriter, r *http.Request) {
	b, err := app.Stores.Accommodations.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingView(b))
}

func handleCreateOfflineAccommodation(w http.ResponseWriter, r *http.Request) {
	var req adminAccommodationRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	res, err := orchestrators.ExecuteCreateOfflineBooking(r.Context(), orchestrators.OfflineBookingInput{
		Booking:   req.booking(),
		SendEmail: req.SendEmail,
	}, orchestrators.OfflineBookingDeps{
		Store:      app.Stores.Accommodations,
		Calculator: app.Calculator,
		Notifier:   app.Notifier,
		GenerateID: app.GenerateID,
		Now:        app.Now,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	app.Metrics.RecordSaved(orchestrators.RecordAccommodation, registration.PaymentOffline)
	slog.Info("admin_record_created", "kind", orchestrators.RecordAccommodation, "id", res.ID, "admin", adminName(r))
	writeJSON(w, http.StatusCreated, newCompletionResponse(res))
}

func handleUpdateAccommodation(w http.ResponseWriter, r *http.Request) {
	var req adminAccommodationRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	b, err := orchestrators.ExecuteUpdateBooking(r.Context(), r.PathValue("id"), req.booking(),
		orchestrators.UpdateBookingDeps{Store: app.Stores.Accommodations, Now: app.Now})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookingView(b))
}

func handleDeleteAccommodation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := app.Stores.Accommodations.Delete(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	slog.Info("admin_record_deleted", "kind", orchestrators.RecordAccommodation, "id", id, "admin", adminName(r))
	w.WriteHeader(http.StatusNoContent)
}

// --- Pre-conference courses ---

func handleListCourseRegistrations(w http.ResponseWriter, r *http.Request) {
	lp := listutil.Parse(r.URL.Query(), pccStore.ListColumns)
	page, err := orchestrators.ExecuteListRecords[course.Registration](r.Context(), lp, app.Stores.Courses)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listutil.Page[courseRegistrationView]{
		Items:    mapPage(page.Items, newCourseRegistrationView),
		PageInfo: page.PageInfo,
	})
}

func handleGetCourseRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := app.Stores.Courses.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCourseRegistrationView(reg))
}

// handleCreateOfflineCourseRegistration takes a seat for a delegate who paid at the desk.
// The seat cap applies exactly as for online sign-ups.
func handleCreateOfflineCourseRegistration(w http.ResponseWriter, r *http.Request) {
	var req adminCourseRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	res, err := orchestrators.ExecuteRegisterCourse(r.Context(), orchestrators.RegisterCourseInput{
		Registration: req.registration(),
		Offline:      true,
		SendEmail:    req.SendEmail,
	}, courseDeps())
	if err != nil {
		writeErr(w, err)
		return
	}
	app.Metrics.RecordSaved(orchestrators.RecordCourse, registration.PaymentOffline)
	slog.Info("admin_record_created", "kind", orchestrators.RecordCourse, "id", res.ID, "admin", adminName(r))
	writeJSON(w, http.StatusCreated, newCompletionResponse(res))
}

func handleUpdateCourseRegistration(w http.ResponseWriter, r *http.Request) {
	var req adminCourseRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	reg, err := orchestrators.ExecuteUpdateCourseRegistration(r.Context(), r.PathValue("id"), req.registration(),
		orchestrators.UpdateCourseRegistrationDeps{Store: app.Stores.Courses, Courses: app.Catalog, Now: app.Now})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCourseRegistrationView(reg))
}

func handleDeleteCourseRegistration(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := app.Stores.Courses.Delete(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	slog.Info("admin_record_deleted", "kind", orchestrators.RecordCourse, "id", id, "admin", adminName(r))
	w.WriteHeader(http.StatusNoContent)
}

// --- Payment links and confirmations ---

// handleSendPaymentLink creates a gateway payment link and emails it. The admin enters major units.
func handleSendPaymentLink(w http.ResponseWriter, r *http.Request) {
	var req paymentLinkRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	res, err := orchestrators.ExecuteSendPaymentLink(r.Context(), orchestrators.SendPaymentLinkInput{
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		Amount:      req.Amount,
		Currency:    pricing.Currency(strings.ToUpper(strings.TrimSpace(req.Currency))),
		Description: req.Description,
		Note:        req.Note,
	}, orchestrators.SendPaymentLinkDeps{Gateway: app.Gateway, Notifier: app.Notifier, Now: app.Now})
	if err != nil {
		writeErr(w, err)
		return
	}
	slog.Info("payment_link_sent", "link_id", res.LinkID, "admin", adminName(r))
	writeJSON(w, http.StatusCreated, map[string]any{
		"linkId":      res.LinkID,
		"shortUrl":    res.ShortURL,
		"amountMinor": res.AmountMinor,
		"currency":    string(res.Currency),
		"emailStatus": res.EmailStatus,
		"message":     res.Message,
	})
}

// handleResendConfirmations re-sends confirmation emails for selected records in one batch.
func handleResendConfirmations(w http.ResponseWriter, r *http.Request) {
	var req confirmationRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	res, err := orchestrators.ExecuteResendConfirmations(r.Context(), orchestrators.ResendConfirmationsInput{
		RecordKind: req.RecordKind,
		IDs:        req.IDs,
	}, orchestrators.ResendConfirmationsDeps{
		Registrations:  app.Stores.Registrations,
		Accommodations: app.Stores.Accommodations,
		Courses:        app.Stores.Courses,
		Calculator:     app.Calculator,
		Notifier:       app.Notifier,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sent": res.Sent, "messageIds": res.MessageIDs})
}

// handlePerf returns request, query and outbound timings.
// Query: since (minutes, default 60), top (default 10).
func handlePerf(w http.ResponseWriter, r *http.Request) {
	if app.Collector == nil {
		writeJSON(w, http.StatusOK, perf.Snapshot{})
		return
	}
	minutes := 60
	if n, err := strconv.Atoi(r.URL.Query().Get("since")); err == nil && n > 0 {
		minutes = n
	}
	top := 10
	if n, err := strconv.Atoi(r.URL.Query().Get("top")); err == nil && n > 0 && n <= 100 {
		top = n
	}
	since := app.Now().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, app.Collector.Snapshot(since, top))
}

// handleDashboard totals every record kind for the back office overview.
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	res, err := projections.QueryGetDashboard(r.Context(), projections.GetDashboardDeps{
		Registrations:  app.Stores.Registrations,
		Accommodations: app.Stores.Accommodations,
		Courses:        app.Stores.Courses,
		Outbox:         app.Stores.Outbox,
		Catalog:        app.Catalog,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardResponse(res))
}
