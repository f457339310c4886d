package web

import (
	"context"
	"net/http"
	"time"

	"conference/internal/adapters/http/middleware"
	"conference/internal/application/orchestrators"
	"conference/internal/domain/registration"
)

func quoteDeps() orchestrators.QuoteDeps {
	return orchestrators.QuoteDeps{Calculator: app.Calculator, Now: app.Now}
}

// handleHealthz reports liveness and, when a ping is configured, storage reachability.
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	if app.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := app.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCSRFToken hands form-posting clients a token for the X-CSRF-Token header or
// the gorilla.csrf.Token field.
func handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": middleware.CSRFToken(r)})
}

// handleQuote prices a registration selection. Incomplete selections quote zero rather than fail.
func handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	q := orchestrators.ExecuteQuote(r.Context(), req.input(), quoteDeps())
	writeJSON(w, http.StatusOK, newQuoteResponse(q))
}

// handleAccommodationQuote prices a stay. Missing dates or types quote zero.
func handleAccommodationQuote(w http.ResponseWriter, r *http.Request) {
	var req accommodationQuoteRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	q := orchestrators.ExecuteAccommodationQuote(r.Context(), req.input(), quoteDeps())
	writeJSON(w, http.StatusOK, newAccommodationQuoteResponse(q))
}

// handleCreateOrder validates the full form and opens a gateway order for the server-computed amount.
func handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	sel, err := req.selection()
	if err != nil {
		writeErr(w, err)
		return
	}
	res, err := orchestrators.ExecuteCreateOrder(r.Context(), sel, orchestrators.CreateOrderDeps{
		Quotes:     quoteDeps(),
		Courses:    app.Catalog,
		Seats:      app.Stores.Courses,
		Gateway:    app.Gateway,
		Intents:    app.Stores.Orders,
		GenerateID: app.GenerateID,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	app.Metrics.OrderCreated(req.Kind)
	writeJSON(w, http.StatusCreated, orderResponse{
		OrderID:  res.Order.ID,
		Amount:   res.Order.Amount,
		Currency: string(res.Order.Currency),
		Receipt:  res.Order.Receipt,
		KeyID:    res.Order.KeyID,
	})
}

// handleCompleteRegistration persists the registration a paid order was opened for.
func handleCompleteRegistration(w http.ResponseWriter, r *http.Request) {
	var req completeRegistrationRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	res, err := orchestrators.ExecuteRegisterAttendee(r.Context(), orchestrators.RegisterAttendeeInput{
		Checkout: withAmount(req.checkout(), req.ClientAmount),
	}, orchestrators.RegisterAttendeeDeps{
		Store:      app.Stores.Registrations,
		Intents:    app.Stores.Orders,
		Gateway:    app.Gateway,
		Notifier:   app.Notifier,
		GenerateID: app.GenerateID,
		Now:        app.Now,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	app.Metrics.RecordSaved(orchestrators.RecordRegistration, registration.PaymentOnline)
	writeJSON(w, http.StatusCreated, newCompletionResponse(res))
}

// handleCompleteAccommodation persists a paid hotel booking.
func handleCompleteAccommodation(w http.ResponseWriter, r *http.Request) {
	var req completeAccommodationRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	res, err := orchestrators.ExecuteBookAccommodation(r.Context(), orchestrators.BookAccommodationInput{
		Checkout: withAmount(req.checkout(), req.ClientAmount),
	}, orchestrators.BookAccommodationDeps{
		Store:      app.Stores.Accommodations,
		Intents:    app.Stores.Orders,
		Gateway:    app.Gateway,
		Notifier:   app.Notifier,
		GenerateID: app.GenerateID,
		Now:        app.Now,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	app.Metrics.RecordSaved(orchestrators.RecordAccommodation, registration.PaymentOnline)
	writeJSON(w, http.StatusCreated, newCompletionResponse(res))
}

// handleCourseSeats lists the course catalog with seat occupancy.
func handleCourseSeats(w http.ResponseWriter, r *http.Request) {
	seats, err := orchestrators.ExecuteCourseSeats(r.Context(), orchestrators.CourseSeatsDeps{
		Store:   app.Stores.Courses,
		Courses: app.Catalog,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPage(seats, newCourseSeatsResponse))
}

// handleCourseCount reports occupancy for one course.
func handleCourseCount(w http.ResponseWriter, r *http.Request) {
	s, err := orchestrators.ExecuteCourseCount(r.Context(), r.PathValue("code"), orchestrators.CourseSeatsDeps{
		Store:   app.Stores.Courses,
		Courses: app.Catalog,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCourseSeatsResponse(s))
}

// handleCompleteCourseRegistration persists a paid course sign-up. A full course is a 409.
func handleCompleteCourseRegistration(w http.ResponseWriter, r *http.Request) {
	var req completeCourseRequest
	if err := strictDecode(w, r, &req); err != nil {
		writeErr(w, err)
		return
	}
	res, err := orchestrators.ExecuteRegisterCourse(r.Context(), orchestrators.RegisterCourseInput{
		Checkout: withAmount(req.checkout(), req.ClientAmount),
	}, courseDeps())
	if err != nil {
		writeErr(w, err)
		return
	}
	app.Metrics.RecordSaved(orchestrators.RecordCourse, registration.PaymentOnline)
	writeJSON(w, http.StatusCreated, newCompletionResponse(res))
}

func courseDeps() orchestrators.RegisterCourseDeps {
	return orchestrators.RegisterCourseDeps{
		Store:      app.Stores.Courses,
		Intents:    app.Stores.Orders,
		Courses:    app.Catalog,
		Gateway:    app.Gateway,
		Notifier:   app.Notifier,
		GenerateID: app.GenerateID,
		Now:        app.Now,
	}
}
