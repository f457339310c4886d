package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"conference/internal/adapters/payment"
	"conference/internal/application/orchestrators"
	"conference/internal/domain/accommodation"
	"conference/internal/domain/course"
	"conference/internal/domain/order"
	"conference/internal/domain/outbox"
	"conference/internal/domain/registration"
)

// maxBodyBytes bounds request bodies; the largest legitimate payload is a registration
// with a handful of accompanying persons.
const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// embeddedSegments are DTO blocks that flatten into their parent in JSON.
var embeddedSegments = strings.NewReplacer(
	"registrationRequest.", "", "accommodationRequest.", "", "courseRequest.", "",
	"contactRequest.", "", "checkoutRequest.", "",
)

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// strictDecode decodes JSON from the request body, rejecting unknown fields, then validates v.
func strictDecode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return errBadRequest("request body is empty")
		}
		return errBadRequest("invalid JSON: " + err.Error())
	}
	if err := validate.Struct(v); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err.Error())
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// errBadRequest marks malformed input that never reached validation.
type errBadRequest string

func (e errBadRequest) Error() string { return string(e) }

// errorStatuses maps sentinel errors to responses. The first match wins.
var errorStatuses = []struct {
	target error
	status int
}{
	{registration.ErrNotFound, http.StatusNotFound},
	{accommodation.ErrNotFound, http.StatusNotFound},
	{course.ErrRegistrationNotFound, http.StatusNotFound},
	{course.ErrCourseNotFound, http.StatusNotFound},
	{outbox.ErrNotFound, http.StatusNotFound},
	{order.ErrNotFound, http.StatusNotFound},

	{course.ErrSeatsFull, http.StatusConflict},
	{outbox.ErrNotRetryable, http.StatusConflict},
	{order.ErrAlreadyUsed, http.StatusConflict},
	{order.ErrKindMismatch, http.StatusConflict},
	{order.ErrChargeMismatch, http.StatusConflict},

	{orchestrators.ErrInvalidCredentials, http.StatusUnauthorized},
	{orchestrators.ErrLoginDisabled, http.StatusServiceUnavailable},

	{payment.ErrInvalidSignature, http.StatusBadRequest},
	{payment.ErrGateway, http.StatusBadGateway},

	{orchestrators.ErrSelectionIncomplete, http.StatusUnprocessableEntity},
	{orchestrators.ErrUnknownOrderKind, http.StatusUnprocessableEntity},
	{orchestrators.ErrLinkCurrency, http.StatusUnprocessableEntity},
	{orchestrators.ErrLinkRecipient, http.StatusUnprocessableEntity},
	{orchestrators.ErrNoRecordsSelected, http.StatusUnprocessableEntity},
	{orchestrators.ErrUnknownRecordKind, http.StatusUnprocessableEntity},
	{payment.ErrInvalidAmount, http.StatusUnprocessableEntity},
}

// domainValidation lists the entity invariant errors; all map to 422 with their own message.
var domainValidation = []error{
	registration.ErrFullNameEmpty, registration.ErrFullNameTooLong, registration.ErrEmailInvalid,
	registration.ErrPhoneEmpty, registration.ErrAddressIncomplete, registration.ErrCategoryEmpty,
	registration.ErrEventTypeEmpty, registration.ErrAccompanyingFlag, registration.ErrAccompanyingCount,
	registration.ErrAccompanyingNameEmpty, registration.ErrInternationalLimit, registration.ErrCurrency,
	registration.ErrPaymentMode, registration.ErrPaymentIDRequired,
	accommodation.ErrDelegateType, accommodation.ErrRoomType, accommodation.ErrDatesMissing,
	accommodation.ErrDatesOrder, accommodation.ErrCurrency, accommodation.ErrPaymentMode,
	accommodation.ErrPaymentRequired,
	course.ErrFullNameEmpty, course.ErrEmailInvalid, course.ErrPhoneEmpty, course.ErrCodeEmpty,
}

// writeErr maps err to a status and writes it. Unknown errors become a logged 500.
func writeErr(w http.ResponseWriter, err error) {
	var bad errBadRequest
	if errors.As(err, &bad) {
		writeError(w, http.StatusBadRequest, bad.Error())
		return
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fieldMessages(fieldErrs)})
		return
	}
	for _, m := range errorStatuses {
		if errors.Is(err, m.target) {
			writeError(w, m.status, m.target.Error())
			return
		}
	}
	for _, target := range domainValidation {
		if errors.Is(err, target) {
			writeError(w, http.StatusUnprocessableEntity, target.Error())
			return
		}
	}
	internalError(w, err)
}

// fieldMessages keys validator failures by JSON field path, e.g. "accompanyingPersons[0].name".
func fieldMessages(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		ns = embeddedSegments.Replace(ns)
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		out[ns] = fmt.Sprintf("failed %s", msg)
	}
	return out
}
