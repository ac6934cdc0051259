// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/anayu15/mi-gestor-sub003/internal/auth"
	"github.com/anayu15/mi-gestor-sub003/internal/handler/dto"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// Version is reported by the index endpoint.
const Version = "1.0.0"

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Handler serves the endpoints that are not tied to a resource.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Index describes the API.
// GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    "miGestor API",
		"version": Version,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

// errorMapping ties a service error to its HTTP response.
type errorMapping struct {
	err    error
	status int
	code   string
}

var serviceErrors = []errorMapping{
	{service.ErrInvalidCursor, http.StatusBadRequest, "INVALID_CURSOR"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{service.ErrEmailExists, http.StatusConflict, "EMAIL_EXISTS"},
	{service.ErrAPIKeyNotFound, http.StatusNotFound, "KEY_NOT_FOUND"},
	{service.ErrAPIKeyRevoked, http.StatusNotFound, "KEY_NOT_FOUND"},
	{service.ErrClientNotFound, http.StatusNotFound, "CLIENT_NOT_FOUND"},
	{service.ErrClientNIFExists, http.StatusConflict, "CLIENT_NIF_EXISTS"},
	{service.ErrClientInUse, http.StatusConflict, "CLIENT_IN_USE"},
	{service.ErrBillingProfileNotFound, http.StatusNotFound, "BILLING_PROFILE_NOT_FOUND"},
	{service.ErrActiveProfileInUse, http.StatusConflict, "BILLING_PROFILE_ACTIVE"},
	{service.ErrInvoiceNotFound, http.StatusNotFound, "INVOICE_NOT_FOUND"},
	{service.ErrInvoiceNumberTaken, http.StatusConflict, "INVOICE_NUMBER_TAKEN"},
	{service.ErrInvoiceNotEditable, http.StatusConflict, "INVOICE_NOT_EDITABLE"},
	{service.ErrInvalidStatusChange, http.StatusConflict, "INVALID_STATUS_CHANGE"},
	{service.ErrInvalidReference, http.StatusUnprocessableEntity, "INVALID_REFERENCE"},
	{service.ErrExpenseNotFound, http.StatusNotFound, "EXPENSE_NOT_FOUND"},
	{service.ErrTemplateNotFound, http.StatusNotFound, "TEMPLATE_NOT_FOUND"},
	{service.ErrTemplateEnded, http.StatusConflict, "TEMPLATE_ENDED"},
	{service.ErrOccurrenceGenerated, http.StatusConflict, "OCCURRENCE_ALREADY_GENERATED"},
	{service.ErrDocumentNotFound, http.StatusNotFound, "DOCUMENT_NOT_FOUND"},
	{service.ErrDocumentDuplicate, http.StatusConflict, "DOCUMENT_DUPLICATE"},
	{service.ErrDocumentConverted, http.StatusConflict, "DOCUMENT_ALREADY_CONVERTED"},
	{service.ErrUnknownModelo, http.StatusNotFound, "UNKNOWN_MODELO"},
}

// handleServiceError maps service errors to HTTP responses. Unknown errors
// are logged and reported as 500 without detail.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:  "request validation failed",
			Code:   "VALIDATION_FAILED",
			Fields: verr.Fields,
		})
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, m.err.Error())
			return
		}
	}

	logger.Error("internal_error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}

// decodeJSON reads and validates a request body into dst. An empty body is
// accepted when optional is set. It writes the error response and returns
// false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Request body too large")
				return false
			}
			writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
			return false
		}
	}
	if err := dto.Validate(dst); err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:  "request validation failed",
				Code:   "VALIDATION_FAILED",
				Fields: verr.Fields,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return false
	}
	return true
}

// requireUser returns the authenticated user id or writes 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return "", false
	}
	return userID, true
}

// parseLimit reads ?limit=, clamped to [1, maxLimit].
func parseLimit(r *http.Request) int {
	limit := defaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = min(parsed, maxLimit)
		}
	}
	return limit
}

// parseBool reads an optional boolean query parameter.
func parseBool(r *http.Request, name string) (*bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, &service.ValidationError{Fields: map[string]string{name: "must be true or false"}}
	}
	return &b, nil
}

// parseInt reads an optional integer query parameter; missing yields 0.
func parseInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &service.ValidationError{Fields: map[string]string{name: "must be an integer"}}
	}
	return n, nil
}

// parsePeriod reads ?year= and ?quarter=.
func parsePeriod(r *http.Request) (service.PeriodFilter, error) {
	year, err := parseInt(r, "year")
	if err != nil {
		return service.PeriodFilter{}, err
	}
	quarter, err := parseInt(r, "quarter")
	if err != nil {
		return service.PeriodFilter{}, err
	}
	return service.PeriodFilter{Year: year, Quarter: quarter}, nil
}
