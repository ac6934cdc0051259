package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/anayu15/mi-gestor-sub003/internal/handler/dto"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// Invoices is the invoice service used by InvoiceHandler.
type Invoices interface {
	Today() time.Time
	Create(ctx context.Context, userID string, input service.InvoiceInput) (*model.Invoice, error)
	Get(ctx context.Context, userID, id string) (*model.Invoice, error)
	List(ctx context.Context, userID string, input service.ListInvoicesInput) (*service.Page[model.Invoice], error)
	Update(ctx context.Context, userID, id string, input service.InvoiceInput) (*model.Invoice, error)
	MarkPaid(ctx context.Context, userID, id string, paidOn *time.Time) (*model.Invoice, error)
	MarkPending(ctx context.Context, userID, id string) (*model.Invoice, error)
	Cancel(ctx context.Context, userID, id string) (*model.Invoice, error)
	Delete(ctx context.Context, userID, id string) error
}

// InvoiceHandler handles HTTP requests for issued invoices.
type InvoiceHandler struct {
	svc    Invoices
	logger *slog.Logger
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(svc Invoices, logger *slog.Logger) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/invoices.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.InvoiceRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	input, err := req.Input()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	inv, err := h.svc.Create(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToInvoiceResponse(inv, h.svc.Today()))
}

// Get handles GET /api/v1/invoices/{id}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	inv, err := h.svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToInvoiceResponse(inv, h.svc.Today()))
}

// List handles GET /api/v1/invoices?year=&quarter=&status=&client_id=&template_id=.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	period, err := parsePeriod(r)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	query := r.URL.Query()
	page, err := h.svc.List(r.Context(), userID, service.ListInvoicesInput{
		Period:     period,
		Status:     model.InvoiceStatus(query.Get("status")),
		ClientID:   query.Get("client_id"),
		TemplateID: query.Get("template_id"),
		Cursor:     query.Get("cursor"),
		Limit:      parseLimit(r),
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewListResponse(page, dto.InvoiceConverter(h.svc.Today())))
}

// Update handles PUT /api/v1/invoices/{id}.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.InvoiceRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	input, err := req.Input()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	inv, err := h.svc.Update(r.Context(), userID, chi.URLParam(r, "id"), input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToInvoiceResponse(inv, h.svc.Today()))
}

// Pay handles POST /api/v1/invoices/{id}/pay. The body is optional.
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.PayInvoiceRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	paidOn, err := req.PaidDateValue()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	inv, err := h.svc.MarkPaid(r.Context(), userID, chi.URLParam(r, "id"), paidOn)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToInvoiceResponse(inv, h.svc.Today()))
}

// Unpay handles POST /api/v1/invoices/{id}/unpay.
func (h *InvoiceHandler) Unpay(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.MarkPending)
}

// Cancel handles POST /api/v1/invoices/{id}/cancel.
func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Cancel)
}

func (h *InvoiceHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, userID, id string) (*model.Invoice, error),
) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	inv, err := fn(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToInvoiceResponse(inv, h.svc.Today()))
}

// Delete handles DELETE /api/v1/invoices/{id}.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
