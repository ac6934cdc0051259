package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/anayu15/mi-gestor-sub003/internal/handler/dto"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// Expenses is the expense service used by ExpenseHandler.
type Expenses interface {
	Create(ctx context.Context, userID string, input service.ExpenseInput) (*model.Expense, error)
	Get(ctx context.Context, userID, id string) (*model.Expense, error)
	List(ctx context.Context, userID string, input service.ListExpensesInput) (*service.Page[model.Expense], error)
	Update(ctx context.Context, userID, id string, input service.ExpenseInput) (*model.Expense, error)
	Delete(ctx context.Context, userID, id string) error
}

// ExpenseHandler handles HTTP requests for expenses.
type ExpenseHandler struct {
	svc    Expenses
	logger *slog.Logger
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(svc Expenses, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/expenses.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.ExpenseRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	input, err := req.Input()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	e, err := h.svc.Create(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToExpenseResponse(e))
}

// Get handles GET /api/v1/expenses/{id}.
func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	e, err := h.svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToExpenseResponse(e))
}

// List handles GET /api/v1/expenses?year=&quarter=&category=&deductible=.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	period, err := parsePeriod(r)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	deductible, err := parseBool(r, "deductible")
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	page, err := h.svc.List(r.Context(), userID, service.ListExpensesInput{
		Period:     period,
		Category:   model.ExpenseCategory(r.URL.Query().Get("category")),
		Deductible: deductible,
		Cursor:     r.URL.Query().Get("cursor"),
		Limit:      parseLimit(r),
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewListResponse(page, dto.ToExpenseResponse))
}

// Update handles PUT /api/v1/expenses/{id}.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.ExpenseRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	input, err := req.Input()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	e, err := h.svc.Update(r.Context(), userID, chi.URLParam(r, "id"), input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToExpenseResponse(e))
}

// Delete handles DELETE /api/v1/expenses/{id}.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
