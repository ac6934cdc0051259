package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/anayu15/mi-gestor-sub003/internal/handler/dto"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// Fiscal is the fiscal preferences service used by FiscalHandler.
type Fiscal interface {
	Get(ctx context.Context, userID string) (*model.FiscalPreferences, error)
	Update(ctx context.Context, userID string, input service.FiscalInput) (*model.FiscalPreferences, error)
	RequiredModelos(ctx context.Context, userID string) ([]string, error)
}

// FiscalHandler handles HTTP requests for the user's tax situation.
type FiscalHandler struct {
	svc    Fiscal
	logger *slog.Logger
}

// NewFiscalHandler creates a new FiscalHandler.
func NewFiscalHandler(svc Fiscal, logger *slog.Logger) *FiscalHandler {
	return &FiscalHandler{svc: svc, logger: logger}
}

// Get handles GET /api/v1/fiscal-preferences.
func (h *FiscalHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToFiscalResponse(p))
}

// Update handles PUT /api/v1/fiscal-preferences.
func (h *FiscalHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.FiscalRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	input, err := req.Input()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	p, err := h.svc.Update(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToFiscalResponse(p))
}

// Modelos handles GET /api/v1/fiscal-preferences/modelos.
func (h *FiscalHandler) Modelos(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	modelos, err := h.svc.RequiredModelos(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if modelos == nil {
		modelos = []string{}
	}
	writeJSON(w, http.StatusOK, dto.ModelosResponse{Modelos: modelos})
}
