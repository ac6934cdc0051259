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

// Documents is the document service used by DocumentHandler.
type Documents interface {
	Create(ctx context.Context, userID string, input service.DocumentInput) (*model.Document, error)
	Get(ctx context.Context, userID, id string) (*model.Document, error)
	List(ctx context.Context, userID string, input service.ListDocumentsInput) (*service.Page[model.Document], error)
	Update(ctx context.Context, userID, id string, patch service.DocumentPatch) (*model.Document, error)
	Delete(ctx context.Context, userID, id string) error
	AttachOCR(ctx context.Context, userID, id string, result service.OCRResult) (*model.Document, error)
	ConvertToExpense(ctx context.Context, userID, id string, o service.ExpenseOverrides) (*model.Expense, error)
}

// DocumentHandler handles HTTP requests for stored documents.
type DocumentHandler struct {
	svc    Documents
	logger *slog.Logger
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(svc Documents, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/documents.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.DocumentRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	d, err := h.svc.Create(r.Context(), userID, req.Input())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToDocumentResponse(d))
}

// Get handles GET /api/v1/documents/{id}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	d, err := h.svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToDocumentResponse(d))
}

// List handles GET /api/v1/documents?kind=&linked=.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	linked, err := parseBool(r, "linked")
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	page, err := h.svc.List(r.Context(), userID, service.ListDocumentsInput{
		Kind:   model.DocumentKind(r.URL.Query().Get("kind")),
		Linked: linked,
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  parseLimit(r),
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewListResponse(page, dto.ToDocumentResponse))
}

// Update handles PATCH /api/v1/documents/{id}.
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.UpdateDocumentRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	d, err := h.svc.Update(r.Context(), userID, chi.URLParam(r, "id"), req.Patch())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToDocumentResponse(d))
}

// Delete handles DELETE /api/v1/documents/{id}.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// AttachOCR handles POST /api/v1/documents/{id}/ocr.
func (h *DocumentHandler) AttachOCR(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.OCRRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	d, err := h.svc.AttachOCR(r.Context(), userID, chi.URLParam(r, "id"), req.Result())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToDocumentResponse(d))
}

// ConvertToExpense handles POST /api/v1/documents/{id}/expense.
func (h *DocumentHandler) ConvertToExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.ConvertDocumentRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	overrides, err := req.Overrides()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	e, err := h.svc.ConvertToExpense(r.Context(), userID, chi.URLParam(r, "id"), overrides)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToExpenseResponse(e))
}
