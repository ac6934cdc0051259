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

// Clients is the client service used by ClientHandler.
type Clients interface {
	Create(ctx context.Context, userID string, input service.ClientInput) (*model.Client, error)
	Get(ctx context.Context, userID, id string) (*model.Client, error)
	List(ctx context.Context, userID string, input service.ListClientsInput) (*service.Page[model.Client], error)
	Update(ctx context.Context, userID, id string, input service.ClientInput) (*model.Client, error)
	SetActive(ctx context.Context, userID, id string, active bool) (*model.Client, error)
	Delete(ctx context.Context, userID, id string) error
}

// ClientHandler handles HTTP requests for clients.
type ClientHandler struct {
	svc    Clients
	logger *slog.Logger
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(svc Clients, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/clients.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.ClientRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	c, err := h.svc.Create(r.Context(), userID, req.Input())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// Get handles GET /api/v1/clients/{id}.
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	c, err := h.svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// List handles GET /api/v1/clients?search=&active=&cursor=&limit=.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	active, err := parseBool(r, "active")
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	page, err := h.svc.List(r.Context(), userID, service.ListClientsInput{
		Search: r.URL.Query().Get("search"),
		Active: active,
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  parseLimit(r),
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewListResponse(page, func(c *model.Client) *model.Client { return c }))
}

// Update handles PUT /api/v1/clients/{id}.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.ClientRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	c, err := h.svc.Update(r.Context(), userID, chi.URLParam(r, "id"), req.Input())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Activate handles POST /api/v1/clients/{id}/activate.
func (h *ClientHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// Deactivate handles POST /api/v1/clients/{id}/deactivate.
func (h *ClientHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *ClientHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	c, err := h.svc.SetActive(r.Context(), userID, chi.URLParam(r, "id"), active)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /api/v1/clients/{id}.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// BillingProfiles is the billing profile service used by BillingProfileHandler.
type BillingProfiles interface {
	Create(ctx context.Context, userID string, input service.BillingProfileInput) (*model.BillingProfile, error)
	Get(ctx context.Context, userID, id string) (*model.BillingProfile, error)
	List(ctx context.Context, userID string) ([]*model.BillingProfile, error)
	Update(ctx context.Context, userID, id string, input service.BillingProfileInput) (*model.BillingProfile, error)
	Activate(ctx context.Context, userID, id string) (*model.BillingProfile, error)
	Delete(ctx context.Context, userID, id string) error
}

// BillingProfileHandler handles HTTP requests for billing profiles.
type BillingProfileHandler struct {
	svc    BillingProfiles
	logger *slog.Logger
}

// NewBillingProfileHandler creates a new BillingProfileHandler.
func NewBillingProfileHandler(svc BillingProfiles, logger *slog.Logger) *BillingProfileHandler {
	return &BillingProfileHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/billing-profiles.
func (h *BillingProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.BillingProfileRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	p, err := h.svc.Create(r.Context(), userID, req.Input())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Get handles GET /api/v1/billing-profiles/{id}.
func (h *BillingProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// List handles GET /api/v1/billing-profiles.
func (h *BillingProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	profiles, err := h.svc.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if profiles == nil {
		profiles = []*model.BillingProfile{}
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[*model.BillingProfile]{Data: profiles})
}

// Update handles PUT /api/v1/billing-profiles/{id}.
func (h *BillingProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.BillingProfileRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	p, err := h.svc.Update(r.Context(), userID, chi.URLParam(r, "id"), req.Input())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Activate handles POST /api/v1/billing-profiles/{id}/activate.
func (h *BillingProfileHandler) Activate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	p, err := h.svc.Activate(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/v1/billing-profiles/{id}.
func (h *BillingProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
