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

// Accounts is the account and API key service used by AccountHandler.
type Accounts interface {
	Register(ctx context.Context, input service.RegisterInput) (*service.IssuedKey, error)
	Login(ctx context.Context, email, password string) (*service.IssuedKey, error)
	CreateKey(ctx context.Context, userID string, input service.CreateKeyInput) (*service.IssuedKey, error)
	ListKeys(ctx context.Context, userID string) ([]*model.APIKey, error)
	RevokeKey(ctx context.Context, userID, keyID string) error
	RotateKey(ctx context.Context, userID, keyID string) (*service.IssuedKey, error)
}

// AccountHandler handles registration, login and API key management.
type AccountHandler struct {
	svc    Accounts
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc Accounts, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, logger: logger}
}

// Register handles POST /api/v1/auth/register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	issued, err := h.svc.Register(r.Context(), req.Input())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToIssuedKeyResponse(issued))
}

// Login handles POST /api/v1/auth/login. Every credential failure gets
// the same response.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	issued, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToIssuedKeyResponse(issued))
}

// CreateKey handles POST /api/v1/api-keys.
func (h *AccountHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.CreateAPIKeyRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	issued, err := h.svc.CreateKey(r.Context(), userID, req.Input())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToIssuedKeyResponse(issued))
}

// ListKeys handles GET /api/v1/api-keys.
func (h *AccountHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	keys, err := h.svc.ListKeys(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	resp := dto.ListResponse[dto.APIKeyResponse]{Data: make([]dto.APIKeyResponse, 0, len(keys))}
	for _, k := range keys {
		resp.Data = append(resp.Data, dto.ToAPIKeyResponse(k))
	}
	writeJSON(w, http.StatusOK, resp)
}

// RevokeKey handles DELETE /api/v1/api-keys/{id}.
func (h *AccountHandler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.RevokeKey(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RotateKey handles POST /api/v1/api-keys/{id}/rotate.
func (h *AccountHandler) RotateKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	issued, err := h.svc.RotateKey(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToIssuedKeyResponse(issued))
}
