package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/anayu15/mi-gestor-sub003/internal/handler/dto"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// Templates is the recurring template service used by TemplateHandler.
type Templates interface {
	Today() time.Time
	Create(ctx context.Context, userID string, input service.TemplateInput) (*model.Template, error)
	Get(ctx context.Context, userID, id string) (*model.Template, error)
	List(ctx context.Context, userID string, input service.ListTemplatesInput) (*service.Page[model.Template], error)
	Update(ctx context.Context, userID, id string, input service.TemplateInput) (*model.Template, error)
	Delete(ctx context.Context, userID, id string) error
	Pause(ctx context.Context, userID, id string) (*model.Template, error)
	Resume(ctx context.Context, userID, id string) (*model.Template, error)
	Preview(ctx context.Context, userID, id string, count int) ([]service.Occurrence, error)
	PreviewInput(input service.TemplateInput, count int) ([]service.Occurrence, error)
	GenerateNow(ctx context.Context, userID, id string) (*model.Invoice, error)
	Gaps(ctx context.Context, userID, id string, from, to *time.Time) ([]time.Time, error)
	Backfill(ctx context.Context, userID, id string, from, to *time.Time) (*service.BackfillResult, error)
	ProcessDue(ctx context.Context, userID string) (*service.DueResult, error)
}

// TemplateHandler handles HTTP requests for recurring invoice templates.
type TemplateHandler struct {
	svc    Templates
	logger *slog.Logger
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(svc Templates, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/recurring-templates.
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	t, err := h.svc.Create(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToTemplateResponse(t))
}

// Get handles GET /api/v1/recurring-templates/{id}.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	t, err := h.svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToTemplateResponse(t))
}

// List handles GET /api/v1/recurring-templates?active=&client_id=.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	active, err := parseBool(r, "active")
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	page, err := h.svc.List(r.Context(), userID, service.ListTemplatesInput{
		Active:   active,
		ClientID: r.URL.Query().Get("client_id"),
		Cursor:   r.URL.Query().Get("cursor"),
		Limit:    parseLimit(r),
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewListResponse(page, dto.ToTemplateResponse))
}

// Update handles PUT /api/v1/recurring-templates/{id}.
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	t, err := h.svc.Update(r.Context(), userID, chi.URLParam(r, "id"), input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToTemplateResponse(t))
}

// Delete handles DELETE /api/v1/recurring-templates/{id}. Generated
// invoices are kept.
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// Pause handles POST /api/v1/recurring-templates/{id}/pause.
func (h *TemplateHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.svc.Pause)
}

// Resume handles POST /api/v1/recurring-templates/{id}/resume.
func (h *TemplateHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.svc.Resume)
}

func (h *TemplateHandler) toggle(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, userID, id string) (*model.Template, error),
) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	t, err := fn(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToTemplateResponse(t))
}

// Preview handles GET /api/v1/recurring-templates/{id}/preview?count=.
func (h *TemplateHandler) Preview(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	count, err := parseInt(r, "count")
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	occs, err := h.svc.Preview(r.Context(), userID, chi.URLParam(r, "id"), count)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[dto.OccurrenceResponse]{Data: dto.ToOccurrenceResponses(occs)})
}

// PreviewSchedule handles POST /api/v1/recurring-templates/preview with an
// unsaved template body.
func (h *TemplateHandler) PreviewSchedule(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	count, err := parseInt(r, "count")
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	occs, err := h.svc.PreviewInput(input, count)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[dto.OccurrenceResponse]{Data: dto.ToOccurrenceResponses(occs)})
}

// Generate handles POST /api/v1/recurring-templates/{id}/generate. The
// invoice is dated today and the schedule does not move.
func (h *TemplateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	inv, err := h.svc.GenerateNow(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToInvoiceResponse(inv, h.svc.Today()))
}

// Gaps handles GET /api/v1/recurring-templates/{id}/gaps?from=&to=.
func (h *TemplateHandler) Gaps(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	dates, err := h.svc.Gaps(r.Context(), userID, chi.URLParam(r, "id"), from, to)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToGapsResponse(dates))
}

// Backfill handles POST /api/v1/recurring-templates/{id}/backfill with an
// optional {"desde","hasta"} body.
func (h *TemplateHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.DateRangeRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	from, to, err := req.Range()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	res, err := h.svc.Backfill(r.Context(), userID, chi.URLParam(r, "id"), from, to)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if len(res.Created) > 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.ToBackfillResponse(res, h.svc.Today()))
}

// ProcessDue handles POST /api/v1/recurring-templates/process-due. It runs
// due generation for the caller's templates only.
func (h *TemplateHandler) ProcessDue(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := h.svc.ProcessDue(r.Context(), userID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToDueResponse(res))
}

func (h *TemplateHandler) decodeInput(w http.ResponseWriter, r *http.Request) (service.TemplateInput, bool) {
	var req dto.TemplateRequest
	if !decodeJSON(w, r, &req, false) {
		return service.TemplateInput{}, false
	}
	input, err := req.Input()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return service.TemplateInput{}, false
	}
	return input, true
}

// parseRange reads ?from= and ?to= as YYYY-MM-DD.
func parseRange(r *http.Request) (*time.Time, *time.Time, error) {
	fields := map[string]string{}
	parse := func(name string) *time.Time {
		v := r.URL.Query().Get(name)
		if v == "" {
			return nil
		}
		d, err := recurrence.ParseDate(v)
		if err != nil {
			fields[name] = "must be a date in YYYY-MM-DD format"
			return nil
		}
		return &d
	}

	from, to := parse("from"), parse("to")
	if len(fields) > 0 {
		return nil, nil, &service.ValidationError{Fields: fields}
	}
	return from, to, nil
}
