package handler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/anayu15/mi-gestor-sub003/internal/handler/dto"
	"github.com/anayu15/mi-gestor-sub003/internal/tax"
)

// Reports is the tax report service used by TaxHandler.
type Reports interface {
	Modelo(ctx context.Context, userID, modelo string, year, quarter int) (tax.CSVReport, error)
	Summary(ctx context.Context, userID string, year int) (*tax.Summary, error)
	Calendar(ctx context.Context, userID string, year int) ([]tax.Deadline, error)
}

// TaxHandler serves the computed tax forms.
type TaxHandler struct {
	svc    Reports
	now    func() time.Time
	logger *slog.Logger
}

// NewTaxHandler creates a new TaxHandler. now supplies the default year.
func NewTaxHandler(svc Reports, now func() time.Time, logger *slog.Logger) *TaxHandler {
	if now == nil {
		now = time.Now
	}
	return &TaxHandler{svc: svc, now: now, logger: logger}
}

// Modelo handles GET /api/v1/tax/modelo-{modelo}?year=&quarter=&format=.
func (h *TaxHandler) Modelo(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	year, quarter, ok := h.period(w, r)
	if !ok {
		return
	}
	modelo := chi.URLParam(r, "modelo")

	report, err := h.svc.Modelo(r.Context(), userID, modelo, year, quarter)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if wantsCSV(r) {
		period := fmt.Sprintf("%dT", quarter)
		if tax.IsAnnual(modelo) {
			period = "0A"
		}
		h.writeCSV(w, fmt.Sprintf("modelo-%s-%d-%s.csv", modelo, year, period), report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Summary handles GET /api/v1/tax/summary?year=&format=.
func (h *TaxHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	year, _, ok := h.period(w, r)
	if !ok {
		return
	}

	summary, err := h.svc.Summary(r.Context(), userID, year)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	if wantsCSV(r) {
		h.writeCSV(w, fmt.Sprintf("resumen-%d.csv", year), summary)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Calendar handles GET /api/v1/tax/calendar?year=.
func (h *TaxHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	year, _, ok := h.period(w, r)
	if !ok {
		return
	}

	deadlines, err := h.svc.Calendar(r.Context(), userID, year)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if deadlines == nil {
		deadlines = []tax.Deadline{}
	}
	writeJSON(w, http.StatusOK, dto.ListResponse[tax.Deadline]{Data: deadlines})
}

// period reads ?year= (default: current year) and ?quarter=.
func (h *TaxHandler) period(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	p, err := parsePeriod(r)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return 0, 0, false
	}
	if p.Year == 0 {
		p.Year = h.now().Year()
	}
	return p.Year, p.Quarter, true
}

func (h *TaxHandler) writeCSV(w http.ResponseWriter, filename string, report tax.CSVReport) {
	var buf bytes.Buffer
	if err := tax.WriteCSV(&buf, report); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}
