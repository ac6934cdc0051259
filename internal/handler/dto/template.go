package dto

import (
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// TemplateRequest represents the request body for a recurring invoice template.
// The preview endpoint accepts the same body without client.
type TemplateRequest struct {
	ClientID         string  `json:"cliente_id"`
	BillingProfileID *string `json:"datos_facturacion_id"`
	Name             string  `json:"nombre" validate:"max=200"`
	Concept          string  `json:"concepto" validate:"required,max=500"`
	Description      string  `json:"descripcion" validate:"max=2000"`
	Base             string  `json:"base_imponible" validate:"required"`
	IVARate          string  `json:"tipo_iva"`
	IRPFRate         string  `json:"tipo_irpf"`
	Frequency        string  `json:"frecuencia" validate:"required,oneof=MENSUAL TRIMESTRAL ANUAL PERSONALIZADO"`
	IntervalDays     int     `json:"intervalo_dias" validate:"gte=0"`
	DayPolicy        string  `json:"tipo_dia"`
	Day              int     `json:"dia_generacion" validate:"gte=0,lte=31"`
	StartDate        string  `json:"fecha_inicio" validate:"required"`
	EndDate          *string `json:"fecha_fin"`
	PeriodKind       string  `json:"periodo_facturacion"`
	DueDays          int     `json:"dias_vencimiento" validate:"gte=0"`
}

// Input converts the request. The day policy defaults to a specific day.
func (r TemplateRequest) Input() (service.TemplateInput, error) {
	var p parser
	in := service.TemplateInput{
		ClientID:         r.ClientID,
		BillingProfileID: r.BillingProfileID,
		Name:             r.Name,
		Concept:          r.Concept,
		Description:      r.Description,
		Base:             p.amount("base_imponible", r.Base),
		IVARate:          p.amount("tipo_iva", defaultString(r.IVARate, "21")),
		IRPFRate:         p.amount("tipo_irpf", r.IRPFRate),
		Frequency:        recurrence.Frequency(r.Frequency),
		IntervalDays:     r.IntervalDays,
		DayPolicy:        recurrence.DayPolicy(defaultString(r.DayPolicy, string(recurrence.SpecificDay))),
		Day:              r.Day,
		StartDate:        p.date("fecha_inicio", r.StartDate),
		EndDate:          p.optDate("fecha_fin", r.EndDate),
		PeriodKind:       recurrence.PeriodKind(r.PeriodKind),
		DueDays:          r.DueDays,
	}
	return in, p.err()
}

// TemplateResponse represents a template in API responses.
type TemplateResponse struct {
	ID               string    `json:"id"`
	ClientID         string    `json:"cliente_id"`
	ClientName       string    `json:"cliente_nombre,omitempty"`
	BillingProfileID *string   `json:"datos_facturacion_id,omitempty"`
	Name             string    `json:"nombre"`
	Concept          string    `json:"concepto"`
	Description      string    `json:"descripcion,omitempty"`
	Base             string    `json:"base_imponible"`
	IVARate          string    `json:"tipo_iva"`
	IRPFRate         string    `json:"tipo_irpf"`
	Frequency        string    `json:"frecuencia"`
	IntervalDays     int       `json:"intervalo_dias,omitempty"`
	DayPolicy        string    `json:"tipo_dia"`
	Day              int       `json:"dia_generacion"`
	StartDate        string    `json:"fecha_inicio"`
	EndDate          *string   `json:"fecha_fin,omitempty"`
	PeriodKind       string    `json:"periodo_facturacion"`
	DueDays          int       `json:"dias_vencimiento"`
	Active           bool      `json:"activo"`
	NextDate         *string   `json:"proxima_generacion,omitempty"`
	LastDate         *string   `json:"ultima_generacion,omitempty"`
	GeneratedCount   int       `json:"facturas_generadas"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ToTemplateResponse converts a model.Template.
func ToTemplateResponse(t *model.Template) TemplateResponse {
	return TemplateResponse{
		ID:               t.ID,
		ClientID:         t.ClientID,
		ClientName:       t.ClientName,
		BillingProfileID: t.BillingProfileID,
		Name:             t.Name,
		Concept:          t.Concept,
		Description:      t.Description,
		Base:             formatAmount(t.Base),
		IVARate:          formatRate(t.IVARate),
		IRPFRate:         formatRate(t.IRPFRate),
		Frequency:        string(t.Frequency),
		IntervalDays:     t.IntervalDays,
		DayPolicy:        string(t.DayPolicy),
		Day:              t.Day,
		StartDate:        formatDate(t.StartDate),
		EndDate:          formatDatePtr(t.EndDate),
		PeriodKind:       string(t.PeriodKind),
		DueDays:          t.DueDays,
		Active:           t.Active,
		NextDate:         formatDatePtr(t.NextDate),
		LastDate:         formatDatePtr(t.LastDate),
		GeneratedCount:   t.GeneratedCount,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

// PeriodResponse is a billing period.
type PeriodResponse struct {
	Start string `json:"inicio"`
	End   string `json:"fin"`
	Label string `json:"etiqueta"`
}

// OccurrenceResponse is one previewed invoice.
type OccurrenceResponse struct {
	Date    string          `json:"fecha"`
	Period  *PeriodResponse `json:"periodo,omitempty"`
	Concept string          `json:"concepto"`
	DueDate *string         `json:"fecha_vencimiento,omitempty"`
	Base    string          `json:"base_imponible"`
	IVA     string          `json:"cuota_iva"`
	IRPF    string          `json:"cuota_irpf"`
	Total   string          `json:"total"`
}

// ToOccurrenceResponses converts a preview.
func ToOccurrenceResponses(occs []service.Occurrence) []OccurrenceResponse {
	out := make([]OccurrenceResponse, 0, len(occs))
	for _, o := range occs {
		r := OccurrenceResponse{
			Date:    formatDate(o.Date),
			Concept: o.Concept,
			DueDate: formatDatePtr(o.DueDate),
			Base:    formatAmount(o.Base),
			IVA:     formatAmount(o.IVA),
			IRPF:    formatAmount(o.IRPF),
			Total:   formatAmount(o.Total),
		}
		if o.Period != nil {
			r.Period = &PeriodResponse{
				Start: formatDate(o.Period.Start),
				End:   formatDate(o.Period.End),
				Label: o.Period.Label(),
			}
		}
		out = append(out, r)
	}
	return out
}

// GapsResponse lists occurrences that have no invoice.
type GapsResponse struct {
	Dates []string `json:"fechas"`
	Count int      `json:"total"`
}

// ToGapsResponse converts missing dates.
func ToGapsResponse(dates []time.Time) GapsResponse {
	return GapsResponse{Dates: formatDates(dates), Count: len(dates)}
}

// DateRangeRequest is the optional body of POST /recurring-templates/{id}/backfill.
type DateRangeRequest struct {
	From *string `json:"desde"`
	To   *string `json:"hasta"`
}

// Range parses the bounds.
func (r DateRangeRequest) Range() (*time.Time, *time.Time, error) {
	var p parser
	from := p.optDate("desde", r.From)
	to := p.optDate("hasta", r.To)
	return from, to, p.err()
}

// BackfillResponse reports a backfill.
type BackfillResponse struct {
	Created   []InvoiceResponse `json:"facturas"`
	Skipped   []string          `json:"omitidas"`
	Remaining int               `json:"pendientes"`
}

// ToBackfillResponse converts a service.BackfillResult.
func ToBackfillResponse(res *service.BackfillResult, today time.Time) BackfillResponse {
	out := BackfillResponse{
		Created:   make([]InvoiceResponse, 0, len(res.Created)),
		Skipped:   formatDates(res.Skipped),
		Remaining: res.Remaining,
	}
	for _, inv := range res.Created {
		out.Created = append(out.Created, ToInvoiceResponse(inv, today))
	}
	return out
}

// DueResponse summarises a due-processing run.
type DueResponse struct {
	Templates int `json:"plantillas"`
	Generated int `json:"generadas"`
	Skipped   int `json:"omitidas"`
	Failed    int `json:"fallidas"`
}

// ToDueResponse converts a service.DueResult.
func ToDueResponse(res *service.DueResult) DueResponse {
	return DueResponse{Templates: res.Templates, Generated: res.Generated, Skipped: res.Skipped, Failed: res.Failed}
}

func formatDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, formatDate(d))
	}
	return out
}
