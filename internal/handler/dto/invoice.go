package dto

import (
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// InvoiceRequest represents the request body for creating or replacing an
// invoice. An empty numero_factura allocates the next YYYY-NNNN.
type InvoiceRequest struct {
	ClientID         string  `json:"cliente_id" validate:"required"`
	BillingProfileID *string `json:"datos_facturacion_id"`
	Number           string  `json:"numero_factura" validate:"max=30"`
	IssueDate        string  `json:"fecha_emision" validate:"required"`
	DueDate          *string `json:"fecha_vencimiento"`
	Concept          string  `json:"concepto" validate:"required,max=500"`
	Description      string  `json:"descripcion" validate:"max=2000"`
	Base             string  `json:"base_imponible" validate:"required"`
	IVARate          string  `json:"tipo_iva"`
	IRPFRate         string  `json:"tipo_irpf"`
	PeriodStart      *string `json:"periodo_inicio"`
	PeriodEnd        *string `json:"periodo_fin"`
	Notes            string  `json:"notas" validate:"max=2000"`
}

// Input converts the request. Rates default to 21% IVA and no IRPF.
func (r InvoiceRequest) Input() (service.InvoiceInput, error) {
	var p parser
	in := service.InvoiceInput{
		ClientID:         r.ClientID,
		BillingProfileID: r.BillingProfileID,
		Number:           r.Number,
		IssueDate:        p.date("fecha_emision", r.IssueDate),
		DueDate:          p.optDate("fecha_vencimiento", r.DueDate),
		Concept:          r.Concept,
		Description:      r.Description,
		Base:             p.amount("base_imponible", r.Base),
		IVARate:          p.amount("tipo_iva", defaultString(r.IVARate, "21")),
		IRPFRate:         p.amount("tipo_irpf", r.IRPFRate),
		PeriodStart:      p.optDate("periodo_inicio", r.PeriodStart),
		PeriodEnd:        p.optDate("periodo_fin", r.PeriodEnd),
		Notes:            r.Notes,
	}
	return in, p.err()
}

// PayInvoiceRequest represents the optional body of POST /invoices/{id}/pay.
type PayInvoiceRequest struct {
	PaidDate *string `json:"fecha_pago"`
}

// PaidDateValue parses the paid date; nil means today.
func (r PayInvoiceRequest) PaidDateValue() (*time.Time, error) {
	var p parser
	d := p.optDate("fecha_pago", r.PaidDate)
	return d, p.err()
}

// InvoiceResponse represents an invoice in API responses.
type InvoiceResponse struct {
	ID               string    `json:"id"`
	Number           string    `json:"numero_factura"`
	ClientID         string    `json:"cliente_id"`
	ClientName       string    `json:"cliente_nombre,omitempty"`
	ClientNIF        string    `json:"cliente_nif,omitempty"`
	BillingProfileID *string   `json:"datos_facturacion_id,omitempty"`
	TemplateID       *string   `json:"plantilla_id,omitempty"`
	IssueDate        string    `json:"fecha_emision"`
	DueDate          *string   `json:"fecha_vencimiento,omitempty"`
	Concept          string    `json:"concepto"`
	Description      string    `json:"descripcion,omitempty"`
	Base             string    `json:"base_imponible"`
	IVARate          string    `json:"tipo_iva"`
	IVAAmount        string    `json:"cuota_iva"`
	IRPFRate         string    `json:"tipo_irpf"`
	IRPFAmount       string    `json:"cuota_irpf"`
	Total            string    `json:"total"`
	Status           string    `json:"estado"`
	Overdue          bool      `json:"vencida"`
	PaidDate         *string   `json:"fecha_pago,omitempty"`
	PeriodStart      *string   `json:"periodo_inicio,omitempty"`
	PeriodEnd        *string   `json:"periodo_fin,omitempty"`
	Notes            string    `json:"notas,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ToInvoiceResponse converts a model.Invoice. today decides the overdue flag.
func ToInvoiceResponse(inv *model.Invoice, today time.Time) InvoiceResponse {
	return InvoiceResponse{
		ID:               inv.ID,
		Number:           inv.Number,
		ClientID:         inv.ClientID,
		ClientName:       inv.ClientName,
		ClientNIF:        inv.ClientNIF,
		BillingProfileID: inv.BillingProfileID,
		TemplateID:       inv.TemplateID,
		IssueDate:        formatDate(inv.IssueDate),
		DueDate:          formatDatePtr(inv.DueDate),
		Concept:          inv.Concept,
		Description:      inv.Description,
		Base:             formatAmount(inv.Base),
		IVARate:          formatRate(inv.IVARate),
		IVAAmount:        formatAmount(inv.IVAAmount),
		IRPFRate:         formatRate(inv.IRPFRate),
		IRPFAmount:       formatAmount(inv.IRPFAmount),
		Total:            formatAmount(inv.Total),
		Status:           string(inv.Status),
		Overdue:          inv.IsOverdue(today),
		PaidDate:         formatDatePtr(inv.PaidDate),
		PeriodStart:      formatDatePtr(inv.PeriodStart),
		PeriodEnd:        formatDatePtr(inv.PeriodEnd),
		Notes:            inv.Notes,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
}

// InvoiceConverter binds today for list conversions.
func InvoiceConverter(today time.Time) func(*model.Invoice) InvoiceResponse {
	return func(inv *model.Invoice) InvoiceResponse { return ToInvoiceResponse(inv, today) }
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
