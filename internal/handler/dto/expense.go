package dto

import (
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// ExpenseRequest represents the request body for creating or replacing an expense.
type ExpenseRequest struct {
	Concept                string  `json:"concepto" validate:"required,max=500"`
	Category               string  `json:"categoria" validate:"required"`
	SupplierName           string  `json:"proveedor_nombre" validate:"max=200"`
	SupplierNIF            string  `json:"proveedor_nif" validate:"omitempty,nif"`
	SupplierIntracommunity bool    `json:"proveedor_intracomunitario"`
	IssueDate              string  `json:"fecha_emision" validate:"required"`
	PaidDate               *string `json:"fecha_pago"`
	Paid                   bool    `json:"pagado"`
	Base                   string  `json:"base_imponible" validate:"required"`
	IVARate                string  `json:"tipo_iva"`
	WithholdingRate        string  `json:"tipo_retencion"`
	WithholdingKind        string  `json:"clase_retencion"`
	Deductible             *bool   `json:"deducible"`
	DeductiblePct          *string `json:"porcentaje_deducible"`
	Notes                  string  `json:"notas" validate:"max=2000"`
}

// Input converts the request. Expenses are deductible unless stated.
func (r ExpenseRequest) Input() (service.ExpenseInput, error) {
	var p parser
	in := service.ExpenseInput{
		Concept:                r.Concept,
		Category:               model.ExpenseCategory(r.Category),
		SupplierName:           r.SupplierName,
		SupplierNIF:            r.SupplierNIF,
		SupplierIntracommunity: r.SupplierIntracommunity,
		IssueDate:              p.date("fecha_emision", r.IssueDate),
		PaidDate:               p.optDate("fecha_pago", r.PaidDate),
		Paid:                   r.Paid,
		Base:                   p.amount("base_imponible", r.Base),
		IVARate:                p.amount("tipo_iva", defaultString(r.IVARate, "21")),
		WithholdingRate:        p.amount("tipo_retencion", r.WithholdingRate),
		WithholdingKind:        model.WithholdingKind(r.WithholdingKind),
		Deductible:             r.Deductible == nil || *r.Deductible,
		DeductiblePct:          p.optAmount("porcentaje_deducible", r.DeductiblePct),
		Notes:                  r.Notes,
	}
	return in, p.err()
}

// ExpenseResponse represents an expense in API responses.
type ExpenseResponse struct {
	ID                     string    `json:"id"`
	DocumentID             *string   `json:"documento_id,omitempty"`
	Concept                string    `json:"concepto"`
	Category               string    `json:"categoria"`
	SupplierName           string    `json:"proveedor_nombre,omitempty"`
	SupplierNIF            string    `json:"proveedor_nif,omitempty"`
	SupplierIntracommunity bool      `json:"proveedor_intracomunitario"`
	IssueDate              string    `json:"fecha_emision"`
	PaidDate               *string   `json:"fecha_pago,omitempty"`
	Paid                   bool      `json:"pagado"`
	Base                   string    `json:"base_imponible"`
	IVARate                string    `json:"tipo_iva"`
	IVAAmount              string    `json:"cuota_iva"`
	WithholdingRate        string    `json:"tipo_retencion"`
	WithholdingAmount      string    `json:"cuota_retencion"`
	WithholdingKind        string    `json:"clase_retencion"`
	Total                  string    `json:"total"`
	Deductible             bool      `json:"deducible"`
	DeductiblePct          string    `json:"porcentaje_deducible"`
	Notes                  string    `json:"notas,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// ToExpenseResponse converts a model.Expense.
func ToExpenseResponse(e *model.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:                     e.ID,
		DocumentID:             e.DocumentID,
		Concept:                e.Concept,
		Category:               string(e.Category),
		SupplierName:           e.SupplierName,
		SupplierNIF:            e.SupplierNIF,
		SupplierIntracommunity: e.SupplierIntracommunity,
		IssueDate:              formatDate(e.IssueDate),
		PaidDate:               formatDatePtr(e.PaidDate),
		Paid:                   e.Paid,
		Base:                   formatAmount(e.Base),
		IVARate:                formatRate(e.IVARate),
		IVAAmount:              formatAmount(e.IVAAmount),
		WithholdingRate:        formatRate(e.WithholdingRate),
		WithholdingAmount:      formatAmount(e.WithholdingAmount),
		WithholdingKind:        string(e.WithholdingKind),
		Total:                  formatAmount(e.Total),
		Deductible:             e.Deductible,
		DeductiblePct:          formatRate(e.DeductiblePct),
		Notes:                  e.Notes,
		CreatedAt:              e.CreatedAt,
		UpdatedAt:              e.UpdatedAt,
	}
}
