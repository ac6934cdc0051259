package dto

import (
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/service"
)

// DocumentRequest represents the request body for registering a stored file.
type DocumentRequest struct {
	Name       string `json:"nombre" validate:"required,max=255"`
	Kind       string `json:"tipo" validate:"required,oneof=FACTURA_GASTO FACTURA_EMITIDA CONTRATO JUSTIFICANTE OTRO"`
	MimeType   string `json:"mime_type" validate:"required,max=100"`
	SizeBytes  int64  `json:"tamano_bytes" validate:"gte=0"`
	StorageRef string `json:"storage_ref" validate:"required,max=500"`
	Checksum   string `json:"checksum" validate:"required,len=64,hexadecimal"`
	Notes      string `json:"notas" validate:"max=2000"`
}

// Input converts the request.
func (r DocumentRequest) Input() service.DocumentInput {
	return service.DocumentInput{
		Name:       r.Name,
		Kind:       model.DocumentKind(r.Kind),
		MimeType:   r.MimeType,
		SizeBytes:  r.SizeBytes,
		StorageRef: r.StorageRef,
		Checksum:   r.Checksum,
		Notes:      r.Notes,
	}
}

// UpdateDocumentRequest represents the request body for PATCH /documents/{id}.
type UpdateDocumentRequest struct {
	Name  *string `json:"nombre" validate:"omitempty,min=1,max=255"`
	Kind  *string `json:"tipo" validate:"omitempty,oneof=FACTURA_GASTO FACTURA_EMITIDA CONTRATO JUSTIFICANTE OTRO"`
	Notes *string `json:"notas" validate:"omitempty,max=2000"`
}

// Patch converts the request.
func (r UpdateDocumentRequest) Patch() service.DocumentPatch {
	patch := service.DocumentPatch{Name: r.Name, Notes: r.Notes}
	if r.Kind != nil {
		k := model.DocumentKind(*r.Kind)
		patch.Kind = &k
	}
	return patch
}

// OCRRequest represents the request body for POST /documents/{id}/ocr.
type OCRRequest struct {
	Status string                 `json:"ocr_estado" validate:"required,oneof=PROCESADO ERROR"`
	Error  string                 `json:"ocr_error" validate:"max=1000"`
	Fields *model.ExtractedFields `json:"datos_extraidos"`
}

// Result converts the request.
func (r OCRRequest) Result() service.OCRResult {
	return service.OCRResult{Status: model.OCRStatus(r.Status), Error: r.Error, Fields: r.Fields}
}

// ConvertDocumentRequest overrides extracted values when converting a
// document into an expense. Omitted fields keep what extraction found.
type ConvertDocumentRequest struct {
	Concept                *string `json:"concepto" validate:"omitempty,max=500"`
	Category               *string `json:"categoria"`
	SupplierName           *string `json:"proveedor_nombre" validate:"omitempty,max=200"`
	SupplierNIF            *string `json:"proveedor_nif" validate:"omitempty,nif"`
	SupplierIntracommunity *bool   `json:"proveedor_intracomunitario"`
	IssueDate              *string `json:"fecha_emision"`
	PaidDate               *string `json:"fecha_pago"`
	Base                   *string `json:"base_imponible"`
	IVARate                *string `json:"tipo_iva"`
	WithholdingRate        *string `json:"tipo_retencion"`
	WithholdingKind        *string `json:"clase_retencion"`
	Deductible             *bool   `json:"deducible"`
	DeductiblePct          *string `json:"porcentaje_deducible"`
	Notes                  *string `json:"notas" validate:"omitempty,max=2000"`
}

// Overrides converts the request.
func (r ConvertDocumentRequest) Overrides() (service.ExpenseOverrides, error) {
	var p parser
	o := service.ExpenseOverrides{
		Concept:                r.Concept,
		SupplierName:           r.SupplierName,
		SupplierNIF:            r.SupplierNIF,
		SupplierIntracommunity: r.SupplierIntracommunity,
		IssueDate:              p.optDate("fecha_emision", r.IssueDate),
		PaidDate:               p.optDate("fecha_pago", r.PaidDate),
		Base:                   p.optAmount("base_imponible", r.Base),
		IVARate:                p.optAmount("tipo_iva", r.IVARate),
		WithholdingRate:        p.optAmount("tipo_retencion", r.WithholdingRate),
		Deductible:             r.Deductible,
		DeductiblePct:          p.optAmount("porcentaje_deducible", r.DeductiblePct),
		Notes:                  r.Notes,
	}
	if r.Category != nil {
		c := model.ExpenseCategory(*r.Category)
		o.Category = &c
	}
	if r.WithholdingKind != nil {
		k := model.WithholdingKind(*r.WithholdingKind)
		o.WithholdingKind = &k
	}
	return o, p.err()
}

// DocumentResponse represents a document in API responses.
type DocumentResponse struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"nombre"`
	Kind       string                 `json:"tipo"`
	MimeType   string                 `json:"mime_type"`
	SizeBytes  int64                  `json:"tamano_bytes"`
	StorageRef string                 `json:"storage_ref"`
	Checksum   string                 `json:"checksum"`
	Notes      string                 `json:"notas,omitempty"`
	ExpenseID  *string                `json:"gasto_id,omitempty"`
	OCRStatus  string                 `json:"ocr_estado"`
	OCRError   string                 `json:"ocr_error,omitempty"`
	Extracted  *model.ExtractedFields `json:"datos_extraidos,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// ToDocumentResponse converts a model.Document.
func ToDocumentResponse(d *model.Document) DocumentResponse {
	return DocumentResponse{
		ID:         d.ID,
		Name:       d.Name,
		Kind:       string(d.Kind),
		MimeType:   d.MimeType,
		SizeBytes:  d.SizeBytes,
		StorageRef: d.StorageRef,
		Checksum:   d.Checksum,
		Notes:      d.Notes,
		ExpenseID:  d.ExpenseID,
		OCRStatus:  string(d.OCRStatus),
		OCRError:   d.OCRError,
		Extracted:  d.Extracted,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}
