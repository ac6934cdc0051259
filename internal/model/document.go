package model

import "time"

// DocumentKind classifies an uploaded document.
type DocumentKind string

const (
	DocumentExpenseInvoice DocumentKind = "FACTURA_GASTO"
	DocumentIssuedInvoice  DocumentKind = "FACTURA_EMITIDA"
	DocumentContract       DocumentKind = "CONTRATO"
	DocumentReceipt        DocumentKind = "JUSTIFICANTE"
	DocumentOther          DocumentKind = "OTRO"
)

// IsValid reports whether k is a known kind.
func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentExpenseInvoice, DocumentIssuedInvoice, DocumentContract, DocumentReceipt, DocumentOther:
		return true
	}
	return false
}

// OCRStatus tracks text extraction done by an external engine.
type OCRStatus string

const (
	OCRPending   OCRStatus = "PENDIENTE"
	OCRProcessed OCRStatus = "PROCESADO"
	OCRFailed    OCRStatus = "ERROR"
)

// IsValid reports whether s is a known status.
func (s OCRStatus) IsValid() bool {
	return s == OCRPending || s == OCRProcessed || s == OCRFailed
}

// ExtractedFields are the invoice fields an OCR engine read from a document.
// Every field is optional and kept as text until converted.
type ExtractedFields struct {
	SupplierName string `json:"proveedor_nombre,omitempty"`
	SupplierNIF  string `json:"proveedor_nif,omitempty"`
	InvoiceRef   string `json:"numero_factura,omitempty"`
	IssueDate    string `json:"fecha_emision,omitempty"`
	Concept      string `json:"concepto,omitempty"`
	Base         string `json:"base_imponible,omitempty"`
	IVARate      string `json:"tipo_iva,omitempty"`
	IVAAmount    string `json:"cuota_iva,omitempty"`
	Total        string `json:"total,omitempty"`
}

// Document is the metadata of a stored file. The bytes live in external
// storage referenced by StorageRef.
type Document struct {
	ID         string
	UserID     string
	Name       string
	Kind       DocumentKind
	MimeType   string
	SizeBytes  int64
	StorageRef string
	Checksum   string
	Notes      string
	ExpenseID  *string
	OCRStatus  OCRStatus
	OCRError   string
	Extracted  *ExtractedFields
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
