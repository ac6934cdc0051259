package service

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/money"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
	"github.com/anayu15/mi-gestor-sub003/internal/repository"
)

var (
	ErrDocumentNotFound  = repository.ErrDocumentNotFound
	ErrDocumentDuplicate = repository.ErrDocumentDuplicate
	ErrDocumentConverted = repository.ErrDocumentConverted
)

var checksumRegex = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Spanish invoices usually print dates as DD/MM/YYYY.
const spanishDateLayout = "02/01/2006"

// DocumentService tracks uploaded documents and turns expense invoices
// into expenses.
type DocumentService struct {
	store    DocumentStore
	versions DataVersioner
	logger   *slog.Logger
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(store DocumentStore, versions DataVersioner, logger *slog.Logger) *DocumentService {
	return &DocumentService{store: store, versions: versions, logger: defaultLogger(logger, "documents")}
}

// DocumentInput describes a stored file.
type DocumentInput struct {
	Name       string
	Kind       model.DocumentKind
	MimeType   string
	SizeBytes  int64
	StorageRef string
	Checksum   string
	Notes      string
}

// Create registers the metadata of a file already in storage.
func (s *DocumentService) Create(ctx context.Context, userID string, input DocumentInput) (*model.Document, error) {
	ts := now()
	d := &model.Document{
		ID:         generateID(),
		UserID:     userID,
		Name:       strings.TrimSpace(input.Name),
		Kind:       input.Kind,
		MimeType:   strings.ToLower(strings.TrimSpace(input.MimeType)),
		SizeBytes:  input.SizeBytes,
		StorageRef: strings.TrimSpace(input.StorageRef),
		Checksum:   strings.ToLower(strings.TrimSpace(input.Checksum)),
		Notes:      input.Notes,
		OCRStatus:  model.OCRPending,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	if d.Kind == "" {
		d.Kind = model.DocumentOther
	}

	fe := fieldErrors{}
	if d.Name == "" {
		fe.add("nombre", "is required")
	}
	if !d.Kind.IsValid() {
		fe.add("tipo", "unknown document kind")
	}
	if _, _, err := mime.ParseMediaType(d.MimeType); err != nil || !strings.Contains(d.MimeType, "/") {
		fe.add("mime_type", "must be a media type such as application/pdf")
	}
	if d.SizeBytes <= 0 {
		fe.add("tamano_bytes", "must be positive")
	}
	if d.StorageRef == "" {
		fe.add("storage_ref", "is required")
	}
	if !checksumRegex.MatchString(d.Checksum) {
		fe.add("checksum", "must be a hex SHA-256 digest")
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	if err := s.store.CreateDocument(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("document_created", "user_id", userID, "document_id", d.ID, "kind", d.Kind)
	return d, nil
}

// Get returns one of the user's documents.
func (s *DocumentService) Get(ctx context.Context, userID, id string) (*model.Document, error) {
	return s.store.GetDocument(ctx, userID, id)
}

// ListDocumentsInput defines input for List.
type ListDocumentsInput struct {
	Kind   model.DocumentKind
	Linked *bool
	Cursor string
	Limit  int
}

// List pages through documents, newest first.
func (s *DocumentService) List(ctx context.Context, userID string, input ListDocumentsInput) (*Page[model.Document], error) {
	if input.Kind != "" && !input.Kind.IsValid() {
		return nil, invalid("tipo", "unknown document kind")
	}
	filter := repository.DocumentFilter{UserID: userID, Kind: input.Kind, Linked: input.Linked}
	docs, next, err := s.store.ListDocuments(ctx, filter, repository.Page{Cursor: input.Cursor, Limit: input.Limit})
	if err != nil {
		return nil, err
	}
	return newPage(docs, next), nil
}

// DocumentPatch changes the descriptive fields; nil leaves a field as is.
type DocumentPatch struct {
	Name  *string
	Kind  *model.DocumentKind
	Notes *string
}

// Update applies a patch.
func (s *DocumentService) Update(ctx context.Context, userID, id string, patch DocumentPatch) (*model.Document, error) {
	d, err := s.store.GetDocument(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, invalid("nombre", "must not be empty")
		}
		d.Name = name
	}
	if patch.Kind != nil {
		if !patch.Kind.IsValid() {
			return nil, invalid("tipo", "unknown document kind")
		}
		d.Kind = *patch.Kind
	}
	if patch.Notes != nil {
		d.Notes = *patch.Notes
	}
	d.UpdatedAt = now()

	if err := s.store.UpdateDocument(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Delete removes the metadata. A linked expense stays, unlinked.
func (s *DocumentService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteDocument(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("document_deleted", "user_id", userID, "document_id", id)
	return nil
}

// OCRResult is what an external extraction engine reports. Status is
// PROCESADO or ERROR.
type OCRResult struct {
	Status model.OCRStatus
	Error  string
	Fields *model.ExtractedFields
}

// AttachOCR stores the extraction outcome of a document.
func (s *DocumentService) AttachOCR(ctx context.Context, userID, id string, result OCRResult) (*model.Document, error) {
	switch result.Status {
	case model.OCRProcessed:
		if result.Fields == nil {
			return nil, invalid("datos_extraidos", "is required when processed")
		}
		result.Error = ""
	case model.OCRFailed:
		if strings.TrimSpace(result.Error) == "" {
			return nil, invalid("ocr_error", "is required when extraction failed")
		}
		result.Fields = nil
	default:
		return nil, invalid("ocr_estado", "must be PROCESADO or ERROR")
	}

	if err := s.store.SetDocumentOCR(ctx, userID, id, result.Status, result.Error, result.Fields); err != nil {
		return nil, err
	}

	s.logger.Info("document_ocr_attached", "user_id", userID, "document_id", id, "status", result.Status)
	return s.store.GetDocument(ctx, userID, id)
}

// ExpenseOverrides replace extracted values when converting a document.
// Nil fields keep what extraction found.
type ExpenseOverrides struct {
	Concept                *string
	Category               *model.ExpenseCategory
	SupplierName           *string
	SupplierNIF            *string
	SupplierIntracommunity *bool
	IssueDate              *time.Time
	PaidDate               *time.Time
	Base                   *decimal.Decimal
	IVARate                *decimal.Decimal
	WithholdingRate        *decimal.Decimal
	WithholdingKind        *model.WithholdingKind
	Deductible             *bool
	DeductiblePct          *decimal.Decimal
	Notes                  *string
}

// ConvertToExpense creates an expense from the document's extracted
// fields, overridden by o, and links both in one transaction.
func (s *DocumentService) ConvertToExpense(ctx context.Context, userID, id string, o ExpenseOverrides) (*model.Expense, error) {
	e, err := s.store.ConvertDocumentToExpense(ctx, userID, id, func(d *model.Document) (*model.Expense, error) {
		input, err := expenseFromDocument(d, o)
		if err != nil {
			return nil, err
		}
		ts := now()
		e := &model.Expense{ID: generateID(), UserID: userID, CreatedAt: ts, UpdatedAt: ts}
		if err := input.build(e); err != nil {
			return nil, err
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	bumpDataVersion(ctx, s.versions, s.logger, userID)

	s.logger.Info("document_converted", "user_id", userID, "document_id", id, "expense_id", e.ID)
	return e, nil
}

func expenseFromDocument(d *model.Document, o ExpenseOverrides) (ExpenseInput, error) {
	in := ExpenseInput{
		Concept:    d.Name,
		Category:   model.CategoryOther,
		Deductible: true,
	}
	fe := fieldErrors{}
	haveBase := false

	if f := d.Extracted; f != nil {
		if f.Concept != "" {
			in.Concept = f.Concept
		}
		in.SupplierName = f.SupplierName
		in.SupplierNIF = f.SupplierNIF
		if f.IssueDate != "" {
			if t, err := parseExtractedDate(f.IssueDate); err == nil {
				in.IssueDate = t
			}
		}
		if f.Base != "" {
			if v, err := parseExtractedAmount(f.Base); err == nil {
				in.Base = v
				haveBase = true
			}
		}
		if f.IVARate != "" {
			if v, err := parseExtractedAmount(strings.TrimSuffix(strings.TrimSpace(f.IVARate), "%")); err == nil {
				in.IVARate = v
			}
		}
	}

	if o.Concept != nil {
		in.Concept = *o.Concept
	}
	if o.Category != nil {
		in.Category = *o.Category
	}
	if o.SupplierName != nil {
		in.SupplierName = *o.SupplierName
	}
	if o.SupplierNIF != nil {
		in.SupplierNIF = *o.SupplierNIF
	}
	if o.SupplierIntracommunity != nil {
		in.SupplierIntracommunity = *o.SupplierIntracommunity
	}
	if o.IssueDate != nil {
		in.IssueDate = *o.IssueDate
	}
	if o.PaidDate != nil {
		in.PaidDate = o.PaidDate
	}
	if o.Base != nil {
		in.Base = *o.Base
		haveBase = true
	}
	if o.IVARate != nil {
		in.IVARate = *o.IVARate
	}
	if o.WithholdingRate != nil {
		in.WithholdingRate = *o.WithholdingRate
	}
	if o.WithholdingKind != nil {
		in.WithholdingKind = *o.WithholdingKind
	}
	if o.Deductible != nil {
		in.Deductible = *o.Deductible
	}
	if o.DeductiblePct != nil {
		in.DeductiblePct = o.DeductiblePct
	}
	if o.Notes != nil {
		in.Notes = *o.Notes
	}

	if !haveBase {
		fe.add("base_imponible", "not extracted; provide it in the request")
	}
	if in.IssueDate.IsZero() {
		fe.add("fecha_emision", "not extracted; provide it in the request")
	}
	return in, fe.err()
}

func parseExtractedDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := recurrence.ParseDate(s); err == nil {
		return t, nil
	}
	t, err := time.Parse(spanishDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised date %q", s)
	}
	return t, nil
}

// parseExtractedAmount also reads grouped amounts: "1.210,50", "1,210.50".
func parseExtractedAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return money.Parse(s)
}
