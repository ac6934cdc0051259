package service

import (
	"context"
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/repository"
)

// The store interfaces below are satisfied by *repository.Repository and,
// for the cache ones, by *cache.Cache.

// AccountStore persists users and their API keys.
type AccountStore interface {
	CreateUserWithAPIKey(ctx context.Context, user *model.User, key *model.APIKey) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKey(ctx context.Context, userID, id string) (*model.APIKey, error)
	ListAPIKeys(ctx context.Context, userID string) ([]*model.APIKey, error)
	RevokeAPIKey(ctx context.Context, userID, id string) error
	RotateAPIKey(ctx context.Context, userID, oldID string, next *model.APIKey) error
}

// KeyInvalidator drops cached auth contexts of a key.
type KeyInvalidator interface {
	InvalidateAPIKey(ctx context.Context, keyID string) error
}

// ClientReader loads a single client.
type ClientReader interface {
	GetClient(ctx context.Context, userID, id string) (*model.Client, error)
}

// ClientStore persists clients.
type ClientStore interface {
	ClientReader
	CreateClient(ctx context.Context, c *model.Client) error
	ListClients(ctx context.Context, filter repository.ClientFilter, page repository.Page) ([]*model.Client, string, error)
	UpdateClient(ctx context.Context, c *model.Client) error
	SetClientActive(ctx context.Context, userID, id string, active bool) error
	DeleteClient(ctx context.Context, userID, id string) error
}

// BillingProfileReader loads a single billing profile.
type BillingProfileReader interface {
	GetBillingProfile(ctx context.Context, userID, id string) (*model.BillingProfile, error)
}

// BillingProfileStore persists issuer profiles.
type BillingProfileStore interface {
	BillingProfileReader
	CreateBillingProfile(ctx context.Context, p *model.BillingProfile) error
	GetActiveBillingProfile(ctx context.Context, userID string) (*model.BillingProfile, error)
	ListBillingProfiles(ctx context.Context, userID string) ([]*model.BillingProfile, error)
	UpdateBillingProfile(ctx context.Context, p *model.BillingProfile) error
	ActivateBillingProfile(ctx context.Context, userID, id string) error
	DeleteBillingProfile(ctx context.Context, userID, id string) error
}

// InvoiceStore persists issued invoices.
type InvoiceStore interface {
	ClientReader
	BillingProfileReader
	CreateInvoice(ctx context.Context, inv *model.Invoice) error
	GetInvoice(ctx context.Context, userID, id string) (*model.Invoice, error)
	ListInvoices(ctx context.Context, filter repository.InvoiceFilter, page repository.Page) ([]*model.Invoice, string, error)
	UpdateInvoice(ctx context.Context, inv *model.Invoice) error
	SetInvoiceStatus(ctx context.Context, userID, id string, from, to model.InvoiceStatus, paidDate *time.Time) error
	DeleteInvoice(ctx context.Context, userID, id string) error
}

// ExpenseStore persists expenses.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e *model.Expense) error
	GetExpense(ctx context.Context, userID, id string) (*model.Expense, error)
	ListExpenses(ctx context.Context, filter repository.ExpenseFilter, page repository.Page) ([]*model.Expense, string, error)
	UpdateExpense(ctx context.Context, e *model.Expense) error
	DeleteExpense(ctx context.Context, userID, id string) error
}

// TemplateStore persists recurring templates and runs their generation
// transactions.
type TemplateStore interface {
	ClientReader
	BillingProfileReader
	CreateTemplate(ctx context.Context, t *model.Template) error
	GetTemplate(ctx context.Context, userID, id string) (*model.Template, error)
	ListTemplates(ctx context.Context, filter repository.TemplateFilter, page repository.Page) ([]*model.Template, string, error)
	ListDueTemplates(ctx context.Context, userID string, today time.Time, afterID string, limit int) ([]*model.Template, error)
	UpdateTemplate(ctx context.Context, t *model.Template) error
	SetTemplateSchedule(ctx context.Context, userID, id string, active bool, next *time.Time) error
	DeleteTemplate(ctx context.Context, userID, id string) error
	TemplateInvoiceDates(ctx context.Context, userID, templateID string, from, to time.Time) ([]time.Time, error)
	GenerateFromTemplate(ctx context.Context, userID, templateID string,
		plan func(t *model.Template) (*repository.TemplatePlan, error)) (*repository.GenerationResult, error)
}

// DocumentStore persists document metadata.
type DocumentStore interface {
	CreateDocument(ctx context.Context, d *model.Document) error
	GetDocument(ctx context.Context, userID, id string) (*model.Document, error)
	ListDocuments(ctx context.Context, filter repository.DocumentFilter, page repository.Page) ([]*model.Document, string, error)
	UpdateDocument(ctx context.Context, d *model.Document) error
	SetDocumentOCR(ctx context.Context, userID, id string, status model.OCRStatus, ocrErr string, fields *model.ExtractedFields) error
	DeleteDocument(ctx context.Context, userID, id string) error
	ConvertDocumentToExpense(ctx context.Context, userID, documentID string,
		build func(d *model.Document) (*model.Expense, error)) (*model.Expense, error)
}

// FiscalStore persists fiscal preferences.
type FiscalStore interface {
	GetFiscalPreferences(ctx context.Context, userID string) (*model.FiscalPreferences, error)
	UpsertFiscalPreferences(ctx context.Context, p *model.FiscalPreferences) error
}

// ReportStore loads the data tax reports are computed from.
type ReportStore interface {
	GetFiscalPreferences(ctx context.Context, userID string) (*model.FiscalPreferences, error)
	InvoicesBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.Invoice, error)
	ExpensesBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.Expense, error)
}

// DataVersioner invalidates a user's cached reports.
type DataVersioner interface {
	BumpDataVersion(ctx context.Context, userID string) error
}

// ReportCache stores computed reports keyed by the user's data version.
type ReportCache interface {
	DataVersion(ctx context.Context, userID string) (int64, error)
	GetReport(ctx context.Context, userID string, version int64, name string, dest any) error
	SetReport(ctx context.Context, userID string, version int64, name string, value any, ttl time.Duration) error
}
