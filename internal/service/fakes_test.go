package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/cache"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/repository"
)

// memStore is an in-memory stand-in for *repository.Repository. It keeps
// the storage rules services rely on: per-user scoping, numbering,
// NIF uniqueness and one invoice per template occurrence.
type memStore struct {
	mu sync.Mutex

	users     map[string]*model.User
	keys      map[string]*model.APIKey
	clients   map[string]*model.Client
	profiles  map[string]*model.BillingProfile
	invoices  map[string]*model.Invoice
	expenses  map[string]*model.Expense
	templates map[string]*model.Template
	documents map[string]*model.Document
	prefs     map[string]*model.FiscalPreferences

	// failGenerate makes GenerateFromTemplate fail for a template id.
	failGenerate map[string]error
	loads        int
}

func newMemStore() *memStore {
	return &memStore{
		users:        map[string]*model.User{},
		keys:         map[string]*model.APIKey{},
		clients:      map[string]*model.Client{},
		profiles:     map[string]*model.BillingProfile{},
		invoices:     map[string]*model.Invoice{},
		expenses:     map[string]*model.Expense{},
		templates:    map[string]*model.Template{},
		documents:    map[string]*model.Document{},
		prefs:        map[string]*model.FiscalPreferences{},
		failGenerate: map[string]error{},
	}
}

func clone[T any](v *T) *T {
	cp := *v
	return &cp
}

// Users and keys.

func (m *memStore) CreateUserWithAPIKey(_ context.Context, user *model.User, key *model.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrEmailExists
		}
	}
	m.users[user.ID] = clone(user)
	m.keys[key.ID] = clone(key)
	return nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return clone(u), nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memStore) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key.ID] = clone(key)
	return nil
}

func (m *memStore) GetAPIKey(_ context.Context, userID, id string) (*model.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.keys[id]
	if !ok || k.UserID != userID {
		return nil, repository.ErrAPIKeyNotFound
	}
	return clone(k), nil
}

func (m *memStore) ListAPIKeys(_ context.Context, userID string) ([]*model.APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.APIKey
	for _, k := range m.keys {
		if k.UserID == userID {
			out = append(out, clone(k))
		}
	}
	return out, nil
}

func (m *memStore) RevokeAPIKey(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoke(userID, id)
}

func (m *memStore) revoke(userID, id string) error {
	k, ok := m.keys[id]
	if !ok || k.UserID != userID || k.RevokedAt != nil {
		return repository.ErrAPIKeyNotFound
	}
	ts := time.Now()
	k.RevokedAt = &ts
	return nil
}

func (m *memStore) RotateAPIKey(_ context.Context, userID, oldID string, next *model.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.revoke(userID, oldID); err != nil {
		return err
	}
	m.keys[next.ID] = clone(next)
	return nil
}

// Clients.

func (m *memStore) CreateClient(_ context.Context, c *model.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.clients {
		if other.UserID == c.UserID && other.NIF == c.NIF {
			return repository.ErrClientNIFExists
		}
	}
	m.clients[c.ID] = clone(c)
	return nil
}

func (m *memStore) GetClient(_ context.Context, userID, id string) (*model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.UserID != userID {
		return nil, repository.ErrClientNotFound
	}
	return clone(c), nil
}

func (m *memStore) ListClients(_ context.Context, f repository.ClientFilter, _ repository.Page) ([]*model.Client, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Client
	for _, c := range m.clients {
		if c.UserID != f.UserID || (f.Active != nil && c.Active != *f.Active) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Name+" "+c.NIF), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, clone(c))
	}
	slices.SortFunc(out, func(a, b *model.Client) int { return strings.Compare(a.Name, b.Name) })
	return out, "", nil
}

func (m *memStore) UpdateClient(_ context.Context, c *model.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.clients[c.ID]; !ok || old.UserID != c.UserID {
		return repository.ErrClientNotFound
	}
	for _, other := range m.clients {
		if other.ID != c.ID && other.UserID == c.UserID && other.NIF == c.NIF {
			return repository.ErrClientNIFExists
		}
	}
	m.clients[c.ID] = clone(c)
	return nil
}

func (m *memStore) SetClientActive(_ context.Context, userID, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.UserID != userID {
		return repository.ErrClientNotFound
	}
	c.Active = active
	return nil
}

func (m *memStore) DeleteClient(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.UserID != userID {
		return repository.ErrClientNotFound
	}
	for _, inv := range m.invoices {
		if inv.ClientID == id {
			return repository.ErrClientInUse
		}
	}
	for _, t := range m.templates {
		if t.ClientID == id {
			return repository.ErrClientInUse
		}
	}
	delete(m.clients, id)
	return nil
}

// Billing profiles.

func (m *memStore) CreateBillingProfile(_ context.Context, p *model.BillingProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Active = true
	for _, other := range m.profiles {
		if other.UserID == p.UserID && other.Active {
			p.Active = false
		}
	}
	m.profiles[p.ID] = clone(p)
	return nil
}

func (m *memStore) GetBillingProfile(_ context.Context, userID, id string) (*model.BillingProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok || p.UserID != userID {
		return nil, repository.ErrBillingProfileNotFound
	}
	return clone(p), nil
}

func (m *memStore) GetActiveBillingProfile(_ context.Context, userID string) (*model.BillingProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.UserID == userID && p.Active {
			return clone(p), nil
		}
	}
	return nil, repository.ErrBillingProfileNotFound
}

func (m *memStore) ListBillingProfiles(_ context.Context, userID string) ([]*model.BillingProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.BillingProfile
	for _, p := range m.profiles {
		if p.UserID == userID {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (m *memStore) UpdateBillingProfile(_ context.Context, p *model.BillingProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.profiles[p.ID]
	if !ok || old.UserID != p.UserID {
		return repository.ErrBillingProfileNotFound
	}
	p.Active = old.Active
	m.profiles[p.ID] = clone(p)
	return nil
}

func (m *memStore) ActivateBillingProfile(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.profiles[id]
	if !ok || target.UserID != userID {
		return repository.ErrBillingProfileNotFound
	}
	for _, p := range m.profiles {
		if p.UserID == userID {
			p.Active = p.ID == id
		}
	}
	return nil
}

func (m *memStore) DeleteBillingProfile(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok || p.UserID != userID {
		return repository.ErrBillingProfileNotFound
	}
	if p.Active {
		for _, other := range m.profiles {
			if other.UserID == userID && other.ID != id {
				return repository.ErrActiveProfileInUse
			}
		}
	}
	delete(m.profiles, id)
	return nil
}

// Invoices.

func (m *memStore) nextNumber(userID string, year int) string {
	last := 0
	prefix := fmt.Sprintf("%d-", year)
	for _, inv := range m.invoices {
		if inv.UserID != userID || !strings.HasPrefix(inv.Number, prefix) {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(strings.TrimPrefix(inv.Number, prefix), "%d", &n); err == nil && n > last {
			last = n
		}
	}
	return model.FormatInvoiceNumber(year, last+1)
}

func (m *memStore) numberTaken(inv *model.Invoice) bool {
	for _, other := range m.invoices {
		if other.ID != inv.ID && other.UserID == inv.UserID && other.Number == inv.Number {
			return true
		}
	}
	return false
}

func (m *memStore) withClient(inv *model.Invoice) *model.Invoice {
	cp := clone(inv)
	if c, ok := m.clients[inv.ClientID]; ok {
		cp.ClientName = c.Name
		cp.ClientNIF = c.NIF
		cp.ClientIntracommunity = c.Intracommunity
	}
	return cp
}

func (m *memStore) CreateInvoice(_ context.Context, inv *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv.Number == "" {
		inv.Number = m.nextNumber(inv.UserID, inv.IssueDate.Year())
	}
	if m.numberTaken(inv) {
		return repository.ErrInvoiceNumberTaken
	}
	m.invoices[inv.ID] = clone(inv)
	return nil
}

func (m *memStore) GetInvoice(_ context.Context, userID, id string) (*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.UserID != userID {
		return nil, repository.ErrInvoiceNotFound
	}
	return m.withClient(inv), nil
}

func (m *memStore) ListInvoices(_ context.Context, f repository.InvoiceFilter, _ repository.Page) ([]*model.Invoice, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Invoice
	for _, inv := range m.invoices {
		if inv.UserID != f.UserID ||
			(f.From != nil && inv.IssueDate.Before(*f.From)) ||
			(f.To != nil && inv.IssueDate.After(*f.To)) ||
			(f.Status != "" && inv.Status != f.Status) ||
			(f.ClientID != "" && inv.ClientID != f.ClientID) ||
			(f.TemplateID != "" && (inv.TemplateID == nil || *inv.TemplateID != f.TemplateID)) {
			continue
		}
		out = append(out, m.withClient(inv))
	}
	slices.SortFunc(out, func(a, b *model.Invoice) int { return b.IssueDate.Compare(a.IssueDate) })
	return out, "", nil
}

func (m *memStore) UpdateInvoice(_ context.Context, inv *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.invoices[inv.ID]
	if !ok || old.UserID != inv.UserID {
		return repository.ErrInvoiceNotFound
	}
	if old.Status != model.InvoicePending {
		return repository.ErrInvoiceNotEditable
	}
	if m.numberTaken(inv) {
		return repository.ErrInvoiceNumberTaken
	}
	m.invoices[inv.ID] = clone(inv)
	return nil
}

func (m *memStore) SetInvoiceStatus(_ context.Context, userID, id string, from, to model.InvoiceStatus, paidDate *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.UserID != userID {
		return repository.ErrInvoiceNotFound
	}
	if inv.Status != from {
		return repository.ErrStatusChanged
	}
	inv.Status = to
	inv.PaidDate = paidDate
	return nil
}

func (m *memStore) DeleteInvoice(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.UserID != userID {
		return repository.ErrInvoiceNotFound
	}
	if inv.Status != model.InvoicePending {
		return repository.ErrInvoiceNotEditable
	}
	delete(m.invoices, id)
	return nil
}

func (m *memStore) InvoicesBetween(_ context.Context, userID string, from, to time.Time) ([]*model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	var out []*model.Invoice
	for _, inv := range m.invoices {
		if inv.UserID == userID && !inv.IssueDate.Before(from) && !inv.IssueDate.After(to) {
			out = append(out, m.withClient(inv))
		}
	}
	return out, nil
}

// Expenses.

func (m *memStore) CreateExpense(_ context.Context, e *model.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[e.ID] = clone(e)
	return nil
}

func (m *memStore) GetExpense(_ context.Context, userID, id string) (*model.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenses[id]
	if !ok || e.UserID != userID {
		return nil, repository.ErrExpenseNotFound
	}
	return clone(e), nil
}

func (m *memStore) ListExpenses(_ context.Context, f repository.ExpenseFilter, _ repository.Page) ([]*model.Expense, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Expense
	for _, e := range m.expenses {
		if e.UserID != f.UserID ||
			(f.From != nil && e.IssueDate.Before(*f.From)) ||
			(f.To != nil && e.IssueDate.After(*f.To)) ||
			(f.Category != "" && e.Category != f.Category) ||
			(f.Deductible != nil && e.Deductible != *f.Deductible) {
			continue
		}
		out = append(out, clone(e))
	}
	return out, "", nil
}

func (m *memStore) ExpensesBetween(_ context.Context, userID string, from, to time.Time) ([]*model.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Expense
	for _, e := range m.expenses {
		if e.UserID == userID && !e.IssueDate.Before(from) && !e.IssueDate.After(to) {
			out = append(out, clone(e))
		}
	}
	return out, nil
}

func (m *memStore) UpdateExpense(_ context.Context, e *model.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.expenses[e.ID]; !ok || old.UserID != e.UserID {
		return repository.ErrExpenseNotFound
	}
	m.expenses[e.ID] = clone(e)
	return nil
}

func (m *memStore) DeleteExpense(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenses[id]
	if !ok || e.UserID != userID {
		return repository.ErrExpenseNotFound
	}
	delete(m.expenses, id)
	return nil
}

// Templates.

func (m *memStore) withClientName(t *model.Template) *model.Template {
	cp := clone(t)
	if c, ok := m.clients[t.ClientID]; ok {
		cp.ClientName = c.Name
	}
	return cp
}

func (m *memStore) CreateTemplate(_ context.Context, t *model.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.ID] = clone(t)
	return nil
}

func (m *memStore) GetTemplate(_ context.Context, userID, id string) (*model.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrTemplateNotFound
	}
	return m.withClientName(t), nil
}

func (m *memStore) ListTemplates(_ context.Context, f repository.TemplateFilter, _ repository.Page) ([]*model.Template, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Template
	for _, t := range m.templates {
		if t.UserID != f.UserID || (f.Active != nil && t.Active != *f.Active) ||
			(f.ClientID != "" && t.ClientID != f.ClientID) {
			continue
		}
		out = append(out, m.withClientName(t))
	}
	return out, "", nil
}

func (m *memStore) ListDueTemplates(_ context.Context, userID string, today time.Time, afterID string, limit int) ([]*model.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Template
	for _, t := range m.templates {
		if !t.Active || t.NextDate == nil || t.NextDate.After(today) || (userID != "" && t.UserID != userID) {
			continue
		}
		if afterID != "" && t.ID <= afterID {
			continue
		}
		out = append(out, m.withClientName(t))
	}
	slices.SortFunc(out, func(a, b *model.Template) int {
		return strings.Compare(a.ID, b.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) UpdateTemplate(_ context.Context, t *model.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.templates[t.ID]
	if !ok || old.UserID != t.UserID {
		return repository.ErrTemplateNotFound
	}
	cp := clone(t)
	cp.LastDate, cp.GeneratedCount = old.LastDate, old.GeneratedCount
	m.templates[t.ID] = cp
	return nil
}

func (m *memStore) SetTemplateSchedule(_ context.Context, userID, id string, active bool, next *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok || t.UserID != userID {
		return repository.ErrTemplateNotFound
	}
	t.Active = active
	t.NextDate = next
	return nil
}

func (m *memStore) DeleteTemplate(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok || t.UserID != userID {
		return repository.ErrTemplateNotFound
	}
	delete(m.templates, id)
	for _, inv := range m.invoices {
		if inv.TemplateID != nil && *inv.TemplateID == id {
			inv.TemplateID = nil
		}
	}
	return nil
}

func (m *memStore) TemplateInvoiceDates(_ context.Context, userID, templateID string, from, to time.Time) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []time.Time
	for _, inv := range m.invoices {
		if inv.UserID == userID && inv.TemplateID != nil && *inv.TemplateID == templateID &&
			!inv.IssueDate.Before(from) && !inv.IssueDate.After(to) {
			out = append(out, inv.IssueDate)
		}
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out, nil
}

func (m *memStore) hasOccurrence(templateID string, date time.Time) bool {
	for _, inv := range m.invoices {
		if inv.TemplateID != nil && *inv.TemplateID == templateID && inv.IssueDate.Equal(date) {
			return true
		}
	}
	return false
}

func (m *memStore) GenerateFromTemplate(
	_ context.Context,
	userID, templateID string,
	plan func(t *model.Template) (*repository.TemplatePlan, error),
) (*repository.GenerationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failGenerate[templateID]; err != nil {
		return nil, err
	}
	stored, ok := m.templates[templateID]
	if !ok || stored.UserID != userID {
		return nil, repository.ErrTemplateNotFound
	}
	t := m.withClientName(stored)

	p, err := plan(clone(t))
	if err != nil {
		return nil, err
	}

	res := &repository.GenerationResult{}
	for _, inv := range p.Invoices {
		if m.hasOccurrence(templateID, inv.IssueDate) {
			res.Skipped = append(res.Skipped, inv.IssueDate)
			continue
		}
		inv.Number = m.nextNumber(userID, inv.IssueDate.Year())
		m.invoices[inv.ID] = clone(inv)
		res.Created = append(res.Created, inv)
		if t.LastDate == nil || inv.IssueDate.After(*t.LastDate) {
			d := inv.IssueDate
			t.LastDate = &d
		}
	}
	if p.Advance {
		t.Active = p.Active
		t.NextDate = p.Next
	}
	t.GeneratedCount += len(res.Created)
	m.templates[templateID] = clone(t)
	res.Template = t
	return res, nil
}

// Documents.

func (m *memStore) CreateDocument(_ context.Context, d *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.documents {
		if other.UserID == d.UserID && other.Checksum == d.Checksum {
			return repository.ErrDocumentDuplicate
		}
	}
	m.documents[d.ID] = clone(d)
	return nil
}

func (m *memStore) GetDocument(_ context.Context, userID, id string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok || d.UserID != userID {
		return nil, repository.ErrDocumentNotFound
	}
	return clone(d), nil
}

func (m *memStore) ListDocuments(_ context.Context, f repository.DocumentFilter, _ repository.Page) ([]*model.Document, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Document
	for _, d := range m.documents {
		if d.UserID != f.UserID || (f.Kind != "" && d.Kind != f.Kind) ||
			(f.Linked != nil && (d.ExpenseID != nil) != *f.Linked) {
			continue
		}
		out = append(out, clone(d))
	}
	return out, "", nil
}

func (m *memStore) UpdateDocument(_ context.Context, d *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.documents[d.ID]
	if !ok || old.UserID != d.UserID {
		return repository.ErrDocumentNotFound
	}
	old.Name, old.Kind, old.Notes = d.Name, d.Kind, d.Notes
	return nil
}

func (m *memStore) SetDocumentOCR(_ context.Context, userID, id string, status model.OCRStatus, ocrErr string, fields *model.ExtractedFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok || d.UserID != userID {
		return repository.ErrDocumentNotFound
	}
	d.OCRStatus, d.OCRError, d.Extracted = status, ocrErr, fields
	return nil
}

func (m *memStore) DeleteDocument(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok || d.UserID != userID {
		return repository.ErrDocumentNotFound
	}
	delete(m.documents, id)
	return nil
}

func (m *memStore) ConvertDocumentToExpense(
	_ context.Context,
	userID, documentID string,
	build func(d *model.Document) (*model.Expense, error),
) (*model.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[documentID]
	if !ok || d.UserID != userID {
		return nil, repository.ErrDocumentNotFound
	}
	if d.ExpenseID != nil {
		return nil, repository.ErrDocumentConverted
	}
	e, err := build(clone(d))
	if err != nil {
		return nil, err
	}
	e.DocumentID = &d.ID
	m.expenses[e.ID] = clone(e)
	id := e.ID
	d.ExpenseID = &id
	return e, nil
}

// Fiscal preferences.

func (m *memStore) GetFiscalPreferences(_ context.Context, userID string) (*model.FiscalPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prefs[userID]
	if !ok {
		return nil, repository.ErrFiscalPreferencesNotFound
	}
	return clone(p), nil
}

func (m *memStore) UpsertFiscalPreferences(_ context.Context, p *model.FiscalPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[p.UserID] = clone(p)
	return nil
}

// memCache stands in for *cache.Cache: data versions, reports and the
// auth key index.
type memCache struct {
	mu          sync.Mutex
	versions    map[string]int64
	reports     map[string][]byte
	invalidated []string
	fail        error
}

func newMemCache() *memCache {
	return &memCache{versions: map[string]int64{}, reports: map[string][]byte{}}
}

func (c *memCache) BumpDataVersion(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.versions[userID]++
	return nil
}

func (c *memCache) DataVersion(_ context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return 0, c.fail
	}
	return c.versions[userID], nil
}

func (c *memCache) GetReport(_ context.Context, userID string, version int64, name string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.reports[fmt.Sprintf("%s:%d:%s", userID, version, name)]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memCache) SetReport(_ context.Context, userID string, version int64, name string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.reports[fmt.Sprintf("%s:%d:%s", userID, version, name)] = data
	return nil
}

func (c *memCache) InvalidateAPIKey(_ context.Context, keyID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, keyID)
	return nil
}
