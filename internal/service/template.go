package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/anayu15/mi-gestor-sub003/internal/metrics"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/money"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
	"github.com/anayu15/mi-gestor-sub003/internal/repository"
)

var (
	ErrTemplateNotFound    = repository.ErrTemplateNotFound
	ErrTemplateEnded       = errors.New("template schedule has no further occurrences")
	ErrOccurrenceGenerated = repository.ErrDuplicateOccurrence
)

const (
	DefaultPreviewCount = 6
	MaxPreviewCount     = 60

	// MaxBackfill bounds the invoices one backfill call issues.
	MaxBackfill = 120

	maxDueDays   = 365
	dueBatchSize = 100
)

// Occurrence statuses reported to metrics.
const (
	occurrenceGenerated = "generated"
	occurrenceSkipped   = "skipped"
	occurrenceFailed    = "failed"
)

// TemplateService manages recurring invoice templates and turns their
// occurrences into invoices.
type TemplateService struct {
	store      TemplateStore
	versions   DataVersioner
	today      Clock
	maxCatchUp int
	metrics    metrics.Recorder
	logger     *slog.Logger
}

// NewTemplateService creates a TemplateService. maxCatchUp bounds the
// invoices one due run issues per template.
func NewTemplateService(
	store TemplateStore,
	versions DataVersioner,
	today Clock,
	maxCatchUp int,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *TemplateService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if today == nil {
		today = SystemClock(time.UTC)
	}
	if maxCatchUp < 1 {
		maxCatchUp = 1
	}
	return &TemplateService{
		store:      store,
		versions:   versions,
		today:      today,
		maxCatchUp: maxCatchUp,
		metrics:    recorder,
		logger:     defaultLogger(logger, "templates"),
	}
}

// TemplateInput is the editable part of a template.
type TemplateInput struct {
	ClientID         string
	BillingProfileID *string
	Name             string
	Concept          string
	Description      string
	Base             decimal.Decimal
	IVARate          decimal.Decimal
	IRPFRate         decimal.Decimal
	Frequency        recurrence.Frequency
	IntervalDays     int
	DayPolicy        recurrence.DayPolicy
	Day              int
	StartDate        time.Time
	EndDate          *time.Time
	PeriodKind       recurrence.PeriodKind
	DueDays          int
}

func (in TemplateInput) apply(t *model.Template) {
	t.ClientID = in.ClientID
	t.BillingProfileID = in.BillingProfileID
	t.Name = strings.TrimSpace(in.Name)
	t.Concept = strings.TrimSpace(in.Concept)
	t.Description = in.Description
	t.Base = money.Round(in.Base)
	t.IVARate = in.IVARate
	t.IRPFRate = in.IRPFRate
	t.Frequency = in.Frequency
	t.IntervalDays = in.IntervalDays
	t.DayPolicy = in.DayPolicy
	t.Day = in.Day
	t.StartDate = recurrence.Truncate(in.StartDate)
	t.EndDate = truncatePtr(in.EndDate)
	t.PeriodKind = in.PeriodKind
	t.DueDays = in.DueDays

	if t.PeriodKind == "" {
		t.PeriodKind = recurrence.NoPeriod
	}
	if t.Frequency == recurrence.Custom {
		if t.DayPolicy == "" {
			t.DayPolicy = recurrence.SpecificDay
		}
	} else {
		t.IntervalDays = 0
	}
	if t.DayPolicy != recurrence.SpecificDay && t.Day == 0 {
		t.Day = 1
	}
}

// scheduleFields maps schedule errors to request fields.
var scheduleFields = map[error]string{
	recurrence.ErrInvalidFrequency: "frecuencia",
	recurrence.ErrInvalidPolicy:    "tipo_dia",
	recurrence.ErrInvalidDay:       "dia_generacion",
	recurrence.ErrInvalidInterval:  "intervalo_dias",
	recurrence.ErrMissingStart:     "fecha_inicio",
	recurrence.ErrEndBeforeStart:   "fecha_fin",
}

func validateTemplate(t *model.Template) error {
	fe := fieldErrors{}
	if t.Name == "" {
		fe.add("nombre", "is required")
	}
	if t.Concept == "" {
		fe.add("concepto", "is required")
	}
	if t.Base.IsNegative() {
		fe.add("base_imponible", "must not be negative")
	}
	validateRates(fe, t.IVARate, t.IRPFRate, "tipo_iva", "tipo_irpf")
	if err := t.Schedule().Validate(); err != nil {
		field, ok := scheduleFields[err]
		if !ok {
			field = "frecuencia"
		}
		fe.add(field, err.Error())
	}
	if !t.PeriodKind.IsValid() {
		fe.add("periodo_facturacion", "unknown billing period")
	}
	if t.DueDays < 0 || t.DueDays > maxDueDays {
		fe.add("dias_vencimiento", fmt.Sprintf("must be between 0 and %d", maxDueDays))
	}
	return fe.err()
}

func (s *TemplateService) checkReferences(ctx context.Context, userID string, t *model.Template) error {
	if err := checkOwnedClient(ctx, s.store, userID, t.ClientID); err != nil {
		return err
	}
	return checkOwnedProfile(ctx, s.store, userID, t.BillingProfileID)
}

// Today is the civil date due processing runs against.
func (s *TemplateService) Today() time.Time {
	return s.today()
}

// Create stores an active template whose next generation is the first
// occurrence of its schedule. A start date in the past makes the missed
// occurrences due immediately.
func (s *TemplateService) Create(ctx context.Context, userID string, input TemplateInput) (*model.Template, error) {
	ts := now()
	t := &model.Template{ID: generateID(), UserID: userID, Active: true, CreatedAt: ts, UpdatedAt: ts}
	input.apply(t)
	if err := validateTemplate(t); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, userID, t); err != nil {
		return nil, err
	}

	if first, ok := t.Schedule().First(); ok {
		t.NextDate = &first
	} else {
		t.Active = false
	}

	if err := s.store.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("template_created", "user_id", userID, "template_id", t.ID,
		"frequency", t.Frequency, "next", formatDatePtr(t.NextDate))
	return s.store.GetTemplate(ctx, userID, t.ID)
}

// Get returns one of the user's templates.
func (s *TemplateService) Get(ctx context.Context, userID, id string) (*model.Template, error) {
	return s.store.GetTemplate(ctx, userID, id)
}

// ListTemplatesInput defines input for List.
type ListTemplatesInput struct {
	Active   *bool
	ClientID string
	Cursor   string
	Limit    int
}

// List pages through templates, newest first.
func (s *TemplateService) List(ctx context.Context, userID string, input ListTemplatesInput) (*Page[model.Template], error) {
	filter := repository.TemplateFilter{UserID: userID, Active: input.Active, ClientID: input.ClientID}
	templates, next, err := s.store.ListTemplates(ctx, filter, repository.Page{Cursor: input.Cursor, Limit: input.Limit})
	if err != nil {
		return nil, err
	}
	return newPage(templates, next), nil
}

// Update replaces the editable fields. A changed schedule moves the next
// generation to the first occurrence on or after max(today, start).
func (s *TemplateService) Update(ctx context.Context, userID, id string, input TemplateInput) (*model.Template, error) {
	t, err := s.store.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	before := t.Schedule()

	input.apply(t)
	if err := validateTemplate(t); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, userID, t); err != nil {
		return nil, err
	}

	if !sameSchedule(before, t.Schedule()) {
		next, ok := resumePoint(t, s.today())
		if ok {
			t.NextDate = &next
		} else {
			t.NextDate = nil
			t.Active = false
		}
	}
	t.UpdatedAt = now()

	if err := s.store.UpdateTemplate(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("template_updated", "user_id", userID, "template_id", id, "next", formatDatePtr(t.NextDate))
	return s.store.GetTemplate(ctx, userID, id)
}

// Delete removes a template. Its invoices stay, unlinked.
func (s *TemplateService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTemplate(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("template_deleted", "user_id", userID, "template_id", id)
	return nil
}

// Pause stops generation and keeps the stored next date.
func (s *TemplateService) Pause(ctx context.Context, userID, id string) (*model.Template, error) {
	t, err := s.store.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetTemplateSchedule(ctx, userID, id, false, t.NextDate); err != nil {
		return nil, err
	}

	s.logger.Info("template_paused", "user_id", userID, "template_id", id)
	return s.store.GetTemplate(ctx, userID, id)
}

// Resume restarts generation from the first occurrence on or after today.
// Occurrences missed while paused are not generated; use Backfill.
func (s *TemplateService) Resume(ctx context.Context, userID, id string) (*model.Template, error) {
	t, err := s.store.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	today := s.today()
	if t.Ended(today) {
		return nil, ErrTemplateEnded
	}
	next, ok := resumePoint(t, today)
	if !ok {
		return nil, ErrTemplateEnded
	}
	if err := s.store.SetTemplateSchedule(ctx, userID, id, true, &next); err != nil {
		return nil, err
	}

	s.logger.Info("template_resumed", "user_id", userID, "template_id", id, "next", recurrence.FormatDate(next))
	return s.store.GetTemplate(ctx, userID, id)
}

// Occurrence is a previewed invoice of a template.
type Occurrence struct {
	Date    time.Time
	Period  *recurrence.Period
	Concept string
	DueDate *time.Time
	Base    decimal.Decimal
	IVA     decimal.Decimal
	IRPF    decimal.Decimal
	Total   decimal.Decimal
}

// Preview lists the next count occurrences of a stored template, starting
// at its pending next date.
func (s *TemplateService) Preview(ctx context.Context, userID, id string, count int) ([]Occurrence, error) {
	t, err := s.store.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	from := laterOf(s.today(), t.StartDate)
	if t.Active && t.NextDate != nil {
		from = *t.NextDate
	}
	return previewOccurrences(t, from, count), nil
}

// PreviewInput lists the next count occurrences of an unsaved template.
func (s *TemplateService) PreviewInput(input TemplateInput, count int) ([]Occurrence, error) {
	t := &model.Template{}
	input.apply(t)
	if t.Name == "" {
		t.Name = "preview"
	}
	if err := validateTemplate(t); err != nil {
		return nil, err
	}
	return previewOccurrences(t, laterOf(s.today(), t.StartDate), count), nil
}

func previewOccurrences(t *model.Template, from time.Time, count int) []Occurrence {
	if count <= 0 {
		count = DefaultPreviewCount
	}
	if count > MaxPreviewCount {
		count = MaxPreviewCount
	}

	dates := t.Schedule().Upcoming(from, count)
	out := make([]Occurrence, 0, len(dates))
	for _, d := range dates {
		inv := t.InvoiceFor(d)
		occ := Occurrence{
			Date:    d,
			Concept: inv.Concept,
			DueDate: inv.DueDate,
			Base:    inv.Base,
			IVA:     inv.IVAAmount,
			IRPF:    inv.IRPFAmount,
			Total:   inv.Total,
		}
		if p, ok := recurrence.PeriodFor(t.PeriodKind, d); ok {
			occ.Period = &p
		}
		out = append(out, occ)
	}
	return out
}

// GenerateNow issues an invoice dated today without moving the schedule.
func (s *TemplateService) GenerateNow(ctx context.Context, userID, id string) (*model.Invoice, error) {
	today := s.today()
	res, err := s.store.GenerateFromTemplate(ctx, userID, id, func(t *model.Template) (*repository.TemplatePlan, error) {
		return &repository.TemplatePlan{Invoices: []*model.Invoice{draftInvoice(t, today)}}, nil
	})
	if err != nil {
		return nil, err
	}
	if len(res.Created) == 0 {
		s.metrics.IncTemplateOccurrence(occurrenceSkipped)
		return nil, ErrOccurrenceGenerated
	}
	s.recordGenerated(ctx, userID, id, res)
	return res.Created[0], nil
}

// Gaps lists the occurrences in [from, to] without an invoice. from
// defaults to the start date; to is capped at today and the end date.
func (s *TemplateService) Gaps(ctx context.Context, userID, id string, from, to *time.Time) ([]time.Time, error) {
	t, err := s.store.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.gaps(ctx, t, from, to)
}

func (s *TemplateService) gaps(ctx context.Context, t *model.Template, from, to *time.Time) ([]time.Time, error) {
	start := t.StartDate
	if from != nil && from.After(start) {
		start = recurrence.Truncate(*from)
	}
	end := s.today()
	if to != nil && to.Before(end) {
		end = recurrence.Truncate(*to)
	}
	if t.EndDate != nil && t.EndDate.Before(end) {
		end = *t.EndDate
	}
	if end.Before(start) {
		return []time.Time{}, nil
	}

	expected := t.Schedule().Between(start, end)
	existing, err := s.store.TemplateInvoiceDates(ctx, t.UserID, t.ID, start, end)
	if err != nil {
		return nil, err
	}
	missing := recurrence.Missing(expected, existing)
	if missing == nil {
		missing = []time.Time{}
	}
	return missing, nil
}

// BackfillResult reports what a backfill issued.
type BackfillResult struct {
	Created []*model.Invoice
	Skipped []time.Time
	// Remaining counts gaps left for a later call once MaxBackfill is hit.
	Remaining int
}

// Backfill issues invoices for the gaps in [from, to], oldest first, at
// most MaxBackfill per call. The schedule is left alone.
func (s *TemplateService) Backfill(ctx context.Context, userID, id string, from, to *time.Time) (*BackfillResult, error) {
	t, err := s.store.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	missing, err := s.gaps(ctx, t, from, to)
	if err != nil {
		return nil, err
	}

	out := &BackfillResult{Created: []*model.Invoice{}, Skipped: []time.Time{}}
	if len(missing) == 0 {
		return out, nil
	}
	if len(missing) > MaxBackfill {
		out.Remaining = len(missing) - MaxBackfill
		missing = missing[:MaxBackfill]
	}

	res, err := s.store.GenerateFromTemplate(ctx, userID, id, func(t *model.Template) (*repository.TemplatePlan, error) {
		plan := &repository.TemplatePlan{}
		for _, d := range missing {
			plan.Invoices = append(plan.Invoices, draftInvoice(t, d))
		}
		return plan, nil
	})
	if err != nil {
		return nil, err
	}
	s.recordGenerated(ctx, userID, id, res)

	out.Created = res.Created
	out.Skipped = append(out.Skipped, res.Skipped...)
	return out, nil
}

// DueResult summarises a due-processing run.
type DueResult struct {
	Templates int
	Generated int
	Skipped   int
	Failed    int
}

// ProcessDue generates the missed occurrences of every active template
// whose next date is today or earlier, up to maxCatchUp per template, and
// advances the schedules. An empty userID processes every user.
// A failing template is logged and counted; the run goes on.
func (s *TemplateService) ProcessDue(ctx context.Context, userID string) (*DueResult, error) {
	today := s.today()
	res := &DueResult{}
	after := ""

	for {
		batch, err := s.store.ListDueTemplates(ctx, userID, today, after, dueBatchSize)
		if err != nil {
			return res, fmt.Errorf("failed to list due templates: %w", err)
		}

		for _, t := range batch {
			after = t.ID
			res.Templates++

			if err := s.processTemplate(ctx, t.UserID, t.ID, today, res); err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				res.Failed++
				s.metrics.IncTemplateOccurrence(occurrenceFailed)
				s.logger.Error("template_generation_failed",
					"user_id", t.UserID, "template_id", t.ID, "error", err)
			}
		}

		if len(batch) < dueBatchSize {
			return res, nil
		}
	}
}

func (s *TemplateService) processTemplate(ctx context.Context, userID, id string, today time.Time, res *DueResult) error {
	gen, err := s.store.GenerateFromTemplate(ctx, userID, id, func(t *model.Template) (*repository.TemplatePlan, error) {
		return s.planDue(t, today), nil
	})
	if err != nil {
		return err
	}
	res.Generated += len(gen.Created)
	res.Skipped += len(gen.Skipped)
	s.recordGenerated(ctx, userID, id, gen)
	return nil
}

// planDue drafts one invoice per occurrence from the locked template's next
// date up to today and computes where the schedule continues.
func (s *TemplateService) planDue(t *model.Template, today time.Time) *repository.TemplatePlan {
	if !t.Active || t.NextDate == nil || t.NextDate.After(today) {
		return &repository.TemplatePlan{}
	}

	plan := &repository.TemplatePlan{Advance: true, Active: true}
	schedule := t.Schedule()
	occ := recurrence.Truncate(*t.NextDate)
	for !occ.After(today) && len(plan.Invoices) < s.maxCatchUp {
		plan.Invoices = append(plan.Invoices, draftInvoice(t, occ))

		next, ok := schedule.Next(occ)
		if !ok {
			plan.Active = false
			plan.Next = nil
			return plan
		}
		occ = next
	}
	plan.Next = &occ
	return plan
}

func (s *TemplateService) recordGenerated(ctx context.Context, userID, id string, res *repository.GenerationResult) {
	for range res.Created {
		s.metrics.IncInvoiceCreated(metrics.SourceTemplate)
		s.metrics.IncTemplateOccurrence(occurrenceGenerated)
	}
	for range res.Skipped {
		s.metrics.IncTemplateOccurrence(occurrenceSkipped)
	}
	if len(res.Created) > 0 {
		bumpDataVersion(ctx, s.versions, s.logger, userID)
	}

	var next string
	active := false
	if res.Template != nil {
		next = formatDatePtr(res.Template.NextDate)
		active = res.Template.Active
	}
	s.logger.Info("template_generated", "user_id", userID, "template_id", id,
		"created", len(res.Created), "skipped", len(res.Skipped), "next", next, "active", active)
}

// resumePoint is the first occurrence on or after max(today, start) that
// does not repeat the last generated one.
func resumePoint(t *model.Template, today time.Time) (time.Time, bool) {
	schedule := t.Schedule()
	from := laterOf(today, t.StartDate)
	if t.LastDate != nil && !t.LastDate.Before(from) {
		return schedule.NextAfter(*t.LastDate)
	}
	return schedule.OnOrAfter(from)
}

func draftInvoice(t *model.Template, date time.Time) *model.Invoice {
	inv := t.InvoiceFor(date)
	ts := now()
	inv.ID = generateID()
	inv.CreatedAt = ts
	inv.UpdatedAt = ts
	return inv
}

func sameSchedule(a, b recurrence.Schedule) bool {
	if a.Frequency != b.Frequency || a.IntervalDays != b.IntervalDays ||
		a.Policy != b.Policy || a.Day != b.Day || !a.Start.Equal(b.Start) {
		return false
	}
	if a.End == nil || b.End == nil {
		return a.End == nil && b.End == nil
	}
	return a.End.Equal(*b.End)
}

func laterOf(a, b time.Time) time.Time {
	a, b = recurrence.Truncate(a), recurrence.Truncate(b)
	if b.After(a) {
		return b
	}
	return a
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return recurrence.FormatDate(*t)
}
