package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anayu15/mi-gestor-sub003/internal/metrics"
	"github.com/anayu15/mi-gestor-sub003/internal/model"
	"github.com/anayu15/mi-gestor-sub003/internal/recurrence"
)

type templateTestEnv struct {
	svc      *TemplateService
	store    *memStore
	cache    *memCache
	recorder *metrics.InMemoryRecorder
	client   *model.Client
}

func newTemplateTestEnv(t *testing.T, today time.Time, maxCatchUp int) *templateTestEnv {
	t.Helper()
	env := &templateTestEnv{store: newMemStore(), cache: newMemCache(), recorder: metrics.NewInMemory()}
	env.svc = NewTemplateService(env.store, env.cache, FixedClock(today), maxCatchUp, env.recorder, discardLogger())
	env.client = seedClient(t, env.store, testUser)
	return env
}

// monthly returns a template billing 1000 + 21% IVA on the 15th of every
// month, starting on start.
func (env *templateTestEnv) monthly(start time.Time) TemplateInput {
	return TemplateInput{
		ClientID:   env.client.ID,
		Name:       "Mantenimiento",
		Concept:    "Mantenimiento web {mes} {ano}",
		Base:       dec("1000"),
		IVARate:    dec("21"),
		IRPFRate:   dec("0"),
		Frequency:  recurrence.Monthly,
		DayPolicy:  recurrence.SpecificDay,
		Day:        15,
		StartDate:  start,
		PeriodKind: recurrence.CurrentMonth,
		DueDays:    30,
	}
}

func (env *templateTestEnv) create(t *testing.T, in TemplateInput) *model.Template {
	t.Helper()
	tpl, err := env.svc.Create(context.Background(), testUser, in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return tpl
}

func issueDates(invoices []*model.Invoice) []string {
	out := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, recurrence.FormatDate(inv.IssueDate))
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTemplateService_CreateSetsFirstOccurrence(t *testing.T) {
	t.Parallel()
	env := newTemplateTestEnv(t, day(2025, 1, 1), 12)

	tpl := env.create(t, env.monthly(day(2025, 1, 20)))
	if !tpl.Active || tpl.NextDate == nil || !tpl.NextDate.Equal(day(2025, 2, 15)) {
		t.Errorf("next = %v active %v, want 2025-02-15 active", tpl.NextDate, tpl.Active)
	}
	if tpl.ClientName != "Acme SL" {
		t.Errorf("client name = %q", tpl.ClientName)
	}
}

func TestTemplateService_CreateValidation(t *testing.T) {
	t.Parallel()
	env := newTemplateTestEnv(t, day(2025, 1, 1), 12)
	end := day(2024, 12, 1)

	tests := []struct {
		name   string
		modify func(in *TemplateInput)
		field  string
	}{
		{"missing name", func(in *TemplateInput) { in.Name = "" }, "nombre"},
		{"unknown frequency", func(in *TemplateInput) { in.Frequency = "SEMANAL" }, "frecuencia"},
		{"day out of range", func(in *TemplateInput) { in.Day = 32 }, "dia_generacion"},
		{"custom without interval", func(in *TemplateInput) { in.Frequency = recurrence.Custom }, "intervalo_dias"},
		{"end before start", func(in *TemplateInput) { in.EndDate = &end }, "fecha_fin"},
		{"unknown period", func(in *TemplateInput) { in.PeriodKind = "SEMANA" }, "periodo_facturacion"},
		{"due days too far", func(in *TemplateInput) { in.DueDays = 400 }, "dias_vencimiento"},
		{"client of another user", func(in *TemplateInput) { in.ClientID = "missing" }, "cliente_id"},
	}

	for _, tt := range tests {
		in := env.monthly(day(2025, 1, 1))
		tt.modify(&in)
		_, err := env.svc.Create(context.Background(), testUser, in)
		if _, ok := fieldsOf(t, err)[tt.field]; !ok {
			t.Errorf("%s: error = %v, want field %s", tt.name, err, tt.field)
		}
	}
}

func TestTemplateService_ProcessDueCatchesUp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTemplateTestEnv(t, day(2025, 4, 20), 12)

	tpl := env.create(t, env.monthly(day(2025, 1, 1)))

	res, err := env.svc.ProcessDue(ctx, "")
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if res.Templates != 1 || res.Generated != 4 || res.Failed != 0 {
		t.Errorf("ProcessDue() = %+v, want 1 template, 4 generated", res)
	}

	page, err := NewInvoiceService(env.store, nil, nil, nil, discardLogger()).
		List(ctx, testUser, ListInvoicesInput{TemplateID: tpl.ID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	got := issueDates(page.Items)
	want := []string{"2025-04-15", "2025-03-15", "2025-02-15", "2025-01-15"}
	if !equalStrings(got, want) {
		t.Errorf("issued = %v, want %v", got, want)
	}

	numbers := map[string]bool{}
	for _, inv := range page.Items {
		numbers[inv.Number] = true
	}
	if len(numbers) != 4 || !numbers["2025-0001"] || !numbers["2025-0004"] {
		t.Errorf("numbers = %v, want 2025-0001..2025-0004", numbers)
	}
	march := page.Items[1]
	if march.Concept != "Mantenimiento web marzo 2025" {
		t.Errorf("concept = %q, want rendered placeholders", march.Concept)
	}
	if march.DueDate == nil || !march.DueDate.Equal(day(2025, 4, 14)) {
		t.Errorf("due date = %v, want 2025-04-14", march.DueDate)
	}
	if march.PeriodStart == nil || !march.PeriodStart.Equal(day(2025, 3, 1)) {
		t.Errorf("period start = %v, want 2025-03-01", march.PeriodStart)
	}

	stored, _ := env.svc.Get(ctx, testUser, tpl.ID)
	if stored.NextDate == nil || !stored.NextDate.Equal(day(2025, 5, 15)) || stored.GeneratedCount != 4 {
		t.Errorf("template next = %v count %d, want 2025-05-15 and 4", stored.NextDate, stored.GeneratedCount)
	}
	if stored.LastDate == nil || !stored.LastDate.Equal(day(2025, 4, 15)) {
		t.Errorf("last = %v, want 2025-04-15", stored.LastDate)
	}

	again, err := env.svc.ProcessDue(ctx, "")
	if err != nil {
		t.Fatalf("second ProcessDue() error = %v", err)
	}
	if again.Generated != 0 || again.Templates != 0 {
		t.Errorf("second ProcessDue() = %+v, want nothing due", again)
	}

	snap := env.recorder.Snapshot()
	if snap.InvoicesCreated[metrics.SourceTemplate] != 4 || snap.TemplateOccurrences[occurrenceGenerated] != 4 {
		t.Errorf("metrics = %+v, want 4 template invoices", snap)
	}
}

func TestTemplateService_ProcessDueBoundedCatchUp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTemplateTestEnv(t, day(2025, 4, 20), 2)

	tpl := env.create(t, env.monthly(day(2025, 1, 1)))

	res, err := env.svc.ProcessDue(ctx, testUser)
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if res.Generated != 2 {
		t.Errorf("Generated = %d, want 2", res.Generated)
	}
	stored, _ := env.svc.Get(ctx, testUser, tpl.ID)
	if stored.NextDate == nil || !stored.NextDate.Equal(day(2025, 3, 15)) {
		t.Errorf("next = %v, want 2025-03-15", stored.NextDate)
	}

	res, err = env.svc.ProcessDue(ctx, testUser)
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if res.Generated != 2 {
		t.Errorf("second run Generated = %d, want 2", res.Generated)
	}
	stored, _ = env.svc.Get(ctx, testUser, tpl.ID)
	if !stored.NextDate.Equal(day(2025, 5, 15)) {
		t.Errorf("next = %v, want 2025-05-15", stored.NextDate)
	}
}

func TestTemplateService_ProcessDueReachesEveryBatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTemplateTestEnv(t, day(2025, 6, 20), 1)

	// Each backlogged template stays due after its single catch-up step,
	// so they keep sorting first by date on every query.
	for range dueBatchSize {
		env.create(t, env.monthly(day(2024, 1, 1)))
	}
	late := env.create(t, env.monthly(day(2025, 6, 1)))

	res, err := env.svc.ProcessDue(ctx, testUser)
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if res.Templates != dueBatchSize+1 {
		t.Errorf("Templates = %d, want %d", res.Templates, dueBatchSize+1)
	}
	if res.Generated != dueBatchSize+1 {
		t.Errorf("Generated = %d, want %d", res.Generated, dueBatchSize+1)
	}
	stored, _ := env.svc.Get(ctx, testUser, late.ID)
	if stored.GeneratedCount != 1 {
		t.Errorf("late template count = %d, want 1", stored.GeneratedCount)
	}
	if stored.NextDate == nil || !stored.NextDate.Equal(day(2025, 7, 15)) {
		t.Errorf("late template next = %v, want 2025-07-15", stored.NextDate)
	}
}

func TestTemplateService_ProcessDueDeactivatesAtEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTemplateTestEnv(t, day(2025, 4, 20), 12)

	in := env.monthly(day(2025, 1, 1))
	end := day(2025, 2, 20)
	in.EndDate = &end
	tpl := env.create(t, in)

	res, err := env.svc.ProcessDue(ctx, "")
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if res.Generated != 2 {
		t.Errorf("Generated = %d, want 2", res.Generated)
	}
	stored, _ := env.svc.Get(ctx, testUser, tpl.ID)
	if stored.Active || stored.NextDate != nil {
		t.Errorf("template active %v next %v, want inactive without next", stored.Active, stored.NextDate)
	}

	if _, err := env.svc.Resume(ctx, testUser, tpl.ID); !errors.Is(err, ErrTemplateEnded) {
		t.Errorf("Resume() ended template error = %v, want ErrTemplateEnded", err)
	}
}

func TestTemplateService_ProcessDueContinuesAfterFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTemplateTestEnv(t, day(2025, 1, 20), 12)

	broken := env.create(t, env.monthly(day(2025, 1, 1)))
	healthy := env.create(t, env.monthly(day(2025, 1, 1)))
	env.store.failGenerate[broken.ID] = errors.New("deadlock detected")

	res, err := env.svc.ProcessDue(ctx, "")
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if res.Templates != 2 || res.Failed != 1 || res.Generated != 1 {
		t.Errorf("ProcessDue() = %+v, want 2 templates, 1 failed, 1 generated", res)
	}
	stored, _ := env.svc.Get(ctx, testUser, healthy.ID)
	if stored.GeneratedCount != 1 {
		t.Errorf("healthy template count = %d, want 1", stored.GeneratedCount)
	}
	if env.recorder.Snapshot().TemplateOccurrences[occurrenceFailed] != 1 {
		t.Error("failed occurrence not recorded")
	}
}

func TestTemplateService_ProcessDueScopedToUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTemplateTestEnv(t, day(2025, 1, 20), 12)
	env.create(t, env.monthly(day(2025, 1, 1)))

	res, err := env.svc.ProcessDue(ctx, "someone-else")
	if err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if res.Templates != 0 {
		t.Errorf("Templates = %d, want 0 for another user", res.Templates)
	}
}

func TestTemplateService_GenerateNow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTemplateTestEnv(t, day(2025, 3, 3), 12)

	tpl := env.create(t, env.monthly(day(2025, 3, 1)))

	inv, err := env.svc.GenerateNow(ctx, testUser, tpl.ID)
	if err != nil {
		t.Fatalf("GenerateNow() error = %v", err)
	}
	if !inv.IssueDate.Equal(day(2025, 3, 3)) || inv.TemplateID == nil || *inv.TemplateID != tpl.ID {
		t.Errorf("GenerateNow() = %+v, want today linked to the template", inv)
	}

	if _, err := env.svc.GenerateNow(ctx, testUser, tpl.ID); !errors.Is(err, ErrOccurrenceGenerated) {
		t.Errorf("second GenerateNow() error = %v, want ErrOccurrenceGenerated", err)
	}

	stored, _ := env.svc.Get(ctx, testUser, tpl.ID)
	if !stored.NextDate.Equal(day(2025, 3, 15)) {
		t.Errorf("next = %v, want schedule untouched at 2025-03-15", stored.NextDate)
	}
}

func TestTemplateService_GapsAndBackfill(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTemplateTestEnv(t, day(2025, 4, 20), 12)

	tpl := env.create(t, env.monthly(day(2025, 1, 1)))
	if _, err := env.svc.Pause(ctx, testUser, tpl.ID); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	gaps, err := env.svc.Gaps(ctx, testUser, tpl.ID, nil, nil)
	if err != nil {
		t.Fatalf("Gaps() error = %v", err)
	}
	if len(gaps) != 4 {
		t.Fatalf("Gaps() = %v, want 4 months", gaps)
	}

	from := day(2025, 2, 1)
	res, err := env.svc.Backfill(ctx, testUser, tpl.ID, &from, nil)
	if err != nil {
		t.Fatalf("Backfill() error = %v", err)
	}
	got := issueDates(res.Created)
	want := []string{"2025-02-15", "2025-03-15", "2025-04-15"}
	if !equalStrings(got, want) || res.Remaining != 0 {
		t.Errorf("Backfill() created %v remaining %d, want %v", got, res.Remaining, want)
	}

	gaps, err = env.svc.Gaps(ctx, testUser, tpl.ID, nil, nil)
	if err != nil {
		t.Fatalf("Gaps() error = %v", err)
	}
	if len(gaps) != 1 || !gaps[0].Equal(day(2025, 1, 15)) {
		t.Errorf("Gaps() after backfill = %v, want only 2025-01-15", gaps)
	}

	stored, _ := env.svc.Get(ctx, testUser, tpl.ID)
	if stored.Active {
		t.Error("Backfill() resumed a paused template")
	}
}

func TestTemplateService_PauseResume(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTemplateTestEnv(t, day(2025, 4, 20), 12)

	tpl := env.create(t, env.monthly(day(2025, 1, 1)))

	paused, err := env.svc.Pause(ctx, testUser, tpl.ID)
	if err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if paused.Active || !paused.NextDate.Equal(day(2025, 1, 15)) {
		t.Errorf("Pause() active %v next %v, want inactive keeping 2025-01-15", paused.Active, paused.NextDate)
	}

	res, _ := env.svc.ProcessDue(ctx, "")
	if res.Generated != 0 {
		t.Errorf("paused template generated %d invoices", res.Generated)
	}

	resumed, err := env.svc.Resume(ctx, testUser, tpl.ID)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if !resumed.Active || !resumed.NextDate.Equal(day(2025, 5, 15)) {
		t.Errorf("Resume() active %v next %v, want active at 2025-05-15", resumed.Active, resumed.NextDate)
	}
}

func TestTemplateService_ResumeSkipsGeneratedOccurrence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTemplateTestEnv(t, day(2025, 3, 15), 12)

	tpl := env.create(t, env.monthly(day(2025, 1, 1)))
	if res, err := env.svc.ProcessDue(ctx, testUser); err != nil || res.Generated != 3 {
		t.Fatalf("ProcessDue() = %+v, %v; want 3 generated", res, err)
	}
	if _, err := env.svc.Pause(ctx, testUser, tpl.ID); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	resumed, err := env.svc.Resume(ctx, testUser, tpl.ID)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if resumed.NextDate == nil || !resumed.NextDate.Equal(day(2025, 4, 15)) {
		t.Errorf("Resume() next = %v, want 2025-04-15 after the 2025-03-15 invoice", resumed.NextDate)
	}
}

func TestTemplateService_UpdateRecomputesOnScheduleChange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTemplateTestEnv(t, day(2025, 4, 10), 12)

	tpl := env.create(t, env.monthly(day(2025, 4, 1)))

	in := env.monthly(day(2025, 4, 1))
	in.Name = "Renamed"
	renamed, err := env.svc.Update(ctx, testUser, tpl.ID, in)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if renamed.Name != "Renamed" || !renamed.NextDate.Equal(day(2025, 4, 15)) {
		t.Errorf("Update(name) = %q next %v, want next unchanged", renamed.Name, renamed.NextDate)
	}

	in.DayPolicy = recurrence.LastCalendarDay
	moved, err := env.svc.Update(ctx, testUser, tpl.ID, in)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !moved.NextDate.Equal(day(2025, 4, 30)) {
		t.Errorf("Update(policy) next = %v, want 2025-04-30", moved.NextDate)
	}
}

func TestTemplateService_Preview(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTemplateTestEnv(t, day(2025, 1, 1), 12)

	in := env.monthly(day(2025, 1, 31))
	in.DayPolicy = recurrence.SpecificDay
	in.Day = 31
	in.IRPFRate = dec("15")
	tpl := env.create(t, in)

	occ, err := env.svc.Preview(ctx, testUser, tpl.ID, 3)
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	want := []time.Time{day(2025, 1, 31), day(2025, 2, 28), day(2025, 3, 31)}
	if len(occ) != len(want) {
		t.Fatalf("Preview() = %d occurrences, want %d", len(occ), len(want))
	}
	for i, o := range occ {
		if !o.Date.Equal(want[i]) {
			t.Errorf("occurrence %d = %s, want %s", i, o.Date, want[i])
		}
	}
	if !occ[0].Total.Equal(dec("1060")) || occ[0].Period == nil {
		t.Errorf("occurrence 0 = %+v, want total 1060 with a period", occ[0])
	}

	adhoc, err := env.svc.PreviewInput(env.monthly(day(2025, 1, 1)), 0)
	if err != nil {
		t.Fatalf("PreviewInput() error = %v", err)
	}
	if len(adhoc) != DefaultPreviewCount {
		t.Errorf("PreviewInput() = %d occurrences, want %d", len(adhoc), DefaultPreviewCount)
	}

	capped, err := env.svc.PreviewInput(env.monthly(day(2025, 1, 1)), 500)
	if err != nil {
		t.Fatalf("PreviewInput() error = %v", err)
	}
	if len(capped) != MaxPreviewCount {
		t.Errorf("PreviewInput() = %d occurrences, want %d", len(capped), MaxPreviewCount)
	}
}

func TestTemplateService_DeleteKeepsInvoices(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTemplateTestEnv(t, day(2025, 1, 20), 12)

	tpl := env.create(t, env.monthly(day(2025, 1, 1)))
	if _, err := env.svc.ProcessDue(ctx, ""); err != nil {
		t.Fatalf("ProcessDue() error = %v", err)
	}
	if err := env.svc.Delete(ctx, testUser, tpl.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := env.svc.Get(ctx, testUser, tpl.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrTemplateNotFound", err)
	}
	if len(env.store.invoices) != 1 {
		t.Errorf("invoices = %d, want 1 kept", len(env.store.invoices))
	}
}
