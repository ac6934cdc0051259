package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncInvoiceCreated(SourceTemplate)
	m.IncInvoiceCreated(SourceTemplate)
	m.IncInvoiceCreated(SourceManual)
	m.IncSchedulerRun(RunCompleted)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/invoices", 200, time.Millisecond)
	m.IncReportCacheMiss()
	m.IncReportCacheHit()
	m.IncReportCacheHit()

	snap := m.Snapshot()
	if snap.InvoicesCreated[SourceTemplate] != 2 || snap.InvoicesCreated[SourceManual] != 1 {
		t.Errorf("InvoicesCreated = %v", snap.InvoicesCreated)
	}
	if snap.SchedulerRuns[RunCompleted] != 1 {
		t.Errorf("SchedulerRuns = %v", snap.SchedulerRuns)
	}
	if snap.HTTPRequests[200] != 1 {
		t.Errorf("HTTPRequests = %v", snap.HTTPRequests)
	}
	if snap.ReportCacheHits != 2 || snap.ReportCacheMisses != 1 {
		t.Errorf("report cache = %d/%d", snap.ReportCacheHits, snap.ReportCacheMisses)
	}

	// Snapshot is a copy.
	snap.InvoicesCreated[SourceManual] = 99
	if m.Snapshot().InvoicesCreated[SourceManual] != 1 {
		t.Error("mutating a snapshot leaked into the recorder")
	}
}

func TestPrometheusRecorder_Exposition(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.IncInvoiceCreated(SourceTemplate)
	p.IncTemplateOccurrence("skipped")
	p.IncSchedulerRun(RunLocked)
	p.ObserveSchedulerDuration(2 * time.Second)
	p.ObserveHTTPRequest(http.MethodPost, "/api/v1/invoices", 201, 30*time.Millisecond)
	p.IncReportCacheHit()

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`migestor_invoices_created_total{source="template"} 1`,
		`migestor_template_occurrences_total{status="skipped"} 1`,
		`migestor_scheduler_runs_total{outcome="locked"} 1`,
		`migestor_http_requests_total{method="POST",route="/api/v1/invoices",status="201"} 1`,
		`migestor_report_cache_requests_total{result="hit"} 1`,
		`migestor_scheduler_run_duration_seconds_count 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNoopRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder = NewNoop()
	r.IncInvoiceCreated(SourceManual)
	r.IncSchedulerRun(RunFailed)
	r.ObserveHTTPRequest("GET", "/", 200, 0)
}
