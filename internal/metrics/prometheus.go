package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "migestor"

// PrometheusRecorder exports metrics through its own registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	invoicesCreated   *prometheus.CounterVec
	templateOccur     *prometheus.CounterVec
	schedulerRuns     *prometheus.CounterVec
	schedulerDuration prometheus.Histogram
	reportCache       *prometheus.CounterVec
}

// NewPrometheus registers the service collectors plus the Go runtime and
// process collectors on a fresh registry.
func NewPrometheus() *PrometheusRecorder {
	p := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		invoicesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_created_total",
			Help:      "Invoices created, by source (manual or template).",
		}, []string{"source"}),
		templateOccur: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "template_occurrences_total",
			Help:      "Recurring template occurrences processed, by status.",
		}, []string{"status"}),
		schedulerRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_runs_total",
			Help:      "Scheduler ticks by outcome.",
		}, []string{"outcome"}),
		schedulerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduler_run_duration_seconds",
			Help:      "Time spent processing due templates per run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		reportCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_cache_requests_total",
			Help:      "Tax report cache lookups by result.",
		}, []string{"result"}),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.httpRequests,
		p.httpDuration,
		p.invoicesCreated,
		p.templateOccur,
		p.schedulerRuns,
		p.schedulerDuration,
		p.reportCache,
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncInvoiceCreated(source string) {
	p.invoicesCreated.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) IncTemplateOccurrence(status string) {
	p.templateOccur.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncSchedulerRun(outcome string) {
	p.schedulerRuns.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveSchedulerDuration(d time.Duration) {
	p.schedulerDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncReportCacheHit() {
	p.reportCache.WithLabelValues("hit").Inc()
}

func (p *PrometheusRecorder) IncReportCacheMiss() {
	p.reportCache.WithLabelValues("miss").Inc()
}
