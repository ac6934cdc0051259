package metrics

import (
	"sync"
	"time"
)

// Snapshot is a copy of the in-memory counters.
type Snapshot struct {
	HTTPRequests        map[int]uint64 // by status code
	InvoicesCreated     map[string]uint64
	TemplateOccurrences map[string]uint64
	SchedulerRuns       map[string]uint64
	SchedulerRunTotal   time.Duration
	ReportCacheHits     uint64
	ReportCacheMisses   uint64
}

// InMemoryRecorder keeps counters in memory. Used by tests.
type InMemoryRecorder struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{snap: Snapshot{
		HTTPRequests:        map[int]uint64{},
		InvoicesCreated:     map[string]uint64{},
		TemplateOccurrences: map[string]uint64{},
		SchedulerRuns:       map[string]uint64{},
	}}
}

// Snapshot returns a deep copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.snap
	out.HTTPRequests = copyMap(m.snap.HTTPRequests)
	out.InvoicesCreated = copyMap(m.snap.InvoicesCreated)
	out.TemplateOccurrences = copyMap(m.snap.TemplateOccurrences)
	out.SchedulerRuns = copyMap(m.snap.SchedulerRuns)
	return out
}

func (m *InMemoryRecorder) ObserveHTTPRequest(_, _ string, status int, _ time.Duration) {
	m.mu.Lock()
	m.snap.HTTPRequests[status]++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncInvoiceCreated(source string) {
	m.mu.Lock()
	m.snap.InvoicesCreated[source]++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncTemplateOccurrence(status string) {
	m.mu.Lock()
	m.snap.TemplateOccurrences[status]++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncSchedulerRun(outcome string) {
	m.mu.Lock()
	m.snap.SchedulerRuns[outcome]++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) ObserveSchedulerDuration(d time.Duration) {
	m.mu.Lock()
	m.snap.SchedulerRunTotal += d
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncReportCacheHit() {
	m.mu.Lock()
	m.snap.ReportCacheHits++
	m.mu.Unlock()
}

func (m *InMemoryRecorder) IncReportCacheMiss() {
	m.mu.Lock()
	m.snap.ReportCacheMisses++
	m.mu.Unlock()
}

func copyMap[K comparable](in map[K]uint64) map[K]uint64 {
	out := make(map[K]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
