// Package metrics defines the instrumentation hooks used across the service.
package metrics

import "time"

// Invoice sources.
const (
	SourceManual   = "manual"
	SourceTemplate = "template"
)

// Scheduler run outcomes.
const (
	RunCompleted = "completed"
	RunLocked    = "locked"
	RunFailed    = "failed"
)

// Recorder captures metric events. Services accept a nil Recorder and fall
// back to NewNoop.
type Recorder interface {
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)

	IncInvoiceCreated(source string)
	IncTemplateOccurrence(status string) // "generated", "skipped", "failed"

	IncSchedulerRun(outcome string)
	ObserveSchedulerDuration(duration time.Duration)

	IncReportCacheHit()
	IncReportCacheMiss()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
