package metrics

import "time"

// NoopRecorder discards everything.
type NoopRecorder struct{}

func NewNoop() Recorder {
	return NoopRecorder{}
}

func (NoopRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {}
func (NoopRecorder) IncInvoiceCreated(string)                              {}
func (NoopRecorder) IncTemplateOccurrence(string)                          {}
func (NoopRecorder) IncSchedulerRun(string)                                {}
func (NoopRecorder) ObserveSchedulerDuration(time.Duration)                {}
func (NoopRecorder) IncReportCacheHit()                                    {}
func (NoopRecorder) IncReportCacheMiss()                                   {}
