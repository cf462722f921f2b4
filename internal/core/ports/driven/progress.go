package driven

// ProgressSink receives staged progress for an indexing operation.
// value is in [0, 1]; -1 signals terminal failure.
// Reports are delivered synchronously on the caller's goroutine.
type ProgressSink interface {
	Report(message string, value float64)
}

// ProgressFunc adapts a plain function to ProgressSink.
type ProgressFunc func(message string, value float64)

// Report calls f.
func (f ProgressFunc) Report(message string, value float64) {
	f(message, value)
}

// NopProgress discards every report.
var NopProgress ProgressSink = ProgressFunc(func(string, float64) {})
