package log

// Logger receives protocol events. Implementations must be safe for
// concurrent use; Log is called from transport read loops and should
// return quickly.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards every event. The zero value is ready to use and
// is the default wherever a Logger is optional.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// MultiLogger fans one event stream out to several sinks, typically a
// FileLogger for capture plus a SlogAdapter for live console output.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger creates a logger that forwards each event to every
// sink, in order.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	return &MultiLogger{sinks: sinks}
}

// Log forwards the event to all sinks.
func (m *MultiLogger) Log(event Event) {
	for _, sink := range m.sinks {
		sink.Log(event)
	}
}

// Contract checks.
var (
	_ Logger = NoopLogger{}
	_ Logger = (*MultiLogger)(nil)
)
