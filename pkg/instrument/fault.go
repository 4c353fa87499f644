package instrument

import (
	"errors"
	"fmt"
)

// FaultReason classifies a driver failure.
type FaultReason uint8

const (
	// ReasonGeneral is an unclassified hardware or scripting failure.
	ReasonGeneral FaultReason = 0

	// ReasonBusy means the instrument is executing another operation
	// (stage still moving, buffer cycle running). Retryable.
	ReasonBusy FaultReason = 1

	// ReasonOutOfRange means a value or argument was rejected by the
	// instrument's own limits.
	ReasonOutOfRange FaultReason = 2

	// ReasonLost means the vendor scripting handle is gone. Fatal: the
	// driver cannot recover without a restart.
	ReasonLost FaultReason = 3
)

// String returns the reason name.
func (r FaultReason) String() string {
	switch r {
	case ReasonGeneral:
		return "general"
	case ReasonBusy:
		return "busy"
	case ReasonOutOfRange:
		return "out of range"
	case ReasonLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Fault is a driver-level failure. The dispatcher maps faults onto
// protocol status codes by reason.
type Fault struct {
	Reason    FaultReason
	Subsystem string
	Item      string
	Message   string
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Subsystem != "" {
		return fmt.Sprintf("driver fault (%s) at %s.%s: %s", f.Reason, f.Subsystem, f.Item, f.Message)
	}
	return fmt.Sprintf("driver fault (%s): %s", f.Reason, f.Message)
}

// NewFault creates a fault for the given capability.
func NewFault(reason FaultReason, subsystem, item, format string, args ...any) *Fault {
	return &Fault{
		Reason:    reason,
		Subsystem: subsystem,
		Item:      item,
		Message:   fmt.Sprintf(format, args...),
	}
}

// AsFault extracts a *Fault from an error chain.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
