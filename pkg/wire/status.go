package wire

// Status represents a response status code.
type Status uint8

const (
	// StatusOK indicates the operation completed successfully.
	StatusOK Status = 0

	// StatusUnknownCapability indicates the (subsystem, item) pair is not
	// in the capability catalog.
	StatusUnknownCapability Status = 1

	// StatusInvalidOperation indicates the operation kind does not match
	// the capability (SET on read-only, CALL on a property, ...).
	StatusInvalidOperation Status = 2

	// StatusMalformedValue indicates a value failed to decode against the
	// capability's declared type.
	StatusMalformedValue Status = 3

	// StatusTruncatedPayload indicates a binary payload's declared length
	// exceeded the bytes actually present.
	StatusTruncatedPayload Status = 4

	// StatusDriverFault indicates the instrument driver rejected or
	// failed the operation (out of range, hardware error).
	StatusDriverFault Status = 5

	// StatusBusy indicates the instrument is busy; try again later.
	StatusBusy Status = 6

	// StatusTimeout indicates the server-side operation timed out.
	StatusTimeout Status = 7

	// StatusDriverLost indicates the driver handle is gone. Fatal: the
	// server cannot serve further requests until restarted.
	StatusDriverLost Status = 8
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusUnknownCapability:
		return "UNKNOWN_CAPABILITY"
	case StatusInvalidOperation:
		return "INVALID_OPERATION"
	case StatusMalformedValue:
		return "MALFORMED_VALUE"
	case StatusTruncatedPayload:
		return "TRUNCATED_PAYLOAD"
	case StatusDriverFault:
		return "DRIVER_FAULT"
	case StatusBusy:
		return "BUSY"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusDriverLost:
		return "DRIVER_LOST"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusOK
}

// IsError returns true if the status indicates an error.
func (s Status) IsError() bool {
	return s != StatusOK
}
