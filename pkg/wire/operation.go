package wire

// Operation identifies the request operation.
type Operation uint8

const (
	// OpGet reads a property value.
	OpGet Operation = 1

	// OpSet writes a property value.
	OpSet Operation = 2

	// OpCall invokes a method with named arguments.
	OpCall Operation = 3
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpGet:
		return "GET"
	case OpSet:
		return "SET"
	case OpCall:
		return "CALL"
	default:
		return "UNKNOWN"
	}
}

// IsValid returns true for defined operations.
func (o Operation) IsValid() bool {
	return o >= OpGet && o <= OpCall
}
