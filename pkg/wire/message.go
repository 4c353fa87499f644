package wire

import (
	"fmt"
)

// CBOR map keys for message encoding. All protocol messages use integer
// keys.
const (
	KeyMessageID  = 1
	KeyOpOrStatus = 2 // Operation (request) or Status (response)
	KeySubsystem  = 3
	KeyItem       = 4
	KeyPayload    = 5
)

// MessageID 0 is reserved for transport control messages (ping/pong/
// close); every request and response carries a non-zero ID.
const ControlMessageID uint32 = 0

// UnattributedMessageID marks an error response to a request whose ID
// could not be recovered (the envelope itself failed to decode). It is
// never allocated for requests; a client seeing it fails its pending
// call instead of waiting out the timeout.
const UnattributedMessageID uint32 = 0xFFFFFFFF

// Request represents one protocol request from client to server.
//
// CBOR encoding:
//
//	{
//	  1: messageId,   // uint32, non-zero
//	  2: operation,   // uint8: 1=GET, 2=SET, 3=CALL
//	  3: subsystem,   // string, e.g. "stage"
//	  4: item,        // string, e.g. "position"
//	  5: payload      // SET value or CALL argument list
//	}
type Request struct {
	MessageID uint32    `cbor:"1,keyasint"`
	Operation Operation `cbor:"2,keyasint"`
	Subsystem string    `cbor:"3,keyasint"`
	Item      string    `cbor:"4,keyasint"`
	Payload   any       `cbor:"5,keyasint,omitempty"`
}

// Validate checks if the request is well formed.
func (r *Request) Validate() error {
	if r.MessageID == ControlMessageID {
		return fmt.Errorf("messageId 0 is reserved for control messages")
	}
	if r.MessageID == UnattributedMessageID {
		return fmt.Errorf("messageId %d is reserved for unattributed error responses", UnattributedMessageID)
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("invalid operation: %d", r.Operation)
	}
	if r.Subsystem == "" || r.Item == "" {
		return fmt.Errorf("subsystem and item are required")
	}
	return nil
}

// Response represents one protocol response from server to client.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32: matches the request
//	  2: status,       // uint8: 0=OK, or error code
//	  3: payload,      // typed value (OK) or error detail
//	  4: imageFollows  // bool: pixel buffer appended after envelope
//	}
type Response struct {
	MessageID    uint32 `cbor:"1,keyasint"`
	Status       Status `cbor:"2,keyasint"`
	Payload      any    `cbor:"3,keyasint,omitempty"`
	ImageFollows bool   `cbor:"4,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// ErrorPayload carries the error detail of an error response.
//
// CBOR encoding:
//
//	{
//	  1: message  // string: human-readable error message
//	}
type ErrorPayload struct {
	Message string `cbor:"1,keyasint,omitempty"`
}

// ExtractErrorMessage pulls the error message out of a decoded error
// payload. After a CBOR round trip the payload is a raw map, not
// *ErrorPayload, so both forms are handled.
func ExtractErrorMessage(payload any) string {
	switch p := payload.(type) {
	case *ErrorPayload:
		return p.Message
	case ErrorPayload:
		return p.Message
	case map[any]any:
		if s, ok := p[uint64(1)].(string); ok {
			return s
		}
	}
	return ""
}

// ControlMessage represents a transport-level control message. Control
// messages reuse the request envelope with messageId 0, so receivers
// can separate them from data messages with a single peek.
//
// CBOR encoding:
//
//	{
//	  1: 0,         // reserved control messageId
//	  2: type,      // uint8: 1=ping, 2=pong, 3=close
//	  3: sequence   // uint32, ping/pong correlation
//	}
type ControlMessage struct {
	MessageID uint32             `cbor:"1,keyasint"`
	Type      ControlMessageType `cbor:"2,keyasint"`
	Sequence  uint32             `cbor:"3,keyasint,omitempty"`
}

// ControlMessageType represents the type of control message.
type ControlMessageType uint8

const (
	// ControlPing is sent to check connection liveness.
	ControlPing ControlMessageType = 1

	// ControlPong is the response to a ping.
	ControlPong ControlMessageType = 2

	// ControlClose initiates graceful connection close.
	ControlClose ControlMessageType = 3
)

// String returns the control message type name.
func (t ControlMessageType) String() string {
	switch t {
	case ControlPing:
		return "ping"
	case ControlPong:
		return "pong"
	case ControlClose:
		return "close"
	default:
		return "unknown"
	}
}
