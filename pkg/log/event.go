package log

import (
	"time"

	"github.com/temscript/temscript-go/pkg/wire"
)

// Event is one entry in a protocol capture. Exactly one of the payload
// pointers is set, matching the Category. The CBOR encoding uses
// integer keys; a session's capture can run to millions of events, so
// the envelope stays small.
type Event struct {
	// Timestamp of the event, kept to nanosecond precision.
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID groups the events of one client connection.
	ConnectionID string `cbor:"2,keyasint"`

	// Direction of the traffic the event describes.
	Direction Direction `cbor:"3,keyasint"`

	// Layer that captured the event.
	Layer Layer `cbor:"4,keyasint"`

	// Category selects which payload pointer is set.
	Category Category `cbor:"5,keyasint"`

	// LocalRole records which end of the protocol wrote the capture.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer's host:port.
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Payloads, one per category.
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	ControlMsg  *ControlMsgEvent  `cbor:"13,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction tells inbound from outbound traffic.
type Direction uint8

// Traffic directions, relative to the capturing endpoint.
const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

var directionNames = map[Direction]string{
	DirectionIn:  "IN",
	DirectionOut: "OUT",
}

func (d Direction) String() string { return nameOf(directionNames, d) }

// Layer identifies where in the stack an event was captured.
type Layer uint8

// Capture layers, bottom up.
const (
	// LayerTransport covers framing and raw bytes.
	LayerTransport Layer = 0
	// LayerWire covers decoded requests and responses.
	LayerWire Layer = 1
	// LayerService covers dispatch and driver lifecycle.
	LayerService Layer = 2
)

var layerNames = map[Layer]string{
	LayerTransport: "TRANSPORT",
	LayerWire:      "WIRE",
	LayerService:   "SERVICE",
}

func (l Layer) String() string { return nameOf(layerNames, l) }

// Category classifies events within a layer.
type Category uint8

// Event categories.
const (
	CategoryMessage Category = 0
	CategoryControl Category = 1
	CategoryState   Category = 2
	CategoryError   Category = 3
)

var categoryNames = map[Category]string{
	CategoryMessage: "MESSAGE",
	CategoryControl: "CONTROL",
	CategoryState:   "STATE",
	CategoryError:   "ERROR",
}

func (c Category) String() string { return nameOf(categoryNames, c) }

// Role tells a server-side capture from a client-side one.
type Role uint8

// Capture roles.
const (
	// RoleServer is the instrument-side server.
	RoleServer Role = 0
	// RoleClient is a remote client.
	RoleClient Role = 1
)

var roleNames = map[Role]string{
	RoleServer: "SERVER",
	RoleClient: "CLIENT",
}

func (r Role) String() string { return nameOf(roleNames, r) }

// nameOf renders an enum, falling back to UNKNOWN for values from a
// newer capture format.
func nameOf[K comparable](names map[K]string, k K) string {
	if s, ok := names[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// FrameEvent is a transport-layer capture of one frame.
type FrameEvent struct {
	// Size of the full frame on the wire, length prefix included.
	Size int `cbor:"1,keyasint"`

	// Data holds the payload, possibly cut short; image frames are not
	// worth capturing whole.
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated marks Data as a prefix of the real payload.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent is a wire-layer capture of one decoded message.
// Operation, Subsystem and Item describe requests; Status, ImageBytes
// and ProcessingTime describe responses.
type MessageEvent struct {
	// Type tells requests from responses.
	Type MessageType `cbor:"1,keyasint"`

	// MessageID pairs a response with its request.
	MessageID uint32 `cbor:"2,keyasint"`

	// Operation is the request's verb.
	Operation *wire.Operation `cbor:"3,keyasint,omitempty"`

	// Subsystem targeted by a request, e.g. "stage".
	Subsystem string `cbor:"4,keyasint,omitempty"`

	// Item targeted by a request, e.g. "position".
	Item string `cbor:"5,keyasint,omitempty"`

	// Status of a response.
	Status *wire.Status `cbor:"6,keyasint,omitempty"`

	// ImageBytes is the pixel segment size of an image response.
	ImageBytes *int `cbor:"7,keyasint,omitempty"`

	// Payload is the decoded message body, when captured.
	Payload any `cbor:"8,keyasint,omitempty"`

	// ProcessingTime spans request receipt to response send, so it
	// includes the driver call. Responses only.
	ProcessingTime *time.Duration `cbor:"9,keyasint,omitempty"`
}

// MessageType tells requests from responses.
type MessageType uint8

// Message types.
const (
	MessageTypeRequest  MessageType = 0
	MessageTypeResponse MessageType = 1
)

var messageTypeNames = map[MessageType]string{
	MessageTypeRequest:  "REQUEST",
	MessageTypeResponse: "RESPONSE",
}

func (m MessageType) String() string { return nameOf(messageTypeNames, m) }

// StateChangeEvent records a lifecycle transition of a connection,
// session, or the instrument driver.
type StateChangeEvent struct {
	// Entity that changed state.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState before the transition; empty for initial transitions.
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState after the transition.
	NewState string `cbor:"3,keyasint"`

	// Reason for the transition, when one is known.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity names what a StateChangeEvent is about.
type StateEntity uint8

// State entities.
const (
	StateEntityConnection StateEntity = 0
	StateEntitySession    StateEntity = 1
	StateEntityDriver     StateEntity = 2
)

var stateEntityNames = map[StateEntity]string{
	StateEntityConnection: "CONNECTION",
	StateEntitySession:    "SESSION",
	StateEntityDriver:     "DRIVER",
}

func (s StateEntity) String() string { return nameOf(stateEntityNames, s) }

// ControlMsgEvent records a ping, pong, or close exchange.
type ControlMsgEvent struct {
	// Type of the control message.
	Type wire.ControlMessageType `cbor:"1,keyasint"`

	// Sequence pairs pongs with pings.
	Sequence uint32 `cbor:"2,keyasint,omitempty"`
}

// ErrorEventData records a failure at any layer.
type ErrorEventData struct {
	// Layer where the failure happened.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error text.
	Message string `cbor:"2,keyasint"`

	// Code carries a numeric error code when the layer has one.
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context names the operation that failed.
	Context string `cbor:"4,keyasint,omitempty"`
}
