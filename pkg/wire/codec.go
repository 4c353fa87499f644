package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Protocol frames are CBOR maps with small integer keys. Encoding is
// canonical so the same message always produces the same bytes, which
// keeps captured sessions diffable. Decoding stays lenient so newer
// peers can add keys without breaking older ones.
var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

func mustEncMode() cbor.EncMode {
	m, err := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: encoder mode: %v", err))
	}
	return m
}

func mustDecMode() cbor.DecMode {
	m, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wire: decoder mode: %v", err))
	}
	return m
}

// Marshal encodes a value using the protocol's CBOR encoder mode.
func Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

// Unmarshal decodes CBOR bytes using the protocol's decoder mode.
func Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }

// NewEncoder returns a streaming encoder writing protocol CBOR to w.
func NewEncoder(w io.Writer) *cbor.Encoder { return encMode.NewEncoder(w) }

// NewDecoder returns a streaming decoder reading protocol CBOR from r.
func NewDecoder(r io.Reader) *cbor.Decoder { return decMode.NewDecoder(r) }

// EncodeRequest validates and encodes a request message.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return Marshal(req)
}

// DecodeRequest decodes and validates a request frame.
func DecodeRequest(data []byte) (*Request, error) {
	req := new(Request)
	if err := Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return req, nil
}

// EncodeResponse encodes a response message.
// Responses carrying an image must use EncodeImageResponse instead.
func EncodeResponse(resp *Response) ([]byte, error) {
	return Marshal(resp)
}

// DecodeResponse decodes a response frame. The returned trailing bytes
// are the raw binary segment following the CBOR envelope; empty for
// ordinary responses. Image validation against the header's declared
// length happens in DecodeImagePayload.
func DecodeResponse(data []byte) (*Response, []byte, error) {
	resp := new(Response)
	dec := decMode.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(resp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp, data[dec.NumBytesRead():], nil
}

// EncodeControlMessage encodes a control message (ping/pong/close).
// The reserved control message ID is stamped on before encoding.
func EncodeControlMessage(msg *ControlMessage) ([]byte, error) {
	msg.MessageID = ControlMessageID
	return Marshal(msg)
}

// DecodeControlMessage decodes a control frame, rejecting frames whose
// message ID is not the reserved control ID.
func DecodeControlMessage(data []byte) (*ControlMessage, error) {
	msg := new(ControlMessage)
	if err := Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("failed to decode control message: %w", err)
	}
	if msg.MessageID != ControlMessageID {
		return nil, fmt.Errorf("not a control message: messageId=%d", msg.MessageID)
	}
	return msg, nil
}

// MessageType classifies a received frame before it is fully decoded.
type MessageType int

const (
	MessageTypeUnknown MessageType = iota

	// MessageTypeData is a request or response; which one, the receiving
	// side knows from its role.
	MessageTypeData

	// MessageTypeControl is a ping/pong/close control message.
	MessageTypeControl
)

// PeekMessageType inspects only the message ID to decide whether a
// frame is control traffic or a data message. Control frames carry the
// reserved ID 0; everything else is data. A streaming decoder is used
// so frames with a trailing binary segment (image responses) can be
// peeked too.
func PeekMessageType(data []byte) (MessageType, error) {
	var head struct {
		MessageID uint32 `cbor:"1,keyasint"`
	}
	dec := decMode.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&head); err != nil {
		return MessageTypeUnknown, fmt.Errorf("failed to peek message: %w", err)
	}
	if head.MessageID == ControlMessageID {
		return MessageTypeControl, nil
	}
	return MessageTypeData, nil
}
