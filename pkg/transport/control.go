package transport

import "github.com/temscript/temscript-go/pkg/wire"

// Control frames share the stream with requests and responses; the
// reserved message ID 0 in the envelope tells them apart. Pings carry
// a sequence number the pong echoes back.

// EncodePing encodes a ping carrying seq.
func EncodePing(seq uint32) ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{
		Type:     wire.ControlPing,
		Sequence: seq,
	})
}

// EncodePong encodes the answer to a ping carrying seq.
func EncodePong(seq uint32) ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{
		Type:     wire.ControlPong,
		Sequence: seq,
	})
}

// EncodeClose encodes a session close announcement.
func EncodeClose() ([]byte, error) {
	return wire.EncodeControlMessage(&wire.ControlMessage{Type: wire.ControlClose})
}

// DecodeControlMessage unpacks a control frame into its type and
// sequence number.
func DecodeControlMessage(data []byte) (wire.ControlMessageType, uint32, error) {
	msg, err := wire.DecodeControlMessage(data)
	if err != nil {
		return 0, 0, err
	}
	return msg.Type, msg.Sequence, nil
}
