package transport

import (
	"net"
	"time"
)

// FrameReadWriter is the framing contract: length-prefixed frame I/O
// over a byte stream. Satisfied by Framer.
type FrameReadWriter interface {
	ReadFrame() ([]byte, error)
	WriteFrame(payload []byte) error
}

// PeerConn is the surface shared by both ends of a connection: a place
// to send frames and a way to tear the link down. Satisfied by
// ServerConn and ClientConn.
type PeerConn interface {
	RemoteAddr() net.Addr
	Send(data []byte) error
	Close() error
}

// RequestConn extends PeerConn with the client-side operations the
// remote layer needs: blocking receive with a deadline plus the
// control messages a session uses.
type RequestConn interface {
	PeerConn
	Receive(timeout time.Duration) ([]byte, error)
	SendPing(seq uint32) error
	SendClose() error
}

// Contract checks.
var (
	_ FrameReadWriter = (*Framer)(nil)
	_ PeerConn        = (*ServerConn)(nil)
	_ PeerConn        = (*ClientConn)(nil)
	_ RequestConn     = (*ClientConn)(nil)
)
