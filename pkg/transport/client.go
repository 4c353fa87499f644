package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// Connection errors.
var (
	ErrNotConnected     = errors.New("not connected")
	ErrConnectionClosed = errors.New("connection closed")
)

// DefaultConnectTimeout bounds Connect when the caller's context has
// no deadline of its own.
const DefaultConnectTimeout = 30 * time.Second

// ClientConfig configures a protocol client.
type ClientConfig struct {
	// MaxMessageSize caps received frame payloads. Zero selects the
	// transport default.
	MaxMessageSize uint32

	// ConnectTimeout bounds dialing when the context carries no
	// deadline. Zero selects DefaultConnectTimeout.
	ConnectTimeout time.Duration
}

// Client dials instrument servers. One client may open any number of
// connections.
type Client struct {
	config ClientConfig
}

// NewClient creates a client with the given configuration.
func NewClient(config ClientConfig) *Client {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	return &Client{config: config}
}

// Connect dials the server at address (host:port).
func (c *Client) Connect(ctx context.Context, address string) (*ClientConn, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", address, err)
	}

	return &ClientConn{
		conn:    conn,
		framer:  NewFramerWithMaxSize(conn, c.config.MaxMessageSize),
		closeCh: make(chan struct{}),
	}, nil
}

// ClientConn is one connection to an instrument server. Sends and
// receives are independently serialized; the protocol above this layer
// decides who reads when.
type ClientConn struct {
	conn    net.Conn
	framer  *Framer
	closeCh chan struct{}

	closeOnce sync.Once
	readMu    sync.Mutex
}

// LocalAddr returns the local end of the connection.
func (c *ClientConn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RemoteAddr returns the server's address.
func (c *ClientConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// closed reports whether Close has been called.
func (c *ClientConn) closed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

// Send writes one frame to the server.
func (c *ClientConn) Send(data []byte) error {
	if c.closed() {
		return ErrConnectionClosed
	}
	return c.framer.WriteFrame(data)
}

// Receive reads one frame, waiting at most timeout. A zero timeout
// blocks until a frame arrives or the connection dies.
func (c *ClientConn) Receive(timeout time.Duration) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.closed() {
		return nil, ErrConnectionClosed
	}

	if timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}
	return c.framer.ReadFrame()
}

// Close tears the connection down. Idempotent.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

// SendPing sends a ping control message carrying seq.
func (c *ClientConn) SendPing(seq uint32) error {
	msg, err := EncodePing(seq)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// SendClose announces an orderly shutdown to the server.
func (c *ClientConn) SendClose() error {
	msg, err := EncodeClose()
	if err != nil {
		return err
	}
	return c.Send(msg)
}
