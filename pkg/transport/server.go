package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/temscript/temscript-go/pkg/log"
	"github.com/temscript/temscript-go/pkg/wire"
)

// DefaultPort is the instrument server's well-known port.
const DefaultPort = 8030

// ServerConfig configures an instrument server.
type ServerConfig struct {
	// Address to listen on, e.g. ":8030". Empty selects the default
	// port on all interfaces.
	Address string

	// MaxMessageSize caps frame payloads in both directions. Zero
	// selects the transport default.
	MaxMessageSize uint32

	// Logger receives transport-layer protocol events.
	Logger log.Logger

	// OnConnect runs after a client connection is accepted.
	OnConnect func(conn *ServerConn)

	// OnDisconnect runs after a connection ends, however it ends.
	OnDisconnect func(conn *ServerConn)

	// OnMessage runs for every non-control frame, from the
	// connection's read goroutine.
	OnMessage func(conn *ServerConn, msg []byte)

	// OnError reports transport failures. conn is nil for listener
	// errors.
	OnError func(conn *ServerConn, err error)
}

// Server accepts client connections and hands their frames to the
// configured callbacks. Control messages never reach OnMessage; the
// server answers pings and acknowledges closes itself.
type Server struct {
	config   ServerConfig
	listener net.Listener

	connsMu sync.RWMutex
	conns   map[string]*ServerConn // keyed by connection ID

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server. Nothing listens until Start.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Server{
		config: config,
		conns:  make(map[string]*ServerConn),
	}, nil
}

// Start binds the listener and begins accepting connections. It
// returns once the listener is bound; accepted connections are served
// on their own goroutines.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("server already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Address, err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.listener = listener
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and every connection, then waits for the
// connection goroutines to drain.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.cancel()
	s.listener.Close()

	s.connsMu.Lock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount returns the number of live client connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			if s.config.OnError != nil {
				s.config.OnError(nil, fmt.Errorf("accepting connection: %w", err))
			}
			continue
		}

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// serveConn owns one client connection from accept to teardown.
func (s *Server) serveConn(netConn net.Conn) {
	defer s.wg.Done()

	conn := &ServerConn{
		conn:       netConn,
		framer:     NewFramerWithMaxSize(netConn, s.config.MaxMessageSize),
		server:     s,
		closeCh:    make(chan struct{}),
		remoteAddr: netConn.RemoteAddr(),
		connID:     uuid.New().String(),
	}
	if s.config.Logger != nil {
		conn.framer.SetLogger(s.config.Logger, conn.connID)
	}

	s.connsMu.Lock()
	s.conns[conn.connID] = conn
	s.connsMu.Unlock()

	s.logConnState(conn, "", "CONNECTED")
	if s.config.OnConnect != nil {
		s.config.OnConnect(conn)
	}

	conn.readLoop()

	s.connsMu.Lock()
	delete(s.conns, conn.connID)
	s.connsMu.Unlock()

	s.logConnState(conn, "CONNECTED", "DISCONNECTED")
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(conn)
	}
}

// logConnState records a connection lifecycle transition.
func (s *Server) logConnState(conn *ServerConn, from, to string) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: conn.connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		LocalRole:    log.RoleServer,
		RemoteAddr:   conn.remoteAddr.String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: from,
			NewState: to,
		},
	})
}

// ServerConn is the server's handle on one client connection.
type ServerConn struct {
	conn       net.Conn
	framer     *Framer
	server     *Server
	closeCh    chan struct{}
	closeOnce  sync.Once
	remoteAddr net.Addr
	connID     string
}

// RemoteAddr returns the client's address.
func (c *ServerConn) RemoteAddr() net.Addr { return c.remoteAddr }

// ConnID returns the connection's unique identifier, as used in
// protocol log events.
func (c *ServerConn) ConnID() string { return c.connID }

// Send writes one frame to the client. Safe for concurrent use.
func (c *ServerConn) Send(data []byte) error {
	return c.framer.WriteFrame(data)
}

// Close tears the connection down. Idempotent.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

// closing reports whether Close has been called.
func (c *ServerConn) closing() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

// readLoop pulls frames off the wire until the connection dies.
// Control frames are handled here; everything else goes to OnMessage.
func (c *ServerConn) readLoop() {
	for {
		if c.closing() || c.server.ctx.Err() != nil {
			return
		}

		data, err := c.framer.ReadFrame()
		if err != nil {
			// Expected when the client hangs up or we are shutting
			// down; report everything else.
			if c.server.config.OnError != nil && c.server.running.Load() && !c.closing() {
				c.server.config.OnError(c, err)
			}
			return
		}

		// Control frames carry the reserved message ID 0, so one peek
		// separates them without decoding the whole envelope.
		if msgType, err := wire.PeekMessageType(data); err == nil && msgType == wire.MessageTypeControl {
			if msg, err := wire.DecodeControlMessage(data); err == nil {
				c.handleControl(msg)
				continue
			}
		}

		if c.server.config.OnMessage != nil {
			c.server.config.OnMessage(c, data)
		}
	}
}

func (c *ServerConn) handleControl(msg *wire.ControlMessage) {
	c.logControl(msg.Type, msg.Sequence, log.DirectionIn)

	switch msg.Type {
	case wire.ControlPing:
		if pong, err := EncodePong(msg.Sequence); err == nil {
			c.Send(pong)
			c.logControl(wire.ControlPong, msg.Sequence, log.DirectionOut)
		}

	case wire.ControlPong:
		// Clients drive the ping/pong exchange; a stray pong here is
		// harmless.

	case wire.ControlClose:
		// Acknowledge, then drop the connection.
		if ack, err := EncodeClose(); err == nil {
			c.Send(ack)
			c.logControl(wire.ControlClose, 0, log.DirectionOut)
		}
		c.Close()
	}
}

func (c *ServerConn) logControl(msgType wire.ControlMessageType, seq uint32, dir log.Direction) {
	logger := c.server.config.Logger
	if logger == nil {
		return
	}
	logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryControl,
		LocalRole:    log.RoleServer,
		RemoteAddr:   c.remoteAddr.String(),
		ControlMsg: &log.ControlMsgEvent{
			Type:     msgType,
			Sequence: seq,
		},
	})
}
