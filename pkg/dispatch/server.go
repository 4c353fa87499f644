package dispatch

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/temscript/temscript-go/pkg/instrument"
	"github.com/temscript/temscript-go/pkg/log"
	"github.com/temscript/temscript-go/pkg/schema"
	"github.com/temscript/temscript-go/pkg/transport"
)

// Config holds the instrument server configuration.
type Config struct {
	// Address to listen on. Defaults to ":8030".
	Address string

	// MaxMessageSize caps incoming and outgoing frames. Defaults to
	// the transport default (64MB).
	MaxMessageSize uint32

	// Registry is the capability catalog. Defaults to schema.Default().
	Registry *schema.Registry

	// Driver is the instrument driver to serve. Required.
	Driver instrument.Driver

	// Timeout bounds a single driver operation.
	Timeout time.Duration

	// Logger receives protocol events.
	Logger log.Logger
}

// Server serves the instrument driver to remote clients over TCP.
type Server struct {
	dispatcher *Dispatcher
	transport  *transport.Server
	driver     instrument.Driver
	logger     log.Logger
}

// NewServer creates an instrument server. The driver is not closed by
// the server; the caller owns it.
func NewServer(config Config) (*Server, error) {
	if config.Driver == nil {
		return nil, fmt.Errorf("driver is required")
	}
	if config.Registry == nil {
		config.Registry = schema.Default()
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}

	opts := []Option{WithLogger(config.Logger)}
	if config.Timeout > 0 {
		opts = append(opts, WithTimeout(config.Timeout))
	}
	dispatcher := NewDispatcher(config.Registry, config.Driver, opts...)

	s := &Server{
		dispatcher: dispatcher,
		driver:     config.Driver,
		logger:     config.Logger,
	}

	ts, err := transport.NewServer(transport.ServerConfig{
		Address:        config.Address,
		MaxMessageSize: config.MaxMessageSize,
		Logger:         config.Logger,
		OnMessage:      s.onMessage,
		OnError:        s.onError,
	})
	if err != nil {
		return nil, fmt.Errorf("creating transport server: %w", err)
	}
	s.transport = ts
	return s, nil
}

// Start begins listening. It returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	return s.transport.Start(ctx)
}

// Stop closes the listener and all connections.
func (s *Server) Stop() error {
	return s.transport.Stop()
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.transport.Addr()
}

// ConnectionCount returns the number of connected clients.
func (s *Server) ConnectionCount() int {
	return s.transport.ConnectionCount()
}

// Dispatcher exposes the request dispatcher, mainly for startup gating.
func (s *Server) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// onMessage handles one request frame. The transport invokes it from
// the connection's read loop, so requests on one connection are
// processed in order; cross-connection ordering comes from the
// dispatcher's driver mutex.
func (s *Server) onMessage(conn *transport.ServerConn, msg []byte) {
	reply := s.dispatcher.HandleFrame(context.Background(), conn.ConnID(), msg)
	if err := conn.Send(reply); err != nil {
		s.onError(conn, fmt.Errorf("sending response: %w", err))
	}
}

func (s *Server) onError(conn *transport.ServerConn, err error) {
	event := log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerTransport,
		Category:  log.CategoryError,
		LocalRole: log.RoleServer,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
		},
	}
	if conn != nil {
		event.ConnectionID = conn.ConnID()
		event.RemoteAddr = conn.RemoteAddr().String()
	}
	s.logger.Log(event)
}
