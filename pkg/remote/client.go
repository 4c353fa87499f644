package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/temscript/temscript-go/pkg/instrument"
	"github.com/temscript/temscript-go/pkg/log"
	"github.com/temscript/temscript-go/pkg/schema"
	"github.com/temscript/temscript-go/pkg/transport"
	"github.com/temscript/temscript-go/pkg/wire"
)

// Client errors.
var (
	// ErrTimedOut means no response arrived within the round-trip
	// timeout. The stream may hold a half-read frame afterwards, so the
	// connection is unusable until Reconnect.
	ErrTimedOut = errors.New("request timed out")

	// ErrConnectionLost means the connection failed mid-exchange.
	ErrConnectionLost = errors.New("connection lost")
)

// StatusError is a non-OK protocol status returned by the server. The
// connection stays usable after one.
type StatusError struct {
	Status  wire.Status
	Message string
}

// Error returns "status: message" or just the status name.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return e.Status.String()
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// AsStatusError unwraps a *StatusError from an error chain.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	ok := errors.As(err, &se)
	return se, ok
}

// DefaultTimeout is the round-trip timeout. Generous because a single
// exchange can carry a full-frame camera readout.
const DefaultTimeout = 90 * time.Second

// Config configures a Client.
type Config struct {
	// Address of the instrument server (host:port).
	Address string

	// Timeout bounds one request/response round trip. Defaults to
	// DefaultTimeout.
	Timeout time.Duration

	// MaxMessageSize caps received frames. Defaults to the transport
	// default (64MB).
	MaxMessageSize uint32

	// Registry is the capability catalog used for local validation and
	// response decoding. Defaults to schema.Default().
	Registry *schema.Registry

	// KeepAlive enables background liveness probing of idle
	// connections. Nil disables it; zero fields take the transport
	// defaults.
	KeepAlive *transport.KeepAliveConfig

	// Logger receives protocol events.
	Logger log.Logger
}

// Client is a connection to a remote instrument server. It implements
// the same driver surface as a local simulator, so it can back the
// typed facade directly. Safe for concurrent use; requests are
// serialized on the connection.
type Client struct {
	config   Config
	registry *schema.Registry
	logger   log.Logger
	tclient  *transport.Client
	ka       *transport.KeepAlive

	mu           sync.Mutex
	conn         transport.RequestConn
	nextID       uint32
	broken       bool
	lastExchange time.Time
}

// Dial connects to the instrument server.
func Dial(ctx context.Context, config Config) (*Client, error) {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Registry == nil {
		config.Registry = schema.Default()
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}

	c := &Client{
		config:   config,
		registry: config.Registry,
		logger:   config.Logger,
		tclient: transport.NewClient(transport.ClientConfig{
			MaxMessageSize: config.MaxMessageSize,
		}),
	}

	conn, err := c.tclient.Connect(ctx, config.Address)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", config.Address, err)
	}
	c.conn = conn
	c.lastExchange = time.Now()

	if config.KeepAlive != nil {
		kc := config.KeepAlive.WithDefaults()
		c.config.KeepAlive = &kc
		c.ka = transport.NewKeepAlive(kc, c.probe, c.onProbeFailure)
		c.ka.Start(context.Background())
	}
	return c, nil
}

// Reconnect drops the current connection and dials again. It clears
// the broken state set by a previous transport failure.
func (c *Client) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	conn, err := c.tclient.Connect(ctx, c.config.Address)
	if err != nil {
		return fmt.Errorf("reconnecting to %s: %w", c.config.Address, err)
	}
	c.conn = conn
	c.broken = false
	c.lastExchange = time.Now()

	// The probe loop stops itself once it declares the link down;
	// bring it back for the fresh connection.
	if c.ka != nil {
		c.ka.Start(context.Background())
	}
	return nil
}

// Close announces the shutdown to the server and closes the connection.
func (c *Client) Close() error {
	if c.ka != nil {
		c.ka.Stop()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	// Best effort; the server acknowledges but we do not wait for it.
	c.conn.SendClose()
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Get reads a property from the remote instrument.
func (c *Client) Get(ctx context.Context, subsystem, item string) (wire.Value, error) {
	desc, err := c.registry.Lookup(subsystem, item)
	if err != nil {
		return wire.Value{}, err
	}
	if !desc.Readable() {
		return wire.Value{}, fmt.Errorf("%w: %s.%s is not readable", schema.ErrInvalidOperation, subsystem, item)
	}

	resp, trailing, err := c.roundTrip(ctx, &wire.Request{
		Operation: wire.OpGet,
		Subsystem: subsystem,
		Item:      item,
	})
	if err != nil {
		return wire.Value{}, err
	}
	return c.decodeResult(desc, resp, trailing)
}

// Set writes a property on the remote instrument.
func (c *Client) Set(ctx context.Context, subsystem, item string, value wire.Value) error {
	desc, err := c.registry.Lookup(subsystem, item)
	if err != nil {
		return err
	}
	if !desc.Writable() {
		return fmt.Errorf("%w: %s.%s is not writable", schema.ErrInvalidOperation, subsystem, item)
	}
	if value.Type != desc.Type {
		return fmt.Errorf("%s.%s wants %s, got %s", subsystem, item, desc.Type, value.Type)
	}

	payload, err := wire.EncodeValue(value)
	if err != nil {
		return err
	}
	_, _, err = c.roundTrip(ctx, &wire.Request{
		Operation: wire.OpSet,
		Subsystem: subsystem,
		Item:      item,
		Payload:   payload,
	})
	return err
}

// Call invokes a method on the remote instrument.
func (c *Client) Call(ctx context.Context, subsystem, item string, args wire.Args) (wire.Value, error) {
	desc, err := c.registry.Lookup(subsystem, item)
	if err != nil {
		return wire.Value{}, err
	}
	if !desc.IsMethod() {
		return wire.Value{}, fmt.Errorf("%w: %s.%s is not a method", schema.ErrInvalidOperation, subsystem, item)
	}

	payload, err := wire.EncodeArgs(args)
	if err != nil {
		return wire.Value{}, err
	}
	resp, trailing, err := c.roundTrip(ctx, &wire.Request{
		Operation: wire.OpCall,
		Subsystem: subsystem,
		Item:      item,
		Payload:   payload,
	})
	if err != nil {
		return wire.Value{}, err
	}
	return c.decodeResult(desc, resp, trailing)
}

// Ping sends a keepalive ping. The pong is consumed by the next
// round trip's receive loop.
func (c *Client) Ping(seq uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.broken {
		return ErrConnectionLost
	}
	return c.conn.SendPing(seq)
}

// KeepAliveStats reports liveness probing counters. The second return
// is false when probing is not enabled.
func (c *Client) KeepAliveStats() (transport.KeepAliveStats, bool) {
	if c.ka == nil {
		return transport.KeepAliveStats{}, false
	}
	return c.ka.Stats(), true
}

// probe performs one ping/pong exchange under the connection lock. A
// request in flight holds the lock, and a completed request already
// proves the link, so the probe is skipped when traffic was recent.
func (c *Client) probe(seq uint32, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.broken {
		return ErrConnectionLost
	}
	if interval := c.config.KeepAlive.ProbeInterval; time.Since(c.lastExchange) < interval {
		return nil
	}

	if err := c.conn.SendPing(seq); err != nil {
		c.broken = true
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimedOut
		}

		raw, err := c.conn.Receive(remaining)
		if err != nil {
			if isTimeout(err) {
				return ErrTimedOut
			}
			c.broken = true
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}

		msgType, err := wire.PeekMessageType(raw)
		if err != nil || msgType != wire.MessageTypeControl {
			// Stale response from an earlier exchange; drop it.
			continue
		}
		msg, err := wire.DecodeControlMessage(raw)
		if err != nil {
			continue
		}
		switch msg.Type {
		case wire.ControlPong:
			if msg.Sequence == seq {
				c.lastExchange = time.Now()
				return nil
			}
		case wire.ControlPing:
			if pong, err := transport.EncodePong(msg.Sequence); err == nil {
				c.conn.Send(pong)
			}
		}
	}
}

// onProbeFailure marks the connection broken once liveness probing
// gives up on it.
func (c *Client) onProbeFailure(err error) {
	c.mu.Lock()
	c.broken = true
	c.mu.Unlock()

	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerTransport,
		Category:  log.CategoryState,
		LocalRole: log.RoleClient,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: "CONNECTED",
			NewState: "UNREACHABLE",
		},
	})
}

// roundTrip sends one request and waits for its response. Exactly one
// round trip runs at a time; message IDs increase monotonically per
// connection and responses with stale IDs are discarded.
func (c *Client) roundTrip(ctx context.Context, req *wire.Request) (*wire.Response, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, nil, ErrConnectionLost
	}
	if c.broken {
		return nil, nil, fmt.Errorf("%w: reconnect required", ErrConnectionLost)
	}

	c.nextID++
	req.MessageID = c.nextID

	frame, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, nil, err
	}

	if err := c.conn.Send(frame); err != nil {
		c.broken = true
		return nil, nil, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	c.logMessage(req, nil, 0)

	start := time.Now()
	deadline := start.Add(c.config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			c.broken = true
			return nil, nil, ErrTimedOut
		}

		raw, err := c.conn.Receive(remaining)
		if err != nil {
			c.broken = true
			if isTimeout(err) {
				return nil, nil, ErrTimedOut
			}
			return nil, nil, fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}

		msgType, err := wire.PeekMessageType(raw)
		if err != nil {
			c.broken = true
			return nil, nil, fmt.Errorf("%w: undecodable frame", ErrConnectionLost)
		}
		if msgType == wire.MessageTypeControl {
			c.handleControl(raw)
			continue
		}

		resp, trailing, err := wire.DecodeResponse(raw)
		if err != nil {
			c.broken = true
			return nil, nil, fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}
		if resp.MessageID != req.MessageID {
			if resp.MessageID == wire.UnattributedMessageID {
				// The server could not decode our request envelope and
				// answered without an ID; it can only belong to the one
				// outstanding call.
				c.lastExchange = time.Now()
				c.logMessage(nil, resp, time.Since(start))
				return nil, nil, &StatusError{
					Status:  resp.Status,
					Message: wire.ExtractErrorMessage(resp.Payload),
				}
			}
			// Stale response from an earlier exchange; skip it.
			continue
		}

		c.lastExchange = time.Now()
		c.logMessage(nil, resp, time.Since(start))

		if !resp.IsSuccess() {
			return nil, nil, &StatusError{
				Status:  resp.Status,
				Message: wire.ExtractErrorMessage(resp.Payload),
			}
		}
		return resp, trailing, nil
	}
}

// decodeResult turns a success response into a typed value using the
// capability's declared type.
func (c *Client) decodeResult(desc *schema.Descriptor, resp *wire.Response, trailing []byte) (wire.Value, error) {
	if desc.Type == schema.TypeImage {
		if !resp.ImageFollows {
			return wire.Value{}, fmt.Errorf("%s.%s: expected image response", desc.Subsystem, desc.Item)
		}
		img, err := wire.DecodeImagePayload(resp.Payload, trailing)
		if err != nil {
			return wire.Value{}, fmt.Errorf("%s.%s: %w", desc.Subsystem, desc.Item, err)
		}
		return wire.ImageValue(img), nil
	}

	if desc.Type == schema.TypeNone {
		return wire.None(), nil
	}
	return wire.DecodeValue(resp.Payload, desc.Type, desc.Fields)
}

// handleControl answers pings and ignores everything else. Close from
// the server side surfaces as a read error on the next Receive.
func (c *Client) handleControl(raw []byte) {
	msg, err := wire.DecodeControlMessage(raw)
	if err != nil {
		return
	}
	if msg.Type == wire.ControlPing && c.conn != nil {
		pong, err := transport.EncodePong(msg.Sequence)
		if err == nil {
			c.conn.Send(pong)
		}
	}
}

func (c *Client) logMessage(req *wire.Request, resp *wire.Response, elapsed time.Duration) {
	event := log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerWire,
		Category:  log.CategoryMessage,
		LocalRole: log.RoleClient,
	}
	if req != nil {
		op := req.Operation
		event.Direction = log.DirectionOut
		event.Message = &log.MessageEvent{
			Type:      log.MessageTypeRequest,
			MessageID: req.MessageID,
			Operation: &op,
			Subsystem: req.Subsystem,
			Item:      req.Item,
		}
	} else {
		status := resp.Status
		event.Direction = log.DirectionIn
		event.Message = &log.MessageEvent{
			Type:           log.MessageTypeResponse,
			MessageID:      resp.MessageID,
			Status:         &status,
			ProcessingTime: &elapsed,
		}
	}
	c.logger.Log(event)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var nerr interface{ Timeout() bool }
	return errors.As(err, &nerr) && nerr.Timeout()
}

// Compile-time driver interface check.
var _ instrument.Driver = (*Client)(nil)
