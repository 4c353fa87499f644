package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/temscript/temscript-go/pkg/instrument"
	"github.com/temscript/temscript-go/pkg/log"
	"github.com/temscript/temscript-go/pkg/schema"
	"github.com/temscript/temscript-go/pkg/wire"
)

// DefaultOperationTimeout bounds a single driver invocation. Stage
// moves and long exposures are the slow cases.
const DefaultOperationTimeout = 60 * time.Second

// Dispatcher routes decoded requests to the instrument driver.
type Dispatcher struct {
	registry *schema.Registry
	driver   instrument.Driver
	logger   log.Logger
	timeout  time.Duration

	// driverMu serializes driver invocations across all connections.
	driverMu sync.Mutex

	// lost latches once the driver reports a lost handle.
	lost atomic.Bool

	// ready gates non-PreInit capabilities during instrument startup.
	ready atomic.Bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the protocol logger.
func WithLogger(logger log.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithTimeout sets the per-operation driver timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// NewDispatcher creates a dispatcher over the given catalog and driver.
// The dispatcher starts in the ready state; servers that need a startup
// phase call SetReady(false) first.
func NewDispatcher(registry *schema.Registry, driver instrument.Driver, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		driver:   driver,
		logger:   log.NoopLogger{},
		timeout:  DefaultOperationTimeout,
	}
	d.ready.Store(true)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetReady flips the instrument-initialized gate. While not ready, only
// capabilities flagged PreInit are served; everything else answers BUSY.
func (d *Dispatcher) SetReady(ready bool) {
	d.ready.Store(ready)
}

// DriverLost reports whether the driver handle has been lost.
func (d *Dispatcher) DriverLost() bool {
	return d.lost.Load()
}

// HandleFrame processes one raw request frame and returns the encoded
// response frame. It never returns an empty frame: protocol errors
// become error responses.
func (d *Dispatcher) HandleFrame(ctx context.Context, connID string, frame []byte) []byte {
	start := time.Now()

	req, err := wire.DecodeRequest(frame)
	if err != nil {
		// The envelope itself is broken; answer with what little can be
		// recovered so the client's pending call fails fast.
		resp := errorResponse(peekMessageID(frame), wire.StatusMalformedValue, err.Error())
		return d.encodeResponse(connID, resp, nil, start)
	}

	d.logRequest(connID, req)

	resp, img := d.handle(ctx, req)
	return d.encodeResponse(connID, resp, img, start)
}

// handle validates and executes one request.
func (d *Dispatcher) handle(ctx context.Context, req *wire.Request) (*wire.Response, *wire.Image) {
	if d.lost.Load() {
		return errorResponse(req.MessageID, wire.StatusDriverLost, "instrument driver handle lost"), nil
	}

	desc, err := d.registry.Lookup(req.Subsystem, req.Item)
	if err != nil {
		return errorResponse(req.MessageID, wire.StatusUnknownCapability, err.Error()), nil
	}

	if !d.ready.Load() && !desc.PreInit {
		return errorResponse(req.MessageID, wire.StatusBusy, "instrument is initializing"), nil
	}

	switch req.Operation {
	case wire.OpGet:
		return d.handleGet(ctx, req, desc)
	case wire.OpSet:
		return d.handleSet(ctx, req, desc), nil
	case wire.OpCall:
		return d.handleCall(ctx, req, desc)
	default:
		return errorResponse(req.MessageID, wire.StatusInvalidOperation,
			"unknown operation"), nil
	}
}

func (d *Dispatcher) handleGet(ctx context.Context, req *wire.Request, desc *schema.Descriptor) (*wire.Response, *wire.Image) {
	if !desc.Readable() {
		return errorResponse(req.MessageID, wire.StatusInvalidOperation,
			"GET on non-readable capability "+desc.Subsystem+"."+desc.Item), nil
	}

	v, err := d.invoke(ctx, func(ctx context.Context) (wire.Value, error) {
		return d.driver.Get(ctx, req.Subsystem, req.Item)
	})
	if err != nil {
		return d.faultResponse(req.MessageID, err), nil
	}
	return d.successResponse(req.MessageID, v)
}

func (d *Dispatcher) handleSet(ctx context.Context, req *wire.Request, desc *schema.Descriptor) *wire.Response {
	if !desc.Writable() {
		return errorResponse(req.MessageID, wire.StatusInvalidOperation,
			"SET on read-only capability "+desc.Subsystem+"."+desc.Item)
	}

	value, err := wire.DecodeValue(req.Payload, desc.Type, desc.Fields)
	if err != nil {
		return errorResponse(req.MessageID, wire.StatusMalformedValue, err.Error())
	}

	_, err = d.invoke(ctx, func(ctx context.Context) (wire.Value, error) {
		return wire.None(), d.driver.Set(ctx, req.Subsystem, req.Item, value)
	})
	if err != nil {
		return d.faultResponse(req.MessageID, err)
	}
	return &wire.Response{MessageID: req.MessageID, Status: wire.StatusOK}
}

func (d *Dispatcher) handleCall(ctx context.Context, req *wire.Request, desc *schema.Descriptor) (*wire.Response, *wire.Image) {
	if !desc.IsMethod() {
		return errorResponse(req.MessageID, wire.StatusInvalidOperation,
			"CALL on property "+desc.Subsystem+"."+desc.Item), nil
	}

	args, err := wire.DecodeArgs(req.Payload, desc.Params)
	if err != nil {
		return errorResponse(req.MessageID, wire.StatusMalformedValue, err.Error()), nil
	}

	v, err := d.invoke(ctx, func(ctx context.Context) (wire.Value, error) {
		return d.driver.Call(ctx, req.Subsystem, req.Item, args)
	})
	if err != nil {
		return d.faultResponse(req.MessageID, err), nil
	}
	return d.successResponse(req.MessageID, v)
}

// invoke runs one driver operation under the serialization mutex with
// the per-operation timeout applied.
func (d *Dispatcher) invoke(ctx context.Context, op func(context.Context) (wire.Value, error)) (wire.Value, error) {
	d.driverMu.Lock()
	defer d.driverMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	return op(ctx)
}

// successResponse builds an OK response, splitting out image results.
func (d *Dispatcher) successResponse(messageID uint32, v wire.Value) (*wire.Response, *wire.Image) {
	if v.Type == schema.TypeImage {
		return &wire.Response{MessageID: messageID, Status: wire.StatusOK, ImageFollows: true}, v.Img
	}
	payload, err := wire.EncodeValue(v)
	if err != nil {
		return errorResponse(messageID, wire.StatusDriverFault,
			"driver returned unencodable value: "+err.Error()), nil
	}
	return &wire.Response{MessageID: messageID, Status: wire.StatusOK, Payload: payload}, nil
}

// faultResponse maps driver errors onto protocol statuses.
func (d *Dispatcher) faultResponse(messageID uint32, err error) *wire.Response {
	if errors.Is(err, context.DeadlineExceeded) {
		return errorResponse(messageID, wire.StatusTimeout, "operation timed out")
	}

	if f, ok := instrument.AsFault(err); ok {
		switch f.Reason {
		case instrument.ReasonBusy:
			return errorResponse(messageID, wire.StatusBusy, f.Message)
		case instrument.ReasonLost:
			d.markLost(f.Message)
			return errorResponse(messageID, wire.StatusDriverLost, f.Message)
		}
	}

	return errorResponse(messageID, wire.StatusDriverFault, err.Error())
}

func (d *Dispatcher) markLost(reason string) {
	if d.lost.Swap(true) {
		return
	}
	d.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerService,
		Category:  log.CategoryState,
		LocalRole: log.RoleServer,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityDriver,
			OldState: "ready",
			NewState: "lost",
			Reason:   reason,
		},
	})
}

func errorResponse(messageID uint32, status wire.Status, message string) *wire.Response {
	return &wire.Response{
		MessageID: messageID,
		Status:    status,
		Payload:   &wire.ErrorPayload{Message: message},
	}
}

// encodeResponse encodes the response (with trailing pixel segment for
// images) and logs it.
func (d *Dispatcher) encodeResponse(connID string, resp *wire.Response, img *wire.Image, start time.Time) []byte {
	var frame []byte
	var err error

	if img != nil {
		frame, err = wire.EncodeImageResponse(resp.MessageID, img)
	} else {
		frame, err = wire.EncodeResponse(resp)
	}
	if err != nil {
		// Encoding our own response failed; degrade to a bare fault.
		fallback := errorResponse(resp.MessageID, wire.StatusDriverFault, "response encoding failed")
		frame, _ = wire.EncodeResponse(fallback)
		resp = fallback
	}

	d.logResponse(connID, resp, img, time.Since(start))
	return frame
}

func (d *Dispatcher) logRequest(connID string, req *wire.Request) {
	op := req.Operation
	d.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleServer,
		Message: &log.MessageEvent{
			Type:      log.MessageTypeRequest,
			MessageID: req.MessageID,
			Operation: &op,
			Subsystem: req.Subsystem,
			Item:      req.Item,
		},
	})
}

func (d *Dispatcher) logResponse(connID string, resp *wire.Response, img *wire.Image, elapsed time.Duration) {
	status := resp.Status
	msg := &log.MessageEvent{
		Type:           log.MessageTypeResponse,
		MessageID:      resp.MessageID,
		Status:         &status,
		ProcessingTime: &elapsed,
	}
	if img != nil {
		n := len(img.Pixels)
		msg.ImageBytes = &n
	}
	d.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    log.DirectionOut,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleServer,
		Message:      msg,
	})
}

// peekMessageID best-effort extracts the message ID from a frame that
// failed full decoding. IDs that cannot be recovered, or that collide
// with the control ID, become UnattributedMessageID: answering on the
// control ID would make the client's control handler swallow the error.
func peekMessageID(frame []byte) uint32 {
	var peek struct {
		MessageID uint32 `cbor:"1,keyasint"`
	}
	if err := wire.Unmarshal(frame, &peek); err != nil {
		return wire.UnattributedMessageID
	}
	if peek.MessageID == wire.ControlMessageID {
		return wire.UnattributedMessageID
	}
	return peek.MessageID
}
