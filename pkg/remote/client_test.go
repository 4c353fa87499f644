package remote

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temscript/temscript-go/pkg/dispatch"
	"github.com/temscript/temscript-go/pkg/instrument/sim"
	"github.com/temscript/temscript-go/pkg/log"
	"github.com/temscript/temscript-go/pkg/schema"
	"github.com/temscript/temscript-go/pkg/transport"
	"github.com/temscript/temscript-go/pkg/wire"
)

// startSimServer runs a dispatch server backed by the simulator on an
// ephemeral port.
func startSimServer(t *testing.T) *dispatch.Server {
	t.Helper()

	driver := sim.New()
	server, err := dispatch.NewServer(dispatch.Config{
		Address: "127.0.0.1:0",
		Driver:  driver,
	})
	require.NoError(t, err)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() {
		server.Stop()
		driver.Close()
	})
	return server
}

func dialTest(t *testing.T, address string) *Client {
	t.Helper()
	client, err := Dial(context.Background(), Config{
		Address: address,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestGetStagePosition(t *testing.T) {
	server := startSimServer(t)
	client := dialTest(t, server.Addr().String())

	v, err := client.Get(context.Background(), "stage", "position")
	require.NoError(t, err)
	require.Len(t, v.Tuple, 3)
}

func TestSetBeamShiftRoundTrip(t *testing.T) {
	server := startSimServer(t)
	client := dialTest(t, server.Addr().String())
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "illumination", "beam_shift", wire.Vec2(0.0, 1.02)))

	v, err := client.Get(ctx, "illumination", "beam_shift")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.0, 1.02}, v.Tuple)
}

func TestCallStageGoTo(t *testing.T) {
	server := startSimServer(t)
	client := dialTest(t, server.Addr().String())
	ctx := context.Background()

	_, err := client.Call(ctx, "stage", "go_to", wire.Args{
		{Name: "x", Value: wire.Float(-30.0)},
		{Name: "y", Value: wire.Float(25.5)},
	})
	require.NoError(t, err)

	v, err := client.Get(ctx, "stage", "position")
	require.NoError(t, err)
	assert.Equal(t, []float64{-30.0, 25.5, 0.0}, v.Tuple)
}

func TestAcquireImage(t *testing.T) {
	server := startSimServer(t)
	client := dialTest(t, server.Addr().String())

	v, err := client.Call(context.Background(), "acquisition", "acquire_tem_image", wire.Args{
		{Name: "camera", Value: wire.Str("BM-Ceta")},
		{Name: "binning", Value: wire.Int(4)},
	})
	require.NoError(t, err)
	require.NotNil(t, v.Img)

	img := v.Img
	assert.Equal(t, uint32(1024), img.Header.Width)
	assert.Equal(t, uint32(1024), img.Header.Height)
	assert.NoError(t, img.Validate())
}

func TestServerFaultKeepsConnectionUsable(t *testing.T) {
	server := startSimServer(t)
	client := dialTest(t, server.Addr().String())
	ctx := context.Background()

	_, err := client.Call(ctx, "acquisition", "acquire_tem_image", wire.Args{
		{Name: "camera", Value: wire.Str("NoSuchCamera")},
	})
	se, ok := AsStatusError(err)
	require.True(t, ok, "want StatusError, got %v", err)
	assert.Equal(t, wire.StatusDriverFault, se.Status)

	// The connection survives the fault.
	v, err := client.Get(ctx, "vacuum", "status")
	require.NoError(t, err)
	assert.NotZero(t, v.Int)
}

func TestLocalValidation(t *testing.T) {
	server := startSimServer(t)
	client := dialTest(t, server.Addr().String())
	ctx := context.Background()

	// Unknown capability fails before any frame is sent.
	_, err := client.Get(ctx, "stage", "no_such_item")
	require.Error(t, err)
	_, ok := AsStatusError(err)
	assert.False(t, ok, "local validation must not produce a StatusError")

	// SET against a read-only property.
	err = client.Set(ctx, "stage", "position", wire.Vec3(0, 0, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalidOperation)
	assert.Contains(t, err.Error(), "not writable")

	// CALL against a property.
	_, err = client.Call(ctx, "gun", "voltage", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalidOperation)

	// GET against a method.
	_, err = client.Get(ctx, "vacuum", "run_buffer_cycle")
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalidOperation)

	// Value type mismatch.
	err = client.Set(ctx, "illumination", "beam_shift", wire.Float(1.0))
	require.Error(t, err)
	assert.NotErrorIs(t, err, schema.ErrInvalidOperation)
}

func TestStatusErrorMessage(t *testing.T) {
	e := &StatusError{Status: wire.StatusBusy, Message: "refill running"}
	assert.Equal(t, "BUSY: refill running", e.Error())

	e = &StatusError{Status: wire.StatusTimeout}
	assert.Equal(t, "TIMEOUT", e.Error())
}

func TestTruncatedImageResponse(t *testing.T) {
	// A server that chops the pixel segment short.
	ts, err := transport.NewServer(transport.ServerConfig{
		Address: "127.0.0.1:0",
		OnMessage: func(conn *transport.ServerConn, msg []byte) {
			req, err := wire.DecodeRequest(msg)
			if err != nil {
				return
			}
			img := &wire.Image{
				Header: wire.ImageHeader{
					Width: 8, Height: 8, BitDepth: 16, Encoding: wire.EncodingUint16,
				},
				Pixels: make([]byte, 8*8*2),
			}
			frame, err := wire.EncodeImageResponse(req.MessageID, img)
			if err != nil {
				return
			}
			conn.Send(frame[:len(frame)-10])
		},
	})
	require.NoError(t, err)
	require.NoError(t, ts.Start(context.Background()))
	defer ts.Stop()

	client := dialTest(t, ts.Addr().String())

	_, err = client.Call(context.Background(), "acquisition", "acquire_tem_image", wire.Args{
		{Name: "camera", Value: wire.Str("BM-Ceta")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, wire.ErrTruncatedPayload)
}

func TestTimeoutThenReconnect(t *testing.T) {
	// A server that never answers.
	ts, err := transport.NewServer(transport.ServerConfig{
		Address:   "127.0.0.1:0",
		OnMessage: func(conn *transport.ServerConn, msg []byte) {},
	})
	require.NoError(t, err)
	require.NoError(t, ts.Start(context.Background()))
	defer ts.Stop()

	client, err := Dial(context.Background(), Config{
		Address: ts.Addr().String(),
		Timeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Get(context.Background(), "stage", "position")
	assert.ErrorIs(t, err, ErrTimedOut)

	// After a timeout the stream is not trusted.
	_, err = client.Get(context.Background(), "stage", "position")
	assert.ErrorIs(t, err, ErrConnectionLost)

	// Reconnect restores service (against a real server this time).
	sim := startSimServer(t)
	client.config.Address = sim.Addr().String()
	require.NoError(t, client.Reconnect(context.Background()))

	v, err := client.Get(context.Background(), "stage", "position")
	require.NoError(t, err)
	assert.Len(t, v.Tuple, 3)
}

func TestDialRefused(t *testing.T) {
	_, err := Dial(context.Background(), Config{
		Address: "127.0.0.1:1",
		Timeout: time.Second,
	})
	require.Error(t, err)
}

func TestContextDeadlineWins(t *testing.T) {
	ts, err := transport.NewServer(transport.ServerConfig{
		Address:   "127.0.0.1:0",
		OnMessage: func(conn *transport.ServerConn, msg []byte) {},
	})
	require.NoError(t, err)
	require.NoError(t, ts.Start(context.Background()))
	defer ts.Stop()

	client := dialTest(t, ts.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = client.Get(ctx, "stage", "position")
	require.True(t, errors.Is(err, ErrTimedOut), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestKeepAliveProbesIdleConnection(t *testing.T) {
	server := startSimServer(t)

	client, err := Dial(context.Background(), Config{
		Address: server.Addr().String(),
		Timeout: 5 * time.Second,
		KeepAlive: &transport.KeepAliveConfig{
			ProbeInterval: 20 * time.Millisecond,
			ProbeTimeout:  time.Second,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	// Let the connection sit idle long enough for probes to fire.
	var stats transport.KeepAliveStats
	require.Eventually(t, func() bool {
		var ok bool
		stats, ok = client.KeepAliveStats()
		return ok && !stats.LastSuccess.IsZero()
	}, 2*time.Second, 10*time.Millisecond, "no probe succeeded")
	assert.Zero(t, stats.MissedProbes)

	// Probing must not disturb regular traffic.
	v, err := client.Get(context.Background(), "stage", "position")
	require.NoError(t, err)
	assert.Len(t, v.Tuple, 3)
}

func TestKeepAliveDetectsDeadServer(t *testing.T) {
	driver := sim.New()
	server, err := dispatch.NewServer(dispatch.Config{
		Address: "127.0.0.1:0",
		Driver:  driver,
	})
	require.NoError(t, err)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(func() { driver.Close() })

	client, err := Dial(context.Background(), Config{
		Address: server.Addr().String(),
		Timeout: 5 * time.Second,
		KeepAlive: &transport.KeepAliveConfig{
			ProbeInterval:   20 * time.Millisecond,
			ProbeTimeout:    250 * time.Millisecond,
			MaxMissedProbes: 1,
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, server.Stop())

	require.Eventually(t, func() bool {
		_, err := client.Get(context.Background(), "stage", "position")
		return errors.Is(err, ErrConnectionLost)
	}, 3*time.Second, 50*time.Millisecond, "connection never marked lost")
}

func TestKeepAliveDisabledByDefault(t *testing.T) {
	server := startSimServer(t)
	client := dialTest(t, server.Addr().String())

	_, ok := client.KeepAliveStats()
	assert.False(t, ok)
}

// scriptedConn satisfies transport.RequestConn in memory: every request
// sent through it is answered by the reply function on the next Receive.
type scriptedConn struct {
	mu     sync.Mutex
	reply  func(req *wire.Request) *wire.Response
	queue  [][]byte
	pings  []uint32
	closed bool
}

func (f *scriptedConn) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}
}

func (f *scriptedConn) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, err := wire.DecodeRequest(data)
	if err != nil {
		return err
	}
	frame, err := wire.EncodeResponse(f.reply(req))
	if err != nil {
		return err
	}
	f.queue = append(f.queue, frame)
	return nil
}

func (f *scriptedConn) Receive(timeout time.Duration) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.queue) == 0 {
		return nil, io.EOF
	}
	frame := f.queue[0]
	f.queue = f.queue[1:]
	return frame, nil
}

func (f *scriptedConn) SendPing(seq uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings = append(f.pings, seq)
	return nil
}

func (f *scriptedConn) SendClose() error { return nil }

func (f *scriptedConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestClientOverScriptedTransport(t *testing.T) {
	conn := &scriptedConn{
		reply: func(req *wire.Request) *wire.Response {
			payload, err := wire.EncodeValue(wire.Float(200e3))
			require.NoError(t, err)
			return &wire.Response{MessageID: req.MessageID, Status: wire.StatusOK, Payload: payload}
		},
	}
	client := &Client{
		config:   Config{Timeout: time.Second},
		registry: schema.Default(),
		logger:   log.NoopLogger{},
		conn:     conn,
	}

	v, err := client.Get(context.Background(), "gun", "voltage")
	require.NoError(t, err)
	assert.Equal(t, 200e3, v.Num)

	require.NoError(t, client.Close())
	assert.True(t, conn.closed)
}

func TestUnattributedErrorFailsPendingCall(t *testing.T) {
	// A server that cannot decode the request envelope answers on the
	// reserved unattributed ID; the pending call must fail with that
	// status instead of waiting out the timeout.
	conn := &scriptedConn{
		reply: func(req *wire.Request) *wire.Response {
			return &wire.Response{
				MessageID: wire.UnattributedMessageID,
				Status:    wire.StatusMalformedValue,
				Payload:   wire.ErrorPayload{Message: "undecodable request"},
			}
		},
	}
	client := &Client{
		config:   Config{Timeout: 30 * time.Second},
		registry: schema.Default(),
		logger:   log.NoopLogger{},
		conn:     conn,
	}

	start := time.Now()
	_, err := client.Get(context.Background(), "gun", "voltage")
	require.Error(t, err)

	se, ok := AsStatusError(err)
	require.True(t, ok, "expected a StatusError, got %v", err)
	assert.Equal(t, wire.StatusMalformedValue, se.Status)
	assert.Equal(t, "undecodable request", se.Message)
	assert.Less(t, time.Since(start), 5*time.Second, "call must fail fast")
}
