package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/temscript/temscript-go/pkg/log"
)

// Each frame on the wire is a 4-byte big-endian payload length followed
// by the payload, which is one CBOR envelope (optionally with trailing
// pixel data appended by the image codec).
const (
	// frameHeaderLen is the size of the length prefix.
	frameHeaderLen = 4

	// DefaultMaxMessageSize caps a single frame payload at 64 MB. A
	// 4096x4096 16-bit camera readout is 32 MB before the envelope, so
	// the default leaves headroom for one full-chip acquisition per
	// frame.
	DefaultMaxMessageSize = 64 << 20

	// frameLogCap bounds how much payload a transport log event keeps.
	// Image frames would otherwise drag megabytes into the log file.
	frameLogCap = 4096
)

// Framing errors.
var (
	ErrFrameTooLarge  = errors.New("frame exceeds message size limit")
	ErrFrameEmpty     = errors.New("frame has no payload")
	ErrFrameTruncated = errors.New("frame truncated")
)

// Framer reads and writes length-prefixed frames over a byte stream.
// The read and write sides are locked independently, so one goroutine
// may block in ReadFrame while another calls WriteFrame.
type Framer struct {
	r     io.Reader
	w     io.Writer
	limit uint32

	readMu  sync.Mutex
	writeMu sync.Mutex
	head    [frameHeaderLen]byte

	logger log.Logger
	connID string
}

// NewFramer creates a framer with the default message size limit.
func NewFramer(rw io.ReadWriter) *Framer {
	return NewFramerWithMaxSize(rw, DefaultMaxMessageSize)
}

// NewFramerWithMaxSize creates a framer that rejects frames larger than
// limit bytes. A zero limit selects DefaultMaxMessageSize.
func NewFramerWithMaxSize(rw io.ReadWriter, limit uint32) *Framer {
	if limit == 0 {
		limit = DefaultMaxMessageSize
	}
	return &Framer{r: rw, w: rw, limit: limit}
}

// SetLogger attaches a protocol logger. Frame events carry the
// connection ID so the log tooling can group one session's traffic.
// Pass nil to disable.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.logger = logger
	f.connID = connID
}

// WriteFrame writes one frame. Safe for concurrent use; each frame is
// written atomically with respect to other WriteFrame calls.
func (f *Framer) WriteFrame(payload []byte) error {
	if len(payload) == 0 {
		return ErrFrameEmpty
	}
	if uint32(len(payload)) > f.limit {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(payload), f.limit)
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	var head [frameHeaderLen]byte
	binary.BigEndian.PutUint32(head[:], uint32(len(payload)))
	if _, err := f.w.Write(head[:]); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if _, err := f.w.Write(payload); err != nil {
		return fmt.Errorf("writing frame payload: %w", err)
	}

	f.logFrame(payload, log.DirectionOut)
	return nil
}

// ReadFrame reads one frame and returns its payload without the length
// prefix. io.EOF means the peer closed cleanly between frames; a close
// mid-frame surfaces as ErrFrameTruncated.
func (f *Framer) ReadFrame() ([]byte, error) {
	f.readMu.Lock()
	defer f.readMu.Unlock()

	if _, err := io.ReadFull(f.r, f.head[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("reading frame header: %w", err)
	}

	n := binary.BigEndian.Uint32(f.head[:])
	if n == 0 {
		return nil, ErrFrameEmpty
	}
	if n > f.limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, f.limit)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(f.r, payload); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("reading frame payload: %w", err)
	}

	f.logFrame(payload, log.DirectionIn)
	return payload, nil
}

// logFrame emits a transport-layer event for one frame, keeping at most
// frameLogCap bytes of payload.
func (f *Framer) logFrame(payload []byte, dir log.Direction) {
	if f.logger == nil {
		return
	}

	kept := payload
	truncated := false
	if len(kept) > frameLogCap {
		kept = kept[:frameLogCap]
		truncated = true
	}

	f.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: f.connID,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      frameHeaderLen + len(payload),
			Data:      kept,
			Truncated: truncated,
		},
	})
}
