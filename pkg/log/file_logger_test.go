package log

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/temscript/temscript-go/pkg/wire"
)

func tempLogPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "session.tlog")
}

// readAll drains a capture file into a slice.
func readAll(t *testing.T, path string) []Event {
	t.Helper()
	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	var events []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		events = append(events, e)
	}
}

func TestFileLoggerWritesReadableCapture(t *testing.T) {
	path := tempLogPath(t)

	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	op := wire.OpSet
	status := wire.StatusOK
	elapsed := 850 * time.Microsecond

	l.Log(Event{
		Timestamp:    time.Date(2026, 8, 12, 14, 0, 0, 0, time.UTC),
		ConnectionID: "conn-a",
		Direction:    DirectionIn,
		Layer:        LayerWire,
		Category:     CategoryMessage,
		LocalRole:    RoleServer,
		Message: &MessageEvent{
			Type:      MessageTypeRequest,
			MessageID: 1,
			Operation: &op,
			Subsystem: "illumination",
			Item:      "beam_shift",
		},
	})
	l.Log(Event{
		Timestamp:    time.Date(2026, 8, 12, 14, 0, 0, int(elapsed), time.UTC),
		ConnectionID: "conn-a",
		Direction:    DirectionOut,
		Layer:        LayerWire,
		Category:     CategoryMessage,
		LocalRole:    RoleServer,
		Message: &MessageEvent{
			Type:           MessageTypeResponse,
			MessageID:      1,
			Status:         &status,
			ProcessingTime: &elapsed,
		},
	})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := readAll(t, path)
	if len(events) != 2 {
		t.Fatalf("capture holds %d events, want 2", len(events))
	}

	req, resp := events[0], events[1]
	if req.Message == nil || req.Message.Item != "beam_shift" {
		t.Errorf("request event lost its target")
	}
	if req.Message.Operation == nil || *req.Message.Operation != wire.OpSet {
		t.Errorf("request operation not preserved")
	}
	if resp.Message == nil || resp.Message.Status == nil || *resp.Message.Status != wire.StatusOK {
		t.Errorf("response status not preserved")
	}
	if resp.Message.ProcessingTime == nil || *resp.Message.ProcessingTime != elapsed {
		t.Errorf("processing time not preserved")
	}
}

func TestFileLoggerAppendsToExistingCapture(t *testing.T) {
	path := tempLogPath(t)

	// First session.
	l1, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	e := stageRequestEvent()
	e.ConnectionID = "session-1"
	l1.Log(e)
	l1.Close()

	// Second session on the same file must extend, not truncate.
	l2, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger (reopen): %v", err)
	}
	e.ConnectionID = "session-2"
	l2.Log(e)
	l2.Close()

	events := readAll(t, path)
	if len(events) != 2 {
		t.Fatalf("capture holds %d events, want 2", len(events))
	}
	if events[0].ConnectionID != "session-1" || events[1].ConnectionID != "session-2" {
		t.Errorf("sessions out of order: %q, %q", events[0].ConnectionID, events[1].ConnectionID)
	}
}

func TestFileLoggerCloseSemantics(t *testing.T) {
	l, err := NewFileLogger(tempLogPath(t))
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}

	// Logging after Close must be a silent no-op.
	l.Log(stageRequestEvent())
}

func TestFileLoggerOpenError(t *testing.T) {
	if _, err := NewFileLogger(filepath.Join(t.TempDir(), "missing", "x.tlog")); err == nil {
		t.Fatal("NewFileLogger into missing directory succeeded")
	}
}

func TestFileLoggerConcurrentWriters(t *testing.T) {
	// The server logs from every connection's read loop at once.
	path := tempLogPath(t)
	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				e := stageRequestEvent()
				e.ConnectionID = fmt.Sprintf("conn-%d", w)
				l.Log(e)
			}
		}(w)
	}
	wg.Wait()
	l.Close()

	// Interleaved writes must never corrupt the stream.
	events := readAll(t, path)
	if len(events) != writers*perWriter {
		t.Errorf("capture holds %d events, want %d", len(events), writers*perWriter)
	}
}
