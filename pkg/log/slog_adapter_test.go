package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/temscript/temscript-go/pkg/wire"
)

// newTextSlog returns an slog logger at debug level writing into buf.
func newTextSlog(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestSlogAdapterRequestAttrs(t *testing.T) {
	var buf bytes.Buffer
	a := NewSlogAdapter(newTextSlog(&buf))

	op := wire.OpCall
	a.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-42",
		Direction:    DirectionIn,
		Layer:        LayerWire,
		Category:     CategoryMessage,
		Message: &MessageEvent{
			Type:      MessageTypeRequest,
			MessageID: 9,
			Operation: &op,
			Subsystem: "stage",
			Item:      "go_to",
		},
	})

	out := buf.String()
	for _, want := range []string{
		"conn_id=conn-42",
		"direction=IN",
		"layer=WIRE",
		"msg_type=REQUEST",
		"msg_id=9",
		"operation=CALL",
		"subsystem=stage",
		"item=go_to",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSlogAdapterResponseAttrs(t *testing.T) {
	var buf bytes.Buffer
	a := NewSlogAdapter(newTextSlog(&buf))

	status := wire.StatusDriverFault
	elapsed := 12 * time.Millisecond
	imgBytes := 524288
	a.Log(Event{
		Timestamp: time.Now(),
		Direction: DirectionOut,
		Layer:     LayerWire,
		Category:  CategoryMessage,
		Message: &MessageEvent{
			Type:           MessageTypeResponse,
			MessageID:      9,
			Status:         &status,
			ImageBytes:     &imgBytes,
			ProcessingTime: &elapsed,
		},
	})

	out := buf.String()
	for _, want := range []string{
		"msg_type=RESPONSE",
		"status=DRIVER_FAULT",
		"image_bytes=524288",
		"processing_time=12ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSlogAdapterFrameAndControl(t *testing.T) {
	var buf bytes.Buffer
	a := NewSlogAdapter(newTextSlog(&buf))

	a.Log(Event{
		Direction: DirectionOut,
		Layer:     LayerTransport,
		Category:  CategoryMessage,
		Frame:     &FrameEvent{Size: 5120, Truncated: true},
	})
	a.Log(Event{
		Direction:  DirectionIn,
		Layer:      LayerTransport,
		Category:   CategoryControl,
		ControlMsg: &ControlMsgEvent{Type: wire.ControlPing, Sequence: 17},
	})

	out := buf.String()
	for _, want := range []string{
		"frame_size=5120",
		"truncated=true",
		"ctrl_type=ping",
		"sequence=17",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSlogAdapterStateAndError(t *testing.T) {
	var buf bytes.Buffer
	a := NewSlogAdapter(newTextSlog(&buf))

	a.Log(Event{
		Layer:    LayerService,
		Category: CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityDriver,
			OldState: "ready",
			NewState: "lost",
			Reason:   "COM server vanished",
		},
	})
	code := 5
	a.Log(Event{
		Layer:    LayerTransport,
		Category: CategoryError,
		Error: &ErrorEventData{
			Layer:   LayerTransport,
			Message: "connection reset",
			Code:    &code,
			Context: "sending response",
		},
	})

	out := buf.String()
	for _, want := range []string{
		"entity=DRIVER",
		"old_state=ready",
		"new_state=lost",
		"error_msg=\"connection reset\"",
		"error_code=5",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSlogAdapterHonorsLevel(t *testing.T) {
	// Protocol events go out at debug; an info-level logger drops them.
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	NewSlogAdapter(logger).Log(stageRequestEvent())
	if buf.Len() != 0 {
		t.Errorf("debug event emitted at info level: %s", buf.String())
	}
}

func TestSlogAdapterJSONShape(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewSlogAdapter(logger).Log(stageRequestEvent())

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not one JSON record: %v", err)
	}
	if record["msg"] != "protocol" {
		t.Errorf("msg = %v, want protocol", record["msg"])
	}
	if record["subsystem"] != "stage" {
		t.Errorf("subsystem = %v, want stage", record["subsystem"])
	}
}
