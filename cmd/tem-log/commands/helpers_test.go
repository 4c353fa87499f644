package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/temscript/temscript-go/pkg/log"
	"github.com/temscript/temscript-go/pkg/wire"
)

// writeTestLog writes a small log file with a representative mix of
// events and returns its path.
func writeTestLog(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.tlog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("creating file logger: %v", err)
	}
	defer logger.Close()

	base := time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)
	connA := "aaaa1111-2222-3333-4444-555566667777"
	connB := "bbbb1111-2222-3333-4444-555566667777"

	op := wire.OpGet
	statusOK := wire.StatusOK
	processing := 1800 * time.Microsecond
	imageBytes := 512

	events := []log.Event{
		{
			Timestamp:    base,
			ConnectionID: connA,
			Direction:    log.DirectionIn,
			Layer:        log.LayerTransport,
			Category:     log.CategoryMessage,
			LocalRole:    log.RoleServer,
			RemoteAddr:   "10.0.0.5:51234",
			Frame:        &log.FrameEvent{Size: 32, Data: []byte{0xa5, 0x01}},
		},
		{
			Timestamp:    base.Add(time.Millisecond),
			ConnectionID: connA,
			Direction:    log.DirectionIn,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			LocalRole:    log.RoleServer,
			Message: &log.MessageEvent{
				Type:      log.MessageTypeRequest,
				MessageID: 1,
				Operation: &op,
				Subsystem: "stage",
				Item:      "position",
			},
		},
		{
			Timestamp:    base.Add(3 * time.Millisecond),
			ConnectionID: connA,
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			LocalRole:    log.RoleServer,
			Message: &log.MessageEvent{
				Type:           log.MessageTypeResponse,
				MessageID:      1,
				Status:         &statusOK,
				ProcessingTime: &processing,
			},
		},
		{
			Timestamp:    base.Add(5 * time.Millisecond),
			ConnectionID: connB,
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			LocalRole:    log.RoleServer,
			Message: &log.MessageEvent{
				Type:       log.MessageTypeResponse,
				MessageID:  2,
				Status:     &statusOK,
				ImageBytes: &imageBytes,
			},
		},
		{
			Timestamp:    base.Add(6 * time.Millisecond),
			ConnectionID: connB,
			Direction:    log.DirectionOut,
			Layer:        log.LayerTransport,
			Category:     log.CategoryControl,
			LocalRole:    log.RoleServer,
			ControlMsg:   &log.ControlMsgEvent{Type: wire.ControlPing, Sequence: 1},
		},
		{
			Timestamp:    base.Add(8 * time.Millisecond),
			ConnectionID: connB,
			Direction:    log.DirectionIn,
			Layer:        log.LayerTransport,
			Category:     log.CategoryError,
			LocalRole:    log.RoleServer,
			Error: &log.ErrorEventData{
				Layer:   log.LayerTransport,
				Message: "connection reset by peer",
			},
		},
	}

	for _, e := range events {
		logger.Log(e)
	}
	return path
}
