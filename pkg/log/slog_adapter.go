package log

import (
	"context"
	"log/slog"
)

// SlogAdapter mirrors protocol events into an slog.Logger at debug
// level, which is handy while developing against the simulator. For
// anything that needs replaying later, capture to a FileLogger
// instead; the slog rendering is lossy.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps an slog.Logger as an event sink.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log renders the event as one debug record named "protocol".
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	switch {
	case event.Frame != nil:
		attrs = appendFrameAttrs(attrs, event.Frame)
	case event.Message != nil:
		attrs = appendMessageAttrs(attrs, event.Message)
	case event.StateChange != nil:
		attrs = appendStateAttrs(attrs, event.StateChange)
	case event.ControlMsg != nil:
		attrs = appendControlAttrs(attrs, event.ControlMsg)
	case event.Error != nil:
		attrs = appendErrorAttrs(attrs, event.Error)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

func appendFrameAttrs(attrs []slog.Attr, f *FrameEvent) []slog.Attr {
	return append(attrs,
		slog.Int("frame_size", f.Size),
		slog.Bool("truncated", f.Truncated),
	)
}

func appendMessageAttrs(attrs []slog.Attr, m *MessageEvent) []slog.Attr {
	attrs = append(attrs,
		slog.Uint64("msg_id", uint64(m.MessageID)),
		slog.String("msg_type", m.Type.String()),
	)
	if m.Operation != nil {
		attrs = append(attrs, slog.String("operation", m.Operation.String()))
	}
	if m.Subsystem != "" {
		attrs = append(attrs, slog.String("subsystem", m.Subsystem))
	}
	if m.Item != "" {
		attrs = append(attrs, slog.String("item", m.Item))
	}
	if m.Status != nil {
		attrs = append(attrs, slog.String("status", m.Status.String()))
	}
	if m.ImageBytes != nil {
		attrs = append(attrs, slog.Int("image_bytes", *m.ImageBytes))
	}
	if m.ProcessingTime != nil {
		attrs = append(attrs, slog.Duration("processing_time", *m.ProcessingTime))
	}
	return attrs
}

func appendStateAttrs(attrs []slog.Attr, sc *StateChangeEvent) []slog.Attr {
	attrs = append(attrs,
		slog.String("entity", sc.Entity.String()),
		slog.String("old_state", sc.OldState),
		slog.String("new_state", sc.NewState),
	)
	if sc.Reason != "" {
		attrs = append(attrs, slog.String("reason", sc.Reason))
	}
	return attrs
}

func appendControlAttrs(attrs []slog.Attr, cm *ControlMsgEvent) []slog.Attr {
	return append(attrs,
		slog.String("ctrl_type", cm.Type.String()),
		slog.Uint64("sequence", uint64(cm.Sequence)),
	)
}

func appendErrorAttrs(attrs []slog.Attr, e *ErrorEventData) []slog.Attr {
	attrs = append(attrs,
		slog.String("error_layer", e.Layer.String()),
		slog.String("error_msg", e.Message),
		slog.String("error_context", e.Context),
	)
	if e.Code != nil {
		attrs = append(attrs, slog.Int("error_code", *e.Code))
	}
	return attrs
}

var _ Logger = (*SlogAdapter)(nil)
