// Package commands implements the tem-log CLI commands.
package commands

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/temscript/temscript-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, log.Filter{
		Layer:     filter.Layer,
		Direction: filter.Direction,
		Category:  filter.Category,
	})
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
}

// eventPrinter renders one event as an indented field list under a
// single header line.
type eventPrinter struct {
	w io.Writer
}

func (p eventPrinter) header(ev log.Event, label string) {
	layer := ev.Layer.String()
	if ev.Category == log.CategoryControl {
		layer = "CTRL"
	}
	fmt.Fprintf(p.w, "%s [conn:%s] %-3s %s %s\n",
		ev.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		connTag(ev.ConnectionID), ev.Direction, layer, label)
}

func (p eventPrinter) field(name, format string, args ...any) {
	fmt.Fprintf(p.w, "  %s: "+format+"\n", append([]any{name}, args...)...)
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	p := eventPrinter{w: w}

	switch {
	case event.Frame != nil:
		p.header(event, "Frame")
		p.frame(event.Frame)
	case event.Message != nil:
		p.header(event, event.Message.Type.String())
		p.message(event.Message)
	case event.StateChange != nil:
		p.header(event, "State")
		p.stateChange(event.StateChange)
	case event.ControlMsg != nil:
		// The type name in the header says it all for ping/pong/close.
		p.header(event, event.ControlMsg.Type.String())
	case event.Error != nil:
		p.header(event, "Error")
		p.errorData(event.Error)
	default:
		p.header(event, "Unknown")
	}

	fmt.Fprintln(w)
}

// connTag shortens a UUID connection ID to its first block for display.
func connTag(id string) string {
	if len(id) < 8 {
		return id
	}
	return id[:8]
}

func (p eventPrinter) frame(frame *log.FrameEvent) {
	p.field("Size", "%d bytes", frame.Size)
	if len(frame.Data) == 0 {
		return
	}
	suffix := ""
	if frame.Truncated {
		suffix = " (truncated)"
	}
	p.field("Data", "%s%s", hex.EncodeToString(frame.Data), suffix)
}

func (p eventPrinter) message(msg *log.MessageEvent) {
	p.field("MessageID", "%d", msg.MessageID)

	switch msg.Type {
	case log.MessageTypeRequest:
		if msg.Operation != nil {
			p.field("Operation", "%s", msg.Operation)
		}
		if msg.Subsystem != "" {
			p.field("Target", "%s.%s", msg.Subsystem, msg.Item)
		}

	case log.MessageTypeResponse:
		if msg.Status != nil {
			p.field("Status", "%s (%d)", msg.Status, *msg.Status)
		}
		if msg.ImageBytes != nil {
			p.field("Image", "%d pixel bytes", *msg.ImageBytes)
		}
		if msg.ProcessingTime != nil {
			p.field("Duration", "%s", formatDuration(*msg.ProcessingTime))
		}
	}

	if msg.Payload != nil {
		if data, err := json.Marshal(msg.Payload); err == nil {
			p.field("Payload", "%s", data)
		}
	}
}

func (p eventPrinter) stateChange(sc *log.StateChangeEvent) {
	p.field("Entity", "%s", sc.Entity)
	if sc.OldState != "" {
		fmt.Fprintf(p.w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(p.w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		p.field("Reason", "%s", sc.Reason)
	}
}

func (p eventPrinter) errorData(err *log.ErrorEventData) {
	p.field("Layer", "%s", err.Layer)
	p.field("Message", "%s", err.Message)
	if err.Code != nil {
		p.field("Code", "%d", *err.Code)
	}
	if err.Context != "" {
		p.field("Context", "%s", err.Context)
	}
}

// formatDuration renders sub-millisecond times in microseconds so short
// GET round trips stay readable next to long exposures.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1e3)
	default:
		return fmt.Sprintf("%.3fs", d.Seconds())
	}
}

var (
	layerFlags = map[string]log.Layer{
		"transport": log.LayerTransport,
		"wire":      log.LayerWire,
		"service":   log.LayerService,
	}
	directionFlags = map[string]log.Direction{
		"in":  log.DirectionIn,
		"out": log.DirectionOut,
	}
	categoryFlags = map[string]log.Category{
		"message": log.CategoryMessage,
		"control": log.CategoryControl,
		"state":   log.CategoryState,
		"error":   log.CategoryError,
	}
)

func parseLayer(s string) (log.Layer, error) {
	l, ok := layerFlags[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or service)", s)
	}
	return l, nil
}

func parseDirection(s string) (log.Direction, error) {
	d, ok := directionFlags[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
	return d, nil
}

func parseCategory(s string) (log.Category, error) {
	c, ok := categoryFlags[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("invalid category: %s (must be message, control, state, or error)", s)
	}
	return c, nil
}

// ParseLayerFlag parses a -layer flag value (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) { return parseLayer(s) }

// ParseDirectionFlag parses a -direction flag value (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) { return parseDirection(s) }

// ParseCategoryFlag parses a -category flag value (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) { return parseCategory(s) }
