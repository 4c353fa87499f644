package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/temscript/temscript-go/pkg/log"
)

// RunExport converts a capture into jsonl or csv for analysis outside
// the tooling. An empty output path writes to stdout.
func RunExport(path, format, output string) error {
	var exporter func(*log.Reader, io.Writer) error
	switch format {
	case "jsonl":
		exporter = exportJSONL
	case "csv":
		exporter = exportCSV
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	return exporter(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

var csvColumns = []string{
	"timestamp", "connection_id", "direction", "layer", "category",
	"type", "message_id", "subsystem", "item", "status",
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := cw.Write(csvRow(event)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
}

// csvRow flattens an event into the csvColumns order. Fields that do
// not apply to the event's type stay empty.
func csvRow(event log.Event) []string {
	var eventType, msgID, subsystem, item, status string

	switch {
	case event.Frame != nil:
		eventType = "frame"
	case event.Message != nil:
		msg := event.Message
		eventType = msg.Type.String()
		msgID = strconv.FormatUint(uint64(msg.MessageID), 10)
		subsystem = msg.Subsystem
		item = msg.Item
		if msg.Status != nil {
			status = msg.Status.String()
		}
	case event.StateChange != nil:
		eventType = "state"
	case event.ControlMsg != nil:
		eventType = event.ControlMsg.Type.String()
	case event.Error != nil:
		eventType = "error"
	default:
		eventType = "unknown"
	}

	return []string{
		event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		event.ConnectionID,
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		eventType,
		msgID,
		subsystem,
		item,
		status,
	}
}
