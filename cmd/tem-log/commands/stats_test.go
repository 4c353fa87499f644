package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunStats(t *testing.T) {
	path := writeTestLog(t)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "Total Events: 6") {
		t.Errorf("expected total of 6 events, got: %s", output)
	}
	if !strings.Contains(output, "Connections: 2") {
		t.Errorf("expected 2 connections, got: %s", output)
	}
	if !strings.Contains(output, "stage:") {
		t.Errorf("expected stage in subsystem breakdown, got: %s", output)
	}
	if !strings.Contains(output, "Image Responses: 1 (512 pixel bytes)") {
		t.Errorf("expected image response summary, got: %s", output)
	}
	if !strings.Contains(output, "Errors: 1") {
		t.Errorf("expected 1 error, got: %s", output)
	}
	if !strings.Contains(output, "Peer: 10.0.0.5:51234") {
		t.Errorf("expected peer address, got: %s", output)
	}
}

func TestRunStatsLayerBreakdown(t *testing.T) {
	path := writeTestLog(t)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "TRANSPORT:") {
		t.Errorf("expected TRANSPORT in layer breakdown, got: %s", output)
	}
	if !strings.Contains(output, "WIRE:") {
		t.Errorf("expected WIRE in layer breakdown, got: %s", output)
	}
}

func TestRunStatsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tlog")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed on empty file: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("expected zero events, got: %s", buf.String())
	}
}

func TestRunStatsMissingFile(t *testing.T) {
	if err := RunStats("/nonexistent/file.tlog", &bytes.Buffer{}); err == nil {
		t.Error("expected error for missing file")
	}
}
