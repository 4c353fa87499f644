package commands

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExportJSONL(t *testing.T) {
	path := writeTestLog(t)
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var obj map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &obj); err != nil {
			t.Errorf("line %d is not valid JSON: %v", lines+1, err)
		}
		lines++
	}
	if lines != 6 {
		t.Errorf("expected 6 JSONL lines, got %d", lines)
	}
}

func TestExportCSV(t *testing.T) {
	path := writeTestLog(t)
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parsing CSV: %v", err)
	}

	// Header + 6 events
	if len(records) != 7 {
		t.Fatalf("expected 7 CSV records, got %d", len(records))
	}

	header := strings.Join(records[0], ",")
	for _, col := range []string{"timestamp", "subsystem", "item", "status", "message_id"} {
		if !strings.Contains(header, col) {
			t.Errorf("header missing column %q: %s", col, header)
		}
	}

	// The request row carries the target
	found := false
	for _, row := range records[1:] {
		if row[7] == "stage" && row[8] == "position" {
			found = true
		}
	}
	if !found {
		t.Error("expected a row with subsystem=stage item=position")
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := writeTestLog(t)
	if err := RunExport(path, "xml", ""); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestExportMissingFile(t *testing.T) {
	if err := RunExport("/nonexistent/file.tlog", "jsonl", ""); err == nil {
		t.Error("expected error for missing file")
	}
}
