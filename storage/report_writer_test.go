package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"property-ingest/models"
)

func failedResult() models.ImportResult {
	return models.ImportResult{
		Total:      4,
		Successful: 2,
		Failed:     2,
		Errors: []models.ImportError{
			{Index: 0, Error: "validation failed: postcode is required"},
			{Index: 3, Error: "database error: insert property: boom"},
		},
	}
}

func TestReportWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "errors.csv")

	w, err := NewReportWriter(path)
	if err != nil {
		t.Fatalf("NewReportWriter: %v", err)
	}
	if err := w.Write(failedResult()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"row", "error"},
		{"1", "validation failed: postcode is required"},
		{"4", "database error: insert property: boom"},
	}
	if len(records) != len(want) {
		t.Fatalf("got %d lines; want %d", len(records), len(want))
	}
	for i := range want {
		if records[i][0] != want[i][0] || records[i][1] != want[i][1] {
			t.Errorf("line %d = %v; want %v", i, records[i], want[i])
		}
	}
}

func TestLines(t *testing.T) {
	got := Lines(failedResult())
	want := []string{
		"Row 1: validation failed: postcode is required",
		"Row 4: database error: insert property: boom",
	}
	if len(got) != len(want) {
		t.Fatalf("Lines() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Lines()[%d] = %q; want %q", i, got[i], want[i])
		}
	}

	if n := len(Lines(models.ImportResult{})); n != 0 {
		t.Errorf("Lines(empty) has %d entries", n)
	}
}
