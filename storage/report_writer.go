package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"property-ingest/models"
)

// ReportWriter writes the failed rows of an import to a CSV file.
type ReportWriter struct {
	file   *os.File
	writer *csv.Writer
}

// NewReportWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewReportWriter(path string) (*ReportWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("report: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"row", "error"}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("report: write header: %w", err)
	}

	return &ReportWriter{file: f, writer: w}, nil
}

// Write appends one line per failed record. Rows are numbered from 1.
func (r *ReportWriter) Write(result models.ImportResult) error {
	for _, e := range result.Errors {
		if err := r.writer.Write([]string{strconv.Itoa(e.Index + 1), e.Error}); err != nil {
			return fmt.Errorf("report: write row: %w", err)
		}
	}
	r.writer.Flush()
	return r.writer.Error()
}

// Close flushes and closes the underlying file.
func (r *ReportWriter) Close() error {
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		_ = r.file.Close()
		return err
	}
	return r.file.Close()
}

// Lines renders failed records as "Row N: message".
func Lines(result models.ImportResult) []string {
	out := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		out = append(out, fmt.Sprintf("Row %d: %s", e.Index+1, e.Error))
	}
	return out
}
