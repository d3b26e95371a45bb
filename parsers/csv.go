package parsers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"property-ingest/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads comma-delimited text with a mandatory header row.
// Blank lines are skipped and headers are trimmed. Empty input and
// header-only input both yield no rows and no error.
func ParseCSV(data []byte) ([]string, []models.RawRow, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		// Spreadsheet exports on Windows are usually cp1252, which is where a
		// stray 0xA3 pound sign comes from.
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, nil, parseErr("csv", fmt.Errorf("decode windows-1252: %w", err))
		}
		data = decoded
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, []models.RawRow{}, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	record, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, []models.RawRow{}, nil
	}
	if err != nil {
		return nil, nil, parseErr("csv", fmt.Errorf("read header: %w", err))
	}
	headers := normalizeHeaders(record)

	rows := make([]models.RawRow, 0, 64)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, parseErr("csv", err)
		}
		if blankRecord(record) {
			continue
		}
		rows = append(rows, toRow(headers, record))
	}
	return headers, rows, nil
}

// normalizeHeaders trims header cells and names empty ones column_N.
// Repeated headers get a numeric suffix (Price, Price_2) so no column is lost.
func normalizeHeaders(record []string) []string {
	headers := make([]string, len(record))
	seen := make(map[string]bool, len(record))
	for i, h := range record {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		name := h
		for n := 2; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d", h, n)
		}
		seen[name] = true
		headers[i] = name
	}
	return headers
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// toRow pairs cells with headers. Missing trailing cells become blank and
// cells beyond the header row are dropped.
func toRow(headers, record []string) models.RawRow {
	row := make(models.RawRow, len(headers))
	for i, h := range headers {
		if i < len(record) {
			row[h] = record[i]
		} else {
			row[h] = ""
		}
	}
	return row
}
