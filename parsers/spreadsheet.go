package parsers

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"property-ingest/models"
)

var (
	// ErrNoSheets is returned for a workbook without any worksheet.
	ErrNoSheets = errors.New("workbook has no sheets")
	// ErrNoDataRows is returned when the first sheet has no rows below the header.
	ErrNoDataRows = errors.New("first sheet has no data rows")
)

// ParseSpreadsheet reads the first sheet of a workbook, using its first row
// as headers. Unlike CSV, an empty workbook or sheet is a hard failure.
func ParseSpreadsheet(data []byte) ([]string, []models.RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, parseErr("spreadsheet", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, parseErr("spreadsheet", ErrNoSheets)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, parseErr("spreadsheet", fmt.Errorf("read sheet %q: %w", sheets[0], err))
	}

	// Skip leading blank rows so the header is the first populated row.
	for len(records) > 0 && blankRecord(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, nil, parseErr("spreadsheet", ErrNoDataRows)
	}

	headers := normalizeHeaders(records[0])
	rows := make([]models.RawRow, 0, len(records)-1)
	for _, record := range records[1:] {
		if blankRecord(record) {
			continue
		}
		rows = append(rows, toRow(headers, record))
	}
	if len(rows) == 0 {
		return nil, nil, parseErr("spreadsheet", ErrNoDataRows)
	}
	return headers, rows, nil
}
