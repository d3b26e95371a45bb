package parsers

import (
	"fmt"
	"path/filepath"
	"strings"

	"property-ingest/models"
)

// Parse dispatches on the file extension.
func Parse(filename string, data []byte) ([]string, []models.RawRow, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv", ".txt":
		return ParseCSV(data)
	case ".xlsx", ".xlsm":
		return ParseSpreadsheet(data)
	case ".xls":
		return nil, nil, parseErr("spreadsheet", fmt.Errorf("legacy .xls workbooks are not supported, save as .xlsx"))
	default:
		return nil, nil, parseErr("file", fmt.Errorf("unsupported file type %q", ext))
	}
}
