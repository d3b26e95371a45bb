package parsers

import (
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, sheets map[string][][]any, order ...string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatal(err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatal(err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatal(err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseSpreadsheetFirstSheetOnly(t *testing.T) {
	data := workbook(t, map[string][][]any{
		"Listings": {
			{"Address", " Postcode ", "Price"},
			{"1 High St", "TE1 1ST", 250000},
			{nil, nil, nil},
			{"2 Low Rd", "TE2 2ND"},
		},
		"Notes": {
			{"Ignored"},
			{"ignored too"},
		},
	}, "Listings", "Notes")

	headers, rows, err := ParseSpreadsheet(data)
	if err != nil {
		t.Fatalf("ParseSpreadsheet error: %v", err)
	}
	if len(headers) != 3 || headers[1] != "Postcode" {
		t.Errorf("headers: got %v", headers)
	}
	if len(rows) != 2 {
		t.Fatalf("rows: got %d, want 2", len(rows))
	}
	if rows[0]["Price"] != "250000" {
		t.Errorf("price cell: got %q, want %q", rows[0]["Price"], "250000")
	}
	if _, ok := rows[0]["Ignored"]; ok {
		t.Error("second sheet should not be read")
	}
}

func TestParseSpreadsheetHeaderOnlyFails(t *testing.T) {
	data := workbook(t, map[string][][]any{
		"Sheet": {{"Address", "Postcode"}},
	}, "Sheet")

	_, _, err := ParseSpreadsheet(data)
	if !errors.Is(err, ErrNoDataRows) {
		t.Fatalf("error = %v; want ErrNoDataRows", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Errorf("error %T is not a *ParseError", err)
	}
}

func TestParseSpreadsheetEmptySheetFails(t *testing.T) {
	data := workbook(t, map[string][][]any{}, "Blank")

	if _, _, err := ParseSpreadsheet(data); !errors.Is(err, ErrNoDataRows) {
		t.Errorf("error = %v; want ErrNoDataRows", err)
	}
}

func TestParseSpreadsheetGarbage(t *testing.T) {
	_, _, err := ParseSpreadsheet([]byte("definitely not a zip archive"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v; want *ParseError", err)
	}
	if pe.Cause == nil {
		t.Error("ParseError should carry the underlying cause")
	}
}
