package listings

import (
	"testing"

	"property-ingest/models"
)

func TestExtractPostcode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"12 Main Street, Testville, TE1 1ST", "TE1 1ST"},
		{"Flat 2, 5 High Rd, London sw1a1aa", "SW1A 1AA"},
		{"Rose Cottage, Little Village", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := extractPostcode(tt.in); got != tt.want {
			t.Errorf("extractPostcode(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestCardRow(t *testing.T) {
	c := &Card{
		Title:    "3 bed semi-detached house for sale",
		Address:  "4 Oak Lane, Testville TE2 3AB",
		Price:    "£325,000",
		Bedrooms: "3",
		Features: []string{"Garden", "Off-street parking"},
		URL:      "https://example.com/properties/1",
	}
	row := c.Row()

	if len(row) != len(Headers) {
		t.Errorf("row has %d keys; want %d", len(row), len(Headers))
	}
	for _, h := range Headers {
		if _, ok := row[h]; !ok {
			t.Errorf("row missing header %q", h)
		}
	}
	want := models.RawRow{
		"postcode":     "TE2 3AB",
		"key features": "Garden; Off-street parking",
		"price":        "£325,000",
	}
	for k, v := range want {
		if row[k] != v {
			t.Errorf("row[%q] = %v; want %v", k, row[k], v)
		}
	}
}

func TestMergeDetail(t *testing.T) {
	c := &Card{Title: "From card", Features: []string{"Garden"}}
	mergeDetail(c, &detailData{
		Title:       "From detail",
		Address:     "1 Test Road",
		Description: "A lovely home.",
		Features:    []string{"Garage"},
		Tenure:      "Freehold",
	})

	if c.Title != "From card" {
		t.Errorf("Title = %q; card value should win", c.Title)
	}
	if c.Address != "1 Test Road" || c.Tenure != "Freehold" || c.Description != "A lovely home." {
		t.Errorf("missing fields not filled: %+v", c)
	}
	if len(c.Features) != 1 || c.Features[0] != "Garden" {
		t.Errorf("Features = %v", c.Features)
	}
}
