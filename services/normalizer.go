package services

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"property-ingest/config"
	"property-ingest/models"
	"property-ingest/utils"
)

var (
	// priceRegexp captures the first numeric amount, with its sign, once
	// separators are gone
	priceRegexp = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	// leadingIntRegexp captures an integer prefix ("3 beds" -> 3)
	leadingIntRegexp = regexp.MustCompile(`^\d+`)
	// featureSplitRegexp splits feature lists on commas and semicolons
	featureSplitRegexp = regexp.MustCompile(`[,;]`)
)

var saleDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
	"2 January 2006",
	"2 Jan 2006",
}

// Normalizer turns a raw row into a canonical Property. It never fails:
// every field has a deterministic default.
type Normalizer struct {
	dict   *config.Dictionary
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer using the given alias dictionary.
func NewNormalizer(dict *config.Dictionary, logger *utils.Logger) *Normalizer {
	return &Normalizer{dict: dict, logger: logger}
}

// Normalize converts one row using the mapping detected for its batch.
func (n *Normalizer) Normalize(row models.RawRow, mapping models.FieldMapping) models.Property {
	rec := mapping.Split(row)
	get := func(f models.Field) string { return stringValue(rec.Values[f]) }

	p := models.Property{
		Title:        normaliseText(get(models.FieldTitle)),
		Address:      normaliseText(get(models.FieldAddress)),
		Postcode:     strings.ToUpper(normaliseText(get(models.FieldPostcode))),
		Price:        parsePrice(rec.Values[models.FieldPrice]),
		Description:  strings.TrimSpace(get(models.FieldDescription)),
		PropertyType: n.propertyType(get(models.FieldPropertyType)),
		Tenure:       n.tenure(get(models.FieldTenure)),
		Status:       n.status(get(models.FieldStatus)),
		Bedrooms:     parseCount(rec.Values[models.FieldBedrooms]),
		Bathrooms:    parseCount(rec.Values[models.FieldBathrooms]),
		SquareFeet:   parseCount(rec.Values[models.FieldSquareFeet]),
		Features:     parseFeatures(rec.Values[models.FieldFeatures]),
		ImageURL:     optionalString(rec.Values[models.FieldImageURL]),
		Town:         normaliseText(get(models.FieldTown)),
		County:       normaliseText(get(models.FieldCounty)),
		ListingAgent: normaliseText(get(models.FieldListingAgent)),
		SaleDate:     normaliseSaleDate(get(models.FieldSaleDate)),
	}
	p.Location = firstNonEmpty(normaliseText(get(models.FieldLocation)), p.Town, p.Postcode)

	for header, v := range rec.Extra {
		if s := stringValue(v); s != "" {
			if p.Attributes == nil {
				p.Attributes = make(map[string]string)
			}
			p.Attributes[header] = s
		}
	}
	return p
}

// NormalizeAll normalizes every row with the same mapping.
func (n *Normalizer) NormalizeAll(rows []models.RawRow, mapping models.FieldMapping) []models.Property {
	out := make([]models.Property, len(rows))
	for i, row := range rows {
		out[i] = n.Normalize(row, mapping)
	}
	return out
}

func (n *Normalizer) propertyType(raw string) models.PropertyType {
	key := enumKey(raw)
	if v, ok := n.dict.PropertyTypes[key]; ok {
		return v
	}
	if key != "" && n.logger != nil {
		n.logger.Debug("[normalizer] Unknown property type %q, using %q", raw, n.dict.Defaults.PropertyType)
	}
	return n.dict.Defaults.PropertyType
}

func (n *Normalizer) tenure(raw string) models.Tenure {
	if v, ok := n.dict.Tenures[enumKey(raw)]; ok {
		return v
	}
	return n.dict.Defaults.Tenure
}

func (n *Normalizer) status(raw string) models.Status {
	if v, ok := n.dict.Statuses[enumKey(raw)]; ok {
		return v
	}
	return n.dict.Defaults.Status
}

func enumKey(raw string) string {
	return strings.ToLower(normaliseText(raw))
}

// stringValue renders any scalar a parser or JSON decoder can produce.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return stringValue(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := stringValue(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// parsePrice strips currency symbols and thousands separators. Missing,
// unparseable and negative amounts all become 0.
func parsePrice(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	default:
		cleaned := strings.ReplaceAll(stringValue(v), ",", "")
		match := priceRegexp.FindString(cleaned)
		if match == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return 0
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// parseCount reads a non-negative integer, taking the leading digits of
// strings once thousands separators are removed.
func parseCount(v any) int {
	switch t := v.(type) {
	case int:
		return max(t, 0)
	case int64:
		return int(max(t, 0))
	case float64:
		if math.IsNaN(t) || t < 0 || t > math.MaxInt32 {
			return 0
		}
		return int(t)
	}
	s := strings.ReplaceAll(stringValue(v), ",", "")
	match := leadingIntRegexp.FindString(s)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

func parseFeatures(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string{}, t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s := stringValue(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		out := []string{}
		for _, part := range featureSplitRegexp.Split(t, -1) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return []string{}
	}
}

func optionalString(v any) *string {
	s := stringValue(v)
	if s == "" {
		return nil
	}
	return &s
}

// normaliseSaleDate renders recognised dates as YYYY-MM-DD and keeps
// anything else verbatim.
func normaliseSaleDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range saleDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
