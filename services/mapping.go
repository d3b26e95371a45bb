package services

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"property-ingest/config"
	"property-ingest/models"
	"property-ingest/utils"
)

// MappingDetector infers which source header holds each canonical field.
type MappingDetector struct {
	dict   *config.Dictionary
	logger *utils.Logger
}

// NewMappingDetector creates a detector over the given alias dictionary.
func NewMappingDetector(dict *config.Dictionary, logger *utils.Logger) *MappingDetector {
	return &MappingDetector{dict: dict, logger: logger}
}

type headerCandidate struct {
	field     models.Field
	fieldRank int
	aliasRank int
	aliasLen  int
	header    string
	folded    string
}

// Detect returns a partial mapping from canonical field to header.
//
// Each header is claimed by at most one field. Exact matches claim first;
// remaining fields then take headers containing one of their aliases, longest
// alias first. The result does not depend on the order of headers.
func (d *MappingDetector) Detect(headers []string) models.FieldMapping {
	mapping := make(models.FieldMapping)
	claimed := make(map[string]bool, len(headers))

	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = foldHeader(h)
	}

	var exact, partial []headerCandidate
	for fieldRank, field := range models.Fields {
		for aliasRank, alias := range d.dict.Headers[field] {
			for i, h := range headers {
				if folded[i] == "" {
					continue
				}
				c := headerCandidate{
					field:     field,
					fieldRank: fieldRank,
					aliasRank: aliasRank,
					aliasLen:  len(alias),
					header:    h,
					folded:    folded[i],
				}
				switch {
				case folded[i] == alias:
					exact = append(exact, c)
				case strings.Contains(folded[i], alias):
					partial = append(partial, c)
				}
			}
		}
	}

	sort.SliceStable(exact, func(i, j int) bool {
		a, b := exact[i], exact[j]
		if a.fieldRank != b.fieldRank {
			return a.fieldRank < b.fieldRank
		}
		if a.aliasRank != b.aliasRank {
			return a.aliasRank < b.aliasRank
		}
		return a.header < b.header
	})
	sort.SliceStable(partial, func(i, j int) bool {
		a, b := partial[i], partial[j]
		if a.aliasLen != b.aliasLen {
			return a.aliasLen > b.aliasLen
		}
		if a.fieldRank != b.fieldRank {
			return a.fieldRank < b.fieldRank
		}
		if a.aliasRank != b.aliasRank {
			return a.aliasRank < b.aliasRank
		}
		if a.folded != b.folded {
			return a.folded < b.folded
		}
		return a.header < b.header
	})

	for _, candidates := range [][]headerCandidate{exact, partial} {
		for _, c := range candidates {
			if _, done := mapping[c.field]; done || claimed[c.header] {
				continue
			}
			mapping[c.field] = c.header
			claimed[c.header] = true
		}
	}

	if d.logger != nil {
		d.logger.Debug("[mapping] Detected %d/%d fields from %d headers", len(mapping), len(models.Fields), len(headers))
		for _, h := range headers {
			if !claimed[h] {
				d.logger.Debug("[mapping] Unmapped column kept as attribute: %q", h)
			}
		}
	}
	return mapping
}

// foldHeader normalises a header for alias comparison: NFKC, lower case,
// underscores as spaces, collapsed whitespace.
func foldHeader(h string) string {
	h = norm.NFKC.String(h)
	h = strings.ToLower(h)
	h = strings.ReplaceAll(h, "_", " ")
	return strings.Join(strings.Fields(h), " ")
}
