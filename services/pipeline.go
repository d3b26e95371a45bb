package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"property-ingest/models"
	"property-ingest/parsers"
	"property-ingest/utils"
)

// ErrNoSaleSource is returned by ImportSold when no sale-records source
// has been configured.
var ErrNoSaleSource = errors.New("no sale records source configured")

// SaleRecordSource supplies sold-price rows for a postcode.
type SaleRecordSource interface {
	Fetch(ctx context.Context, postcode string, limit int) ([]string, []models.RawRow, error)
}

// PostcodeLookup resolves a postcode to a place.
type PostcodeLookup interface {
	Lookup(ctx context.Context, postcode string) (*models.Place, error)
}

// Pipeline wires parsing, mapping detection and normalization in front of
// the Importer.
type Pipeline struct {
	detector   *MappingDetector
	normalizer *Normalizer
	importer   *Importer
	sales      SaleRecordSource
	postcodes  PostcodeLookup
	logger     *utils.Logger
}

func NewPipeline(detector *MappingDetector, normalizer *Normalizer, importer *Importer, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		detector:   detector,
		normalizer: normalizer,
		importer:   importer,
		logger:     logger,
	}
}

// WithSaleRecords enables ImportSold. lookup may be nil.
func (p *Pipeline) WithSaleRecords(src SaleRecordSource, lookup PostcodeLookup) *Pipeline {
	p.sales = src
	p.postcodes = lookup
	return p
}

// ImportFile parses an uploaded file and imports its rows. A parse failure
// is returned before any record is touched.
func (p *Pipeline) ImportFile(ctx context.Context, filename string, data []byte, variant models.Variant) (models.ImportResult, error) {
	headers, rows, err := parsers.Parse(filename, data)
	if err != nil {
		p.logger.Error("[pipeline] %s: %v", filename, err)
		return models.ImportResult{}, err
	}
	p.logger.Info("[pipeline] %s: %d rows, %d columns", filename, len(rows), len(headers))
	return p.ImportRows(ctx, headers, rows, variant), nil
}

// ImportRows detects one mapping for headers and imports every row with it.
func (p *Pipeline) ImportRows(ctx context.Context, headers []string, rows []models.RawRow, variant models.Variant) models.ImportResult {
	mapping := p.detector.Detect(headers)
	records := p.normalizer.NormalizeAll(rows, mapping)
	return p.importer.WithVariant(variant).ImportBatch(ctx, records)
}

// ImportRecords imports loosely keyed rows, such as a JSON array. The
// header list is the sorted union of every row's keys.
func (p *Pipeline) ImportRecords(ctx context.Context, rows []models.RawRow, variant models.Variant) models.ImportResult {
	return p.ImportRows(ctx, unionKeys(rows), rows, variant)
}

// ImportSold fetches sale records for a postcode and imports them as the
// sold variant. Missing town, county and coordinates are filled from the
// postcode lookup when one is configured; lookup failures are logged only.
func (p *Pipeline) ImportSold(ctx context.Context, postcode string, limit int) (models.ImportResult, error) {
	if p.sales == nil {
		return models.ImportResult{}, ErrNoSaleSource
	}

	headers, rows, err := p.sales.Fetch(ctx, postcode, limit)
	if err != nil {
		return models.ImportResult{}, fmt.Errorf("fetch sale records for %s: %w", postcode, err)
	}
	p.logger.Info("[pipeline] %d sale records for %s", len(rows), postcode)

	mapping := p.detector.Detect(headers)
	records := p.normalizer.NormalizeAll(rows, mapping)
	p.fillPlaces(ctx, records)

	return p.importer.WithVariant(models.VariantSold).ImportBatch(ctx, records), nil
}

func (p *Pipeline) fillPlaces(ctx context.Context, records []models.Property) {
	if p.postcodes == nil {
		return
	}

	places := make(map[string]*models.Place)
	for i := range records {
		rec := &records[i]
		if rec.Postcode == "" || (rec.Town != "" && rec.County != "" && rec.Latitude != nil) {
			continue
		}

		place, seen := places[rec.Postcode]
		if !seen {
			var err error
			place, err = p.postcodes.Lookup(ctx, rec.Postcode)
			if err != nil {
				p.logger.Warn("[pipeline] postcode lookup %s: %v", rec.Postcode, err)
				place = nil
			}
			places[rec.Postcode] = place
		}
		if place == nil {
			continue
		}

		if rec.Town == "" {
			rec.Town = place.Town
		}
		if rec.County == "" {
			rec.County = place.County
		}
		if rec.Latitude == nil && rec.Longitude == nil {
			lat, lng := place.Latitude, place.Longitude
			rec.Latitude, rec.Longitude = &lat, &lng
		}
		if rec.Location == "" || rec.Location == rec.Postcode {
			rec.Location = firstNonEmpty(rec.Town, rec.Postcode)
		}
	}
}

func unionKeys(rows []models.RawRow) []string {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
