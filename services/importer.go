package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"property-ingest/models"
	"property-ingest/storage"
	"property-ingest/utils"
)

const DefaultChunkSize = 50

// ProgressFunc is called after each chunk settles.
type ProgressFunc func(done, total int)

// Importer drives validate, synthesize, embed and persist over a batch.
// Records inside a chunk run concurrently; chunks run one after another.
type Importer struct {
	store     storage.PropertyStore
	enricher  *Enricher
	validator Validator
	variant   models.Variant
	chunkSize int
	progress  ProgressFunc
	logger    *utils.Logger
}

// NewImporter creates an Importer for the listing variant. A nil enricher
// stores every record without an embedding.
func NewImporter(store storage.PropertyStore, enricher *Enricher, chunkSize int, logger *utils.Logger) *Importer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	im := &Importer{
		store:     store,
		enricher:  enricher,
		variant:   models.VariantListing,
		chunkSize: chunkSize,
		logger:    logger,
	}
	im.progress = im.logProgress
	return im
}

// WithVariant returns a copy of the importer configured for variant.
func (im *Importer) WithVariant(variant models.Variant) *Importer {
	cp := *im
	cp.variant = variant
	cp.validator = Validator{RequireSaleDate: variant == models.VariantSold}
	return &cp
}

// OnProgress replaces the default progress logger. nil disables reporting.
func (im *Importer) OnProgress(fn ProgressFunc) {
	im.progress = fn
}

func (im *Importer) ChunkSize() int { return im.chunkSize }

// ImportBatch imports every record and reports per-record outcomes.
// It never returns early: a failing record or chunk only adds an entry
// to the result's Errors, indexed by the record's position in records.
func (im *Importer) ImportBatch(ctx context.Context, records []models.Property) models.ImportResult {
	result := models.ImportResult{
		Total:  len(records),
		Errors: []models.ImportError{},
	}

	for start := 0; start < len(records); start += im.chunkSize {
		end := min(start+im.chunkSize, len(records))
		chunk := records[start:end]
		outcomes := make([]error, len(chunk))

		var g errgroup.Group
		for pos := range chunk {
			pos := pos
			g.Go(func() error {
				outcomes[pos] = im.importOne(ctx, chunk[pos])
				return nil
			})
		}
		_ = g.Wait()

		for pos, err := range outcomes {
			if err == nil {
				result.Successful++
				continue
			}
			index := start + pos
			result.Failed++
			result.Errors = append(result.Errors, models.ImportError{Index: index, Error: err.Error()})
			im.logger.Warn("[importer] record %d failed: %v", index, err)
		}

		if im.progress != nil {
			im.progress(end, len(records))
		}
	}

	im.logger.Info("[importer] %s import finished: %d total, %d ok, %d failed",
		im.variant, result.Total, result.Successful, result.Failed)
	return result
}

// importOne owns its copy of p. Panics are converted into the record's error.
func (im *Importer) importOne(ctx context.Context, p models.Property) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	if err := im.validator.Check(p); err != nil {
		return err
	}

	synthesize(&p, im.variant)

	if outcome := im.enricher.Embed(ctx, EmbeddingText(p)); outcome.Ok() {
		p.Embedding = outcome.Vector
	}

	id, err := im.store.Create(ctx, &p)
	if err != nil {
		return err
	}
	im.logger.Debug("[importer] stored %s (%s)", id, truncate(p.Title, 60))
	return nil
}

func (im *Importer) logProgress(done, total int) {
	im.logger.Info("[importer] progress %d/%d", done, total)
}
