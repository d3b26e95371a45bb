package services

import (
	"context"
	"errors"
	"strings"

	"property-ingest/models"
	"property-ingest/utils"
)

// Embedder turns text into a vector. Implementations may return vectors
// of any length; the Enricher resizes them.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingError wraps any failure to obtain an embedding. It never fails
// a record: the record is stored without a vector instead.
type EmbeddingError struct {
	Cause error
}

func (e *EmbeddingError) Error() string { return "embedding unavailable: " + e.Cause.Error() }

func (e *EmbeddingError) Unwrap() error { return e.Cause }

var errEmptyVector = errors.New("service returned an empty vector")

// EmbeddingOutcome is either a vector or the reason there is none.
// Callers always proceed; a nil Vector just means "store without embedding".
type EmbeddingOutcome struct {
	Vector models.Vector
	Err    *EmbeddingError
}

// Ok reports whether a vector is available.
func (o EmbeddingOutcome) Ok() bool { return o.Vector != nil }

// Enricher attaches fixed-size embeddings to records, degrading to no
// embedding when the service is missing or failing.
type Enricher struct {
	embedder   Embedder
	dimensions int
	logger     *utils.Logger
}

// NewEnricher creates an Enricher. A nil embedder disables embeddings.
func NewEnricher(embedder Embedder, dimensions int, logger *utils.Logger) *Enricher {
	if dimensions <= 0 {
		dimensions = models.EmbeddingDimensions
	}
	return &Enricher{embedder: embedder, dimensions: dimensions, logger: logger}
}

// Embed calls the embedding service and resizes the result.
func (e *Enricher) Embed(ctx context.Context, text string) EmbeddingOutcome {
	if e == nil || e.embedder == nil {
		return EmbeddingOutcome{}
	}

	raw, err := e.embedder.Embed(ctx, text)
	if err == nil && len(raw) == 0 {
		err = errEmptyVector
	}
	if err != nil {
		outcome := EmbeddingOutcome{Err: &EmbeddingError{Cause: err}}
		e.logger.Warn("[embedding] %v, continuing without embedding", outcome.Err)
		return outcome
	}
	return EmbeddingOutcome{Vector: ResizeVector(raw, e.dimensions)}
}

// ResizeVector fits a vector to exactly dims entries. A short vector is
// concatenated with itself once, then truncated, then zero-padded if it
// is still short. Existing search indexes depend on this exact layout.
func ResizeVector(v []float32, dims int) models.Vector {
	out := make(models.Vector, 0, max(dims, 2*len(v)))
	out = append(out, v...)
	if len(out) < dims {
		out = append(out, v...)
	}
	if len(out) > dims {
		out = out[:dims]
	}
	for len(out) < dims {
		out = append(out, 0)
	}
	return out
}

// EmbeddingText is the text embedded for semantic search.
func EmbeddingText(p models.Property) string {
	parts := []string{p.Title, p.Description, p.Address, p.Location}
	if p.PropertyType != "" {
		parts = append(parts, string(p.PropertyType))
	}
	if len(p.Features) > 0 {
		parts = append(parts, "Features: "+strings.Join(p.Features, ", "))
	}

	var kept []string
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n")
}

// VectorCache stores embeddings by key.
type VectorCache interface {
	Get(ctx context.Context, key string) (models.Vector, bool, error)
	Set(ctx context.Context, key string, v models.Vector) error
}

// CachedEmbedder consults a cache before calling the wrapped Embedder.
// Cache errors are logged and otherwise ignored.
type CachedEmbedder struct {
	next   Embedder
	cache  VectorCache
	model  string
	logger *utils.Logger
}

// NewCachedEmbedder wraps next with cache. model is part of the cache key.
func NewCachedEmbedder(next Embedder, cache VectorCache, model string, logger *utils.Logger) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache, model: model, logger: logger}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.model + "\x00" + text

	if v, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("[embedding] cache read failed: %v", err)
	} else if ok {
		return v, nil
	}

	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, v); err != nil {
		c.logger.Warn("[embedding] cache write failed: %v", err)
	}
	return v, nil
}
