package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"property-ingest/models"
	"property-ingest/storage"
)

func TestImportBatchAllValid(t *testing.T) {
	store := &memStore{}
	im := NewImporter(store, nil, 50, testLogger)

	records := make([]models.Property, 1000)
	for i := range records {
		records[i] = validRecord()
	}

	res := im.ImportBatch(context.Background(), records)
	if res.Total != 1000 || res.Successful != 1000 || res.Failed != 0 {
		t.Errorf("ImportBatch = %+v; want total=1000 successful=1000 failed=0", res)
	}
	if res.Errors == nil || len(res.Errors) != 0 {
		t.Errorf("Errors = %#v; want empty non-nil slice", res.Errors)
	}
	if n := store.count(); n != 1000 {
		t.Errorf("store holds %d records; want 1000", n)
	}
}

func TestImportBatchReportsOriginalIndices(t *testing.T) {
	persistFail := errors.New("connection reset")
	store := &memStore{failOn: func(p *models.Property) error {
		if p.Address == "FAIL" {
			return &storage.PersistenceError{Op: "insert property", Cause: persistFail}
		}
		return nil
	}}
	im := NewImporter(store, nil, 50, testLogger)

	records := make([]models.Property, 130)
	for i := range records {
		records[i] = validRecord()
	}
	records[3].Postcode = ""
	records[57].Price = 0
	records[77].Address = "FAIL"
	records[120].PropertyType = ""

	res := im.ImportBatch(context.Background(), records)

	if res.Total != 130 || res.Successful != 126 || res.Failed != 4 {
		t.Fatalf("ImportBatch = total %d successful %d failed %d; want 130/126/4",
			res.Total, res.Successful, res.Failed)
	}
	if res.Successful+res.Failed != res.Total {
		t.Errorf("successful+failed != total")
	}

	wantIdx := []int{3, 57, 77, 120}
	var gotIdx []int
	for _, e := range res.Errors {
		gotIdx = append(gotIdx, e.Index)
	}
	if !slices.Equal(gotIdx, wantIdx) {
		t.Errorf("error indices = %v; want %v", gotIdx, wantIdx)
	}

	wantMsg := []string{"postcode is required", "price must be a positive number", "connection reset", "propertyType is required"}
	for i, e := range res.Errors {
		if !strings.Contains(e.Error, wantMsg[i]) {
			t.Errorf("Errors[%d].Error = %q; want it to contain %q", i, e.Error, wantMsg[i])
		}
	}
}

func TestImportBatchEmbeddingFailureIsNotARecordFailure(t *testing.T) {
	store := &memStore{}
	embedder := &fakeEmbedder{err: errEmbeddingDown}
	im := NewImporter(store, NewEnricher(embedder, 1536, testLogger), 10, testLogger)

	records := []models.Property{validRecord(), validRecord(), validRecord()}
	res := im.ImportBatch(context.Background(), records)

	if res.Successful != 3 || res.Failed != 0 {
		t.Errorf("ImportBatch = %+v; want all successful", res)
	}
	if n := embedder.calls.Load(); n != 3 {
		t.Errorf("embedder called %d times; want 3", n)
	}
	for _, p := range store.records {
		if p.Embedding != nil {
			t.Errorf("record %s has an embedding after service failure", p.ID)
		}
	}
}

func TestImportBatchAttachesResizedEmbedding(t *testing.T) {
	store := &memStore{}
	embedder := &fakeEmbedder{vec: make([]float32, 768)}
	im := NewImporter(store, NewEnricher(embedder, 1536, testLogger), 10, testLogger)

	res := im.ImportBatch(context.Background(), []models.Property{validRecord()})
	if res.Successful != 1 {
		t.Fatalf("ImportBatch = %+v", res)
	}
	if got := len(store.records[0].Embedding); got != 1536 {
		t.Errorf("stored embedding has %d dimensions; want 1536", got)
	}
}

func TestImportBatchSynthesizesContent(t *testing.T) {
	store := &memStore{}
	im := NewImporter(store, nil, 10, testLogger)

	im.ImportBatch(context.Background(), []models.Property{validRecord()})
	got := store.records[0]
	if got.Title != "3 Bedroom Detached in Testville" {
		t.Errorf("Title = %q", got.Title)
	}
	if !strings.HasPrefix(got.Description, "This 3 bedroom, 2 bathroom detached property") {
		t.Errorf("Description = %q", got.Description)
	}
}

func TestImportBatchSoldVariant(t *testing.T) {
	store := &memStore{}
	im := NewImporter(store, nil, 10, testLogger).WithVariant(models.VariantSold)

	dated := validRecord()
	dated.SaleDate = "2023-06-30"
	dated.Status = models.StatusSold
	undated := validRecord()

	res := im.ImportBatch(context.Background(), []models.Property{dated, undated})
	if res.Successful != 1 || res.Failed != 1 {
		t.Fatalf("ImportBatch = %+v; want 1 ok, 1 failed", res)
	}
	if res.Errors[0].Index != 1 || !strings.Contains(res.Errors[0].Error, "saleDate is required") {
		t.Errorf("Errors = %+v", res.Errors)
	}
	if got := store.records[0].Title; got != "Detached for sale on 123 Main St" {
		t.Errorf("Title = %q", got)
	}
}

func TestImportBatchRecoversPanics(t *testing.T) {
	store := &memStore{failOn: func(p *models.Property) error {
		if p.Address == "PANIC" {
			panic("driver exploded")
		}
		return nil
	}}
	im := NewImporter(store, nil, 4, testLogger)

	records := []models.Property{validRecord(), validRecord(), validRecord()}
	records[1].Address = "PANIC"

	res := im.ImportBatch(context.Background(), records)
	if res.Successful != 2 || res.Failed != 1 {
		t.Fatalf("ImportBatch = %+v", res)
	}
	if res.Errors[0].Index != 1 || !strings.Contains(res.Errors[0].Error, "driver exploded") {
		t.Errorf("Errors = %+v", res.Errors)
	}
}

func TestImportBatchBoundsConcurrencyAndReportsProgress(t *testing.T) {
	store := &memStore{delay: 5 * time.Millisecond}
	im := NewImporter(store, nil, 5, testLogger)

	var progress []int
	im.OnProgress(func(done, total int) {
		if total != 23 {
			t.Errorf("progress total = %d; want 23", total)
		}
		progress = append(progress, done)
	})

	records := make([]models.Property, 23)
	for i := range records {
		records[i] = validRecord()
	}
	res := im.ImportBatch(context.Background(), records)

	if res.Successful != 23 {
		t.Errorf("Successful = %d; want 23", res.Successful)
	}
	if peak := store.maxInFlight.Load(); peak > 5 {
		t.Errorf("peak concurrent writes = %d; want <= 5", peak)
	}
	if want := []int{5, 10, 15, 20, 23}; !slices.Equal(progress, want) {
		t.Errorf("progress = %v; want %v", progress, want)
	}
}

func TestImportBatchEmpty(t *testing.T) {
	im := NewImporter(&memStore{}, nil, 0, testLogger)
	if im.ChunkSize() != DefaultChunkSize {
		t.Errorf("ChunkSize() = %d; want %d", im.ChunkSize(), DefaultChunkSize)
	}

	res := im.ImportBatch(context.Background(), nil)
	if res.Total != 0 || res.Successful != 0 || res.Failed != 0 || res.Errors == nil {
		t.Errorf("ImportBatch(nil) = %+v", res)
	}
}
