package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"property-ingest/config"
	"property-ingest/models"
	"property-ingest/utils"
)

var testLogger = utils.NewDiscardLogger()

func testDictionary() *config.Dictionary {
	return config.MustDefaultDictionary()
}

// memStore is an in-memory PropertyStore that records peak concurrency.
type memStore struct {
	mu      sync.Mutex
	records []models.Property

	failOn func(p *models.Property) error
	delay  time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (s *memStore) Create(ctx context.Context, p *models.Property) (string, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.maxInFlight.Load()
		if n <= peak || s.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.failOn != nil {
		if err := s.failOn(p); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := fmt.Sprintf("id-%d", len(s.records)+1)
	p.ID = id
	s.records = append(s.records, *p)
	return id, nil
}

func (s *memStore) List(ctx context.Context, limit int) ([]models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Property(nil), s.records...), nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// fakeEmbedder returns vec, or err when set.
type fakeEmbedder struct {
	vec   []float32
	err   error
	calls atomic.Int32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

var errEmbeddingDown = errors.New("embedding service unavailable")

func validRecord() models.Property {
	return models.Property{
		Address:      "123 Main St, Testville, Testshire",
		Postcode:     "TE1 1ST",
		Price:        250000,
		PropertyType: models.PropertyDetached,
		Tenure:       models.TenureFreehold,
		Status:       models.StatusForSale,
		Bedrooms:     3,
		Bathrooms:    2,
		Location:     "Testville",
	}
}
