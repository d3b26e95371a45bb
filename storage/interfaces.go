package storage

import (
	"context"

	"property-ingest/models"
)

// PropertyStore is the interface any persistence backend must satisfy.
// Once Create returns, the store owns the record.
type PropertyStore interface {
	Create(ctx context.Context, p *models.Property) (string, error)
	List(ctx context.Context, limit int) ([]models.Property, error)
	Close() error
}
