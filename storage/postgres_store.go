package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"property-ingest/models"
	"property-ingest/utils"
)

// PostgresStore persists canonical property records to PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens a connection to PostgreSQL, waits for it to accept
// connections, runs schema migrations and returns a ready-to-use store.
func NewPostgresStore(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		logger.Warn("[postgres] ping attempt %d failed: %v", i+1, err)
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	version, err := RunMigrations(db, "postgres")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	logger.Info("[postgres] schema at version %d", version)

	return &PostgresStore{db: db, logger: logger}, nil
}

// Create inserts p, assigning its ID and CreatedAt.
func (s *PostgresStore) Create(ctx context.Context, p *models.Property) (string, error) {
	attrs, err := encodeAttributes(p.Attributes)
	if err != nil {
		return "", persistErr("encode attributes", err)
	}

	id := uuid.NewString()
	var embedding any
	if p.Embedding != nil {
		embedding = pq.Array([]float32(p.Embedding))
	}

	var createdAt time.Time
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO properties (
			id, title, address, postcode, price, description, property_type, tenure, status,
			bedrooms, bathrooms, square_feet, features, image_url, location, town, county,
			listing_agent, sale_date, latitude, longitude, attributes, embedding
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23
		)
		RETURNING created_at
	`,
		id, p.Title, p.Address, p.Postcode, p.Price, p.Description,
		string(p.PropertyType), string(p.Tenure), string(p.Status),
		p.Bedrooms, p.Bathrooms, p.SquareFeet, pq.Array(nonNilStrings(p.Features)), p.ImageURL,
		p.Location, p.Town, p.County, p.ListingAgent, p.SaleDate, p.Latitude, p.Longitude,
		attrs, embedding,
	).Scan(&createdAt)
	if err != nil {
		return "", persistErr("insert property", err)
	}

	p.ID = id
	p.CreatedAt = createdAt
	return id, nil
}

// List returns the most recently stored records, newest first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]models.Property, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, address, postcode, price, description, property_type, tenure, status,
		       bedrooms, bathrooms, square_feet, features, image_url, location, town, county,
		       listing_agent, sale_date, latitude, longitude, attributes, embedding, created_at
		FROM properties
		ORDER BY created_at DESC, id
		LIMIT $1
	`, listLimit(limit))
	if err != nil {
		return nil, persistErr("list properties", err)
	}
	defer rows.Close()

	var out []models.Property
	for rows.Next() {
		var (
			p         models.Property
			imageURL  sql.NullString
			lat, lng  sql.NullFloat64
			attrs     []byte
			embedding []float32
		)
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Address, &p.Postcode, &p.Price, &p.Description,
			&p.PropertyType, &p.Tenure, &p.Status,
			&p.Bedrooms, &p.Bathrooms, &p.SquareFeet, pq.Array(&p.Features), &imageURL,
			&p.Location, &p.Town, &p.County, &p.ListingAgent, &p.SaleDate, &lat, &lng,
			&attrs, pq.Array(&embedding), &p.CreatedAt,
		); err != nil {
			return nil, persistErr("scan property", err)
		}
		if p.Attributes, err = decodeAttributes(attrs); err != nil {
			return nil, persistErr("decode attributes", err)
		}
		fillNullable(&p, imageURL, lat, lng)
		if embedding != nil {
			p.Embedding = models.Vector(embedding)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list properties", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func encodeAttributes(attrs map[string]string) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(attrs)
	return string(b), err
}

func decodeAttributes(data []byte) (map[string]string, error) {
	var attrs map[string]string
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, err
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	return attrs, nil
}

func fillNullable(p *models.Property, imageURL sql.NullString, lat, lng sql.NullFloat64) {
	if imageURL.Valid {
		v := imageURL.String
		p.ImageURL = &v
	}
	if lat.Valid {
		v := lat.Float64
		p.Latitude = &v
	}
	if lng.Valid {
		v := lng.Float64
		p.Longitude = &v
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func listLimit(limit int) int {
	if limit <= 0 {
		return 1000
	}
	return limit
}
