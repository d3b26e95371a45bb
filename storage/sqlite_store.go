package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"property-ingest/models"
	"property-ingest/utils"
)

// SQLiteStore persists records to a local SQLite file. List-valued
// columns are stored as JSON text.
type SQLiteStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path and runs
// migrations. ":memory:" gives a private in-memory database.
func NewSQLiteStore(path string, logger *utils.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive for the store's lifetime.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: pragma: %w", err)
	}

	version, err := RunMigrations(db, "sqlite")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	logger.Info("[sqlite] %s at schema version %d", path, version)

	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Create(ctx context.Context, p *models.Property) (string, error) {
	attrs, err := encodeAttributes(p.Attributes)
	if err != nil {
		return "", persistErr("encode attributes", err)
	}
	features, err := json.Marshal(nonNilStrings(p.Features))
	if err != nil {
		return "", persistErr("encode features", err)
	}
	var embedding any
	if p.Embedding != nil {
		b, err := json.Marshal(p.Embedding)
		if err != nil {
			return "", persistErr("encode embedding", err)
		}
		embedding = string(b)
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO properties (
			id, title, address, postcode, price, description, property_type, tenure, status,
			bedrooms, bathrooms, square_feet, features, image_url, location, town, county,
			listing_agent, sale_date, latitude, longitude, attributes, embedding, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, p.Title, p.Address, p.Postcode, p.Price, p.Description,
		string(p.PropertyType), string(p.Tenure), string(p.Status),
		p.Bedrooms, p.Bathrooms, p.SquareFeet, string(features), p.ImageURL,
		p.Location, p.Town, p.County, p.ListingAgent, p.SaleDate, p.Latitude, p.Longitude,
		attrs, embedding, createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", persistErr("insert property", err)
	}

	p.ID = id
	p.CreatedAt = createdAt
	return id, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]models.Property, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, address, postcode, price, description, property_type, tenure, status,
		       bedrooms, bathrooms, square_feet, features, image_url, location, town, county,
		       listing_agent, sale_date, latitude, longitude, attributes, embedding, created_at
		FROM properties
		ORDER BY created_at DESC, id
		LIMIT ?
	`, listLimit(limit))
	if err != nil {
		return nil, persistErr("list properties", err)
	}
	defer rows.Close()

	var out []models.Property
	for rows.Next() {
		var (
			p                   models.Property
			features, attrs     string
			imageURL, embedding sql.NullString
			lat, lng            sql.NullFloat64
			createdAt           string
		)
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Address, &p.Postcode, &p.Price, &p.Description,
			&p.PropertyType, &p.Tenure, &p.Status,
			&p.Bedrooms, &p.Bathrooms, &p.SquareFeet, &features, &imageURL,
			&p.Location, &p.Town, &p.County, &p.ListingAgent, &p.SaleDate, &lat, &lng,
			&attrs, &embedding, &createdAt,
		); err != nil {
			return nil, persistErr("scan property", err)
		}

		if err := json.Unmarshal([]byte(features), &p.Features); err != nil {
			return nil, persistErr("decode features", err)
		}
		if p.Attributes, err = decodeAttributes([]byte(attrs)); err != nil {
			return nil, persistErr("decode attributes", err)
		}
		if embedding.Valid {
			if err := json.Unmarshal([]byte(embedding.String), &p.Embedding); err != nil {
				return nil, persistErr("decode embedding", err)
			}
		}
		fillNullable(&p, imageURL, lat, lng)
		if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, persistErr("decode created_at", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list properties", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
