package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"pricetier/internal/mapping"
	"pricetier/internal/model"
)

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	dsn, err := connString(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// connString normalises a DSN to lib/pq's key=value form. URL DSNs are
// converted; key=value DSNs pass through unchanged.
func connString(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		kv, err := pq.ParseURL(dsn)
		if err != nil {
			return "", fmt.Errorf("invalid database URL: %w", err)
		}
		return kv, nil
	}
	return dsn, nil
}

// NewPostgresRepositoryFromDB wraps an existing connection
func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks the connection
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Migrate creates the tables used by the pipeline and the prediction log
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	dims := len(mapping.FeatureNames)
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS listings (
			id BIGINT PRIMARY KEY,
			neighbourhood TEXT NOT NULL,
			property_type TEXT NOT NULL,
			room_type TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			accommodates INTEGER NOT NULL,
			bathrooms DOUBLE PRECISION NOT NULL,
			bedrooms DOUBLE PRECISION NOT NULL,
			beds DOUBLE PRECISION NOT NULL,
			price INTEGER NOT NULL,
			category SMALLINT NOT NULL,
			amenities JSONB NOT NULL DEFAULT '{}',
			features vector(%d),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dims),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS predictions (
			request_id UUID PRIMARY KEY,
			listing_id BIGINT NOT NULL,
			model_path TEXT NOT NULL,
			model_run_id TEXT NOT NULL,
			category SMALLINT NOT NULL,
			price_category TEXT NOT NULL,
			features vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dims),
		`CREATE INDEX IF NOT EXISTS idx_predictions_listing_id ON predictions (listing_id)`,
	}

	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

const upsertListing = `
	INSERT INTO listings (
		id, neighbourhood, property_type, room_type, latitude, longitude,
		accommodates, bathrooms, bedrooms, beds, price, category, amenities, features, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
	ON CONFLICT (id) DO UPDATE SET
		neighbourhood = EXCLUDED.neighbourhood,
		property_type = EXCLUDED.property_type,
		room_type = EXCLUDED.room_type,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		accommodates = EXCLUDED.accommodates,
		bathrooms = EXCLUDED.bathrooms,
		bedrooms = EXCLUDED.bedrooms,
		beds = EXCLUDED.beds,
		price = EXCLUDED.price,
		category = EXCLUDED.category,
		amenities = EXCLUDED.amenities,
		features = EXCLUDED.features,
		updated_at = NOW()`

// SaveListings upserts cleaned listings with their feature vectors in one
// transaction. Listings whose categories could not be encoded are stored with
// a NULL vector.
func (r *PostgresRepository) SaveListings(ctx context.Context, listings []model.StoredListing) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, upsertListing)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	saved := 0
	for _, s := range listings {
		l := s.Listing
		if l == nil || l.ID == nil {
			continue
		}
		amenities, err := amenitiesJSON(l.Amenities)
		if err != nil {
			return 0, err
		}
		_, err = stmt.ExecContext(ctx,
			*l.ID, l.Neighbourhood, l.PropertyType, l.RoomType,
			l.Latitude, l.Longitude, l.Accommodates, l.Bathrooms, l.Bedrooms, l.Beds,
			l.Price, l.Category, amenities, vectorOrNil(s.Features),
		)
		if err != nil {
			return 0, fmt.Errorf("listing %d: %w", *l.ID, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return saved, nil
}

// LogPrediction records a served prediction
func (r *PostgresRepository) LogPrediction(ctx context.Context, rec *model.PredictionRecord) error {
	query := `
		INSERT INTO predictions (request_id, listing_id, model_path, model_run_id, category, price_category, features, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.RequestID, rec.ListingID, rec.ModelPath, rec.ModelRunID,
		rec.Category, rec.PriceCategory, vectorOrNil(rec.Features), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log prediction: %w", err)
	}
	return nil
}

// RecentPredictions returns the latest predictions for a listing, newest first
func (r *PostgresRepository) RecentPredictions(ctx context.Context, listingID int64, limit int) ([]model.PredictionRecord, error) {
	query := `
		SELECT request_id, listing_id, model_path, model_run_id, category, price_category, created_at
		FROM predictions
		WHERE listing_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	var records []model.PredictionRecord
	if err := r.db.SelectContext(ctx, &records, query, listingID, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch predictions: %w", err)
	}
	return records, nil
}

func amenitiesJSON(flags model.AmenityFlags) ([]byte, error) {
	if flags == nil {
		flags = model.AmenityFlags{}
	}
	b, err := json.Marshal(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode amenities: %w", err)
	}
	return b, nil
}

func vectorOrNil(features []float64) interface{} {
	if features == nil {
		return nil
	}
	vals := make([]float32, len(features))
	for i, v := range features {
		vals[i] = float32(v)
	}
	return pgvector.NewVector(vals)
}
