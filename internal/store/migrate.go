package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hireloop/jobgeo/internal/db"
)

// migrations run in order and are individually idempotent.
var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,

	`CREATE TABLE IF NOT EXISTS companies (
		id               TEXT PRIMARY KEY,
		name             TEXT,
		location         TEXT,
		latitude         DOUBLE PRECISION,
		longitude        DOUBLE PRECISION,
		geocode_provider TEXT,
		geocoded_at      TIMESTAMPTZ,
		geocode_raw      JSONB,
		attrs            JSONB,
		geom             geometry(Point, 4326),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS jobs (
		id               TEXT PRIMARY KEY,
		title            TEXT,
		location         TEXT,
		company_id       TEXT REFERENCES companies(id),
		latitude         DOUBLE PRECISION,
		longitude        DOUBLE PRECISION,
		geocode_provider TEXT,
		geocoded_at      TIMESTAMPTZ,
		geocode_raw      JSONB,
		attrs            JSONB,
		geom             geometry(Point, 4326),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS geocode_cache (
		address_hash TEXT PRIMARY KEY,
		latitude     DOUBLE PRECISION NOT NULL,
		longitude    DOUBLE PRECISION NOT NULL,
		provider     TEXT NOT NULL DEFAULT '',
		raw          JSONB,
		matched      BOOLEAN NOT NULL,
		cached_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// Spherical indexes for radius queries over resolved entities.
	`CREATE INDEX IF NOT EXISTS jobs_geom_gix ON jobs USING GIST ((geom::geography))`,
	`CREATE INDEX IF NOT EXISTS companies_geom_gix ON companies USING GIST ((geom::geography))`,

	// Partial indexes keep the backfill's missing-geocode scans cheap.
	`CREATE INDEX IF NOT EXISTS jobs_missing_geocode_idx ON jobs (id)
		WHERE latitude IS NULL OR longitude IS NULL OR geocode_provider IS NULL OR geocoded_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS companies_missing_geocode_idx ON companies (id)
		WHERE latitude IS NULL OR longitude IS NULL OR geocode_provider IS NULL OR geocoded_at IS NULL`,
}

// Migrate creates the schema, indexes, and cache table.
func Migrate(ctx context.Context, pool db.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "store: migrate")
		}
	}
	zap.L().Info("schema migrated", zap.Int("statements", len(migrations)))
	return nil
}
