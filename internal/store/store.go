// Package store persists jobs and companies in Postgres and exposes the
// geocode-centric queries the backfill and proximity paths need.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hireloop/jobgeo/internal/model"
)

// Record is the geocoding-relevant projection of a job or company row, the
// unit the backfill coordinator works in.
type Record struct {
	ID       string
	Location string
	Attrs    map[string]any
}

// GeocodeUpdate carries a resolution result to persist. Provider and At are
// mandatory whenever coordinates are written; provenance is never partial.
type GeocodeUpdate struct {
	Point    model.GeoPoint
	Provider string
	At       time.Time
	Raw      json.RawMessage
}

// BackfillSource is a collection of rows that may be missing coordinates.
// Both entity stores implement it.
type BackfillSource interface {
	// Name identifies the collection in logs and operator output.
	Name() string

	// CountMissingGeocode counts rows missing coordinates or provenance.
	CountMissingGeocode(ctx context.Context) (int, error)

	// ListMissingGeocode returns up to limit rows missing coordinates or
	// provenance, ordered by id, starting after afterID.
	ListMissingGeocode(ctx context.Context, afterID string, limit int) ([]Record, error)

	// UpdateGeocode writes a resolution result onto a row.
	UpdateGeocode(ctx context.Context, id string, upd GeocodeUpdate) error
}

// missingGeocodePredicate selects rows whose coordinates or provenance are
// absent. Re-running a backfill only touches rows still matching it.
const missingGeocodePredicate = `latitude IS NULL OR longitude IS NULL OR geocode_provider IS NULL OR geocoded_at IS NULL`
