package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/hireloop/jobgeo/internal/db"
	"github.com/hireloop/jobgeo/internal/model"
)

// CompanyStore persists companies.
type CompanyStore struct {
	pool db.Pool
}

// NewCompanyStore creates a CompanyStore on the given pool.
func NewCompanyStore(pool db.Pool) *CompanyStore {
	return &CompanyStore{pool: pool}
}

// Name implements BackfillSource.
func (s *CompanyStore) Name() string { return "companies" }

// CountMissingGeocode implements BackfillSource.
func (s *CompanyStore) CountMissingGeocode(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM companies WHERE `+missingGeocodePredicate,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "store: count companies missing geocode")
	}
	return n, nil
}

// Count returns the total number of companies.
func (s *CompanyStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies`).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "store: count companies")
	}
	return n, nil
}

// ListMissingGeocode implements BackfillSource.
func (s *CompanyStore) ListMissingGeocode(ctx context.Context, afterID string, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(location, ''), COALESCE(attrs, '{}'::jsonb)
		FROM companies
		WHERE id > $1 AND (`+missingGeocodePredicate+`)
		ORDER BY id
		LIMIT $2`,
		afterID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list companies missing geocode")
	}
	defer rows.Close()

	return scanRecords(rows)
}

// UpdateGeocode implements BackfillSource. The PostGIS point column is
// derived in the same statement so the spherical index stays in sync.
func (s *CompanyStore) UpdateGeocode(ctx context.Context, id string, upd GeocodeUpdate) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE companies
		SET latitude = $2,
		    longitude = $3,
		    geocode_provider = $4,
		    geocoded_at = $5,
		    geocode_raw = $6,
		    geom = ST_SetSRID(ST_MakePoint($3, $2), 4326)
		WHERE id = $1`,
		id, upd.Point.Latitude, upd.Point.Longitude, upd.Provider, upd.At, nilIfEmptyJSON(upd.Raw),
	)
	return eris.Wrapf(err, "store: update company %s geocode", id)
}

// Import bulk-upserts companies by id. Geo fields are left untouched so a
// re-import never clobbers resolved coordinates.
func (s *CompanyStore) Import(ctx context.Context, companies []model.Company) (int64, error) {
	rows := make([][]any, 0, len(companies))
	for _, c := range companies {
		attrs, err := json.Marshal(c.Attrs)
		if err != nil {
			return 0, eris.Wrapf(err, "store: encode company %s attrs", c.ID)
		}
		rows = append(rows, []any{c.ID, c.Name, c.Location, attrs})
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "companies",
		Columns:      []string{"id", "name", "location", "attrs"},
		ConflictKeys: []string{"id"},
	}, rows)
}

// List returns up to limit companies ordered by id.
func (s *CompanyStore) List(ctx context.Context, limit int) ([]*model.Company, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(location, ''),
		       latitude, longitude, COALESCE(geocode_provider, ''), geocoded_at,
		       COALESCE(attrs, '{}'::jsonb)
		FROM companies
		ORDER BY id
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list companies")
	}
	defer rows.Close()

	var companies []*model.Company
	for rows.Next() {
		var c model.Company
		var attrs []byte
		if err := rows.Scan(&c.ID, &c.Name, &c.Location,
			&c.Geocode.Latitude, &c.Geocode.Longitude, &c.Geocode.Provider, &c.Geocode.At,
			&attrs,
		); err != nil {
			return nil, eris.Wrap(err, "store: scan company")
		}
		if err := json.Unmarshal(attrs, &c.Attrs); err != nil {
			return nil, eris.Wrapf(err, "store: decode company %s attrs", c.ID)
		}
		companies = append(companies, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate companies")
	}
	return companies, nil
}
