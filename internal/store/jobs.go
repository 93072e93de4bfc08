package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/hireloop/jobgeo/internal/db"
	"github.com/hireloop/jobgeo/internal/model"
)

// JobStore persists job postings.
type JobStore struct {
	pool db.Pool
}

// NewJobStore creates a JobStore on the given pool.
func NewJobStore(pool db.Pool) *JobStore {
	return &JobStore{pool: pool}
}

// Name implements BackfillSource.
func (s *JobStore) Name() string { return "jobs" }

// CountMissingGeocode implements BackfillSource.
func (s *JobStore) CountMissingGeocode(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE `+missingGeocodePredicate,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "store: count jobs missing geocode")
	}
	return n, nil
}

// Count returns the total number of jobs.
func (s *JobStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "store: count jobs")
	}
	return n, nil
}

// ListMissingGeocode implements BackfillSource.
func (s *JobStore) ListMissingGeocode(ctx context.Context, afterID string, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(location, ''), COALESCE(attrs, '{}'::jsonb)
		FROM jobs
		WHERE id > $1 AND (`+missingGeocodePredicate+`)
		ORDER BY id
		LIMIT $2`,
		afterID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list jobs missing geocode")
	}
	defer rows.Close()

	return scanRecords(rows)
}

// UpdateGeocode implements BackfillSource.
func (s *JobStore) UpdateGeocode(ctx context.Context, id string, upd GeocodeUpdate) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs
		SET latitude = $2,
		    longitude = $3,
		    geocode_provider = $4,
		    geocoded_at = $5,
		    geocode_raw = $6,
		    geom = ST_SetSRID(ST_MakePoint($3, $2), 4326)
		WHERE id = $1`,
		id, upd.Point.Latitude, upd.Point.Longitude, upd.Provider, upd.At, nilIfEmptyJSON(upd.Raw),
	)
	return eris.Wrapf(err, "store: update job %s geocode", id)
}

// Import bulk-upserts jobs by id. Geo fields are left untouched so a
// re-import never clobbers resolved coordinates.
func (s *JobStore) Import(ctx context.Context, jobs []model.Job) (int64, error) {
	rows := make([][]any, 0, len(jobs))
	for _, j := range jobs {
		attrs, err := json.Marshal(j.Attrs)
		if err != nil {
			return 0, eris.Wrapf(err, "store: encode job %s attrs", j.ID)
		}
		rows = append(rows, []any{j.ID, j.Title, j.Location, nilIfEmptyString(j.CompanyID), attrs})
	}
	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "jobs",
		Columns:      []string{"id", "title", "location", "company_id", "attrs"},
		ConflictKeys: []string{"id"},
	}, rows)
}

// nilIfEmptyString returns nil for "", allowing NULL storage of the optional
// company reference.
func nilIfEmptyString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ListWithCompanies returns up to limit jobs with their company rows joined
// in. The company is a read-time association used as a fallback display
// location; nothing from it is ever written onto the job.
func (s *JobStore) ListWithCompanies(ctx context.Context, limit int) ([]*model.Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT j.id, COALESCE(j.title, ''), COALESCE(j.location, ''), COALESCE(j.company_id::text, ''),
		       j.latitude, j.longitude, COALESCE(j.geocode_provider, ''), j.geocoded_at,
		       COALESCE(j.attrs, '{}'::jsonb),
		       c.id, c.name, c.location, c.latitude, c.longitude, c.geocode_provider, c.geocoded_at
		FROM jobs j
		LEFT JOIN companies c ON c.id = j.company_id
		ORDER BY j.id
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list jobs with companies")
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		var j model.Job
		var attrs []byte
		var companyID, companyName, companyLocation, companyProvider *string
		var companyLat, companyLng *float64
		var companyAt *time.Time
		if err := rows.Scan(&j.ID, &j.Title, &j.Location, &j.CompanyID,
			&j.Geocode.Latitude, &j.Geocode.Longitude, &j.Geocode.Provider, &j.Geocode.At,
			&attrs,
			&companyID, &companyName, &companyLocation, &companyLat, &companyLng, &companyProvider, &companyAt,
		); err != nil {
			return nil, eris.Wrap(err, "store: scan job")
		}
		if err := json.Unmarshal(attrs, &j.Attrs); err != nil {
			return nil, eris.Wrapf(err, "store: decode job %s attrs", j.ID)
		}
		if companyID != nil {
			c := &model.Company{ID: *companyID}
			if companyName != nil {
				c.Name = *companyName
			}
			if companyLocation != nil {
				c.Location = *companyLocation
			}
			c.Geocode.Latitude = companyLat
			c.Geocode.Longitude = companyLng
			if companyProvider != nil {
				c.Geocode.Provider = *companyProvider
			}
			c.Geocode.At = companyAt
			j.Company = c
		}
		jobs = append(jobs, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate jobs")
	}
	return jobs, nil
}

// scanRecords drains a (id, location, attrs) row set into Records.
func scanRecords(rows pgx.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		var attrs []byte
		if err := rows.Scan(&r.ID, &r.Location, &attrs); err != nil {
			return nil, eris.Wrap(err, "store: scan record")
		}
		if err := json.Unmarshal(attrs, &r.Attrs); err != nil {
			return nil, eris.Wrapf(err, "store: decode record %s attrs", r.ID)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate records")
	}
	return records, nil
}

// nilIfEmptyJSON returns nil for empty payloads, allowing NULL storage.
func nilIfEmptyJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
