package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireloop/jobgeo/internal/model"
)

func TestJobStore_CountMissingGeocode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM jobs").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := NewJobStore(mock).CountMissingGeocode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_ListMissingGeocode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, COALESCE\\(location, ''\\), COALESCE\\(attrs, '\\{\\}'::jsonb\\)").
		WithArgs("", 50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "location", "attrs"}).
			AddRow("j1", "MG Road, Bengaluru", []byte(`{"lat": 12.97, "lng": 77.59}`)).
			AddRow("j2", "", []byte(`{}`)))

	records, err := NewJobStore(mock).ListMissingGeocode(context.Background(), "", 50)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "j1", records[0].ID)
	assert.Equal(t, "MG Road, Bengaluru", records[0].Location)
	assert.Equal(t, 12.97, records[0].Attrs["lat"])
	assert.Empty(t, records[1].Attrs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_UpdateGeocode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	raw := json.RawMessage(`{"display_name":"MG Road"}`)
	mock.ExpectExec("UPDATE jobs").
		WithArgs("j1", 12.975, 77.606, "nominatim", at, []byte(raw)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = NewJobStore(mock).UpdateGeocode(context.Background(), "j1", GeocodeUpdate{
		Point:    model.GeoPoint{Latitude: 12.975, Longitude: 77.606},
		Provider: "nominatim",
		At:       at,
		Raw:      raw,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_ListWithCompanies(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	lat, lng := 12.98, 77.60
	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	companyName := "Acme"
	companyLoc := "Bengaluru"
	companyProvider := "google"
	companyID := "c1"

	mock.ExpectQuery("SELECT j.id").
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "title", "location", "company_id",
			"latitude", "longitude", "geocode_provider", "geocoded_at", "attrs",
			"c_id", "c_name", "c_location", "c_latitude", "c_longitude", "c_provider", "c_geocoded_at",
		}).AddRow(
			"j1", "Backend Engineer", "MG Road", "c1",
			nil, nil, "", nil, []byte(`{}`),
			&companyID, &companyName, &companyLoc, &lat, &lng, &companyProvider, &at,
		).AddRow(
			"j2", "Designer", "", "",
			nil, nil, "", nil, []byte(`{}`),
			nil, nil, nil, nil, nil, nil, nil,
		))

	jobs, err := NewJobStore(mock).ListWithCompanies(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	require.NotNil(t, jobs[0].Company)
	assert.Equal(t, "Acme", jobs[0].Company.Name)
	p, ok := jobs[0].Company.Geocoded()
	require.True(t, ok)
	assert.InDelta(t, 12.98, p.Latitude, 1e-9)

	assert.Nil(t, jobs[1].Company)
	_, ok = jobs[1].Geocoded()
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyStore_UpdateGeocode_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE companies").
		WillReturnError(assert.AnError)

	err = NewCompanyStore(mock).UpdateGeocode(context.Background(), "c1", GeocodeUpdate{
		Point:    model.GeoPoint{Latitude: 1, Longitude: 2},
		Provider: "google",
		At:       time.Now(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update company c1")
}

func TestCompanyStore_Count(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM companies").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))

	n, err := NewCompanyStore(mock).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestJobStore_Import(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	columns := []string{"id", "title", "location", "company_id", "attrs"}

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_jobs"}, columns).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "jobs"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := NewJobStore(mock).Import(context.Background(), []model.Job{
		{ID: "j1", Title: "Backend Engineer", Location: "MG Road", CompanyID: "c1"},
		{ID: "j2", Title: "Designer"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	for range migrations {
		mock.ExpectExec(".*").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}
