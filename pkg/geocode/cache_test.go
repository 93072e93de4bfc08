package geocode

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_Normalization(t *testing.T) {
	// Case, surrounding whitespace, and interior run length must not change
	// the key.
	base := cacheKey("MG Road, Bengaluru")
	assert.Equal(t, base, cacheKey("  mg road,   bengaluru "))
	assert.NotEqual(t, base, cacheKey("MG Road, Bengalur"))
}

func TestCacheGet_Hit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	raw := json.RawMessage(`{"display_name":"MG Road"}`)
	mock.ExpectQuery("SELECT latitude, longitude, provider, raw, matched FROM geocode_cache").
		WithArgs(cacheKey("MG Road, Bengaluru")).
		WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude", "provider", "raw", "matched"}).
			AddRow(12.975, 77.606, "nominatim", raw, true))

	cache := NewCache(mock)
	result, err := cache.Get(context.Background(), "MG Road, Bengaluru")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "nominatim", result.Provider)
	assert.InDelta(t, 12.975, result.Latitude, 1e-6)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheGet_Miss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT latitude, longitude, provider, raw, matched FROM geocode_cache").
		WithArgs(cacheKey("unknown")).
		WillReturnError(assert.AnError)

	cache := NewCache(mock)
	result, err := cache.Get(context.Background(), "unknown")
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestCachePut(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	result := &Result{
		Latitude: 12.975, Longitude: 77.606,
		Provider: "google",
		Raw:      json.RawMessage(`{}`),
		Matched:  true,
	}
	mock.ExpectExec("INSERT INTO geocode_cache").
		WithArgs(cacheKey("MG Road"), result.Latitude, result.Longitude, result.Provider,
			[]byte(result.Raw), result.Matched).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	cache := NewCache(mock)
	require.NoError(t, cache.Put(context.Background(), "MG Road", result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChainWithCache_SecondLookupSkipsProviders(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	key := cacheKey("MG Road")
	provider := &fakeProvider{
		name: "nominatim", available: true,
		result: &Result{Latitude: 12.975, Longitude: 77.606, Provider: "nominatim", Matched: true},
	}
	chain := NewChain([]Provider{provider}, WithChainCache(NewCache(mock)))

	// First call: cache miss, provider hit, result stored.
	mock.ExpectQuery("SELECT latitude, longitude, provider, raw, matched FROM geocode_cache").
		WithArgs(key).
		WillReturnError(assert.AnError)
	mock.ExpectExec("INSERT INTO geocode_cache").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err = chain.Geocode(context.Background(), "MG Road")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)

	// Second call: served from cache.
	mock.ExpectQuery("SELECT latitude, longitude, provider, raw, matched FROM geocode_cache").
		WithArgs(key).
		WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude", "provider", "raw", "matched"}).
			AddRow(12.975, 77.606, "nominatim", json.RawMessage(`{}`), true))

	result, err := chain.Geocode(context.Background(), "MG Road")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, 1, provider.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}
