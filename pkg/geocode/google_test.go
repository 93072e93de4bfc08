package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleGeocode_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "MG Road, Bengaluru", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"status": "OK",
			"results": [{
				"geometry": {"location": {"lat": 12.975, "lng": 77.606}},
				"formatted_address": "MG Road, Bengaluru, Karnataka, India"
			}]
		}`)
	}))
	defer srv.Close()

	p := NewGoogleProvider("test-key",
		WithGoogleHTTPClient(newRewriteClient(srv.URL, googleGeocodeURL)),
		WithGoogleRateLimit(1000),
	)

	result, err := p.Geocode(context.Background(), "MG Road, Bengaluru")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.InDelta(t, 12.975, result.Latitude, 1e-6)
	assert.InDelta(t, 77.606, result.Longitude, 1e-6)
	assert.Equal(t, "google", result.Provider)
	assert.Contains(t, string(result.Raw), "formatted_address")
}

func TestGoogleGeocode_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status": "ZERO_RESULTS", "results": []}`)
	}))
	defer srv.Close()

	p := NewGoogleProvider("test-key",
		WithGoogleHTTPClient(newRewriteClient(srv.URL, googleGeocodeURL)),
		WithGoogleRateLimit(1000),
	)

	result, err := p.Geocode(context.Background(), "xyzzy")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "google", result.Provider)
}

func TestGoogleGeocode_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewGoogleProvider("test-key",
		WithGoogleHTTPClient(newRewriteClient(srv.URL, googleGeocodeURL)),
		WithGoogleRateLimit(1000),
	)

	_, err := p.Geocode(context.Background(), "MG Road")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestGoogleProvider_Availability(t *testing.T) {
	assert.False(t, NewGoogleProvider("").Available())
	assert.True(t, NewGoogleProvider("key").Available())
}
