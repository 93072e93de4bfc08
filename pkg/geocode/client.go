// Package geocode resolves free-text locations to coordinates via a provider
// chain: Google Geocoding API when a key is configured, Nominatim otherwise.
package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// defaultTimeout bounds every provider HTTP call.
const defaultTimeout = 10 * time.Second

// Client resolves a free-text address to coordinates.
type Client interface {
	// Geocode resolves a single address. An address no provider can locate
	// is a normal outcome: Matched is false and err is nil.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the resolution output for one address. Raw retains the
// provider's top hit for audit.
type Result struct {
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Provider  string          `json:"provider"` // "google" or "nominatim"
	Raw       json.RawMessage `json:"raw,omitempty"`
	Matched   bool            `json:"matched"`
}

// Provider is a single geocoding backend. Providers report "no result" as an
// unmatched Result; errors are reserved for transient failures (timeouts,
// malformed responses, non-2xx statuses) that the chain falls through.
type Provider interface {
	Name() string
	Available() bool
	Geocode(ctx context.Context, address string) (*Result, error)
}

// newHTTPClient returns the bounded-timeout client providers default to.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// newLimiter returns a provider rate limiter for the given requests/second.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		rps = 1
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}
