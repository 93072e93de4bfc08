package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const nominatimSearchURL = "https://nominatim.openstreetmap.org/search"

// defaultUserAgent identifies this application per the Nominatim usage
// policy, which rejects anonymous clients.
const defaultUserAgent = "jobgeo/1.0 (job board geocoder; ops@hireloop.dev)"

// NominatimProvider geocodes via the OpenStreetMap Nominatim service. It
// needs no credentials and serves as the always-available fallback.
type NominatimProvider struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NominatimOption configures the NominatimProvider.
type NominatimOption func(*NominatimProvider)

// WithNominatimBaseURL overrides the search endpoint, e.g. for a self-hosted
// instance.
func WithNominatimBaseURL(u string) NominatimOption {
	return func(p *NominatimProvider) {
		if u != "" {
			p.baseURL = u
		}
	}
}

// WithNominatimUserAgent sets the client identification header.
func WithNominatimUserAgent(ua string) NominatimOption {
	return func(p *NominatimProvider) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

// WithNominatimHTTPClient sets a custom HTTP client.
func WithNominatimHTTPClient(hc *http.Client) NominatimOption {
	return func(p *NominatimProvider) { p.httpClient = hc }
}

// NewNominatimProvider creates a NominatimProvider. The public instance
// allows at most one request per second.
func NewNominatimProvider(opts ...NominatimOption) *NominatimProvider {
	p := &NominatimProvider{
		baseURL:    nominatimSearchURL,
		userAgent:  defaultUserAgent,
		httpClient: newHTTPClient(),
		limiter:    newLimiter(1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

// Available implements Provider.
func (p *NominatimProvider) Available() bool { return true }

// nominatimHit is the coordinate part of a search result element; Nominatim
// returns lat/lon as strings.
type nominatimHit struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode implements Provider. An empty result array is an unmatched result.
func (p *NominatimProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	params := url.Values{
		"q":      {address},
		"format": {"json"},
		"limit":  {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim read body")
	}

	var hits []json.RawMessage
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}
	if len(hits) == 0 {
		return &Result{Matched: false, Provider: "nominatim"}, nil
	}

	top := hits[0]
	var hit nominatimHit
	if err := json.Unmarshal(top, &hit); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse hit")
	}
	lat, err := strconv.ParseFloat(hit.Lat, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse lat")
	}
	lng, err := strconv.ParseFloat(hit.Lon, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse lon")
	}

	return &Result{
		Latitude:  lat,
		Longitude: lng,
		Provider:  "nominatim",
		Raw:       top,
		Matched:   true,
	}, nil
}
