package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleProvider geocodes via the Google Geocoding API. It is skipped by the
// chain when no API key is configured.
type GoogleProvider struct {
	key        string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// GoogleOption configures the GoogleProvider.
type GoogleOption func(*GoogleProvider)

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(hc *http.Client) GoogleOption {
	return func(p *GoogleProvider) { p.httpClient = hc }
}

// WithGoogleRateLimit sets the requests-per-second limit.
func WithGoogleRateLimit(rps float64) GoogleOption {
	return func(p *GoogleProvider) { p.limiter = newLimiter(rps) }
}

// NewGoogleProvider creates a GoogleProvider with the given API key.
func NewGoogleProvider(key string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		key:        key,
		baseURL:    googleGeocodeURL,
		httpClient: newHTTPClient(),
		limiter:    newLimiter(10),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *GoogleProvider) Name() string { return "google" }

// Available implements Provider: the API is usable only with a key.
func (p *GoogleProvider) Available() bool { return p.key != "" }

// googleResponse is the JSON envelope of the Geocoding API. Results stay raw
// so the top hit can be retained verbatim for audit.
type googleResponse struct {
	Status  string            `json:"status"`
	Results []json.RawMessage `json:"results"`
}

type googleGeometry struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

// Geocode implements Provider. A ZERO_RESULTS status is an unmatched result;
// transport failures and malformed bodies are errors for the chain to swallow.
func (p *GoogleProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	if p.key == "" {
		return nil, eris.New("geocode: google api key not configured")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: google rate limit")
	}

	params := url.Values{
		"address": {address},
		"key":     {p.key},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: google returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google read body")
	}

	var envelope googleResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, eris.Wrap(err, "geocode: google parse response")
	}

	if envelope.Status != "OK" || len(envelope.Results) == 0 {
		return &Result{Matched: false, Provider: "google"}, nil
	}

	top := envelope.Results[0]
	var geo googleGeometry
	if err := json.Unmarshal(top, &geo); err != nil {
		return nil, eris.Wrap(err, "geocode: google parse geometry")
	}

	return &Result{
		Latitude:  geo.Geometry.Location.Lat,
		Longitude: geo.Geometry.Location.Lng,
		Provider:  "google",
		Raw:       top,
		Matched:   true,
	}, nil
}
