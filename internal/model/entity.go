package model

import (
	"encoding/json"
	"time"
)

// Geocode holds resolution provenance for an entity. Whenever coordinates are
// set, Provider and At are set with them; provenance is never partial.
type Geocode struct {
	Latitude  *float64        `json:"latitude,omitempty"`
	Longitude *float64        `json:"longitude,omitempty"`
	Provider  string          `json:"provider,omitempty"`
	At        *time.Time      `json:"at,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// Point returns the resolved coordinates, if both components are present.
// A zero latitude or longitude is a real coordinate, not a missing one, which
// is why the components are pointers rather than floats.
func (g Geocode) Point() (GeoPoint, bool) {
	if g.Latitude == nil || g.Longitude == nil {
		return GeoPoint{}, false
	}
	p := GeoPoint{Latitude: *g.Latitude, Longitude: *g.Longitude}
	if !p.Valid() {
		return GeoPoint{}, false
	}
	return p, true
}

// Company is an employer record. Only the geo-relevant fields are modeled;
// the rest of the row travels in Attrs as imported.
type Company struct {
	ID       string
	Name     string
	Location string // free-text address, source of truth for geocoding
	Geocode  Geocode
	Attrs    map[string]any
}

// EntityID implements the locatable contract.
func (c *Company) EntityID() string { return c.ID }

// LocationText implements the locatable contract.
func (c *Company) LocationText() string { return c.Location }

// Document returns the raw imported attributes for field-level extraction.
func (c *Company) Document() map[string]any { return c.Attrs }

// Geocoded returns the persisted coordinates, if resolved.
func (c *Company) Geocoded() (GeoPoint, bool) { return c.Geocode.Point() }

// Job is a posting record. Company is a read-time join used only as a
// fallback display location; nothing derived from it is written back.
type Job struct {
	ID        string
	Title     string
	Location  string
	CompanyID string
	Geocode   Geocode
	Attrs     map[string]any

	Company *Company
}

// EntityID implements the locatable contract.
func (j *Job) EntityID() string { return j.ID }

// LocationText implements the locatable contract.
func (j *Job) LocationText() string { return j.Location }

// Document returns the raw imported attributes for field-level extraction.
func (j *Job) Document() map[string]any { return j.Attrs }

// Geocoded returns the persisted coordinates, if resolved.
func (j *Job) Geocoded() (GeoPoint, bool) { return j.Geocode.Point() }
