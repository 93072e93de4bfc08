// Package model holds the geo-domain entities: validated coordinate pairs and
// the job and company records they attach to.
package model

import "github.com/rotisserie/eris"

// GeoPoint is a coordinate pair in decimal degrees. Construct via NewGeoPoint
// so the range invariants hold; treat values as immutable once built.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewGeoPoint validates and returns a GeoPoint.
func NewGeoPoint(lat, lng float64) (GeoPoint, error) {
	p := GeoPoint{Latitude: lat, Longitude: lng}
	if !p.Valid() {
		return GeoPoint{}, eris.Errorf("model: coordinates out of range (%f, %f)", lat, lng)
	}
	return p, nil
}

// Valid reports whether latitude is within [-90, 90] and longitude within
// [-180, 180].
func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}
