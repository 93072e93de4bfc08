// Package extract recovers coordinates from heterogeneously-shaped records
// without any network calls. Source rows arrive from several upstream feeds,
// each spelling the location differently, so extraction runs an ordered list
// of strategies and the first hit wins.
package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/hireloop/jobgeo/internal/model"
)

// Entity is the locatable contract satisfied by model.Job and model.Company.
type Entity interface {
	EntityID() string
	LocationText() string
	Document() map[string]any
	Geocoded() (model.GeoPoint, bool)
}

// strategy inspects a raw document and either produces a point or passes.
type strategy func(doc map[string]any) (model.GeoPoint, bool)

// Strategies run in precedence order: explicit numeric fields beat coordinate
// containers, containers beat GeoJSON arrays, and free text comes last.
// Append new shapes here rather than widening existing ones.
var strategies = []strategy{
	explicitPair,
	orderedPair,
	geoJSONPair,
	nestedLocation,
	textLocation,
}

// pairAliases are the recognized (lat, lng) field name pairs, in order.
var pairAliases = [][2]string{
	{"locationLat", "locationLng"},
	{"latitude", "longitude"},
	{"lat", "lng"},
}

// FromEntity resolves an entity's coordinates from local data only: persisted
// geocode columns first, then the raw attribute document, then the free-text
// location column.
func FromEntity(e Entity) (model.GeoPoint, bool) {
	if p, ok := e.Geocoded(); ok {
		return p, true
	}
	if p, ok := FromDocument(e.Document()); ok {
		return p, true
	}
	return FromText(e.LocationText())
}

// FromDocument extracts a coordinate pair from a raw attribute document.
// It never fails: malformed values simply leave the record unresolved.
func FromDocument(doc map[string]any) (model.GeoPoint, bool) {
	if len(doc) == 0 {
		return model.GeoPoint{}, false
	}
	for _, s := range strategies {
		if p, ok := s(doc); ok {
			return p, true
		}
	}
	return model.GeoPoint{}, false
}

// explicitPair matches paired numeric fields under the known aliases. A zero
// value counts as present: equator and prime-meridian coordinates are real.
func explicitPair(doc map[string]any) (model.GeoPoint, bool) {
	for _, alias := range pairAliases {
		lat, latOK := asFloat(doc[alias[0]])
		lng, lngOK := asFloat(doc[alias[1]])
		if latOK && lngOK {
			return newPoint(lat, lng)
		}
	}
	return model.GeoPoint{}, false
}

// orderedPair matches [lat, lng] container fields.
func orderedPair(doc map[string]any) (model.GeoPoint, bool) {
	for _, key := range []string{"locationCoords", "coords"} {
		if lat, lng, ok := firstTwo(doc[key]); ok {
			return newPoint(lat, lng)
		}
	}
	return model.GeoPoint{}, false
}

// geoJSONPair matches a GeoJSON-style [lng, lat] array and reverses it.
func geoJSONPair(doc map[string]any) (model.GeoPoint, bool) {
	if lng, lat, ok := firstTwo(doc["coordinates"]); ok {
		return newPoint(lat, lng)
	}
	return model.GeoPoint{}, false
}

// nestedLocation matches a location object carrying either a GeoJSON
// coordinates array or one of the numeric field pairs.
func nestedLocation(doc map[string]any) (model.GeoPoint, bool) {
	nested, ok := doc["location"].(map[string]any)
	if !ok {
		return model.GeoPoint{}, false
	}
	if lng, lat, ok := firstTwo(nested["coordinates"]); ok {
		return newPoint(lat, lng)
	}
	return explicitPair(nested)
}

// textLocation matches a free-text location string carrying a float pair.
func textLocation(doc map[string]any) (model.GeoPoint, bool) {
	s, ok := doc["location"].(string)
	if !ok {
		return model.GeoPoint{}, false
	}
	return FromText(s)
}

var (
	commaPair = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*,\s*(-?\d+(?:\.\d+)?)`)
	spacePair = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s+(-?\d+(?:\.\d+)?)`)
)

// FromText scans free text for a "lat,lng" or "lat lng" float pair.
// Place names without embedded floats come back unresolved.
func FromText(s string) (model.GeoPoint, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.GeoPoint{}, false
	}
	for _, re := range []*regexp.Regexp{commaPair, spacePair} {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		lat, errLat := strconv.ParseFloat(m[1], 64)
		lng, errLng := strconv.ParseFloat(m[2], 64)
		if errLat != nil || errLng != nil {
			continue
		}
		return newPoint(lat, lng)
	}
	return model.GeoPoint{}, false
}

// firstTwo coerces the first two elements of an array value to floats.
func firstTwo(v any) (a, b float64, ok bool) {
	arr, isArr := v.([]any)
	if !isArr || len(arr) < 2 {
		return 0, 0, false
	}
	a, aOK := asFloat(arr[0])
	b, bOK := asFloat(arr[1])
	return a, b, aOK && bOK
}

// asFloat coerces JSON-decoded scalars to float64. Unparseable strings are
// treated as absent, not as errors.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// newPoint validates extracted values; out-of-range pairs stay unresolved.
func newPoint(lat, lng float64) (model.GeoPoint, bool) {
	p, err := model.NewGeoPoint(lat, lng)
	if err != nil {
		return model.GeoPoint{}, false
	}
	return p, true
}
