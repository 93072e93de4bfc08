package proximity

import (
	"math"
	"sort"

	"github.com/hireloop/jobgeo/internal/extract"
	"github.com/hireloop/jobgeo/internal/model"
)

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b model.GeoPoint) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Match pairs an entity with its resolved point and distance from the origin.
type Match struct {
	Entity     extract.Entity
	Point      model.GeoPoint
	DistanceKm float64
}

// Matcher evaluates distance queries against a candidate set, consulting the
// session cache and the job→company fallback for entities without their own
// coordinates.
type Matcher struct {
	cache *Cache
}

// NewMatcher creates a Matcher over the given session cache.
func NewMatcher(cache *Cache) *Matcher {
	return &Matcher{cache: cache}
}

// FindNearby returns candidates within radiusKm of origin, ascending by
// distance; the boundary is inclusive. Ties keep the candidates' input order.
// Candidates without a resolvable point are returned separately so the
// caller can queue them for lazy resolution; they are excluded from this
// result, not discarded.
//
// showAll bypasses the radius filter (a presentational mode) but still
// requires a resolved point per candidate.
func (m *Matcher) FindNearby(origin model.GeoPoint, radiusKm float64, candidates []extract.Entity, showAll bool) (matches []Match, unresolved []extract.Entity) {
	for _, cand := range candidates {
		point, ok := m.resolve(cand)
		if !ok {
			unresolved = append(unresolved, cand)
			continue
		}
		d := Haversine(origin, point)
		if !showAll && d > radiusKm {
			continue
		}
		matches = append(matches, Match{Entity: cand, Point: point, DistanceKm: d})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceKm < matches[j].DistanceKm
	})
	return matches, unresolved
}

// resolve finds a display point for a candidate: its own fields first, then
// the session cache, then — for jobs only — the linked company's fields or
// cache entry. The company fallback is read-time only and never persisted.
func (m *Matcher) resolve(e extract.Entity) (model.GeoPoint, bool) {
	if p, ok := extract.FromEntity(e); ok {
		return p, true
	}
	if p, ok := m.cache.Get(e.EntityID()); ok {
		return p, true
	}
	if job, ok := e.(*model.Job); ok && job.Company != nil {
		if p, ok := extract.FromEntity(job.Company); ok {
			return p, true
		}
		if p, ok := m.cache.Get(job.Company.ID); ok {
			return p, true
		}
	}
	return model.GeoPoint{}, false
}
