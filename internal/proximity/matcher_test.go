package proximity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireloop/jobgeo/internal/extract"
	"github.com/hireloop/jobgeo/internal/model"
)

func jobAt(id string, lat, lng float64) *model.Job {
	return &model.Job{ID: id, Attrs: map[string]any{"lat": lat, "lng": lng}}
}

func TestHaversine_KnownDistance(t *testing.T) {
	origin := model.GeoPoint{Latitude: 12.9716, Longitude: 77.5946}
	point := model.GeoPoint{Latitude: 12.975, Longitude: 77.606}

	d := Haversine(origin, point)
	assert.InDelta(t, 1.29, d, 0.02)
	assert.Zero(t, Haversine(origin, origin))
}

func TestFindNearby_OrderedByDistance(t *testing.T) {
	origin := model.GeoPoint{}
	candidates := []extract.Entity{
		jobAt("far", 0.05, 0),  // ~5.6 km
		jobAt("near", 0.01, 0), // ~1.1 km
		jobAt("mid", 0.03, 0),  // ~3.3 km
	}

	matches, unresolved := NewMatcher(NewCache()).FindNearby(origin, 10, candidates, false)
	require.Empty(t, unresolved)
	require.Len(t, matches, 3)
	assert.Equal(t, "near", matches[0].Entity.EntityID())
	assert.Equal(t, "mid", matches[1].Entity.EntityID())
	assert.Equal(t, "far", matches[2].Entity.EntityID())
	assert.Less(t, matches[0].DistanceKm, matches[1].DistanceKm)
}

func TestFindNearby_InclusiveBoundary(t *testing.T) {
	origin := model.GeoPoint{}
	cand := jobAt("edge", 0.05, 0)
	boundary := Haversine(origin, model.GeoPoint{Latitude: 0.05})

	matches, _ := NewMatcher(NewCache()).FindNearby(origin, boundary, []extract.Entity{cand}, false)
	require.Len(t, matches, 1)

	matches, _ = NewMatcher(NewCache()).FindNearby(origin, boundary-0.001, []extract.Entity{cand}, false)
	assert.Empty(t, matches)
}

func TestFindNearby_EqualDistancesKeepInputOrder(t *testing.T) {
	origin := model.GeoPoint{}
	candidates := []extract.Entity{
		jobAt("b", 0.02, 0),
		jobAt("a", 0.02, 0),
	}

	matches, _ := NewMatcher(NewCache()).FindNearby(origin, 10, candidates, false)
	require.Len(t, matches, 2)
	assert.Equal(t, "b", matches[0].Entity.EntityID())
	assert.Equal(t, "a", matches[1].Entity.EntityID())
}

func TestFindNearby_UnresolvedQueuedNotDropped(t *testing.T) {
	origin := model.GeoPoint{}
	candidates := []extract.Entity{
		jobAt("resolved", 0.01, 0),
		&model.Job{ID: "pending", Location: "MG Road, Bengaluru"},
	}

	matches, unresolved := NewMatcher(NewCache()).FindNearby(origin, 10, candidates, false)
	require.Len(t, matches, 1)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "pending", unresolved[0].EntityID())
}

func TestFindNearby_SessionCacheFillsGaps(t *testing.T) {
	origin := model.GeoPoint{}
	cache := NewCache()
	cache.Put("pending", model.GeoPoint{Latitude: 0.01})

	matches, unresolved := NewMatcher(cache).FindNearby(origin, 10,
		[]extract.Entity{&model.Job{ID: "pending", Location: "MG Road"}}, false)
	assert.Empty(t, unresolved)
	require.Len(t, matches, 1)
	assert.Equal(t, "pending", matches[0].Entity.EntityID())
}

func TestFindNearby_JobFallsBackToCompany(t *testing.T) {
	origin := model.GeoPoint{}
	job := &model.Job{
		ID:      "j1",
		Company: &model.Company{ID: "c1", Attrs: map[string]any{"lat": 0.02, "lng": 0.0}},
	}

	matches, unresolved := NewMatcher(NewCache()).FindNearby(origin, 10, []extract.Entity{job}, false)
	require.Empty(t, unresolved)
	require.Len(t, matches, 1)
	assert.InDelta(t, 0.02, matches[0].Point.Latitude, 1e-9)

	// Company coordinates via the session cache as well.
	cache := NewCache()
	cache.Put("c2", model.GeoPoint{Latitude: 0.03})
	job2 := &model.Job{ID: "j2", Company: &model.Company{ID: "c2"}}
	matches, unresolved = NewMatcher(cache).FindNearby(origin, 10, []extract.Entity{job2}, false)
	require.Empty(t, unresolved)
	require.Len(t, matches, 1)
}

func TestFindNearby_OwnCoordinatesBeatCompany(t *testing.T) {
	origin := model.GeoPoint{}
	job := jobAt("j1", 0.01, 0)
	job.Company = &model.Company{ID: "c1", Attrs: map[string]any{"lat": 0.05, "lng": 0.0}}

	matches, _ := NewMatcher(NewCache()).FindNearby(origin, 10, []extract.Entity{job}, false)
	require.Len(t, matches, 1)
	assert.InDelta(t, 0.01, matches[0].Point.Latitude, 1e-9)
}

func TestFindNearby_ShowAllBypassesRadius(t *testing.T) {
	origin := model.GeoPoint{}
	candidates := []extract.Entity{
		jobAt("near", 0.01, 0),
		jobAt("far", 1.0, 0), // ~111 km
		&model.Job{ID: "pending", Location: "MG Road"},
	}

	matches, unresolved := NewMatcher(NewCache()).FindNearby(origin, 5, candidates, true)
	require.Len(t, matches, 2)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "near", matches[0].Entity.EntityID())
}
