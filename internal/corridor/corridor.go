// Package corridor computes the geohash prefixes a route corridor
// intersects and filters candidate geopoints down to the ones actually
// near the route.
package corridor

import (
	"fmt"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/droneroute/flightcore/internal/core/observability"
	"github.com/droneroute/flightcore/internal/geo"
	"github.com/droneroute/flightcore/internal/geohash"
	"github.com/droneroute/flightcore/internal/model"
)

const (
	metersPerDegreeLat = 111000.0

	thresholdPopulationMeters = 500.0
	thresholdWeatherMeters    = 20000.0
)

// BoundingBoxHashes is a thin wrapper over geohash.BBoxes.
func BoundingBoxHashes(box geohash.Box, precision int) []string {
	return geohash.BBoxes(box, precision)
}

// Scanner computes route-corridor geohash prefixes, memoizing the last N
// results keyed on the rounded (start, end, step, buffer, precision) tuple.
// A cache miss recomputes identically; the cache only affects latency.
type Scanner struct {
	mu    sync.Mutex
	cache *lru.Cache[string, []string]
}

func NewScanner(size int) *Scanner {
	if size <= 0 {
		size = 256
	}
	c, _ := lru.New[string, []string](size)
	return &Scanner{cache: c}
}

func cacheKey(start, end geo.Point, stepMeters, bufferMeters float64, precision int) string {
	return fmt.Sprintf("%.5f,%.5f,%.5f,%.5f,%g,%.0f,%d", start.Lat, start.Lon, end.Lat, end.Lon, stepMeters, bufferMeters, precision)
}

// RouteHashes computes every geohash prefix whose cell plausibly
// intersects a route corridor of half-width bufferMeters around the
// straight path from start to end.
func (s *Scanner) RouteHashes(start, end geo.Point, precision int, stepMeters, bufferMeters float64) []string {
	key := cacheKey(start, end, stepMeters, bufferMeters, precision)

	s.mu.Lock()
	if hit, ok := s.cache.Get(key); ok {
		s.mu.Unlock()
		return hit
	}
	s.mu.Unlock()

	hashes := computeRouteHashes(start, end, precision, stepMeters, bufferMeters)
	observability.ObserveCorridorHashCount(len(hashes))

	s.mu.Lock()
	s.cache.Add(key, hashes)
	s.mu.Unlock()

	return hashes
}

func computeRouteHashes(start, end geo.Point, precision int, stepMeters, bufferMeters float64) []string {
	set := make(map[string]struct{})
	set[geohash.Encode(start.Lat, start.Lon, precision)] = struct{}{}
	set[geohash.Encode(end.Lat, end.Lon, precision)] = struct{}{}

	dist := geo.Distance(start, end)
	bearing := geo.RhumbBearing(start, end)
	if stepMeters <= 0 {
		stepMeters = 1000
	}
	n := int(math.Floor(dist / stepMeters))

	for i := 0; i <= n; i++ {
		p := geo.Destination(start, float64(i)*stepMeters, bearing)

		dLat := bufferMeters / metersPerDegreeLat
		cosLat := math.Cos(p.Lat * math.Pi / 180)
		if math.Abs(cosLat) < 1e-9 {
			cosLat = 1e-9
		}
		dLon := bufferMeters / (metersPerDegreeLat * cosLat)

		box := geohash.Box{
			LatMin: p.Lat - dLat, LatMax: p.Lat + dLat,
			LonMin: p.Lon - dLon, LonMax: p.Lon + dLon,
		}
		for _, h := range geohash.BBoxes(box, precision) {
			set[h] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	return out
}

func thresholdFor(p model.GeoPoint) (float64, bool) {
	switch p.(type) {
	case model.PopulationCell:
		return thresholdPopulationMeters, true
	case model.WeatherReport:
		return thresholdWeatherMeters, true
	default:
		return 0, false
	}
}

// PointsNearSegment retains points whose perpendicular distance from the
// a-b segment is within that point type's threshold.
func PointsNearSegment(a, b geo.Point, points []model.GeoPoint) []model.GeoPoint {
	out := make([]model.GeoPoint, 0, len(points))
	for _, p := range points {
		threshold, ok := thresholdFor(p)
		if !ok {
			continue
		}
		lat, lon := p.Coords()
		d := geo.PerpendicularDistance(geo.Point{Lat: lat, Lon: lon}, a, b)
		if d <= threshold {
			out = append(out, p)
		}
	}
	return out
}

// PointsNearRoute applies PointsNearSegment to each consecutive pair of
// points on routePolyline and returns the union, deduplicated by
// (lat, lon).
func PointsNearRoute(routePolyline []geo.Point, points []model.GeoPoint) []model.GeoPoint {
	seen := make(map[string]struct{})
	var out []model.GeoPoint
	for i := 0; i+1 < len(routePolyline); i++ {
		near := PointsNearSegment(routePolyline[i], routePolyline[i+1], points)
		for _, p := range near {
			lat, lon := p.Coords()
			key := fmt.Sprintf("%.6f,%.6f", lat, lon)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
