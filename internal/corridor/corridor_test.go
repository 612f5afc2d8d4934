package corridor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/droneroute/flightcore/internal/geo"
	"github.com/droneroute/flightcore/internal/geohash"
	"github.com/droneroute/flightcore/internal/model"
)

func TestRouteHashesIncludesEndpointsAndIsCached(t *testing.T) {
	s := NewScanner(16)
	start := geo.Point{Lat: 48.85, Lon: 2.35}
	end := geo.Point{Lat: 48.87, Lon: 2.40}

	hashes := s.RouteHashes(start, end, 5, 1000, 10000)
	require.NotEmpty(t, hashes)
	require.Contains(t, hashes, geohash.Encode(start.Lat, start.Lon, 5))
	require.Contains(t, hashes, geohash.Encode(end.Lat, end.Lon, 5))

	again := s.RouteHashes(start, end, 5, 1000, 10000)
	require.ElementsMatch(t, hashes, again)
}

func TestPointsNearSegmentFiltersByThreshold(t *testing.T) {
	a := geo.Point{Lat: 0, Lon: 0}
	b := geo.Point{Lat: 0, Lon: 1}

	near := model.PopulationCell{Lat: 0.001, Lon: 0.5, Population: 10}
	far := model.PopulationCell{Lat: 1.0, Lon: 0.5, Population: 10}
	weatherFar := model.WeatherReport{Lat: 0.1, Lon: 0.5}

	out := PointsNearSegment(a, b, []model.GeoPoint{near, far, weatherFar})
	require.Len(t, out, 2)
}

func TestPointsNearRouteDeduplicatesByCoordinate(t *testing.T) {
	route := []geo.Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 0, Lon: 2}}
	p := model.PopulationCell{Lat: 0.0001, Lon: 1, Population: 1}

	out := PointsNearRoute(route, []model.GeoPoint{p})
	require.Len(t, out, 1)
}
