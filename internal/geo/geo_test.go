package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKnownRoute(t *testing.T) {
	// London -> roughly 3km NE, used in scenario S2 of the spec.
	start := Point{Lat: 51.5074, Lon: -0.1278}
	end := Point{Lat: 51.5300, Lon: -0.1000}
	d := Distance(start, end)
	assert.InDelta(t, 3000, d, 1200) // sanity bound, not an exact geodesy check
}

func TestDistanceZeroForSamePoint(t *testing.T) {
	p := Point{Lat: 10, Lon: 20}
	assert.Equal(t, 0.0, Distance(p, p))
}

func TestRhumbBearingCardinalDirections(t *testing.T) {
	origin := Point{Lat: 0, Lon: 0}

	north := Point{Lat: 1, Lon: 0}
	assert.InDelta(t, 0, RhumbBearing(origin, north), 0.5)

	east := Point{Lat: 0, Lon: 1}
	assert.InDelta(t, 90, RhumbBearing(origin, east), 0.5)

	south := Point{Lat: -1, Lon: 0}
	assert.InDelta(t, 180, RhumbBearing(origin, south), 0.5)

	west := Point{Lat: 0, Lon: -1}
	assert.InDelta(t, 270, RhumbBearing(origin, west), 0.5)
}

func TestDestinationAndBackProjection(t *testing.T) {
	origin := Point{Lat: 40.0, Lon: -73.0}
	bearing := 45.0
	dest := Destination(origin, 1000, bearing)

	got := Distance(origin, dest)
	assert.InDelta(t, 1000, got, 15)
}

func TestPerpendicularDistanceOnSegment(t *testing.T) {
	a := Point{Lat: 0, Lon: 0}
	b := Point{Lat: 0, Lon: 1}
	mid := Point{Lat: 0.001, Lon: 0.5}

	d := PerpendicularDistance(mid, a, b)
	assert.Greater(t, d, 0.0)
	assert.Less(t, d, 200.0)
}

func TestPerpendicularDistanceBeyondEndpoint(t *testing.T) {
	a := Point{Lat: 0, Lon: 0}
	b := Point{Lat: 0, Lon: 1}
	beyond := Point{Lat: 0, Lon: 2}

	got := PerpendicularDistance(beyond, a, b)
	want := Distance(beyond, b)
	assert.InDelta(t, want, got, 1)
}

func TestMidpoint(t *testing.T) {
	a := Point{Lat: 0, Lon: 0}
	b := Point{Lat: 2, Lon: 4}
	m := Midpoint(a, b)
	assert.Equal(t, Point{Lat: 1, Lon: 2}, m)
}
