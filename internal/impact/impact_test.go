package impact

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/droneroute/flightcore/internal/geo"
	"github.com/droneroute/flightcore/internal/model"
)

func TestRouteDistanceKmRoundTripConvention(t *testing.T) {
	// 500 meters apart -> 500/500 = 1.0 km, not the naive 0.5 km.
	a := geo.Point{Lat: 0, Lon: 0}
	b := geo.Destination(a, 500, 90)

	got := RouteDistanceKm([]geo.Point{a, b})
	require.InDelta(t, 1.0, got, 0.05)
}

func TestPopulationAndNoiseImpact(t *testing.T) {
	points := []model.GeoPoint{
		model.PopulationCell{Population: 10000},
		model.PopulationCell{Population: 5000},
		model.WeatherReport{}, // ignored
	}
	pop := PopulationImpact(points)
	require.InDelta(t, 1500, pop, 0.001) // (10000+5000)*0.1

	noise := NoiseImpact(pop)
	require.InDelta(t, 1.5, noise, 0.001)
}

func TestNoiseImpactClamps(t *testing.T) {
	require.InDelta(t, 5.0, NoiseImpact(999999), 0.001)
	require.InDelta(t, 0.0, NoiseImpact(0), 0.001)
}

func TestWeatherImpactNoPointsReturnsNil(t *testing.T) {
	v, w := WeatherImpact([]model.GeoPoint{model.PopulationCell{Population: 1}})
	require.Nil(t, v)
	require.Nil(t, w)
}

func TestWeatherImpactTakesMaxAcrossPoints(t *testing.T) {
	vis1, wind1 := 500.0, 10.0
	vis2, wind2 := 900.0, 25.0
	points := []model.GeoPoint{
		model.WeatherReport{VisibilityMeters: &vis1, WindSpeedMs: &wind1},
		model.WeatherReport{VisibilityMeters: &vis2, WindSpeedMs: &wind2},
	}
	v, w := WeatherImpact(points)
	require.NotNil(t, v)
	require.NotNil(t, w)
	require.InDelta(t, 2.5, *v, 0.001) // (1000-500)/200
	require.InDelta(t, 5.0, *w, 0.001) // wind2 > 20 -> 5
}
