package assess

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/droneroute/flightcore/internal/corridor"
	"github.com/droneroute/flightcore/internal/errs"
	"github.com/droneroute/flightcore/internal/geo"
	"github.com/droneroute/flightcore/internal/model"
)

type fakeFetcher struct {
	points []model.GeoPoint
}

func (f fakeFetcher) FetchByHashPrefixes(ctx context.Context, prefixes []string, useSparseIndex bool) []model.GeoPoint {
	return f.points
}

func TestAssessTrivialEmptyStore(t *testing.T) {
	svc := New(corridor.NewScanner(8), fakeFetcher{}, 5, 1000, 10000)

	start := geo.Point{Lat: 51.5074, Lon: -0.1278}
	end := geo.Point{Lat: 51.5300, Lon: -0.1000}

	res, err := svc.Assess(context.Background(), start, end)
	require.NoError(t, err)
	require.InDelta(t, 0, res.PopulationImpact, 0.001)
	require.NotNil(t, res.NoiseImpactScore)
	require.InDelta(t, 0.0, *res.NoiseImpactScore, 0.001)
	require.GreaterOrEqual(t, res.RouteDistanceKm, 1.0)
	require.LessOrEqual(t, res.RouteDistanceKm, 2.5)
	require.Len(t, res.Route, 2)
}

func TestAssessInvalidCoordinates(t *testing.T) {
	svc := New(corridor.NewScanner(8), fakeFetcher{}, 5, 1000, 10000)

	_, err := svc.Assess(context.Background(), geo.Point{Lat: 91, Lon: 0}, geo.Point{Lat: 0, Lon: 0})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindInvalidInput))
}

func TestAssessWeatherOnlyRisk(t *testing.T) {
	vis, wind := 600.0, 24.0
	mid := geo.Destination(geo.Point{Lat: 0, Lon: 0}, 500, 90)
	weather := model.WeatherReport{Lat: mid.Lat, Lon: mid.Lon, VisibilityMeters: &vis, WindSpeedMs: &wind}

	svc := New(corridor.NewScanner(8), fakeFetcher{points: []model.GeoPoint{weather}}, 5, 1000, 10000)

	res, err := svc.Assess(context.Background(), geo.Point{Lat: 0, Lon: 0}, geo.Point{Lat: 0, Lon: 0.02})
	require.NoError(t, err)
	require.NotNil(t, res.VisibilityRisk)
	require.NotNil(t, res.WindRisk)
	require.InDelta(t, 2.0, *res.VisibilityRisk, 0.001)
	require.InDelta(t, 5.0, *res.WindRisk, 0.001)
}
