package viewport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/droneroute/flightcore/internal/model"
)

type fakeFetcher struct {
	points []model.GeoPoint
}

func (f fakeFetcher) FetchByHashPrefixes(ctx context.Context, prefixes []string, useSparseIndex bool) []model.GeoPoint {
	return f.points
}

func TestViewportPostFiltersStrictly(t *testing.T) {
	a := model.PopulationCell{Lat: 40.7500, Lon: -73.9700, Population: 1000, InGSI: true}
	b := model.PopulationCell{Lat: 40.7400, Lon: -73.9800, Population: 2000, InGSI: true} // outside box
	c := model.WeatherReport{Lat: 40.7550, Lon: -73.9750}

	svc := New(fakeFetcher{points: []model.GeoPoint{a, b, c}}, 4)

	box := model.BBox{LatMin: 40.7489, LonMin: -73.9876, LatMax: 40.7589, LonMax: -73.9656}
	res, err := svc.Query(context.Background(), box)
	require.NoError(t, err)
	require.Equal(t, 2, res.Count)
}

func TestViewportInvalidBox(t *testing.T) {
	svc := New(fakeFetcher{}, 4)
	_, err := svc.Query(context.Background(), model.BBox{LatMin: 10, LatMax: 5})
	require.Error(t, err)
}
