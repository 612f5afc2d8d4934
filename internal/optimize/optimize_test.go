package optimize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/droneroute/flightcore/internal/geo"
	"github.com/droneroute/flightcore/internal/model"
)

func TestOptimizeNoPopulationReturnsStraightishRoute(t *testing.T) {
	start := geo.Point{Lat: 0, Lon: 0}
	end := geo.Point{Lat: 0, Lon: 0.2}

	res := Optimize(start, end, nil, Params{})
	require.Equal(t, StateDone, res.State)
	require.GreaterOrEqual(t, len(res.Route), 2)
	require.InDelta(t, start.Lat, res.Route[0].Lat, 1e-9)
	require.InDelta(t, end.Lat, res.Route[len(res.Route)-1].Lat, 1e-6)
	require.InDelta(t, end.Lon, res.Route[len(res.Route)-1].Lon, 1e-6)
}

func TestOptimizeRespectsDeviationBudgetFallback(t *testing.T) {
	start := geo.Point{Lat: 0, Lon: 0}
	end := geo.Point{Lat: 0, Lon: 0.01}

	// 0.01 of ~1112m allows ~11m of deviation; the narrowest fan bearing
	// (+/-3.33 deg) puts every first step ~58m off the line, so the open set
	// empties and the straight line is returned.
	res := Optimize(start, end, nil, Params{MaxDeviationRatio: 0.01, WallClockBudget: time.Millisecond})
	require.Contains(t, []State{StateDone, StateFallback}, res.State)
	require.Len(t, res.Route, 2)
}

func TestOptimizeAvoidsDensePopulationWhenFeasible(t *testing.T) {
	start := geo.Point{Lat: 0, Lon: 0}
	end := geo.Point{Lat: 0, Lon: 0.05}
	mid := geo.Destination(start, geo.Distance(start, end)/2, 90)

	dense := model.PopulationCell{Lat: mid.Lat, Lon: mid.Lon, Population: 1000000}
	res := Optimize(start, end, []model.GeoPoint{dense}, Params{})

	require.Equal(t, StateDone, res.State)
	require.GreaterOrEqual(t, len(res.Route), 2)

	straight := Optimize(start, end, nil, Params{})
	densePolylineCost := edgeCost([]model.PopulationCell{dense}, res.Route[len(res.Route)/2])
	straightPolylineCost := edgeCost([]model.PopulationCell{dense}, straight.Route[len(straight.Route)/2])
	require.LessOrEqual(t, densePolylineCost, straightPolylineCost)
}
