package spatial

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/droneroute/flightcore/internal/cache/keys"
	"github.com/droneroute/flightcore/internal/cache/redisstore"
	"github.com/droneroute/flightcore/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	rc, err := redisstore.New(ctx, mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	return New(rc, "spatial-data", time.Hour, 7*24*time.Hour, 25)
}

func TestWriteBatchAndQueryByHashPrefix(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cells := []model.GeoPoint{
		model.PopulationCell{Lat: 48.85, Lon: 2.35, Population: 500, PK: "u09tv", SK: model.SKPrefix(model.TypePopulation) + "u09tvw0k"},
		model.PopulationCell{Lat: 48.86, Lon: 2.36, Population: 12000, PK: "u09tv", SK: model.SKPrefix(model.TypePopulation) + "u09tvw1m", GSI1PK: "u09t", GSI1SK: model.SKPrefix(model.TypePopulation) + "u09tvw1m", InGSI: true},
	}
	s.WriteBatch(ctx, cells)

	got, err := s.QueryByHashPrefix(ctx, "u09tv", false)
	require.NoError(t, err)
	require.Len(t, got, 2)

	sparse, err := s.QueryByHashPrefix(ctx, "u09t", true)
	require.NoError(t, err)
	require.Len(t, sparse, 1)
}

func TestFetchByHashPrefixesDropsFailuresAndConcatenates(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s.WriteBatch(ctx, []model.GeoPoint{
		model.PopulationCell{Lat: 10, Lon: 10, Population: 1, PK: "abc12", SK: model.SKPrefix(model.TypePopulation) + "abc12xyz"},
	})

	// A plain string at a partition-set key makes that prefix's ZRANGE fail.
	require.NoError(t, s.rc.Set(ctx, keys.PrimaryPartitionSet("spatial-data", "bad01"), []byte("x"), time.Minute))

	out := s.FetchByHashPrefixes(ctx, []string{"abc12", "zzzzz", "bad01"}, false)
	require.Len(t, out, 1)
}

func TestCreateAndUpdateRouteRecord(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	id, err := s.CreateRouteRecord(ctx, []model.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := s.GetRouteRecord(ctx, id)
	require.NoError(t, err)
	require.False(t, rec.Optimised)
	require.Len(t, rec.RoutePoints, 2)

	dist := 12.5
	rec.OptimisedRouteDistanceKm = &dist
	require.NoError(t, s.UpdateRouteRecord(ctx, rec))

	updated, err := s.GetRouteRecord(ctx, id)
	require.NoError(t, err)
	require.True(t, updated.Optimised)
	require.NotNil(t, updated.OptimisedRouteDistanceKm)
	require.InDelta(t, 12.5, *updated.OptimisedRouteDistanceKm, 0.001)
}

func TestPublishAndSubscribeRouteInserts(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub := s.SubscribeRouteInserts(ctx)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, s.PublishRouteInserted(ctx, "route-123"))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	require.Equal(t, "route-123", msg.Payload)
}
