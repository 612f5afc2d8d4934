package optimizesvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/droneroute/flightcore/internal/errs"
	"github.com/droneroute/flightcore/internal/geo"
	"github.com/droneroute/flightcore/internal/model"
)

type fakeStore struct {
	created  []model.Point
	returnID string
	published string
}

func (f *fakeStore) CreateRouteRecord(ctx context.Context, routePoints []model.Point) (string, error) {
	f.created = routePoints
	return f.returnID, nil
}

func (f *fakeStore) PublishRouteInserted(ctx context.Context, id string) error {
	f.published = id
	return nil
}

func TestSubmitPersistsAndPublishes(t *testing.T) {
	store := &fakeStore{returnID: "route-abc"}
	svc := New(store)

	id, err := svc.Submit(context.Background(), geo.Point{Lat: 1, Lon: 1}, geo.Point{Lat: 2, Lon: 2})
	require.NoError(t, err)
	require.Equal(t, "route-abc", id)
	require.Equal(t, "route-abc", store.published)
	require.Len(t, store.created, 2)
}

func TestSubmitRejectsInvalidCoordinates(t *testing.T) {
	svc := New(&fakeStore{})
	_, err := svc.Submit(context.Background(), geo.Point{Lat: 200, Lon: 0}, geo.Point{Lat: 0, Lon: 0})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindInvalidInput))
}

type fakeFeed struct {
	published string
}

func (f *fakeFeed) PublishRouteInsert(ctx context.Context, id string) error {
	f.published = id
	return nil
}

func TestSubmitPrefersFeedOverStorePublish(t *testing.T) {
	store := &fakeStore{returnID: "route-abc"}
	feed := &fakeFeed{}
	svc := New(store).WithFeed(feed)

	id, err := svc.Submit(context.Background(), geo.Point{Lat: 1, Lon: 1}, geo.Point{Lat: 2, Lon: 2})
	require.NoError(t, err)
	require.Equal(t, "route-abc", id)
	require.Equal(t, "route-abc", feed.published)
	require.Empty(t, store.published)
}
