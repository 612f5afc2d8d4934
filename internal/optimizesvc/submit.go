// Package optimizesvc implements the submit half of the C8 optimize
// submit+worker contract: validate inputs, persist a RouteRecord, and
// signal the worker via the configured change-feed driver. No optimization
// happens on this path — it always returns promptly.
package optimizesvc

import (
	"context"

	"github.com/droneroute/flightcore/internal/errs"
	"github.com/droneroute/flightcore/internal/geo"
	"github.com/droneroute/flightcore/internal/model"
)

// RouteCreator is the C3 dependency submit needs.
type RouteCreator interface {
	CreateRouteRecord(ctx context.Context, routePoints []model.Point) (string, error)
	PublishRouteInserted(ctx context.Context, id string) error
}

// InsertPublisher is the alternative change-feed signal for the
// ROUTES_FEED_DRIVER=kafka case. When set, Submit publishes through it
// instead of the store's Redis pub/sub channel.
type InsertPublisher interface {
	PublishRouteInsert(ctx context.Context, id string) error
}

type Service struct {
	store RouteCreator
	feed  InsertPublisher // nil means publish via store.PublishRouteInserted
}

func New(store RouteCreator) *Service {
	return &Service{store: store}
}

// WithFeed swaps the change-feed signal from the default Redis pub/sub
// channel to an alternative publisher, e.g. a Kafka producer matching the
// worker's ROUTES_FEED_DRIVER=kafka consumer.
func (s *Service) WithFeed(feed InsertPublisher) *Service {
	s.feed = feed
	return s
}

func validCoord(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Submit validates start/end identically to the assess path, persists a
// new RouteRecord, and publishes an insert signal on whichever change-feed
// driver is configured (Redis pub/sub by default, or Kafka via WithFeed). A
// publish failure does not fail submission: the error is discarded and the
// record is not signalled again, so the signal is best-effort.
func (s *Service) Submit(ctx context.Context, start, end geo.Point) (string, error) {
	if !validCoord(start.Lat, start.Lon) || !validCoord(end.Lat, end.Lon) {
		return "", errs.New(errs.KindInvalidInput, "start/end coordinates out of range")
	}

	id, err := s.store.CreateRouteRecord(ctx, []model.Point{
		{Lat: start.Lat, Lon: start.Lon},
		{Lat: end.Lat, Lon: end.Lon},
	})
	if err != nil {
		return "", err
	}

	if s.feed != nil {
		_ = s.feed.PublishRouteInsert(ctx, id)
	} else {
		_ = s.store.PublishRouteInserted(ctx, id)
	}
	return id, nil
}
