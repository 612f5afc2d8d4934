// Package viewport implements the bounding-box item query (C9): expand a
// box into sparse-index hash prefixes, fetch candidates, and strictly
// post-filter to the requested box.
package viewport

import (
	"context"

	"github.com/droneroute/flightcore/internal/corridor"
	"github.com/droneroute/flightcore/internal/errs"
	"github.com/droneroute/flightcore/internal/geohash"
	"github.com/droneroute/flightcore/internal/model"
)

// SpatialFetcher is the C3 dependency viewport needs.
type SpatialFetcher interface {
	FetchByHashPrefixes(ctx context.Context, prefixes []string, useSparseIndex bool) []model.GeoPoint
}

type Service struct {
	store        SpatialFetcher
	gsiPrecision int
}

func New(store SpatialFetcher, gsiPrecision int) *Service {
	return &Service{store: store, gsiPrecision: gsiPrecision}
}

type Result struct {
	Items []model.GeoPoint
	Count int
}

// Query returns every item in box, using the sparse (GSI1) index, which
// intentionally omits cells below the population threshold.
func (s *Service) Query(ctx context.Context, box model.BBox) (Result, error) {
	if box.LatMin > box.LatMax || box.LonMin > box.LonMax {
		return Result{}, errs.New(errs.KindInvalidInput, "bounding box min exceeds max")
	}

	ghBox := geohash.Box{LatMin: box.LatMin, LonMin: box.LonMin, LatMax: box.LatMax, LonMax: box.LonMax}
	prefixes := corridor.BoundingBoxHashes(ghBox, s.gsiPrecision)

	candidates := s.store.FetchByHashPrefixes(ctx, prefixes, true)

	items := make([]model.GeoPoint, 0, len(candidates))
	for _, c := range candidates {
		lat, lon := c.Coords()
		if box.Contains(lat, lon) {
			items = append(items, c)
		}
	}
	return Result{Items: items, Count: len(items)}, nil
}
