// Package assess implements the synchronous assess-route facade (C7):
// validate inputs, fan out through the corridor scanner and spatial store,
// and score the resulting straight-line route.
package assess

import (
	"context"

	"github.com/droneroute/flightcore/internal/corridor"
	"github.com/droneroute/flightcore/internal/errs"
	"github.com/droneroute/flightcore/internal/geo"
	"github.com/droneroute/flightcore/internal/impact"
	"github.com/droneroute/flightcore/internal/model"
)

// SpatialFetcher is the C3 dependency assess needs: fetching geopoints
// across a set of hash prefixes.
type SpatialFetcher interface {
	FetchByHashPrefixes(ctx context.Context, prefixes []string, useSparseIndex bool) []model.GeoPoint
}

type Service struct {
	scanner   *corridor.Scanner
	store     SpatialFetcher
	precision int
	step      float64
	buffer    float64
}

func New(scanner *corridor.Scanner, store SpatialFetcher, precision int, step, buffer float64) *Service {
	return &Service{scanner: scanner, store: store, precision: precision, step: step, buffer: buffer}
}

func validCoord(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Assess scores the straight-line route between start and end, per
// section 4.7: the assess path applies the per-type corridor threshold to
// the route as a whole (not per segment), to stay comparable with the
// optimized-path assess result.
func (s *Service) Assess(ctx context.Context, start, end geo.Point) (model.AssessResult, error) {
	if !validCoord(start.Lat, start.Lon) || !validCoord(end.Lat, end.Lon) {
		return model.AssessResult{}, errs.New(errs.KindInvalidInput, "start/end coordinates out of range")
	}

	hashes := s.scanner.RouteHashes(start, end, s.precision, s.step, s.buffer)
	candidates := s.store.FetchByHashPrefixes(ctx, hashes, false)
	near := corridor.PointsNearSegment(start, end, candidates)

	route := []geo.Point{start, end}
	distanceKm := impact.RouteDistanceKm(route)
	populationImpact := impact.PopulationImpact(near)
	noiseImpact := impact.NoiseImpact(populationImpact)
	visibilityRisk, windRisk := impact.WeatherImpact(near)

	return model.AssessResult{
		Route:            []model.Point{{Lat: start.Lat, Lon: start.Lon}, {Lat: end.Lat, Lon: end.Lon}},
		RouteDistanceKm:  distanceKm,
		PopulationImpact: populationImpact,
		NoiseImpactScore: &noiseImpact,
		VisibilityRisk:   visibilityRisk,
		WindRisk:         windRisk,
	}, nil
}
