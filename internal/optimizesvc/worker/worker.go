// Package worker implements the C8 optimize worker: triggered by an
// INSERT-only change feed over the routes store, it runs the corridor
// scanner, spatial fetch, A* optimizer and impact assessor, then writes
// the result back and notifies the sink.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/droneroute/flightcore/internal/corridor"
	"github.com/droneroute/flightcore/internal/errs"
	"github.com/droneroute/flightcore/internal/geo"
	"github.com/droneroute/flightcore/internal/impact"
	"github.com/droneroute/flightcore/internal/model"
	"github.com/droneroute/flightcore/internal/notify"
	"github.com/droneroute/flightcore/internal/optimize"
)

// RouteStore is the C3 dependency the worker needs, beyond the read-only
// SpatialFetcher used by assess/viewport.
type RouteStore interface {
	GetRouteRecord(ctx context.Context, id string) (*model.RouteRecord, error)
	UpdateRouteRecord(ctx context.Context, rec *model.RouteRecord) error
}

type SpatialFetcher interface {
	FetchByHashPrefixes(ctx context.Context, prefixes []string, useSparseIndex bool) []model.GeoPoint
}

// Config bundles the worker's retry/backpressure and optimizer tunables.
type Config struct {
	MaxRetries        int
	MaxAge            time.Duration
	Precision         int
	StepMeters        float64
	AngleRangeDeg     float64
	FanCount          int
	MaxDeviationRatio float64
	CorridorBufferM   float64
	OptimizeDeadline  time.Duration
}

type Worker struct {
	routes  RouteStore
	spatial SpatialFetcher
	scanner *corridor.Scanner
	notify  *notify.Publisher
	cfg     Config
	log     zerolog.Logger
}

func New(routes RouteStore, spatial SpatialFetcher, scanner *corridor.Scanner, pub *notify.Publisher, cfg Config) *Worker {
	return &Worker{routes: routes, spatial: spatial, scanner: scanner, notify: pub, cfg: cfg, log: zerolog.Nop()}
}

func (w *Worker) WithLogger(l zerolog.Logger) *Worker {
	w.log = l
	return w
}

// ProcessInsert is the single entry point both driver implementations
// (redis-keyspace pub/sub, kafka consumer group) call per insertion event.
// Idempotency: callers MUST only invoke this for insertion events. An
// already-optimised record (the worker's own writeback) is a no-op here,
// so a duplicate delivery of the same insert is harmless.
func (w *Worker) ProcessInsert(ctx context.Context, routeID string) error {
	rec, err := w.routes.GetRouteRecord(ctx, routeID)
	if err != nil {
		return err
	}
	if rec.Optimised {
		return nil
	}
	if time.Since(recordCreatedAt(rec)) > w.cfg.MaxAge {
		w.log.Error().Str("routeId", routeID).Msg("route record exceeded max age, skipping")
		return errs.New(errs.KindDeadlineExceeded, "route record exceeded max age")
	}
	if len(rec.RoutePoints) < 2 {
		return errs.New(errs.KindInvalidInput, "route record missing start/end points")
	}

	var lastErr error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		lastErr = w.optimizeAndWriteback(ctx, rec)
		if lastErr == nil {
			return nil
		}
		w.log.Warn().Err(lastErr).Str("routeId", routeID).Int("attempt", attempt).Msg("optimize attempt failed")
	}
	return lastErr
}

// recordCreatedAt recovers the insertion time from the record's TTL minus a
// fixed 7-day retention window (the ROUTE_RECORD_TTL default; a different
// configured value is not read here); RouteRecord does not separately carry
// a created-at field.
func recordCreatedAt(rec *model.RouteRecord) time.Time {
	return rec.TTL.Add(-7 * 24 * time.Hour)
}

func (w *Worker) optimizeAndWriteback(ctx context.Context, rec *model.RouteRecord) error {
	start := geo.Point{Lat: rec.RoutePoints[0].Lat, Lon: rec.RoutePoints[0].Lon}
	end := geo.Point{Lat: rec.RoutePoints[1].Lat, Lon: rec.RoutePoints[1].Lon}

	deadline := w.cfg.OptimizeDeadline
	if deadline <= 0 {
		deadline = 5 * time.Minute
	}
	optCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	hashes := w.scanner.RouteHashes(start, end, w.cfg.Precision, w.cfg.StepMeters, w.cfg.CorridorBufferM)
	candidates := w.spatial.FetchByHashPrefixes(optCtx, hashes, false)

	result := optimize.Optimize(start, end, candidates, optimize.Params{
		StepMeters:        w.cfg.StepMeters,
		AngleRangeDeg:     w.cfg.AngleRangeDeg,
		FanCount:          w.cfg.FanCount,
		MaxDeviationRatio: w.cfg.MaxDeviationRatio,
		WallClockBudget:   deadline,
	})

	near := corridor.PointsNearRoute(result.Route, candidates)
	distanceKm := impact.RouteDistanceKm(result.Route)
	populationImpact := impact.PopulationImpact(near)
	noiseImpact := impact.NoiseImpact(populationImpact)
	visibilityRisk, windRisk := impact.WeatherImpact(near)

	points := make([]model.Point, len(result.Route))
	for i, p := range result.Route {
		points[i] = model.Point{Lat: p.Lat, Lon: p.Lon}
	}

	rec.OptimisedRoute = points
	rec.OptimisedRouteDistanceKm = &distanceKm
	rec.PopulationImpact = &populationImpact
	rec.NoiseImpact = &noiseImpact
	rec.VisibilityRisk = visibilityRisk
	rec.WindRisk = windRisk
	rec.Optimised = true

	if err := w.routes.UpdateRouteRecord(ctx, rec); err != nil {
		return err
	}

	if w.notify != nil {
		w.notify.PublishRouteOptimised(notify.RouteOptimisedData{
			ID: rec.PK, Route: points, RouteDistanceKm: distanceKm,
			PopulationImpact: populationImpact, NoiseImpactScore: &noiseImpact,
			VisibilityRisk: visibilityRisk, WindRisk: windRisk,
		})
	}
	return nil
}
