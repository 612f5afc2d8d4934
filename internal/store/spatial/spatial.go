// Package spatial is the store adapter the corridor scanner and viewport
// query use to read and write GeoPoints, partitioned by geohash prefix.
package spatial

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/droneroute/flightcore/internal/cache/keys"
	"github.com/droneroute/flightcore/internal/cache/redisstore"
	"github.com/droneroute/flightcore/internal/core/observability"
	"github.com/droneroute/flightcore/internal/errs"
	"github.com/droneroute/flightcore/internal/model"
)

const (
	maxPages  = 10
	pageLimit = 1000
	fanoutCap = 50
)

// wireGeoPoint is the JSON-on-the-wire representation of a GeoPoint. Only
// one of Population/Weather is populated, discriminated by Kind.
type wireGeoPoint struct {
	Kind model.GeoType `json:"kind"`

	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	PK, SK         string `json:"pk"`
	GSI1PK, GSI1SK string `json:"gsi1pk,omitempty"`
	InGSI          bool   `json:"inGSI,omitempty"`

	Population int `json:"population,omitempty"`

	TemperatureC       *float64   `json:"temperatureC,omitempty"`
	WindSpeedMs        *float64   `json:"windSpeedMs,omitempty"`
	VisibilityMeters   *float64   `json:"visibilityMeters,omitempty"`
	PrecipitationLevel *int       `json:"precipitationLevel,omitempty"`
	DataTimestamp      *time.Time `json:"dataTimestamp,omitempty"`
	RecordTimestamp    *time.Time `json:"recordTimestamp,omitempty"`
	TTL                *time.Time `json:"ttl,omitempty"`
}

func encodeGeoPoint(p model.GeoPoint) ([]byte, error) {
	var w wireGeoPoint
	w.Kind = p.Kind()
	w.Lat, w.Lon = p.Coords()
	w.PK, w.SK = p.Key()
	if gpk, gsk, ok := p.GSIKey(); ok {
		w.GSI1PK, w.GSI1SK, w.InGSI = gpk, gsk, true
	}
	switch v := p.(type) {
	case model.PopulationCell:
		w.Population = v.Population
	case model.WeatherReport:
		w.TemperatureC = v.TemperatureC
		w.WindSpeedMs = v.WindSpeedMs
		w.VisibilityMeters = v.VisibilityMeters
		w.PrecipitationLevel = v.PrecipitationLevel
		w.DataTimestamp = &v.DataTimestamp
		w.RecordTimestamp = &v.RecordTimestamp
		w.TTL = &v.TTL
	}
	return json.Marshal(w)
}

func decodeGeoPoint(b []byte) (model.GeoPoint, error) {
	var w wireGeoPoint
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	switch w.Kind {
	case model.TypePopulation:
		return model.PopulationCell{
			Lat: w.Lat, Lon: w.Lon, Population: w.Population,
			PK: w.PK, SK: w.SK, GSI1PK: w.GSI1PK, GSI1SK: w.GSI1SK, InGSI: w.InGSI,
		}, nil
	case model.TypeWeather:
		wr := model.WeatherReport{
			Lat: w.Lat, Lon: w.Lon,
			TemperatureC: w.TemperatureC, WindSpeedMs: w.WindSpeedMs,
			VisibilityMeters: w.VisibilityMeters, PrecipitationLevel: w.PrecipitationLevel,
			PK: w.PK, SK: w.SK, GSI1PK: w.GSI1PK, GSI1SK: w.GSI1SK,
		}
		if w.DataTimestamp != nil {
			wr.DataTimestamp = *w.DataTimestamp
		}
		if w.RecordTimestamp != nil {
			wr.RecordTimestamp = *w.RecordTimestamp
		}
		if w.TTL != nil {
			wr.TTL = *w.TTL
		}
		return wr, nil
	default:
		return nil, fmt.Errorf("spatial: unknown GeoType %q", w.Kind)
	}
}

// Store is the C3 spatial store adapter.
type Store struct {
	rc         *redisstore.Client
	table      string
	itemTTL    time.Duration
	routeTTL   time.Duration
	writeBatch int
	log        zerolog.Logger
}

func New(rc *redisstore.Client, table string, itemTTL, routeTTL time.Duration, writeBatchSize int) *Store {
	if writeBatchSize <= 0 {
		writeBatchSize = 25
	}
	return &Store{rc: rc, table: table, itemTTL: itemTTL, routeTTL: routeTTL, writeBatch: writeBatchSize, log: zerolog.Nop()}
}

// WithLogger attaches a logger used for soft-failure warnings (dropped
// prefixes, failed write groups). Returns s for chaining.
func (s *Store) WithLogger(l zerolog.Logger) *Store {
	s.log = l
	return s
}

// QueryByHashPrefix reads every GeoPoint indexed under prefix, paginating up
// to maxPages of pageLimit members each. A page-cap truncation is not
// reported as an error.
func (s *Store) QueryByHashPrefix(ctx context.Context, prefix string, useSparseIndex bool) ([]model.GeoPoint, error) {
	setKey := keys.PrimaryPartitionSet(s.table, prefix)
	if useSparseIndex {
		setKey = keys.SparsePartitionSet(s.table, prefix)
	}

	var out []model.GeoPoint
	for page := 0; page < maxPages; page++ {
		members, err := s.rc.PartitionMembers(ctx, setKey, pageLimit*(page+1))
		observability.ObservePrefixRead(indexLabel(useSparseIndex), err)
		if err != nil {
			return nil, errs.Wrap(errs.KindStoreTransient, "query partition "+prefix, err)
		}
		start := page * pageLimit
		if start >= len(members) {
			break
		}
		end := start + pageLimit
		if end > len(members) {
			end = len(members)
		}
		pageMembers := members[start:end]
		if len(pageMembers) == 0 {
			break
		}

		blobs, err := s.rc.MGet(ctx, pageMembers)
		if err != nil {
			return nil, errs.Wrap(errs.KindStoreTransient, "mget partition "+prefix, err)
		}
		for _, m := range pageMembers {
			b, ok := blobs[m]
			if !ok {
				continue
			}
			gp, err := decodeGeoPoint(b)
			if err != nil {
				continue
			}
			out = append(out, gp)
		}
		if end >= len(members) {
			break
		}
	}
	return out, nil
}

func indexLabel(sparse bool) string {
	if sparse {
		return "gsi1"
	}
	return "primary"
}

// FetchByHashPrefixes fans the per-prefix query out across at most fanoutCap
// concurrent goroutines. Per-prefix failures are logged and dropped rather
// than propagated.
func (s *Store) FetchByHashPrefixes(ctx context.Context, prefixes []string, useSparseIndex bool) []model.GeoPoint {
	results := make([][]model.GeoPoint, len(prefixes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanoutCap)

	for i, prefix := range prefixes {
		i, prefix := i, prefix
		g.Go(func() error {
			pts, err := s.QueryByHashPrefix(gctx, prefix, useSparseIndex)
			if err != nil {
				s.log.Warn().Err(err).Str("prefix", prefix).Msg("spatial prefix query failed, dropping")
				return nil
			}
			results[i] = pts
			return nil
		})
	}
	_ = g.Wait()

	var total int
	for _, r := range results {
		total += len(r)
	}
	out := make([]model.GeoPoint, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// WriteBatch partitions items into groups of s.writeBatch and writes each
// group with a single Redis pipeline. Group failures increment a counter
// and do not abort the remaining groups.
func (s *Store) WriteBatch(ctx context.Context, items []model.GeoPoint) {
	for start := 0; start < len(items); start += s.writeBatch {
		end := start + s.writeBatch
		if end > len(items) {
			end = len(items)
		}
		if err := s.writeGroup(ctx, items[start:end]); err != nil {
			observability.IncWriteBatchFailure()
			s.log.Warn().Err(err).Int("groupSize", end-start).Msg("spatial write batch group failed")
		}
	}
}

func (s *Store) writeGroup(ctx context.Context, group []model.GeoPoint) error {
	writes := make([]redisstore.WriteItem, 0, len(group)*2)
	for _, gp := range group {
		blob, err := encodeGeoPoint(gp)
		if err != nil {
			return err
		}
		pk, sk := gp.Key()
		itemKey := keys.GeoPointKey(s.table, pk, sk)
		writes = append(writes, redisstore.WriteItem{
			SetKey: keys.PrimaryPartitionSet(s.table, pk), ItemKey: itemKey, ItemBlob: blob, TTL: s.itemTTL,
		})
		if gsiPK, gsiSK, ok := gp.GSIKey(); ok {
			writes = append(writes, redisstore.WriteItem{
				SetKey: keys.SparsePartitionSet(s.table, gsiPK), ItemKey: itemKey, ItemBlob: blob, TTL: s.itemTTL,
			})
			_ = gsiSK
		}
	}
	return s.rc.WritePartitioned(ctx, writes, float64(time.Now().UnixNano()))
}

// CreateRouteRecord persists a new RouteRecord and returns its id. A failure
// is StoreFatal and surfaces to the caller.
func (s *Store) CreateRouteRecord(ctx context.Context, routePoints []model.Point) (string, error) {
	id := ulid.Make().String()
	rec := model.RouteRecord{
		PK:          id,
		RoutePoints: routePoints,
		TTL:         time.Now().Add(s.routeTTL),
	}
	blob, err := json.Marshal(rec)
	if err != nil {
		return "", errs.Wrap(errs.KindStoreFatal, "marshal route record", err)
	}
	if err := s.rc.Set(ctx, keys.RouteRecordKey(s.table, id), blob, s.routeTTL); err != nil {
		return "", errs.Wrap(errs.KindStoreFatal, "persist route record", err)
	}
	return id, nil
}

// GetRouteRecord loads a RouteRecord by id.
func (s *Store) GetRouteRecord(ctx context.Context, id string) (*model.RouteRecord, error) {
	blobs, err := s.rc.MGet(ctx, []string{keys.RouteRecordKey(s.table, id)})
	if err != nil {
		return nil, errs.Wrap(errs.KindStoreTransient, "get route record", err)
	}
	b, ok := blobs[keys.RouteRecordKey(s.table, id)]
	if !ok {
		return nil, errs.New(errs.KindInvalidInput, "route record not found: "+id)
	}
	var rec model.RouteRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, errs.Wrap(errs.KindStoreFatal, "unmarshal route record", err)
	}
	return &rec, nil
}

// UpdateRouteRecord persists the worker's optimization writeback with
// Optimised set. It publishes nothing, so the update never re-triggers the
// redis-keyspace driver.
func (s *Store) UpdateRouteRecord(ctx context.Context, rec *model.RouteRecord) error {
	rec.Optimised = true
	blob, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(errs.KindStoreFatal, "marshal route record update", err)
	}
	if err := s.rc.Set(ctx, keys.RouteRecordKey(s.table, rec.PK), blob, s.routeTTL); err != nil {
		return errs.Wrap(errs.KindStoreFatal, "persist route record update", err)
	}
	return nil
}

// PublishRouteInserted announces a newly created RouteRecord on the
// redis-keyspace channel for the worker to pick up.
func (s *Store) PublishRouteInserted(ctx context.Context, id string) error {
	if err := s.rc.Publish(ctx, keys.RouteChangeChannel(s.table), []byte(id)); err != nil {
		observability.IncPublishFailure()
		return errs.Wrap(errs.KindPublishFailed, "publish route insert", err)
	}
	return nil
}

// SubscribeRouteInserts returns the PubSub subscription the redis-keyspace
// worker driver reads insert ids from.
func (s *Store) SubscribeRouteInserts(ctx context.Context) *redis.PubSub {
	return s.rc.Subscribe(ctx, keys.RouteChangeChannel(s.table))
}
