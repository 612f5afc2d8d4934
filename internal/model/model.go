// Package model defines the domain types shared by the spatial index, the
// corridor scanner, the impact assessor and the route optimizer.
package model

import (
	"fmt"
	"time"
)

// GeoType discriminates the two entity classes held in the spatial index.
type GeoType string

const (
	TypePopulation GeoType = "Population"
	TypeWeather    GeoType = "Weather"
)

// SKPrefix returns the "<type>#" prefix every GeoPoint's SK must start with,
// ahead of the geohash.Encode(lat, lon, P_SK) suffix.
func SKPrefix(kind GeoType) string {
	return string(kind) + "#"
}

// GeoPoint is the tagged-variant interface both PopulationCell and
// WeatherReport satisfy. Callers that need to branch on entity class use a
// type switch on the concrete type rather than string-comparing Kind(),
// which keeps C4/C5's dispatch exhaustive and compiler-checked.
type GeoPoint interface {
	Coords() (lat, lon float64)
	Kind() GeoType
	Key() (pk, sk string)
	GSIKey() (gsiPK, gsiSK string, ok bool)
}

// PopulationCell is a ~1km^2 grid cell carrying a whole-cell population
// count. Population values are loaded once at bootstrap and are immutable
// for the process lifetime.
type PopulationCell struct {
	Lat, Lon   float64
	Population int

	PK, SK         string
	GSI1PK, GSI1SK string
	InGSI          bool // true iff Population exceeds the dataset's 95th percentile
}

func (c PopulationCell) Coords() (float64, float64) { return c.Lat, c.Lon }
func (c PopulationCell) Kind() GeoType               { return TypePopulation }
func (c PopulationCell) Key() (string, string)        { return c.PK, c.SK }
func (c PopulationCell) GSIKey() (string, string, bool) {
	if !c.InGSI {
		return "", "", false
	}
	return c.GSI1PK, c.GSI1SK, true
}

// WeatherReport is a decoded weather observation. Optional fields are nil
// when the source record did not carry that measurement.
type WeatherReport struct {
	Lat, Lon float64

	TemperatureC       *float64
	WindSpeedMs        *float64
	VisibilityMeters   *float64
	PrecipitationLevel *int // 0..4

	DataTimestamp   time.Time
	RecordTimestamp time.Time
	TTL             time.Time

	PK, SK         string
	GSI1PK, GSI1SK string
}

func (w WeatherReport) Coords() (float64, float64) { return w.Lat, w.Lon }
func (w WeatherReport) Kind() GeoType               { return TypeWeather }
func (w WeatherReport) Key() (string, string)        { return w.PK, w.SK }
func (w WeatherReport) GSIKey() (string, string, bool) {
	// weather reports are always indexed under GSI1, regardless of magnitude
	return w.GSI1PK, w.GSI1SK, true
}

// Valid reports whether w's coordinates are in range. An invalid report is
// dropped during ingestion rather than written to the store.
func (w WeatherReport) Valid() bool {
	lat, lon := w.Coords()
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Point is a bare geographic coordinate used for route polylines, distinct
// from GeoPoint which also carries index keys.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BBox is an axis-aligned lat/lon rectangle used by viewport queries and the
// corridor scanner's bounding-box entry point.
type BBox struct {
	LatMin, LonMin float64
	LatMax, LonMax float64
}

func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.LatMin, b.LonMin, b.LatMax, b.LonMax)
}

func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
}

// RouteRecord is the persisted job record the optimizer submit/worker
// contract operates on. It is created once with only RoutePoints set, and
// updated exactly once by the worker with the optimization outputs.
type RouteRecord struct {
	PK          string    `json:"pk"`
	RoutePoints []Point   `json:"routePoints"`
	TTL         time.Time `json:"ttl"`

	// Set true by the worker's own writeback so the change-feed driver can
	// recognize and skip its own update instead of re-triggering.
	Optimised bool `json:"optimised"`

	OptimisedRoute           []Point  `json:"optimisedRoute,omitempty"`
	OptimisedRouteDistanceKm *float64 `json:"optimisedRouteDistanceKm,omitempty"`
	PopulationImpact         *float64 `json:"populationImpact,omitempty"`
	NoiseImpact              *float64 `json:"noiseImpact,omitempty"`
	VisibilityRisk           *float64 `json:"visibilityRisk,omitempty"`
	WindRisk                 *float64 `json:"windRisk,omitempty"`
}

// AssessResult is the output shape shared by the assess API and the
// optimizer's routeOptimised notification payload.
type AssessResult struct {
	Route            []Point  `json:"route"`
	RouteDistanceKm  float64  `json:"routeDistance"`
	PopulationImpact float64  `json:"populationImpact"`
	NoiseImpactScore *float64 `json:"noiseImpactScore,omitempty"`
	VisibilityRisk   *float64 `json:"visibilityRisk,omitempty"`
	WindRisk         *float64 `json:"windRisk,omitempty"`
}
