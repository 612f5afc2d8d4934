// Package impact computes the distance, population, noise and weather
// scores the assess API and route optimizer report for a candidate route.
package impact

import (
	"math"

	"github.com/droneroute/flightcore/internal/geo"
	"github.com/droneroute/flightcore/internal/model"
)

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// RouteDistanceKm sums segment distances in meters and divides by 500 —
// the repository's chosen round-trip convention (2x then /1000) —
// rounded to one decimal place. This convention must be preserved exactly;
// changing the divisor changes every reported distance.
func RouteDistanceKm(polyline []geo.Point) float64 {
	var meters float64
	for i := 0; i+1 < len(polyline); i++ {
		meters += geo.Distance(polyline[i], polyline[i+1])
	}
	return round1(meters / 500)
}

// PopulationImpact models the direct footprint of a single pass over
// population-carrying cells in the corridor.
func PopulationImpact(points []model.GeoPoint) float64 {
	var sum float64
	for _, p := range points {
		if c, ok := p.(model.PopulationCell); ok {
			sum += float64(c.Population) * 0.1
		}
	}
	return math.Round(sum)
}

// NoiseImpact derives a 0..5 noise score from the population impact.
func NoiseImpact(populationImpact float64) float64 {
	v := populationImpact / 1000
	if v < 0 {
		v = 0
	}
	if v > 5 {
		v = 5
	}
	return round1(v)
}

// WeatherImpact reduces visibility and wind risk across the corridor's
// weather reports with max, rounded to one decimal place. Returns
// (nil, nil) when there are no weather points in the corridor, so the
// caller can omit both fields from the response.
func WeatherImpact(points []model.GeoPoint) (visibilityRisk, windRisk *float64) {
	var (
		maxV, maxW float64
		seen       bool
	)
	for _, p := range points {
		w, ok := p.(model.WeatherReport)
		if !ok {
			continue
		}
		seen = true

		var vRisk float64
		if w.VisibilityMeters != nil && *w.VisibilityMeters < 1000 {
			vRisk = (1000 - *w.VisibilityMeters) / 200
		}
		if vRisk > maxV {
			maxV = vRisk
		}

		var wRisk float64
		if w.WindSpeedMs != nil {
			switch {
			case *w.WindSpeedMs > 20:
				wRisk = 5
			default:
				wRisk = *w.WindSpeedMs / 4
			}
		}
		if wRisk > maxW {
			maxW = wRisk
		}
	}
	if !seen {
		return nil, nil
	}
	v := round1(maxV)
	w := round1(maxW)
	return &v, &w
}
