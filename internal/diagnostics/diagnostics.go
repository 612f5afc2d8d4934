// Package diagnostics cross-checks the geohash-based corridor scanner's
// bounding-box coverage against an independent H3 polyfill of the same box.
// It is not on the query path: geohash remains the primary spatial index,
// and this package exists purely to sanity-check that coverage during
// development and in tests.
package diagnostics

import (
	"fmt"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/droneroute/flightcore/internal/model"
)

// H3CellsForBBox polyfills box with H3 cells at res, returning a sorted,
// deduplicated list of cell indexes.
func H3CellsForBBox(box model.BBox, res int) ([]string, error) {
	if res < 0 || res > 15 {
		return nil, fmt.Errorf("diagnostics: invalid H3 resolution %d (must be 0..15)", res)
	}

	loop := h3.GeoLoop{
		{Lat: box.LatMin, Lng: box.LonMin},
		{Lat: box.LatMin, Lng: box.LonMax},
		{Lat: box.LatMax, Lng: box.LonMax},
		{Lat: box.LatMax, Lng: box.LonMin},
	}
	poly := h3.GeoPolygon{GeoLoop: loop}

	cells, err := h3.PolygonToCells(poly, res)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: h3 polyfill: %w", err)
	}

	seen := make(map[string]struct{}, len(cells))
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		s := c.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// CoverageReport compares the geohash scanner's cell count for box against
// an H3 polyfill of the same box, returning a ratio suitable for a
// sanity-bound assertion (not an equivalence check: the two tessellations
// partition space differently).
type CoverageReport struct {
	GeohashCellCount int
	H3CellCount      int
	Ratio            float64 // GeohashCellCount / H3CellCount
}

// CompareCoverage builds the report for a caller-supplied geohash cell list
// (typically from corridor.BoundingBoxHashes) against an H3 polyfill at h3Res.
func CompareCoverage(box model.BBox, geohashCells []string, h3Res int) (CoverageReport, error) {
	h3Cells, err := H3CellsForBBox(box, h3Res)
	if err != nil {
		return CoverageReport{}, err
	}
	r := CoverageReport{GeohashCellCount: len(geohashCells), H3CellCount: len(h3Cells)}
	if len(h3Cells) > 0 {
		r.Ratio = float64(len(geohashCells)) / float64(len(h3Cells))
	}
	return r, nil
}
