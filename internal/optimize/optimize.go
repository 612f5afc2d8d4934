// Package optimize implements the constrained-deviation A* route optimizer
// (C6): given a start/end pair and the population points in the corridor,
// search an ordered polyline minimizing cumulative population exposure
// subject to a deviation budget off the straight-line path.
package optimize

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/droneroute/flightcore/internal/core/observability"
	"github.com/droneroute/flightcore/internal/geo"
	"github.com/droneroute/flightcore/internal/model"
)

// State is the terminal state of a completed optimization job.
type State string

const (
	StateDone     State = "DONE"
	StateFallback State = "FALLBACK"
)

// Params are the optimizer's tunables, sourced from config.
type Params struct {
	StepMeters        float64
	AngleRangeDeg     float64
	FanCount          int
	MaxDeviationRatio float64
	WallClockBudget   time.Duration
}

// Result is the optimizer's output for one job.
type Result struct {
	Route       []geo.Point
	State       State
	Expansions  int
	ElapsedTime time.Duration
}

type node struct {
	pt     geo.Point
	parent *node
	g, h   float64
	index  int // insertion sequence number, the last tie-breaker in Less
}

func (n *node) f() float64 { return n.g + n.h }

type openQueue []*node

func (q openQueue) Len() int { return len(q) }

func (q openQueue) Less(i, j int) bool {
	if q[i].f() != q[j].f() {
		return q[i].f() < q[j].f()
	}
	if q[i].g != q[j].g {
		return q[i].g < q[j].g
	}
	return q[i].index < q[j].index
}

func (q openQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *openQueue) Push(x any) {
	n := x.(*node)
	*q = append(*q, n)
}

func (q *openQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

func nodeKey(p geo.Point) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// populationPenalty is evaluated once per candidate edge, not per corridor
// membership: pop*2 within 500m of the candidate endpoint, pop*1 within
// 1000m, else 0.
func populationPenalty(p model.PopulationCell, m geo.Point) float64 {
	d := geo.Distance(geo.Point{Lat: p.Lat, Lon: p.Lon}, m)
	switch {
	case d <= 500:
		return float64(p.Population) * 2
	case d <= 1000:
		return float64(p.Population)
	default:
		return 0
	}
}

func edgeCost(populationPoints []model.PopulationCell, m geo.Point) float64 {
	var cost float64
	for _, p := range populationPoints {
		cost += populationPenalty(p, m)
	}
	return cost
}

// Optimize runs a single A* search job. corridorPoints should already be
// filtered to the route corridor (C4 output); only Population-typed points
// contribute to edge cost.
func Optimize(start, end geo.Point, corridorPoints []model.GeoPoint, p Params) Result {
	startTime := time.Now()

	if p.StepMeters <= 0 {
		p.StepMeters = 1000
	}
	if p.FanCount <= 0 {
		p.FanCount = 10
	}
	if p.AngleRangeDeg <= 0 {
		p.AngleRangeDeg = 30
	}
	if p.MaxDeviationRatio <= 0 {
		p.MaxDeviationRatio = 0.20
	}
	if p.WallClockBudget <= 0 {
		p.WallClockBudget = 30 * time.Second
	}

	populationPoints := make([]model.PopulationCell, 0, len(corridorPoints))
	for _, gp := range corridorPoints {
		if c, ok := gp.(model.PopulationCell); ok {
			populationPoints = append(populationPoints, c)
		}
	}

	straightLineDistance := geo.Distance(start, end)
	maxDeviation := p.MaxDeviationRatio * straightLineDistance

	startNode := &node{pt: start, g: 0, h: geo.Distance(start, end)}

	open := &openQueue{}
	heap.Init(open)
	heap.Push(open, startNode)

	closed := make(map[string]struct{})
	var insertionSeq int
	expansions := 0

	fallback := func() Result {
		return Result{
			Route:       []geo.Point{start, end},
			State:       StateFallback,
			Expansions:  expansions,
			ElapsedTime: time.Since(startTime),
		}
	}

	deadline := startTime.Add(p.WallClockBudget)

	for open.Len() > 0 {
		if time.Now().After(deadline) {
			observability.ObserveOptimizeJob(string(StateFallback), expansions, time.Since(startTime))
			return fallback()
		}

		current := heap.Pop(open).(*node)
		key := nodeKey(current.pt)
		if _, seen := closed[key]; seen {
			continue
		}
		closed[key] = struct{}{}
		expansions++

		if geo.Distance(current.pt, end) <= p.StepMeters {
			route := reconstruct(current, end)
			observability.ObserveOptimizeJob(string(StateDone), expansions, time.Since(startTime))
			return Result{Route: route, State: StateDone, Expansions: expansions, ElapsedTime: time.Since(startTime)}
		}

		directBearing := geo.RhumbBearing(current.pt, end)
		for i := 0; i < p.FanCount; i++ {
			offset := p.AngleRangeDeg * (2*float64(i)/float64(p.FanCount-1) - 1)
			bearing := directBearing + offset
			candidate := geo.Destination(current.pt, p.StepMeters, bearing)

			if geo.PerpendicularDistance(candidate, start, end) > maxDeviation {
				continue
			}
			ckey := nodeKey(candidate)
			if _, seen := closed[ckey]; seen {
				continue
			}

			g := current.g + edgeCost(populationPoints, candidate)
			h := geo.Distance(candidate, end)
			insertionSeq++
			heap.Push(open, &node{pt: candidate, parent: current, g: g, h: h, index: insertionSeq})
		}
	}

	observability.ObserveOptimizeJob(string(StateFallback), expansions, time.Since(startTime))
	return fallback()
}

func reconstruct(last *node, end geo.Point) []geo.Point {
	var rev []geo.Point
	for n := last; n != nil; n = n.parent {
		rev = append(rev, n.pt)
	}
	route := make([]geo.Point, 0, len(rev)+1)
	for i := len(rev) - 1; i >= 0; i-- {
		route = append(route, rev[i])
	}
	route = append(route, end)
	return route
}

