package graph

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/ritzau/hopgraph/pkg/model"
)

// WalkGraph is the unweighted structure of a model.Graph, used for
// reachability and hop-distance analysis. Weights only matter to the
// simulator. Hop queries cache results, so a WalkGraph is not safe for
// concurrent use.
type WalkGraph struct {
	graph *simple.DirectedGraph
	hops  map[int]path.Shortest // cached single-source results
}

// NewWalkGraph converts g into a gonum directed graph. Parallel edges are
// merged and self loops dropped; neither changes reachability or hop
// distances.
func NewWalkGraph(g *model.Graph) *WalkGraph {
	wg := &WalkGraph{
		graph: simple.NewDirectedGraph(),
		hops:  make(map[int]path.Shortest),
	}

	for _, node := range g.Nodes() {
		wg.graph.AddNode(simple.Node(node))
	}

	for _, e := range g.Edges() {
		if e.From == e.To {
			continue
		}
		// Add edge if it doesn't already exist; SetEdge adds unknown nodes
		if !wg.graph.HasEdgeFromTo(int64(e.From), int64(e.To)) {
			wg.graph.SetEdge(wg.graph.NewEdge(simple.Node(e.From), simple.Node(e.To)))
		}
	}

	return wg
}

// Graph returns the underlying directed graph
func (wg *WalkGraph) Graph() *simple.DirectedGraph {
	return wg.graph
}

// Successors returns the distinct destinations of node's edges in ascending
// order.
func (wg *WalkGraph) Successors(node int) []int {
	var out []int
	iter := wg.graph.From(int64(node))
	for iter.Next() {
		out = append(out, int(iter.Node().ID()))
	}
	sort.Ints(out)
	return out
}

// Reachable reports whether any walk from can ever visit to.
func (wg *WalkGraph) Reachable(from, to int) bool {
	if from == to {
		return true
	}
	u, v := wg.graph.Node(int64(from)), wg.graph.Node(int64(to))
	if u == nil || v == nil {
		return false
	}
	return topo.PathExistsIn(wg.graph, u, v)
}

// Hops returns the minimum number of steps from one node to another, or -1
// when to is unreachable.
func (wg *WalkGraph) Hops(from, to int) int {
	if from == to {
		return 0
	}
	shortest, ok := wg.hops[from]
	if !ok {
		u := wg.graph.Node(int64(from))
		if u == nil {
			return -1
		}
		shortest = path.DijkstraFrom(u, wg.graph)
		wg.hops[from] = shortest
	}

	w := shortest.WeightTo(int64(to))
	if math.IsInf(w, 1) {
		return -1
	}
	return int(w)
}

// HopStats summarizes shortest paths over a workload.
type HopStats struct {
	Reachable   int
	Unreachable int
	// Mean shortest path over reachable queries. No walk can beat it on
	// average, so it bounds the simulated mean from below.
	Mean model.Measure
	Max  int
}

// WorkloadHops computes shortest-path statistics for the queries.
func (wg *WalkGraph) WorkloadHops(queries []model.Query) HopStats {
	stats := HopStats{Mean: model.Undefined}
	total := 0
	for _, q := range queries {
		h := wg.Hops(q.Start, q.Target)
		if h < 0 {
			stats.Unreachable++
			continue
		}
		stats.Reachable++
		total += h
		stats.Max = max(stats.Max, h)
	}
	if stats.Reachable > 0 {
		stats.Mean = model.Measure(float64(total) / float64(stats.Reachable))
	}
	return stats
}
