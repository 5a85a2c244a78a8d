package builder

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ritzau/hopgraph/pkg/model"
)

// Configuration errors. Any of these makes a graph unusable for simulation.
var (
	ErrInvalidParams = errors.New("invalid builder parameters")
	ErrMissingNode   = errors.New("node missing from graph")
	ErrDeadEnd       = errors.New("node has no outgoing edges")
	ErrBadEdge       = errors.New("malformed edge")
	ErrEdgeBudget    = errors.New("edge budget exceeded")
)

// Validate checks the structural invariants every walk graph must satisfy:
// each node in [0, NodeCount) is present and has at least one edge, every
// edge is well formed, and the total edge count fits the budget.
func Validate(g *model.Graph, edgeBudget int) error {
	if g == nil {
		return fmt.Errorf("%w: nil graph", ErrMissingNode)
	}

	for node := range g.Adjacency {
		if node < 0 || node >= g.NodeCount {
			return fmt.Errorf("%w: node %d outside [0,%d)", ErrBadEdge, node, g.NodeCount)
		}
	}

	total := 0
	for node := 0; node < g.NodeCount; node++ {
		if !g.HasNode(node) {
			return fmt.Errorf("%w: %d", ErrMissingNode, node)
		}
		edges := g.EdgesFrom(node)
		if len(edges) == 0 {
			return fmt.Errorf("%w: %d", ErrDeadEnd, node)
		}
		for _, e := range edges {
			if e.From != node {
				return fmt.Errorf("%w: edge %d->%d stored under node %d", ErrBadEdge, e.From, e.To, node)
			}
			if e.To < 0 || e.To >= g.NodeCount {
				return fmt.Errorf("%w: edge %d->%d leaves [0,%d)", ErrBadEdge, e.From, e.To, g.NodeCount)
			}
			if !(e.Weight > 0) || math.IsInf(e.Weight, 0) {
				return fmt.Errorf("%w: edge %d->%d has weight %g", ErrBadEdge, e.From, e.To, e.Weight)
			}
		}
		total += len(edges)
	}

	if total > edgeBudget {
		return fmt.Errorf("%w: %d edges, budget %d", ErrEdgeBudget, total, edgeBudget)
	}
	return nil
}

// TierSummary describes the edges of one tier.
type TierSummary struct {
	Tier  Tier
	Nodes int
	Edges int
	// ResetProbability is the mean per-step probability of jumping to node
	// 0 from a node of this tier.
	ResetProbability float64
}

// Summarize groups the graph's nodes by tier.
func Summarize(g *model.Graph, p Params) []TierSummary {
	order := []Tier{TierInner, TierOuter, TierOverflow}
	byTier := make(map[Tier]*TierSummary, len(order))
	resets := make(map[Tier][]float64, len(order))
	for _, tier := range order {
		byTier[tier] = &TierSummary{Tier: tier}
	}

	for _, node := range g.Nodes() {
		tier := p.TierOf(node)
		s := byTier[tier]
		edges := g.EdgesFrom(node)
		s.Nodes++
		s.Edges += len(edges)

		weights := make([]float64, len(edges))
		var reset float64
		for i, e := range edges {
			weights[i] = e.Weight
			if e.To == 0 {
				reset += e.Weight
			}
		}
		if sum := floats.Sum(weights); sum > 0 {
			resets[tier] = append(resets[tier], reset/sum)
		}
	}

	summaries := make([]TierSummary, 0, len(order))
	for _, tier := range order {
		s := byTier[tier]
		if s.Nodes == 0 {
			continue
		}
		if r := resets[tier]; len(r) > 0 {
			s.ResetProbability = floats.Sum(r) / float64(len(r))
		}
		summaries = append(summaries, *s)
	}
	return summaries
}
