// Package builder constructs the tiered walk graph.
//
// Nodes are split by index into three tiers:
//
//	[0, InnerSize)         inner ring, one edge to i+1
//	[InnerSize, OuterEnd)  outer ring, next / skip / reset edges
//	[OuterEnd, NodeCount)  overflow, one edge to node 0
//
// Target nodes are drawn from an exponential distribution, so almost all of
// the probability mass sits in the first few dozen indices. The inner ring
// sweeps the densest region in order. The last inner node continues into the
// outer ring instead of back to 0, since reaching it means nodes 0..InnerSize-1
// were already visited. The outer ring mostly steps forward, sometimes skips
// ahead, and occasionally resets to 0 to recover from starts past the target.
// Overflow nodes funnel straight into node 0 and cannot reach each other.
package builder

import (
	"fmt"

	"github.com/ritzau/hopgraph/pkg/config"
	"github.com/ritzau/hopgraph/pkg/model"
)

// Tier identifies the region of the index space a node belongs to.
type Tier string

const (
	TierInner    Tier = "inner"
	TierOuter    Tier = "outer"
	TierOverflow Tier = "overflow"
)

// Params are the tunable constants of the heuristic.
type Params struct {
	NodeCount    int
	EdgeBudget   int
	InnerSize    int     // Nodes [0, InnerSize) form the inner ring
	OuterEnd     int     // Nodes [InnerSize, OuterEnd) form the outer ring
	SkipDistance int     // Offset of the outer ring skip edge
	NextWeight   float64 // Heavy
	SkipWeight   float64 // Medium
	ResetWeight  float64 // Light
	Boundary     string  // config.BoundaryWrap or config.BoundaryClamp
}

// DefaultParams returns the tuned reference parameters. With these weights
// an outer ring node resets to 0 with probability 1/18.
func DefaultParams() Params {
	return Params{
		NodeCount:    500,
		EdgeBudget:   1000,
		InnerSize:    10,
		OuterEnd:     50,
		SkipDistance: 5,
		NextWeight:   10,
		SkipWeight:   7,
		ResetWeight:  1,
		Boundary:     config.BoundaryWrap,
	}
}

// FromConfig extracts builder parameters from the application config.
func FromConfig(cfg *config.Config) Params {
	return Params{
		NodeCount:    cfg.Nodes,
		EdgeBudget:   cfg.EdgeBudget,
		InnerSize:    cfg.InnerSize,
		OuterEnd:     cfg.OuterEnd,
		SkipDistance: cfg.SkipDistance,
		NextWeight:   cfg.NextWeight,
		SkipWeight:   cfg.SkipWeight,
		ResetWeight:  cfg.ResetWeight,
		Boundary:     cfg.Boundary,
	}
}

// Check validates the parameters themselves, before anything is built.
func (p Params) Check() error {
	switch {
	case p.NodeCount < 1:
		return fmt.Errorf("%w: node count %d", ErrInvalidParams, p.NodeCount)
	case p.InnerSize < 1:
		return fmt.Errorf("%w: inner ring size %d", ErrInvalidParams, p.InnerSize)
	case p.OuterEnd <= p.InnerSize:
		return fmt.Errorf("%w: outer ring [%d,%d) is empty", ErrInvalidParams, p.InnerSize, p.OuterEnd)
	case p.OuterEnd > p.NodeCount:
		return fmt.Errorf("%w: outer ring end %d beyond node count %d", ErrInvalidParams, p.OuterEnd, p.NodeCount)
	case p.SkipDistance < 1:
		return fmt.Errorf("%w: skip distance %d", ErrInvalidParams, p.SkipDistance)
	case p.NextWeight <= 0 || p.SkipWeight <= 0 || p.ResetWeight <= 0:
		return fmt.Errorf("%w: weights must be positive (next=%g skip=%g reset=%g)",
			ErrInvalidParams, p.NextWeight, p.SkipWeight, p.ResetWeight)
	case p.Boundary != config.BoundaryWrap && p.Boundary != config.BoundaryClamp:
		return fmt.Errorf("%w: boundary policy %q", ErrInvalidParams, p.Boundary)
	}
	return nil
}

// TierOf returns the tier of node under these parameters.
func (p Params) TierOf(node int) Tier {
	switch {
	case node < p.InnerSize:
		return TierInner
	case node < p.OuterEnd:
		return TierOuter
	default:
		return TierOverflow
	}
}

// ExpectedEdges is the number of edges Build produces.
func (p Params) ExpectedEdges() int {
	return p.InnerSize + 3*(p.OuterEnd-p.InnerSize) + (p.NodeCount - p.OuterEnd)
}

// outerDestination applies the boundary policy to an outer ring destination.
func (p Params) outerDestination(dest int) int {
	if dest < p.OuterEnd {
		return dest
	}
	if p.Boundary == config.BoundaryClamp {
		return 0
	}
	ringSize := p.OuterEnd - p.InnerSize
	return p.InnerSize + (dest-p.InnerSize)%ringSize
}

// Build constructs and validates the tiered graph.
func Build(p Params) (*model.Graph, error) {
	if err := p.Check(); err != nil {
		return nil, err
	}

	g := model.NewGraph(p.NodeCount)
	for node := 0; node < p.NodeCount; node++ {
		g.AddNode(node)
	}

	// Inner ring. The last inner node feeds the first outer node, which is
	// simply InnerSize.
	for i := 0; i < p.InnerSize; i++ {
		g.AddEdge(i, i+1, 1)
	}

	// Outer ring: next, skip, reset in that order
	for i := p.InnerSize; i < p.OuterEnd; i++ {
		g.AddEdge(i, p.outerDestination(i+1), p.NextWeight)
		g.AddEdge(i, p.outerDestination(i+p.SkipDistance), p.SkipWeight)
		g.AddEdge(i, 0, p.ResetWeight)
	}

	// Overflow
	for i := p.OuterEnd; i < p.NodeCount; i++ {
		g.AddEdge(i, 0, 1)
	}

	if err := Validate(g, p.EdgeBudget); err != nil {
		return nil, fmt.Errorf("built graph is invalid: %w", err)
	}

	return g, nil
}

// MustBuild is Build for parameter sets known to be valid, such as the
// defaults. It panics on a configuration error.
func MustBuild(p Params) *model.Graph {
	g, err := Build(p)
	if err != nil {
		panic(err)
	}
	return g
}
