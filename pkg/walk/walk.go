// Package walk simulates weighted random walks over a model.Graph.
package walk

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ritzau/hopgraph/pkg/logging"
	"github.com/ritzau/hopgraph/pkg/model"
)

// ErrInvalidDepth is returned for a step budget below one.
var ErrInvalidDepth = errors.New("max depth must be at least 1")

// Simulator runs walks over a fixed graph. It only reads the graph, so one
// Simulator can serve concurrent walks.
type Simulator struct {
	graph    *model.Graph
	maxDepth int
	weights  map[int][]float64 // raw edge weights of branching nodes, in edge order
}

// NewSimulator prepares a simulator for g with the given step budget.
func NewSimulator(g *model.Graph, maxDepth int) (*Simulator, error) {
	if g == nil {
		return nil, fmt.Errorf("nil graph")
	}
	if maxDepth < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDepth, maxDepth)
	}

	weights := make(map[int][]float64, len(g.Adjacency))
	for node, edges := range g.Adjacency {
		if len(edges) < 2 {
			continue
		}
		w := make([]float64, len(edges))
		for i, e := range edges {
			w[i] = e.Weight
		}
		weights[node] = w
	}

	return &Simulator{
		graph:    g,
		maxDepth: maxDepth,
		weights:  weights,
	}, nil
}

// MaxDepth returns the step budget of a single walk.
func (s *Simulator) MaxDepth() int {
	return s.maxDepth
}

// FailureHops is the Hops value recorded for walks that miss their target.
func (s *Simulator) FailureHops() int {
	return s.maxDepth + 1
}

// Walk simulates a single query. Every edge choice draws from rng, so a
// fixed seed reproduces the exact path. Nodes with a single edge consume no
// randomness. A categorical sampler is bound to rng, so each walk builds one
// per visited branching node from the prepared weights.
func (s *Simulator) Walk(q model.Query, rng *rand.Rand) model.WalkResult {
	samplers := make(map[int]distuv.Categorical)
	current := q.Start
	path := []int{current}

	for steps := 0; ; steps++ {
		if current == q.Target {
			return model.WalkResult{Query: q, Path: path, Success: true, Hops: steps}
		}
		if steps == s.maxDepth {
			break
		}

		edges := s.graph.EdgesFrom(current)
		if len(edges) == 0 {
			// Unreachable for validated graphs
			break
		}

		next := edges[0].To
		if len(edges) > 1 {
			sampler, ok := samplers[current]
			if !ok {
				sampler = distuv.NewCategorical(s.weights[current], rng)
				samplers[current] = sampler
			}
			next = edges[int(sampler.Rand())].To
		}

		current = next
		path = append(path, current)
	}

	return model.WalkResult{Query: q, Path: path, Success: false, Hops: s.FailureHops()}
}

// Probabilities returns the selection probability of each outgoing edge of
// node, in edge order: weight divided by the node's total weight.
func (s *Simulator) Probabilities(node int) []float64 {
	edges := s.graph.EdgesFrom(node)
	switch len(edges) {
	case 0:
		return nil
	case 1:
		return []float64{1}
	}

	c := distuv.NewCategorical(s.weights[node], nil)
	probs := make([]float64, len(edges))
	for i := range probs {
		probs[i] = c.Prob(float64(i))
	}
	return probs
}

// StreamFor returns the random stream used for the query at index i of a
// workload run with seed. Each query has its own stream, so results do not
// depend on how walks are scheduled.
func StreamFor(seed uint64, i int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(i)))
}

// Run simulates every query of a workload. With workers > 1 the walks are
// spread over a bounded goroutine group; the results are identical to a
// sequential run with the same seed.
func (s *Simulator) Run(ctx context.Context, queries []model.Query, seed uint64, workers int) ([]model.WalkResult, error) {
	results := make([]model.WalkResult, len(queries))

	if workers <= 1 {
		for i, q := range queries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = s.walkLogged(ctx, i, q, seed)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.walkLogged(gctx, i, q, seed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Simulator) walkLogged(ctx context.Context, i int, q model.Query, seed uint64) model.WalkResult {
	res := s.Walk(q, StreamFor(seed, i))
	logging.TraceContext(ctx, "walk finished",
		"query", i, "start", q.Start, "target", q.Target,
		"success", res.Success, "hops", res.Hops)
	return res
}
