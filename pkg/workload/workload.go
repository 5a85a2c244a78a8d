// Package workload generates and persists query workloads.
package workload

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ritzau/hopgraph/pkg/config"
	"github.com/ritzau/hopgraph/pkg/model"
)

// Options controls workload generation.
type Options struct {
	Nodes     int
	Lambda    float64
	SeedNodes int // Number of distinct start nodes; 0 draws from all nodes
	Queries   int
}

// FromConfig extracts workload options from the application config.
func FromConfig(cfg *config.Config) Options {
	return Options{
		Nodes:     cfg.Nodes,
		Lambda:    cfg.Lambda,
		SeedNodes: cfg.SeedNodes,
		Queries:   cfg.Queries,
	}
}

// stream selects the PCG sequence for workload generation. Walk streams use
// the query index, so the high bit keeps the two apart.
const stream = 1 << 63

// RNG returns the random source used to generate the workload for seed.
func RNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// Generate draws a workload. Start nodes are picked once, uniformly and
// without repetition, then each query uses a uniform start from that set.
// Targets are floor(X) mod Nodes with X exponential with rate Lambda.
func Generate(opts Options, rng *rand.Rand) ([]model.Query, error) {
	if opts.Nodes < 1 || !(opts.Lambda > 0) || math.IsInf(opts.Lambda, 1) || opts.Queries < 0 {
		return nil, fmt.Errorf("invalid workload options %+v", opts)
	}
	if opts.SeedNodes < 0 || opts.SeedNodes > opts.Nodes {
		return nil, fmt.Errorf("seed nodes %d outside [0,%d]", opts.SeedNodes, opts.Nodes)
	}

	starts := SeedNodes(opts, rng)
	exp := distuv.Exponential{Rate: opts.Lambda, Src: rng}

	queries := make([]model.Query, opts.Queries)
	for i := range queries {
		var start int
		if starts == nil {
			start = rng.IntN(opts.Nodes)
		} else {
			start = starts[rng.IntN(len(starts))]
		}
		queries[i] = model.Query{
			Start:  start,
			Target: wrapTarget(exp.Rand(), opts.Nodes),
		}
	}
	return queries, nil
}

// wrapTarget floors an exponential sample and wraps it into [0, nodes).
// The modulo happens in float64 so samples beyond the int range still land
// on a node.
func wrapTarget(x float64, nodes int) int {
	if math.IsInf(x, 1) {
		x = math.MaxFloat64
	}
	return int(math.Mod(math.Floor(x), float64(nodes)))
}

// SeedNodes picks the start node set, or returns nil when starts are drawn
// from all nodes.
func SeedNodes(opts Options, rng *rand.Rand) []int {
	if opts.SeedNodes == 0 {
		return nil
	}
	return rng.Perm(opts.Nodes)[:opts.SeedNodes]
}

// Save writes queries as a JSON array of [start, target] pairs.
func Save(path string, queries []model.Query) error {
	data, err := json.MarshalIndent(queries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode queries: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write queries: %w", err)
	}
	return nil
}

// Load reads a workload written by Save and checks every node against the
// node count.
func Load(path string, nodes int) ([]model.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries: %w", err)
	}

	var queries []model.Query
	if err := json.Unmarshal(data, &queries); err != nil {
		return nil, fmt.Errorf("failed to parse queries %s: %w", path, err)
	}

	for i, q := range queries {
		if q.Start < 0 || q.Start >= nodes || q.Target < 0 || q.Target >= nodes {
			return nil, fmt.Errorf("query %d (%d -> %d) outside [0,%d)", i, q.Start, q.Target, nodes)
		}
	}
	return queries, nil
}
