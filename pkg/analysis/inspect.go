package analysis

import (
	"context"
	"fmt"

	"github.com/ritzau/hopgraph/pkg/builder"
	"github.com/ritzau/hopgraph/pkg/config"
	"github.com/ritzau/hopgraph/pkg/cycles"
	"github.com/ritzau/hopgraph/pkg/graph"
	"github.com/ritzau/hopgraph/pkg/logging"
	"github.com/ritzau/hopgraph/pkg/workload"
)

// distributionBin is the bin width of the target distribution summary.
const distributionBin = 10

// Inspection describes a graph without walking it.
type Inspection struct {
	Source     string
	Nodes      int
	Edges      int
	EdgeBudget int
	Tiers      []builder.TierSummary
	// Classes is the number of strongly connected components.
	Classes   int
	Recurrent []cycles.Class
	// Distribution of workload targets for the configured λ.
	Lambda       float64
	Distribution workload.Distribution
}

// Inspect loads and validates the configured graph and summarizes its
// structure.
func Inspect(ctx context.Context, cfg *config.Config) (*Inspection, error) {
	source := SourceFor(cfg)
	g, err := source.Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("graph source %s: %w", source.Name(), err)
	}
	if err := builder.Validate(g, cfg.EdgeBudget); err != nil {
		return nil, err
	}

	wg := graph.NewWalkGraph(g)
	classes := cycles.FindClasses(wg)
	recurrent := cycles.RecurrentClasses(wg)
	logging.DebugContext(ctx, "inspected graph",
		"source", source.Name(), "classes", len(classes), "recurrent", len(recurrent))

	return &Inspection{
		Source:       source.Name(),
		Nodes:        g.NodeCount,
		Edges:        g.EdgeCount(),
		EdgeBudget:   cfg.EdgeBudget,
		Tiers:        builder.Summarize(g, builder.FromConfig(cfg)),
		Classes:      len(classes),
		Recurrent:    recurrent,
		Lambda:       cfg.Lambda,
		Distribution: workload.TargetDistribution(workload.FromConfig(cfg), distributionBin),
	}, nil
}
