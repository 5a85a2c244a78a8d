package analysis

import (
	"context"
	"fmt"

	"github.com/ritzau/hopgraph/pkg/builder"
	"github.com/ritzau/hopgraph/pkg/config"
	"github.com/ritzau/hopgraph/pkg/graphio"
	"github.com/ritzau/hopgraph/pkg/model"
)

// Source represents where the graph under evaluation comes from.
// Implementations only produce the graph; the runner validates it.
type Source interface {
	// Name returns a short description of the source (e.g., "builder", "file:graph.json").
	Name() string

	// Load produces the graph. It should respect the context for cancellation.
	Load(ctx context.Context, cfg *config.Config) (*model.Graph, error)
}

// BuilderSource builds the tiered graph from the configured parameters.
type BuilderSource struct{}

func (BuilderSource) Name() string { return "builder" }

func (BuilderSource) Load(ctx context.Context, cfg *config.Config) (*model.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return builder.Build(builder.FromConfig(cfg))
}

// FileSource reads a previously saved graph.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

func (s FileSource) Load(ctx context.Context, cfg *config.Config) (*model.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, err := graphio.Load(s.Path)
	if err != nil {
		return nil, err
	}
	if g.NodeCount != cfg.Nodes {
		return nil, fmt.Errorf("%s has %d nodes, configuration expects %d", s.Path, g.NodeCount, cfg.Nodes)
	}
	return g, nil
}

// SourceFor picks the file source when a graph file is configured and the
// builder otherwise.
func SourceFor(cfg *config.Config) Source {
	if cfg.GraphFile != "" {
		return FileSource{Path: cfg.GraphFile}
	}
	return BuilderSource{}
}
