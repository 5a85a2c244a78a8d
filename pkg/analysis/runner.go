// Package analysis orchestrates an evaluation run: obtain and validate the
// graph, obtain the workload, simulate the walks and score them.
package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ritzau/hopgraph/pkg/builder"
	"github.com/ritzau/hopgraph/pkg/config"
	"github.com/ritzau/hopgraph/pkg/graph"
	"github.com/ritzau/hopgraph/pkg/logging"
	"github.com/ritzau/hopgraph/pkg/model"
	"github.com/ritzau/hopgraph/pkg/pubsub"
	"github.com/ritzau/hopgraph/pkg/score"
	"github.com/ritzau/hopgraph/pkg/stats"
	"github.com/ritzau/hopgraph/pkg/walk"
	"github.com/ritzau/hopgraph/pkg/workload"
)

const totalSteps = 4

// Evaluation is everything produced by one run.
type Evaluation struct {
	Source  string
	Graph   *model.Graph
	Queries []model.Query
	Results []model.WalkResult
	Report  model.Report
}

// Runner orchestrates evaluation runs. Runs are serialized.
type Runner struct {
	publisher pubsub.Publisher
	recorder  *stats.Recorder
	scoreFn   score.Func

	mu   sync.Mutex // Prevent concurrent runs
	last *Evaluation
	lmu  sync.RWMutex
}

// Option configures a Runner
type Option func(*Runner)

// WithPublisher publishes run status and reports.
func WithPublisher(p pubsub.Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithRecorder records metrics for every completed run.
func WithRecorder(rec *stats.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithScore replaces the default score function.
func WithScore(fn score.Func) Option {
	return func(r *Runner) { r.scoreFn = fn }
}

// NewRunner creates a new evaluation runner
func NewRunner(opts ...Option) *Runner {
	r := &Runner{scoreFn: score.Default}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Last returns the most recent successful evaluation, or nil.
func (r *Runner) Last() *Evaluation {
	r.lmu.RLock()
	defer r.lmu.RUnlock()
	return r.last
}

// Run executes one evaluation with cfg. reason is logged and published,
// e.g. "initial run" or "config changed".
func (r *Runner) Run(ctx context.Context, cfg *config.Config, reason string) (*Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := uuid.New().String()
	ctx = logging.WithRunID(ctx, runID)
	started := time.Now()

	logging.InfoContext(ctx, "starting evaluation", "reason", reason)

	ev, err := r.run(ctx, cfg, runID)
	if err != nil {
		logging.ErrorContext(ctx, "evaluation failed", "error", err)
		r.status(runID, "error", err.Error(), 0)
		return nil, err
	}
	ev.Report.RunID = runID

	if prev := r.Last(); prev != nil && prev.Report.GraphHash != ev.Report.GraphHash {
		d := graph.Compare(prev.Graph, ev.Graph)
		logging.InfoContext(ctx, "graph changed since last run",
			"addedEdges", len(d.AddedEdges), "removedEdges", len(d.RemovedEdges),
			"reweighted", len(d.Reweighted), "addedNodes", len(d.AddedNodes), "removedNodes", len(d.RemovedNodes))
	}

	elapsed := time.Since(started)
	if r.recorder != nil {
		r.recorder.Record(ev.Results, ev.Report, elapsed)
	}

	r.lmu.Lock()
	r.last = ev
	r.lmu.Unlock()

	r.status(runID, "complete", "Evaluation complete", totalSteps)
	if r.publisher != nil {
		if err := r.publisher.Publish(pubsub.TopicReport, "complete", ev.Report); err != nil {
			logging.WarnContext(ctx, "failed to publish report", "error", err)
		}
	}

	logging.InfoContext(ctx, "evaluation complete",
		"successRate", ev.Report.SuccessRate,
		"medianHops", ev.Report.MedianHops.String(),
		"score", ev.Report.Score,
		"elapsed", elapsed.Round(time.Millisecond))
	return ev, nil
}

func (r *Runner) run(ctx context.Context, cfg *config.Config, runID string) (*Evaluation, error) {
	// Phase 1: graph
	source := SourceFor(cfg)
	r.status(runID, "building", "Loading graph from "+source.Name(), 1)
	logging.DebugContext(ctx, "[1/4] loading graph", "source", source.Name())

	g, err := source.Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("graph source %s: %w", source.Name(), err)
	}
	if err := builder.Validate(g, cfg.EdgeBudget); err != nil {
		return nil, err
	}
	logging.DebugContext(ctx, "[1/4] graph ready", "nodes", g.NodeCount, "edges", g.EdgeCount())

	// Phase 2: workload
	r.status(runID, "loading_queries", "Preparing workload", 2)
	queries, err := loadQueries(cfg)
	if err != nil {
		return nil, err
	}
	logging.DebugContext(ctx, "[2/4] workload ready", "queries", len(queries))

	// Phase 3: walks
	r.status(runID, "walking", fmt.Sprintf("Simulating %d walks", len(queries)), 3)
	sim, err := walk.NewSimulator(g, cfg.MaxDepth)
	if err != nil {
		return nil, err
	}
	results, err := sim.Run(ctx, queries, cfg.Seed, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("simulation interrupted: %w", err)
	}

	// Phase 4: scoring
	r.status(runID, "scoring", "Scoring results", 4)
	report := score.Aggregate(results, r.scoreFn)
	report.Seed = cfg.Seed
	report.GraphHash = graph.Fingerprint(g)
	report.Nodes = g.NodeCount
	report.EdgeCount = g.EdgeCount()
	report.MaxDepth = cfg.MaxDepth
	report.ShortestHops = graph.NewWalkGraph(g).WorkloadHops(queries).Mean

	return &Evaluation{
		Source:  source.Name(),
		Graph:   g,
		Queries: queries,
		Results: results,
		Report:  report,
	}, nil
}

// loadQueries reads the configured workload file or generates one from the
// seed.
func loadQueries(cfg *config.Config) ([]model.Query, error) {
	if cfg.QueriesFile != "" {
		return workload.Load(cfg.QueriesFile, cfg.Nodes)
	}
	return workload.Generate(workload.FromConfig(cfg), workload.RNG(cfg.Seed))
}

func (r *Runner) status(runID, state, message string, step int) {
	if r.publisher == nil {
		return
	}
	status := pubsub.RunStatus{
		RunID:   runID,
		State:   state,
		Message: message,
		Step:    step,
		Total:   totalSteps,
	}
	if err := r.publisher.Publish(pubsub.TopicRunStatus, state, status); err != nil {
		logging.Warn("failed to publish run status", "state", state, "error", err)
	}
}
