package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ritzau/hopgraph/pkg/analysis"
	"github.com/ritzau/hopgraph/pkg/builder"
	"github.com/ritzau/hopgraph/pkg/config"
	"github.com/ritzau/hopgraph/pkg/graphio"
	"github.com/ritzau/hopgraph/pkg/logging"
	"github.com/ritzau/hopgraph/pkg/output"
	"github.com/ritzau/hopgraph/pkg/workload"
)

var (
	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build the tiered graph and write it to a file",
		Long: `Builds the graph from the configured parameters, validates it and writes
it to --out. The extension selects the encoding: .json, .msgp or .msgp.lz4.
Without --out the graph is written to stdout as JSON.`,
		Args: cobra.NoArgs,
		RunE: runBuild,
	}

	queriesCmd = &cobra.Command{
		Use:   "queries",
		Short: "Generate a query workload",
		Long: `Draws the configured number of (start, target) queries using --seed. The
same seed produces the workload evaluate generates internally.`,
		Args: cobra.NoArgs,
		RunE: runQueries,
	}

	evaluateCmd = &cobra.Command{
		Use:   "evaluate",
		Short: "Simulate the workload on the graph and print a report",
		Long: `Evaluates the configured graph (--graph, or a freshly built one) against
the configured workload (--queries-file, or a generated one). With --watch
the evaluation is repeated whenever an input file changes.`,
		Args: cobra.NoArgs,
		RunE: runEvaluate,
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Describe graph structure and the target distribution",
		Args:  cobra.NoArgs,
		RunE:  runInspect,
	}

	outPath string
)

func init() {
	buildCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (.json, .msgp, .msgp.lz4)")
	queriesCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (JSON)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	params := builder.FromConfig(cfg)
	g, err := builder.Build(params)
	if err != nil {
		return err
	}

	for _, t := range builder.Summarize(g, params) {
		logging.Debug("tier", "tier", t.Tier, "nodes", t.Nodes, "edges", t.Edges, "reset", t.ResetProbability)
	}

	if outPath == "" {
		return graphio.Encode(cmd.OutOrStdout(), g, graphio.FormatJSON)
	}
	if err := graphio.Save(outPath, g); err != nil {
		return err
	}
	logging.Info("graph written", "path", outPath, "nodes", g.NodeCount, "edges", g.EdgeCount())
	return nil
}

func runQueries(cmd *cobra.Command, args []string) error {
	queries, err := workload.Generate(workload.FromConfig(cfg), workload.RNG(cfg.Seed))
	if err != nil {
		return err
	}

	if outPath == "" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(queries)
	}
	if err := workload.Save(outPath, queries); err != nil {
		return err
	}
	logging.Info("queries written", "path", outPath, "count", len(queries), "seed", cfg.Seed)
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	runner := analysis.NewRunner()

	evaluate := func(c *config.Config, reason string) error {
		ev, err := runner.Run(ctx, c, reason)
		if err != nil {
			return err
		}
		return output.WriteReport(cmd.OutOrStdout(), c.Format, ev.Report)
	}

	if err := evaluate(cfg, "initial run"); err != nil {
		if !cfg.Watch {
			return err
		}
		logging.Error("evaluation failed, waiting for changes", "error", err)
	}
	if !cfg.Watch {
		return nil
	}

	return watchInputs(ctx, cmd.Flags(), cfg, evaluate)
}

func runInspect(cmd *cobra.Command, args []string) error {
	in, err := analysis.Inspect(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	switch cfg.Format {
	case output.FormatJSON:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(in)
	default:
		output.PrintInspection(cmd.OutOrStdout(), in)
		return nil
	}
}
