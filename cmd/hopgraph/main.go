package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ritzau/hopgraph/pkg/config"
	"github.com/ritzau/hopgraph/pkg/logging"
)

var (
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "hopgraph",
		Short: "Build and evaluate budgeted random-walk search graphs",
		Long: `hopgraph builds a tiered graph over a fixed node and edge budget and
measures how well weighted random walks find targets drawn from an
exponential distribution over node indices.

Configuration is read from defaults, hopgraph.toml, HOPGRAPH_* environment
variables and flags, in increasing priority.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}
)

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(buildCmd, queriesCmd, evaluateCmd, inspectCmd, serveCmd)
}

// loadConfig runs before every command: it resolves the layered
// configuration and applies the log level and format.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		return err
	}
	if cfg.LogFormat == config.LogFormatJSON {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}

	logging.Debug("configuration loaded",
		"nodes", cfg.Nodes, "edgeBudget", cfg.EdgeBudget, "lambda", cfg.Lambda,
		"queries", cfg.Queries, "maxDepth", cfg.MaxDepth, "seed", cfg.Seed)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
