package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/hopgraph/pkg/analysis"
	"github.com/ritzau/hopgraph/pkg/config"
	"github.com/ritzau/hopgraph/pkg/logging"
	"github.com/ritzau/hopgraph/pkg/pubsub"
	"github.com/ritzau/hopgraph/pkg/stats"
	"github.com/ritzau/hopgraph/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve evaluations over HTTP",
	Long: `Starts the HTTP API on --port and runs an initial evaluation. Reports and
run status are streamed to /api/subscribe/{report,run_status}; POST
/api/evaluate starts a new run. With --watch, input file changes trigger
a new run.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	publisher := pubsub.NewRunPublisher()
	defer publisher.Close()

	st := stats.New("hopgraph")
	runner := analysis.NewRunner(
		analysis.WithPublisher(publisher),
		analysis.WithRecorder(stats.NewRecorder(st)),
	)
	server := web.NewServer(cfg, runner, publisher, st)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(gctx, cfg.Port)
	})

	// Ends open event streams so shutdown does not wait for clients
	go func() {
		<-gctx.Done()
		publisher.Close()
	}()

	g.Go(func() error {
		if _, err := runner.Run(gctx, cfg, "initial run"); err != nil {
			// Keep serving; the error is published as run status
			logging.Error("initial evaluation failed", "error", err)
		}
		if !cfg.Watch {
			return nil
		}
		return watchInputs(gctx, cmd.Flags(), cfg, func(c *config.Config, reason string) error {
			server.SetConfig(c)
			_, err := runner.Run(gctx, c, reason)
			return err
		})
	})

	return g.Wait()
}
