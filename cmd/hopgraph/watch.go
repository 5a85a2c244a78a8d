package main

import (
	"context"
	"time"

	"github.com/spf13/pflag"

	"github.com/ritzau/hopgraph/pkg/config"
	"github.com/ritzau/hopgraph/pkg/logging"
	"github.com/ritzau/hopgraph/pkg/watcher"
)

const (
	quietPeriod = 300 * time.Millisecond
	maxWait     = 2 * time.Second
)

// watchInputs calls rerun after every debounced change to the config,
// graph or queries file until ctx is canceled. A changed config file is
// reloaded with the same flags first.
func watchInputs(ctx context.Context, flags *pflag.FlagSet, cfg *config.Config, rerun func(*config.Config, string) error) error {
	fw, err := watcher.NewFileWatcher()
	if err != nil {
		return err
	}
	if err := watchFiles(fw, cfg); err != nil {
		return err
	}
	fw.Start(ctx)

	debouncer := watcher.NewDebouncer(fw.Events(), quietPeriod, maxWait)
	debouncer.Start(ctx)

	for event := range debouncer.Output() {
		batch := []watcher.ChangeEvent{event}
	drain:
		for {
			select {
			case more, ok := <-debouncer.Output():
				if !ok {
					break drain
				}
				batch = append(batch, more)
			default:
				break drain
			}
		}

		change := watcher.AnalyzeChanges(batch...)
		logging.Info("inputs changed", "reason", change.Reason(), "files", change.ChangedFiles)

		if change.ReloadConfig {
			reloaded, err := config.Load(flags)
			if err != nil {
				logging.Error("keeping previous configuration", "error", err)
				continue
			}
			cfg = reloaded
			fw.Clear()
			if err := watchFiles(fw, cfg); err != nil {
				logging.Warn("failed to watch new inputs", "error", err)
			}
		}

		if err := rerun(cfg, change.Reason()); err != nil {
			logging.Error("evaluation failed, waiting for changes", "error", err)
		}
	}

	return nil
}

func watchFiles(fw *watcher.FileWatcher, cfg *config.Config) error {
	if err := fw.Watch(cfg.ConfigFile, watcher.ChangeTypeConfig); err != nil {
		return err
	}
	if err := fw.Watch(cfg.GraphFile, watcher.ChangeTypeGraph); err != nil {
		return err
	}
	return fw.Watch(cfg.QueriesFile, watcher.ChangeTypeQueries)
}
