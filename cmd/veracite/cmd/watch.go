package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veracite/veracite/internal/embed"
	"github.com/veracite/veracite/internal/output"
	"github.com/veracite/veracite/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var initial bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the corpus and keep the index current",
		Long: `Watch the corpus directory for changes and reindex documents as
they are created, modified, or deleted. Edits to the metadata sidecar
rebuild the whole corpus.

Runs until interrupted. Only one indexing process may run at a time.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, initial)
		},
	}

	cmd.Flags().BoolVar(&initial, "initial-index", false, "Index the whole corpus before watching")
	return cmd
}

func runWatch(cmd *cobra.Command, initial bool) error {
	a, err := buildApp(resolveRoot(), true)
	if err != nil {
		return err
	}
	defer a.close()

	lock := embed.NewIndexLock(a.cfg.Paths.DataDir)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire index lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another indexing process holds the lock at %s", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	ctx := cmd.Context()
	out := output.New(cmd.OutOrStdout(), noColor)
	a.checkModelDrift(ctx)
	a.warmANN(ctx)

	if initial {
		report, err := a.service.ReindexAll(ctx)
		if err != nil {
			return err
		}
		out.Report(report)
	}

	w := watcher.NewCorpusWatcher(
		a.cfg.Paths.CorpusDir,
		a.service,
		a.store,
		a.ann,
		watcher.Options{DebounceWindow: a.cfg.Watch.DebounceDuration()},
		a.logger,
	)

	out.Statusf("Watching %s (ctrl-c to stop)", a.cfg.Paths.CorpusDir)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
