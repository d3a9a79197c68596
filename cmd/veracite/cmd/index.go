package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veracite/veracite/internal/embed"
	"github.com/veracite/veracite/internal/output"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [document-id]",
		Short: "Index the corpus, or a single document",
		Long: `Chunk and embed corpus documents into the local index.

Without arguments the whole corpus is indexed. Pass a document ID to
rebuild a single document. Only one indexing process may run at a time.

Examples:
  veracite index
  veracite index 1a2b3c4d5e6f7a8b`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docID := ""
			if len(args) == 1 {
				docID = args[0]
			}
			return runIndex(cmd, docID)
		},
	}
	return cmd
}

func runIndex(cmd *cobra.Command, documentID string) error {
	a, err := buildApp(resolveRoot(), false)
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

	if documentID != "" {
		summary, err := a.service.Reindex(ctx, documentID)
		if err != nil {
			return err
		}
		out.Successf("Indexed document %s (%d chunks, %d embeddings)",
			documentID, summary.TotalChunks, summary.EmbeddingsCreated)
		return nil
	}

	report, err := a.service.ReindexAll(ctx)
	if err != nil {
		return err
	}
	out.Report(report)
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d documents failed to index", len(report.Failed))
	}
	return nil
}
