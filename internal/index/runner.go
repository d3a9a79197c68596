package index

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Report aggregates a full-corpus reindex run.
type Report struct {
	Documents         int      `json:"documents"`
	EmbeddingsCreated int      `json:"embeddings_created"`
	TotalChunks       int      `json:"total_chunks"`
	Failed            []string `json:"failed,omitempty"`
}

// ReindexAll reindexes every corpus document with bounded concurrency.
// Documents share no mutable state, so they run in parallel; a failed
// document is recorded in the report and does not stop the others.
// Cancellation is honored between documents and between chunks.
func (ix *Indexer) ReindexAll(ctx context.Context) (Report, error) {
	docs, err := ix.source.Documents(ctx)
	if err != nil {
		return Report{}, err
	}

	var (
		mu     sync.Mutex
		report Report
	)
	report.Documents = len(docs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.opts.Concurrency)

	for _, doc := range docs {
		docID := doc.ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			summary, err := ix.Reindex(gctx, docID)
			mu.Lock()
			defer mu.Unlock()
			report.EmbeddingsCreated += summary.EmbeddingsCreated
			report.TotalChunks += summary.TotalChunks
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				report.Failed = append(report.Failed, docID)
				ix.logger.Error("reindex_document_failed",
					slog.String("document_id", docID),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}
