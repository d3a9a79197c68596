// Package index turns corpus documents into persisted embeddings.
package index

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/veracite/veracite/internal/chunk"
	"github.com/veracite/veracite/internal/corpus"
	"github.com/veracite/veracite/internal/embed"
	verrors "github.com/veracite/veracite/internal/errors"
	"github.com/veracite/veracite/internal/store"
)

// Summary reports how much of a document was embedded.
type Summary struct {
	EmbeddingsCreated int `json:"embeddings_created"`
	TotalChunks       int `json:"total_chunks"`
}

// Options tunes the indexer's provider pacing.
type Options struct {
	// RequestDelay is the fixed pause between successive provider calls.
	RequestDelay time.Duration
	// RateLimitBackoff is the wait before the single retry after a
	// rate-limited call.
	RateLimitBackoff time.Duration
	// Concurrency bounds ReindexAll across documents.
	Concurrency int
}

// DefaultOptions returns the standard indexing parameters.
func DefaultOptions() Options {
	return Options{
		RequestDelay:     100 * time.Millisecond,
		RateLimitBackoff: 2 * time.Second,
		Concurrency:      4,
	}
}

// Indexer embeds and persists chunks per document, replacing any prior set.
type Indexer struct {
	source   corpus.Source
	chunker  *chunk.Chunker
	embedder embed.Embedder
	store    store.Store
	ann      *store.ScopeANN
	opts     Options
	logger   *slog.Logger
}

// NewIndexer creates an indexer. The ANN index is optional.
func NewIndexer(source corpus.Source, chunker *chunk.Chunker, embedder embed.Embedder, s store.Store, ann *store.ScopeANN, opts Options, logger *slog.Logger) *Indexer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultOptions().Concurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		source:   source,
		chunker:  chunker,
		embedder: embedder,
		store:    s,
		ann:      ann,
		opts:     opts,
		logger:   logger,
	}
}

// Reindex chunks, embeds, and stores one document, replacing the prior set
// in a single transaction. Provider failures never abort the document: a
// rate-limited chunk is retried once after a fixed backoff, any other
// provider failure skips the chunk. The summary reports how many of the
// total chunks succeeded. Empty content is a success with zero totals, and
// still removes the prior set.
func (ix *Indexer) Reindex(ctx context.Context, documentID string) (Summary, error) {
	info, err := ix.source.Info(ctx, documentID)
	if err != nil {
		return Summary{}, err
	}
	content, err := ix.source.Content(ctx, documentID)
	if err != nil {
		return Summary{}, err
	}

	if strings.TrimSpace(content) == "" {
		ix.logger.Info("reindex_empty_document", slog.String("document_id", documentID))
		return Summary{}, ix.clearDocument(ctx, info)
	}

	chunks := ix.chunker.Split(documentID, content)
	summary := Summary{TotalChunks: len(chunks)}
	if len(chunks) == 0 {
		return summary, ix.clearDocument(ctx, info)
	}

	embedded := make([]store.EmbeddedChunk, 0, len(chunks))
	for i, ch := range chunks {
		// Cancellation is checked between chunks, never mid-call.
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 && ix.opts.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(ix.opts.RequestDelay):
			}
		}

		var vector []float32
		err := embed.RetryOnRateLimit(ctx, ix.opts.RateLimitBackoff, func() error {
			var embedErr error
			vector, embedErr = ix.embedder.Embed(ctx, ch.Text)
			return embedErr
		})
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			ix.logger.Warn("chunk_embed_skipped",
				slog.String("document_id", documentID),
				slog.Int("chunk_index", ch.Index),
				slog.String("error", err.Error()))
			continue
		}

		embedded = append(embedded, store.EmbeddedChunk{
			DocumentID: documentID,
			ChunkIndex: ch.Index,
			Content:    ch.Text,
			Vector:     vector,
			Page:       ch.Page,
			LineStart:  ch.LineStart,
			LineEnd:    ch.LineEnd,
		})
	}
	summary.EmbeddingsCreated = len(embedded)

	doc := store.Document{
		ID:         documentID,
		Title:      info.Title,
		FileName:   info.Path,
		Client:     info.Client,
		Matter:     info.Matter,
		Scope:      info.Scope,
		TotalPages: info.Pages,
	}
	if err := ix.store.ReplaceDocument(ctx, doc, embedded); err != nil {
		return summary, verrors.New(verrors.ErrCodeIndexFailed, "failed to persist embeddings", err)
	}
	ix.recordModelState(ctx)

	if ix.ann != nil {
		ix.ann.DeleteDocument(info.Scope, documentID)
		for _, ch := range embedded {
			if err := ix.ann.Add(info.Scope, ch.DocumentID, ch.ChunkIndex, ch.Vector); err != nil {
				ix.logger.Warn("ann_add_failed",
					slog.String("document_id", documentID),
					slog.String("error", err.Error()))
				break
			}
		}
	}

	ix.logger.Info("reindex_complete",
		slog.String("document_id", documentID),
		slog.Int("embeddings_created", summary.EmbeddingsCreated),
		slog.Int("total_chunks", summary.TotalChunks))
	return summary, nil
}

// clearDocument replaces the document's stored chunk set with nothing.
// A document whose content vanished must stop surfacing in search, so the
// prior set is removed even though there is nothing new to store.
func (ix *Indexer) clearDocument(ctx context.Context, info corpus.DocumentInfo) error {
	doc := store.Document{
		ID:         info.ID,
		Title:      info.Title,
		FileName:   info.Path,
		Client:     info.Client,
		Matter:     info.Matter,
		Scope:      info.Scope,
		TotalPages: info.Pages,
	}
	if err := ix.store.ReplaceDocument(ctx, doc, nil); err != nil {
		return verrors.New(verrors.ErrCodeIndexFailed, "failed to clear prior embeddings", err)
	}
	if ix.ann != nil {
		ix.ann.DeleteDocument(info.Scope, info.ID)
	}
	return nil
}

// recordModelState stamps the index with the embedding model and dimension
// so a model switch is detectable.
func (ix *Indexer) recordModelState(ctx context.Context) {
	if err := ix.store.SetState(ctx, store.StateKeyModel, ix.embedder.ModelName()); err != nil {
		ix.logger.Warn("state_write_failed", slog.String("error", err.Error()))
		return
	}
	if err := ix.store.SetState(ctx, store.StateKeyDimensions, strconv.Itoa(ix.embedder.Dimensions())); err != nil {
		ix.logger.Warn("state_write_failed", slog.String("error", err.Error()))
	}
}
