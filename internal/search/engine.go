package search

import (
	"context"
	"log/slog"
	"sort"

	verrors "github.com/veracite/veracite/internal/errors"
	"github.com/veracite/veracite/internal/store"
)

// Engine ranks a scope's stored vectors against a query vector.
// The read path is pure and lock-free; concurrent queries are safe.
type Engine struct {
	store  store.Store
	ann    *store.ScopeANN
	opts   Options
	logger *slog.Logger
}

// NewEngine creates a search engine over the store. The ANN index is
// optional; pass nil to always scan exactly. Zero option fields take their
// defaults; a zero Threshold would otherwise admit every stored chunk.
func NewEngine(s store.Store, ann *store.ScopeANN, opts Options, logger *slog.Logger) *Engine {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultOptions().Threshold
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultOptions().MaxResults
	}
	if opts.ANNOverfetch <= 0 {
		opts.ANNOverfetch = DefaultOptions().ANNOverfetch
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: s, ann: ann, opts: opts, logger: logger}
}

// Search returns the scope's chunks ranked by exact cosine similarity
// against the query vector. The corpus is restricted to the scope at the
// store layer before any scoring. Results with similarity at or below the
// threshold are discarded; at most MaxResults are returned, best first.
// An empty scope corpus yields a typed informational EmptyCorpus error.
func (e *Engine) Search(ctx context.Context, queryVector []float32, scope string) ([]Result, error) {
	corpus, err := e.store.QueryScope(ctx, scope)
	if err != nil {
		return nil, verrors.New(verrors.ErrCodeSearchFailed, "failed to load scope corpus", err)
	}
	if len(corpus) == 0 {
		return nil, verrors.EmptyCorpus("no documents have been indexed for this scope yet")
	}

	candidates := corpus
	if e.ann != nil && len(corpus) > e.opts.ANNCutoff {
		shortlisted, err := e.shortlist(corpus, queryVector, scope)
		if err != nil {
			return nil, err
		}
		// An empty shortlist means the graph is cold; fall back to the
		// exact scan rather than returning nothing.
		if len(shortlisted) > 0 {
			candidates = shortlisted
		}
		e.logger.Debug("ann_shortlist",
			slog.String("scope", scope),
			slog.Int("corpus", len(corpus)),
			slog.Int("candidates", len(candidates)))
	}

	results := make([]Result, 0, e.opts.MaxResults)
	for i := range candidates {
		ch := &candidates[i]
		sim, err := CosineSimilarity(queryVector, ch.Vector)
		if err != nil {
			return nil, err
		}
		if sim <= e.opts.Threshold {
			continue
		}
		results = append(results, Result{
			DocumentID:    ch.DocumentID,
			DocumentTitle: ch.Title,
			FileName:      ch.FileName,
			Content:       ch.Content,
			Similarity:    sim,
			ChunkIndex:    ch.ChunkIndex,
			Page:          ch.Page,
			LineStart:     ch.LineStart,
			LineEnd:       ch.LineEnd,
			Client:        ch.Client,
			Matter:        ch.Matter,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].DocumentID != results[j].DocumentID {
			return results[i].DocumentID < results[j].DocumentID
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})

	if len(results) > e.opts.MaxResults {
		results = results[:e.opts.MaxResults]
	}
	return results, nil
}

// shortlist consults the per-scope HNSW graph and maps the returned
// references back to their full chunks.
func (e *Engine) shortlist(corpus []store.EmbeddedChunk, queryVector []float32, scope string) ([]store.EmbeddedChunk, error) {
	refs, err := e.ann.Search(scope, queryVector, e.opts.MaxResults*e.opts.ANNOverfetch)
	if err != nil {
		return nil, err
	}

	byRef := make(map[store.ChunkRef]*store.EmbeddedChunk, len(corpus))
	for i := range corpus {
		byRef[store.ChunkRef{DocumentID: corpus[i].DocumentID, ChunkIndex: corpus[i].ChunkIndex}] = &corpus[i]
	}

	shortlisted := make([]store.EmbeddedChunk, 0, len(refs))
	for _, ref := range refs {
		if ch, ok := byRef[ref]; ok {
			shortlisted = append(shortlisted, *ch)
		}
	}
	return shortlisted, nil
}
