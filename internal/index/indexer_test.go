package index

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veracite/veracite/internal/chunk"
	"github.com/veracite/veracite/internal/corpus"
	"github.com/veracite/veracite/internal/embed"
	verrors "github.com/veracite/veracite/internal/errors"
	"github.com/veracite/veracite/internal/store"
)

// fakeSource serves documents from memory.
type fakeSource struct {
	infos   map[string]corpus.DocumentInfo
	content map[string]string
}

func (f *fakeSource) Documents(_ context.Context) ([]corpus.DocumentInfo, error) {
	var out []corpus.DocumentInfo
	for _, info := range f.infos {
		out = append(out, info)
	}
	return out, nil
}

func (f *fakeSource) Info(_ context.Context, id string) (corpus.DocumentInfo, error) {
	info, ok := f.infos[id]
	if !ok {
		return corpus.DocumentInfo{}, verrors.New(verrors.ErrCodeDocumentNotFound, "unknown document", nil)
	}
	return info, nil
}

func (f *fakeSource) Content(_ context.Context, id string) (string, error) {
	text, ok := f.content[id]
	if !ok {
		return "", verrors.New(verrors.ErrCodeFileNotFound, "missing content", nil)
	}
	return text, nil
}

// scriptedEmbedder pops one scripted error per call before delegating.
type scriptedEmbedder struct {
	*embed.StaticEmbedder
	mu    sync.Mutex
	errs  []error
	calls int
}

func (s *scriptedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.calls++
	var err error
	if len(s.errs) > 0 {
		err = s.errs[0]
		s.errs = s.errs[1:]
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.StaticEmbedder.Embed(ctx, text)
}

func newTestIndexer(t *testing.T, src corpus.Source, emb embed.Embedder) (*Indexer, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	chunker := chunk.NewChunker(chunk.Options{WindowSize: 100, Overlap: 20, MinChars: 10})
	opts := DefaultOptions()
	opts.RequestDelay = 0
	opts.RateLimitBackoff = 0
	ix := NewIndexer(src, chunker, emb, s, nil, opts, nil)
	return ix, s
}

func singleDocSource(id, scope, content string) *fakeSource {
	return &fakeSource{
		infos: map[string]corpus.DocumentInfo{
			id: {ID: id, Path: id + ".txt", Title: "Doc " + id, Scope: scope},
		},
		content: map[string]string{id: content},
	}
}

func TestReindex_EmptyContentIsSuccess(t *testing.T) {
	// Given: a document with only whitespace
	src := singleDocSource("doc-1", "acct-a", "   \n  ")
	ix, s := newTestIndexer(t, src, embed.NewStaticEmbedder(64))

	// When: reindexing
	summary, err := ix.Reindex(context.Background(), "doc-1")

	// Then: zero totals, no error, nothing stored
	require.NoError(t, err)
	assert.Equal(t, Summary{EmbeddingsCreated: 0, TotalChunks: 0}, summary)

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Chunks)
}

func TestReindex_StoresAllChunks(t *testing.T) {
	// Given: content that splits into three chunks
	src := singleDocSource("doc-1", "acct-a", strings.Repeat("a", 250))
	ix, s := newTestIndexer(t, src, embed.NewStaticEmbedder(64))
	ctx := context.Background()

	summary, err := ix.Reindex(ctx, "doc-1")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalChunks)
	assert.Equal(t, 3, summary.EmbeddingsCreated)

	chunks, err := s.QueryScope(ctx, "acct-a")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Doc doc-1", chunks[0].Title)

	model, err := s.GetState(ctx, store.StateKeyModel)
	require.NoError(t, err)
	assert.Equal(t, "static-hash", model)
}

func TestReindex_ReplacesPriorSet(t *testing.T) {
	src := singleDocSource("doc-1", "acct-a", strings.Repeat("a", 250))
	ix, s := newTestIndexer(t, src, embed.NewStaticEmbedder(64))
	ctx := context.Background()

	_, err := ix.Reindex(ctx, "doc-1")
	require.NoError(t, err)

	// When: the document shrinks to a single chunk
	src.content["doc-1"] = strings.Repeat("b", 80)
	summary, err := ix.Reindex(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalChunks)

	chunks, err := s.QueryScope(ctx, "acct-a")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestReindex_EmptiedDocumentDropsPriorSet(t *testing.T) {
	src := singleDocSource("doc-1", "acct-a", strings.Repeat("a", 250))
	ix, s := newTestIndexer(t, src, embed.NewStaticEmbedder(64))
	ctx := context.Background()

	_, err := ix.Reindex(ctx, "doc-1")
	require.NoError(t, err)

	// When: the document's content shrinks to whitespace
	src.content["doc-1"] = "   \n  "
	summary, err := ix.Reindex(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)

	// Then: the old chunks no longer surface in the scope
	chunks, err := s.QueryScope(ctx, "acct-a")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestReindex_RateLimitRetriedOnce(t *testing.T) {
	// Given: the first provider call is rate limited, the retry succeeds
	src := singleDocSource("doc-1", "acct-a", strings.Repeat("a", 250))
	emb := &scriptedEmbedder{
		StaticEmbedder: embed.NewStaticEmbedder(64),
		errs:           []error{verrors.RateLimited("slow down", nil)},
	}
	ix, _ := newTestIndexer(t, src, emb)

	summary, err := ix.Reindex(context.Background(), "doc-1")
	require.NoError(t, err)

	// Then: every chunk succeeded, at the cost of one extra call
	assert.Equal(t, 3, summary.EmbeddingsCreated)
	assert.Equal(t, 4, emb.calls)
}

func TestReindex_ProviderErrorSkipsChunk(t *testing.T) {
	// Given: the first chunk fails with a non-rate-limit provider error
	src := singleDocSource("doc-1", "acct-a", strings.Repeat("a", 250))
	emb := &scriptedEmbedder{
		StaticEmbedder: embed.NewStaticEmbedder(64),
		errs:           []error{verrors.ProviderError("upstream broke", nil)},
	}
	ix, s := newTestIndexer(t, src, emb)

	summary, err := ix.Reindex(context.Background(), "doc-1")

	// Then: the chunk is skipped, the rest are stored, no error raised
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalChunks)
	assert.Equal(t, 2, summary.EmbeddingsCreated)

	chunks, err := s.QueryScope(context.Background(), "acct-a")
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestReindex_CancelledContext(t *testing.T) {
	src := singleDocSource("doc-1", "acct-a", strings.Repeat("a", 250))
	ix, _ := newTestIndexer(t, src, embed.NewStaticEmbedder(64))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ix.Reindex(ctx, "doc-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReindexAll_AggregatesAndRecordsFailures(t *testing.T) {
	// Given: two healthy documents and one with missing content
	src := &fakeSource{
		infos: map[string]corpus.DocumentInfo{
			"doc-1": {ID: "doc-1", Path: "doc-1.txt", Scope: "acct-a"},
			"doc-2": {ID: "doc-2", Path: "doc-2.txt", Scope: "acct-a"},
			"doc-3": {ID: "doc-3", Path: "doc-3.txt", Scope: "acct-a"},
		},
		content: map[string]string{
			"doc-1": strings.Repeat("a", 250),
			"doc-2": strings.Repeat("b", 80),
		},
	}
	ix, _ := newTestIndexer(t, src, embed.NewStaticEmbedder(64))

	report, err := ix.ReindexAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Documents)
	assert.Equal(t, 4, report.TotalChunks)
	assert.Equal(t, 4, report.EmbeddingsCreated)
	assert.Equal(t, []string{"doc-3"}, report.Failed)
}
