package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrors "github.com/veracite/veracite/internal/errors"
	"github.com/veracite/veracite/internal/store"
)

func newCorpusStore(t *testing.T, scope string, vectors map[string][]float32) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	for docID, vec := range vectors {
		doc := store.Document{ID: docID, Title: "Title " + docID, FileName: docID + ".txt", Scope: scope}
		chunks := []store.EmbeddedChunk{{
			DocumentID: docID,
			ChunkIndex: 0,
			Content:    "content of " + docID,
			Vector:     vec,
			Page:       1,
		}}
		require.NoError(t, s.ReplaceDocument(ctx, doc, chunks))
	}
	return s
}

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5, 0.01}

	sim, err := CosineSimilarity(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)
}

func TestCosineSimilarity_DimensionMismatchIsHardError(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 0, 0}, []float32{1, 0})
	require.Error(t, err)
	assert.Equal(t, verrors.ErrCodeDimensionMismatch, verrors.GetCode(err))
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	require.NoError(t, err)
	assert.Zero(t, sim)
}

func TestEngine_NeverReturnsAtOrBelowThreshold(t *testing.T) {
	// Given: one strong match and one orthogonal chunk
	s := newCorpusStore(t, "acct-a", map[string][]float32{
		"doc-near": {1, 0, 0},
		"doc-far":  {0, 1, 0},
	})
	e := NewEngine(s, nil, DefaultOptions(), nil)

	// When: searching with the near vector
	results, err := e.Search(context.Background(), []float32{1, 0, 0}, "acct-a")
	require.NoError(t, err)

	// Then: only the match above 0.7 survives
	require.Len(t, results, 1)
	assert.Equal(t, "doc-near", results[0].DocumentID)
	for _, r := range results {
		assert.Greater(t, r.Similarity, 0.7)
	}
}

func TestEngine_ZeroOptionsStillFilter(t *testing.T) {
	// Given: an engine built from a zero-value Options
	s := newCorpusStore(t, "acct-a", map[string][]float32{
		"doc-near": {1, 0, 0},
		"doc-far":  {0, 1, 0},
	})
	e := NewEngine(s, nil, Options{}, nil)

	// Then: the default threshold applies, not a wide-open zero
	results, err := e.Search(context.Background(), []float32{1, 0, 0}, "acct-a")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-near", results[0].DocumentID)
}

func TestEngine_SortsDescendingAndCaps(t *testing.T) {
	s, err := store.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	// Given: 15 chunks with decreasing similarity to the query
	doc := store.Document{ID: "doc-1", Scope: "acct-a"}
	var chunks []store.EmbeddedChunk
	for i := 0; i < 15; i++ {
		// Rotate slowly away from (1,0): all stay above the threshold.
		y := float32(i) * 0.02
		chunks = append(chunks, store.EmbeddedChunk{
			DocumentID: "doc-1",
			ChunkIndex: i,
			Content:    "chunk",
			Vector:     []float32{1, y},
		})
	}
	require.NoError(t, s.ReplaceDocument(ctx, doc, chunks))

	e := NewEngine(s, nil, DefaultOptions(), nil)
	results, err := e.Search(ctx, []float32{1, 0}, "acct-a")
	require.NoError(t, err)

	assert.Len(t, results, 10)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Similarity, results[i].Similarity)
	}
	assert.Equal(t, 0, results[0].ChunkIndex)
}

func TestEngine_EmptyCorpusIsInformational(t *testing.T) {
	s, err := store.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	e := NewEngine(s, nil, DefaultOptions(), nil)
	_, err = e.Search(context.Background(), []float32{1, 0, 0}, "acct-a")

	require.Error(t, err)
	assert.Equal(t, verrors.ErrCodeEmptyCorpus, verrors.GetCode(err))

	var ve *verrors.VeraError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, verrors.SeverityInfo, ve.Severity)
}

func TestEngine_ScopeIsAccessControlBoundary(t *testing.T) {
	// Given: an identical vector indexed under another scope
	s := newCorpusStore(t, "acct-b", map[string][]float32{
		"doc-other": {1, 0, 0},
	})
	e := NewEngine(s, nil, DefaultOptions(), nil)

	// When: searching scope A
	_, err := e.Search(context.Background(), []float32{1, 0, 0}, "acct-a")

	// Then: scope A sees an empty corpus, never scope B's documents
	require.Error(t, err)
	assert.Equal(t, verrors.ErrCodeEmptyCorpus, verrors.GetCode(err))
}

func TestEngine_DimensionMismatchPropagates(t *testing.T) {
	s := newCorpusStore(t, "acct-a", map[string][]float32{
		"doc-1": {1, 0, 0},
	})
	e := NewEngine(s, nil, DefaultOptions(), nil)

	_, err := e.Search(context.Background(), []float32{1, 0}, "acct-a")
	require.Error(t, err)
	assert.Equal(t, verrors.ErrCodeDimensionMismatch, verrors.GetCode(err))
}

func TestEngine_ANNShortlistPath(t *testing.T) {
	// Given: a store plus a synced ANN index, with the cutoff forced low
	s := newCorpusStore(t, "acct-a", map[string][]float32{
		"doc-near": {1, 0, 0},
		"doc-mid":  {0.8, 0.6, 0},
		"doc-far":  {0, 1, 0},
	})
	ann := store.NewScopeANN(3)
	ctx := context.Background()
	corpus, err := s.QueryScope(ctx, "acct-a")
	require.NoError(t, err)
	require.NoError(t, ann.Rebuild("acct-a", corpus))

	opts := DefaultOptions()
	opts.ANNCutoff = 1
	e := NewEngine(s, ann, opts, nil)

	results, err := e.Search(ctx, []float32{1, 0, 0}, "acct-a")
	require.NoError(t, err)

	require.NotEmpty(t, results)
	assert.Equal(t, "doc-near", results[0].DocumentID)
	for _, r := range results {
		assert.Greater(t, r.Similarity, 0.7)
	}
}
