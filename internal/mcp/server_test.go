package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veracite/veracite/internal/consolidate"
	"github.com/veracite/veracite/internal/embed"
	verrors "github.com/veracite/veracite/internal/errors"
	"github.com/veracite/veracite/internal/index"
	"github.com/veracite/veracite/internal/pipeline"
	"github.com/veracite/veracite/internal/store"
)

// fakePipeline returns scripted responses and records calls.
type fakePipeline struct {
	resp       *pipeline.Response
	err        error
	reindexed  []string
	reindexAll int
}

func (f *fakePipeline) Search(_ context.Context, _, _, _ string) (*pipeline.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakePipeline) Reindex(_ context.Context, documentID string) (index.Summary, error) {
	f.reindexed = append(f.reindexed, documentID)
	return index.Summary{TotalChunks: 2, EmbeddingsCreated: 2}, nil
}

func (f *fakePipeline) ReindexAll(_ context.Context) (index.Report, error) {
	f.reindexAll++
	return index.Report{Documents: 3, TotalChunks: 7, EmbeddingsCreated: 7, Failed: []string{"doc-x"}}, nil
}

func newTestServer(t *testing.T, p Pipeline) (*Server, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	srv, err := NewServer(p, s, embed.NewStaticEmbedder(64), nil)
	require.NoError(t, err)
	return srv, s
}

func TestLegalSearch_RequiresQueryAndScope(t *testing.T) {
	srv, _ := newTestServer(t, &fakePipeline{})
	ctx := context.Background()

	_, err := srv.handleLegalSearch(ctx, LegalSearchInput{Query: "  ", Scope: "acct-a"})
	require.Error(t, err)
	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeInvalidParams, me.Code)

	_, err = srv.handleLegalSearch(ctx, LegalSearchInput{Query: "when is rent due?"})
	require.Error(t, err)
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeInvalidParams, me.Code)
}

func TestLegalSearch_ConvertsConsolidatedDocuments(t *testing.T) {
	// Given: a pipeline returning one consolidated document
	p := &fakePipeline{resp: &pipeline.Response{
		AnswerText: `Rent is "$1,200.00 due monthly" per the lease.`,
		ConsolidatedDocuments: []consolidate.Document{{
			DocumentID: "doc-1",
			Title:      "Lease Agreement",
			Relevance:  consolidate.RelevanceHigh,
			Excerpts: []consolidate.Excerpt{{
				Text: "Rent of $1,200.00 is due on the first of each month", Page: 3, Section: "Section 4", QueryRelevance: 1.2,
			}},
		}},
	}}
	srv, _ := newTestServer(t, p)

	out, err := srv.handleLegalSearch(context.Background(), LegalSearchInput{Query: "when is rent due?", Scope: "acct-a"})
	require.NoError(t, err)

	assert.Equal(t, p.resp.AnswerText, out.Answer)
	require.Len(t, out.Documents, 1)
	assert.Equal(t, "high", out.Documents[0].Relevance)
	require.Len(t, out.Documents[0].Excerpts, 1)
	assert.Equal(t, 3, out.Documents[0].Excerpts[0].Page)
	assert.Equal(t, "Section 4", out.Documents[0].Excerpts[0].Section)
}

func TestLegalSearch_MapsPipelineErrors(t *testing.T) {
	// Given: a provider outage below the pipeline
	p := &fakePipeline{err: verrors.ProviderError("model unavailable", nil)}
	srv, _ := newTestServer(t, p)

	_, err := srv.handleLegalSearch(context.Background(), LegalSearchInput{Query: "q", Scope: "acct-a"})
	require.Error(t, err)

	var me *MCPError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, ErrCodeEmbeddingFailed, me.Code)
}

func TestReindex_SingleDocument(t *testing.T) {
	p := &fakePipeline{}
	srv, _ := newTestServer(t, p)

	out, err := srv.handleReindex(context.Background(), ReindexInput{DocumentID: "doc-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"doc-1"}, p.reindexed)
	assert.Equal(t, 1, out.Documents)
	assert.Equal(t, 2, out.TotalChunks)
}

func TestReindex_WholeCorpusWhenIDOmitted(t *testing.T) {
	p := &fakePipeline{}
	srv, _ := newTestServer(t, p)

	out, err := srv.handleReindex(context.Background(), ReindexInput{})
	require.NoError(t, err)

	assert.Equal(t, 1, p.reindexAll)
	assert.Equal(t, 3, out.Documents)
	assert.Equal(t, []string{"doc-x"}, out.Failed)
}

func TestCorpusStatus_ReportsStoreState(t *testing.T) {
	srv, s := newTestServer(t, &fakePipeline{})
	ctx := context.Background()

	require.NoError(t, s.ReplaceDocument(ctx,
		store.Document{ID: "doc-1", Scope: "acct-a"},
		[]store.EmbeddedChunk{{DocumentID: "doc-1", Content: "text", Vector: []float32{1, 0}, Scope: "acct-a"}},
	))
	require.NoError(t, s.SetState(ctx, store.StateKeyModel, "static-hash"))

	out, err := srv.handleCorpusStatus(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Documents)
	assert.Equal(t, 1, out.Chunks)
	assert.Equal(t, "static-hash", out.EmbeddingModel)
	assert.Equal(t, 64, out.Dimensions)
	assert.Equal(t, "ready", out.Status)
}

func TestNewServer_RequiresPipelineAndStore(t *testing.T) {
	s, err := store.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = NewServer(nil, s, nil, nil)
	assert.Error(t, err)

	_, err = NewServer(&fakePipeline{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"document not found", verrors.New(verrors.ErrCodeDocumentNotFound, "gone", nil), ErrCodeDocumentNotFound},
		{"corrupt index", verrors.New(verrors.ErrCodeCorruptIndex, "bad db", nil), ErrCodeIndexNotFound},
		{"empty query", verrors.EmptyQuery(), ErrCodeInvalidParams},
		{"rate limited", verrors.RateLimited("slow down", nil), ErrCodeEmbeddingFailed},
		{"network timeout", verrors.New(verrors.ErrCodeNetworkTimeout, "timeout", nil), ErrCodeTimeout},
		{"context canceled", context.Canceled, ErrCodeTimeout},
		{"internal", verrors.InternalError("boom", nil), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			me := MapError(tt.err)
			require.NotNil(t, me)
			assert.Equal(t, tt.code, me.Code)
		})
	}
}
