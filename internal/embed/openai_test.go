package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrors "github.com/veracite/veracite/internal/errors"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc, dims int) *OpenAIEmbedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIEmbedder(srv.URL, "test-model", dims, "VERACITE_TEST_NO_KEY", 5*time.Second)
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	// Given: a provider returning vectors out of order
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Len(t, req.Input, 2)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0, 1, 0}},
				{"index": 0, "embedding": []float32{1, 0, 0}},
			},
		})
	}, 3)

	// When: two texts are embedded
	vecs, err := e.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)

	// Then: results follow input order
	assert.Equal(t, []float32{1, 0, 0}, vecs[0])
	assert.Equal(t, []float32{0, 1, 0}, vecs[1])
}

func TestOpenAIEmbedder_RateLimited(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, 3)

	_, err := e.Embed(context.Background(), "alpha")

	require.Error(t, err)
	assert.True(t, verrors.IsRateLimited(err))
	assert.True(t, verrors.IsRetryable(err))
}

func TestOpenAIEmbedder_ServerErrorIsProviderError(t *testing.T) {
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}, 3)

	_, err := e.Embed(context.Background(), "alpha")

	require.Error(t, err)
	assert.Equal(t, verrors.ErrCodeProvider, verrors.GetCode(err))
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	// Given: a provider returning the wrong dimensionality
	e := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 0, "embedding": []float32{1, 0}},
			},
		})
	}, 3)

	_, err := e.Embed(context.Background(), "alpha")

	require.Error(t, err)
	assert.Equal(t, verrors.ErrCodeDimensionMismatch, verrors.GetCode(err))
}

func TestOpenAIEmbedder_EmptyBatch(t *testing.T) {
	e := NewOpenAIEmbedder("http://localhost:1", "test-model", 3, "VERACITE_TEST_NO_KEY", time.Second)

	vecs, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}
