package llm

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
	"github.com/veracite/veracite/internal/search"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIProvider(srv.URL, "test-model", 2, "VERACITE_TEST_NO_KEY", 5*time.Second)
}

func sampleChunks() []search.Result {
	return []search.Result{
		{DocumentTitle: "Lease", Content: "The tenant shall pay rent.", Page: 3, Similarity: 0.9},
		{DocumentTitle: "Brief", Content: "Filed March 3, 2023.", Similarity: 0.8},
		{DocumentTitle: "Extra", Content: "Beyond the context window.", Similarity: 0.75},
	}
}

func TestOpenAIProvider_Answer(t *testing.T) {
	// Given: a provider echoing a canned completion
	var gotPrompt string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		gotPrompt = req.Messages[1].Content

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  The rent is due monthly.  "}},
			},
		})
	})

	answer, err := p.Answer(context.Background(), "when is rent due?", "Acme matter", sampleChunks())
	require.NoError(t, err)

	// Then: the answer is trimmed and the prompt carries context and chunks
	assert.Equal(t, "The rent is due monthly.", answer)
	assert.Contains(t, gotPrompt, "Acme matter")
	assert.Contains(t, gotPrompt, "The tenant shall pay rent.")
	assert.Contains(t, gotPrompt, "page 3")
	assert.Contains(t, gotPrompt, "Question: when is rent due?")
	// maxContextChunks caps the excerpts
	assert.NotContains(t, gotPrompt, "Beyond the context window.")
}

func TestOpenAIProvider_RateLimited(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := p.Answer(context.Background(), "q", "", nil)
	require.Error(t, err)
	assert.True(t, verrors.IsRateLimited(err))
}

func TestOpenAIProvider_ServerError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := p.Answer(context.Background(), "q", "", nil)
	require.Error(t, err)
	assert.Equal(t, verrors.ErrCodeProvider, verrors.GetCode(err))
	assert.True(t, verrors.IsRetryable(err))
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := p.Answer(context.Background(), "q", "", nil)
	require.Error(t, err)
	assert.Equal(t, verrors.ErrCodeProvider, verrors.GetCode(err))
}
