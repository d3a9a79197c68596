package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	verrors "github.com/veracite/veracite/internal/errors"
	"github.com/veracite/veracite/internal/search"
)

const systemPrompt = `You are a legal research assistant. Answer the question using only the provided document excerpts. Quote the source text verbatim in double quotes where possible, and state names, dates, amounts and case references exactly as they appear. If the excerpts do not contain the answer, say so.`

// OpenAIProvider talks to any OpenAI-compatible /chat/completions endpoint.
type OpenAIProvider struct {
	baseURL          string
	model            string
	apiKey           string
	maxContextChunks int
	client           *http.Client
}

// OpenAIOption configures the provider.
type OpenAIOption func(*OpenAIProvider)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.client = c
	}
}

// NewOpenAIProvider creates a chat-completion answer provider. The bearer
// token is read from the environment variable named by apiKeyEnv.
func NewOpenAIProvider(baseURL, model string, maxContextChunks int, apiKeyEnv string, timeout time.Duration, opts ...OpenAIOption) *OpenAIProvider {
	if maxContextChunks <= 0 {
		maxContextChunks = 10
	}
	p := &OpenAIProvider{
		baseURL:          strings.TrimRight(baseURL, "/"),
		model:            model,
		apiKey:           os.Getenv(apiKeyEnv),
		maxContextChunks: maxContextChunks,
		client:           &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Answer drafts an answer from the retrieved chunks.
func (p *OpenAIProvider) Answer(ctx context.Context, query, clientContext string, chunks []search.Result) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: p.buildPrompt(query, clientContext, chunks)},
		},
	})
	if err != nil {
		return "", verrors.InternalError("failed to encode chat request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", verrors.InternalError("failed to build chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", verrors.New(verrors.ErrCodeNetworkUnavailable, "chat request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", verrors.RateLimited("answer provider rate limited the request", nil)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", verrors.ProviderError(fmt.Sprintf("answer provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", verrors.ProviderError("answer provider returned malformed JSON", err)
	}
	if len(parsed.Choices) == 0 {
		return "", verrors.ProviderError("answer provider returned no choices", nil)
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// buildPrompt lays out the context chunks and the question.
func (p *OpenAIProvider) buildPrompt(query, clientContext string, chunks []search.Result) string {
	var sb strings.Builder
	if clientContext != "" {
		sb.WriteString("Context: ")
		sb.WriteString(clientContext)
		sb.WriteString("\n\n")
	}

	limit := len(chunks)
	if limit > p.maxContextChunks {
		limit = p.maxContextChunks
	}
	for i := 0; i < limit; i++ {
		ch := chunks[i]
		fmt.Fprintf(&sb, "[Excerpt %d: %s", i+1, ch.DocumentTitle)
		if ch.Page > 0 {
			fmt.Fprintf(&sb, ", page %d", ch.Page)
		}
		sb.WriteString("]\n")
		sb.WriteString(ch.Content)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Question: ")
	sb.WriteString(query)
	return sb.String()
}

// ModelName returns the model identifier.
func (p *OpenAIProvider) ModelName() string {
	return p.model
}

var _ Provider = (*OpenAIProvider)(nil)
