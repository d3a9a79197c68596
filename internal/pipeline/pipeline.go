// Package pipeline is the caller-facing entry point: query in, grounded
// citations out.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/veracite/veracite/internal/consolidate"
	"github.com/veracite/veracite/internal/embed"
	verrors "github.com/veracite/veracite/internal/errors"
	"github.com/veracite/veracite/internal/index"
	"github.com/veracite/veracite/internal/llm"
	"github.com/veracite/veracite/internal/search"
)

// Response is the full result of one grounded search.
type Response struct {
	RequestID             string                 `json:"request_id"`
	Results               []search.Result        `json:"results"`
	ConsolidatedDocuments []consolidate.Document `json:"consolidated_documents"`
	AnswerText            string                 `json:"answer_text,omitempty"`
	Message               string                 `json:"message,omitempty"`
}

// Service orchestrates embedding, search, answering, and consolidation.
type Service struct {
	embedder    embed.Embedder
	engine      *search.Engine
	answerer    llm.Provider
	indexer     *index.Indexer
	consolidate consolidate.Options
	logger      *slog.Logger
}

// NewService wires the pipeline. The answer provider may be nil, in which
// case responses carry search results and key-phrase excerpts only.
func NewService(embedder embed.Embedder, engine *search.Engine, answerer llm.Provider, indexer *index.Indexer, copts consolidate.Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embedder:    embedder,
		engine:      engine,
		answerer:    answerer,
		indexer:     indexer,
		consolidate: copts,
		logger:      logger,
	}
}

// Search answers a natural-language query over the scope's corpus.
// Empty or whitespace-only queries are rejected before any provider call.
// An empty corpus yields an informational message, not an error; provider
// outages propagate as a single typed retryable error.
func (s *Service) Search(ctx context.Context, query, scope, clientContext string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, verrors.EmptyQuery()
	}

	requestID := uuid.NewString()
	logger := s.logger.With(slog.String("request_id", requestID))
	logger.Info("query_started", slog.String("scope", scope))

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Error("query_embed_failed", slog.String("error", err.Error()))
		return nil, err
	}

	results, err := s.engine.Search(ctx, queryVector, scope)
	if err != nil {
		if verrors.GetCode(err) == verrors.ErrCodeEmptyCorpus {
			logger.Info("query_empty_corpus")
			return &Response{
				RequestID:             requestID,
				Results:               []search.Result{},
				ConsolidatedDocuments: []consolidate.Document{},
				Message:               verrMessage(err),
			}, nil
		}
		logger.Error("query_search_failed", slog.String("error", err.Error()))
		return nil, err
	}

	resp := &Response{
		RequestID:             requestID,
		Results:               results,
		ConsolidatedDocuments: []consolidate.Document{},
	}
	if len(results) == 0 {
		resp.Message = "no sufficiently similar passages were found for this query"
		logger.Info("query_no_results")
		return resp, nil
	}

	if s.answerer != nil {
		answer, err := s.answerer.Answer(ctx, query, clientContext, results)
		if err != nil {
			logger.Error("query_answer_failed", slog.String("error", err.Error()))
			return nil, err
		}
		resp.AnswerText = answer
	}

	resp.ConsolidatedDocuments = consolidate.Consolidate(results, query, resp.AnswerText, s.consolidate)
	logger.Info("query_complete",
		slog.Int("results", len(results)),
		slog.Int("documents", len(resp.ConsolidatedDocuments)))
	return resp, nil
}

// Reindex rebuilds one document's embeddings.
func (s *Service) Reindex(ctx context.Context, documentID string) (index.Summary, error) {
	return s.indexer.Reindex(ctx, documentID)
}

// ReindexAll rebuilds the whole corpus.
func (s *Service) ReindexAll(ctx context.Context) (index.Report, error) {
	return s.indexer.ReindexAll(ctx)
}

// verrMessage extracts the human-readable message from a typed error.
func verrMessage(err error) string {
	if ve, ok := err.(*verrors.VeraError); ok {
		return ve.Message
	}
	return err.Error()
}
