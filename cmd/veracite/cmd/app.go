package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/veracite/veracite/internal/chunk"
	"github.com/veracite/veracite/internal/cite"
	"github.com/veracite/veracite/internal/config"
	"github.com/veracite/veracite/internal/consolidate"
	"github.com/veracite/veracite/internal/corpus"
	"github.com/veracite/veracite/internal/embed"
	"github.com/veracite/veracite/internal/index"
	"github.com/veracite/veracite/internal/llm"
	"github.com/veracite/veracite/internal/logging"
	"github.com/veracite/veracite/internal/pipeline"
	"github.com/veracite/veracite/internal/search"
	"github.com/veracite/veracite/internal/store"
)

// app holds the wired pipeline for one CLI invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.SQLiteStore
	ann      *store.ScopeANN
	embedder embed.Embedder
	source   *corpus.DirSource
	service  *pipeline.Service

	cleanups []func()
}

// buildApp loads configuration and wires the full pipeline for the corpus
// root. logToStderr should be false for MCP mode, where stdout and stderr
// belong to the protocol transcript.
func buildApp(root string, logToStderr bool) (*app, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	logCfg := logging.Config{
		Level:         cfg.Server.LogLevel,
		FilePath:      filepath.Join(cfg.Paths.DataDir, "logs", "veracite.log"),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: logToStderr,
	}
	if debugMode {
		logCfg.Level = "debug"
	}
	logger, logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	a.logger = logger
	a.cleanups = append(a.cleanups, logCleanup)
	slog.SetDefault(logger)

	s, err := store.NewSQLiteStore(filepath.Join(cfg.Paths.DataDir, "index.db"))
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = s
	a.cleanups = append(a.cleanups, func() { _ = s.Close() })

	a.embedder = newEmbedder(cfg)
	a.cleanups = append(a.cleanups, func() { _ = a.embedder.Close() })
	a.ann = store.NewScopeANN(a.embedder.Dimensions())

	a.source = corpus.NewDirSource(cfg.Paths.CorpusDir)

	chunker := chunk.NewChunker(chunk.Options{
		WindowSize: cfg.Chunking.WindowSize,
		Overlap:    cfg.Chunking.Overlap,
		MinChars:   cfg.Chunking.MinChunkChars,
	})

	indexer := index.NewIndexer(a.source, chunker, a.embedder, s, a.ann, index.Options{
		RequestDelay:     cfg.Embeddings.RequestDelayDuration(),
		RateLimitBackoff: cfg.Embeddings.RateLimitBackoffDuration(),
	}, logger)

	engine := search.NewEngine(s, a.ann, search.Options{
		Threshold:    cfg.Search.SimilarityThreshold,
		MaxResults:   cfg.Search.MaxResults,
		ANNCutoff:    cfg.Search.ANNCutoff,
		ANNOverfetch: cfg.Search.ANNOverfetch,
	}, logger)

	answerer := llm.NewOpenAIProvider(
		cfg.LLM.BaseURL,
		cfg.LLM.Model,
		cfg.LLM.MaxContextChunks,
		cfg.LLM.APIKeyEnv,
		cfg.LLM.TimeoutDuration(),
	)

	copts := consolidate.Options{
		MaxExcerpts: cfg.Search.MaxExcerpts,
		Grounder: cite.GrounderOptions{
			MinSentenceChars:    cfg.Grounding.MinSentenceChars,
			AcceptThreshold:     cfg.Grounding.AcceptThreshold,
			MaxSentences:        cfg.Grounding.MaxSentences,
			SimilarityThreshold: cfg.Search.SimilarityThreshold,
		},
	}

	a.service = pipeline.NewService(a.embedder, engine, answerer, indexer, copts, logger)
	return a, nil
}

// warmANN rebuilds the per-scope shortlist graphs from the store. Called by
// long-running commands; one-shot queries scan SQLite directly unless the
// scope is large.
func (a *app) warmANN(ctx context.Context) {
	docs, err := a.store.Documents(ctx)
	if err != nil {
		a.logger.Warn("ann_warm_failed", slog.String("error", err.Error()))
		return
	}

	scopes := make(map[string]struct{})
	for _, d := range docs {
		scopes[d.Scope] = struct{}{}
	}
	for scope := range scopes {
		chunks, err := a.store.QueryScope(ctx, scope)
		if err != nil {
			a.logger.Warn("ann_warm_failed",
				slog.String("scope", scope),
				slog.String("error", err.Error()))
			continue
		}
		if err := a.ann.Rebuild(scope, chunks); err != nil {
			a.logger.Warn("ann_rebuild_failed",
				slog.String("scope", scope),
				slog.String("error", err.Error()))
		}
	}
}

// checkModelDrift warns when the stored corpus was embedded with a different
// model than the one configured now.
func (a *app) checkModelDrift(ctx context.Context) {
	model, err := a.store.GetState(ctx, store.StateKeyModel)
	if err != nil || model == "" {
		return
	}
	if model != a.embedder.ModelName() {
		a.logger.Warn("embedding_model_drift",
			slog.String("indexed_with", model),
			slog.String("configured", a.embedder.ModelName()))
	}
}

// close releases resources in reverse acquisition order.
func (a *app) close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}

// newEmbedder builds the configured embedding provider behind an LRU cache.
func newEmbedder(cfg *config.Config) embed.Embedder {
	var inner embed.Embedder
	switch cfg.Embeddings.Provider {
	case "static":
		dims := cfg.Embeddings.Dimensions
		if dims <= 0 {
			dims = embed.StaticDimensions
		}
		inner = embed.NewStaticEmbedder(dims)
	default:
		inner = embed.NewOpenAIEmbedder(
			cfg.Embeddings.BaseURL,
			cfg.Embeddings.Model,
			cfg.Embeddings.Dimensions,
			cfg.Embeddings.APIKeyEnv,
			cfg.Embeddings.TimeoutDuration(),
		)
	}
	return embed.NewCachedEmbedder(inner, cfg.Embeddings.CacheSize)
}
