package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/veracite/veracite/internal/consolidate"
	"github.com/veracite/veracite/internal/embed"
	"github.com/veracite/veracite/internal/index"
	"github.com/veracite/veracite/internal/pipeline"
	"github.com/veracite/veracite/internal/store"
	"github.com/veracite/veracite/pkg/version"
)

// Pipeline is the slice of the retrieval pipeline the server exposes.
type Pipeline interface {
	Search(ctx context.Context, query, scope, clientContext string) (*pipeline.Response, error)
	Reindex(ctx context.Context, documentID string) (index.Summary, error)
	ReindexAll(ctx context.Context) (index.Report, error)
}

// Server bridges AI clients with the legal retrieval pipeline over MCP.
type Server struct {
	mcp      *mcp.Server
	pipeline Pipeline
	store    store.Store
	embedder embed.Embedder
	logger   *slog.Logger
}

// LegalSearchInput defines the input schema for the legal_search tool.
type LegalSearchInput struct {
	Query   string `json:"query" jsonschema:"the legal research question to answer"`
	Scope   string `json:"scope" jsonschema:"account scope restricting which documents may be searched"`
	Context string `json:"context,omitempty" jsonschema:"optional client or matter framing for the answer"`
}

// ExcerptOutput is one citation-bearing excerpt.
type ExcerptOutput struct {
	Text           string  `json:"text" jsonschema:"the excerpt text"`
	Page           int     `json:"page,omitempty" jsonschema:"1-based page number"`
	LineStart      int     `json:"line_start,omitempty" jsonschema:"1-based starting line"`
	LineEnd        int     `json:"line_end,omitempty" jsonschema:"1-based ending line"`
	Section        string  `json:"section,omitempty" jsonschema:"detected section heading"`
	QueryRelevance float64 `json:"query_relevance,omitempty" jsonschema:"grounding score for the excerpt"`
}

// DocumentOutput is one consolidated source document.
type DocumentOutput struct {
	DocumentID string          `json:"document_id" jsonschema:"stable document identifier"`
	Title      string          `json:"title" jsonschema:"document title"`
	FileName   string          `json:"file_name,omitempty" jsonschema:"source file name"`
	Client     string          `json:"client,omitempty" jsonschema:"client the document belongs to"`
	Matter     string          `json:"matter,omitempty" jsonschema:"matter the document belongs to"`
	Relevance  string          `json:"relevance" jsonschema:"high, medium, or low"`
	Excerpts   []ExcerptOutput `json:"excerpts" jsonschema:"citation excerpts supporting the answer"`
}

// LegalSearchOutput defines the output schema for the legal_search tool.
type LegalSearchOutput struct {
	Answer    string           `json:"answer,omitempty" jsonschema:"drafted answer grounded in the excerpts"`
	Message   string           `json:"message,omitempty" jsonschema:"informational message when no results exist"`
	Documents []DocumentOutput `json:"documents" jsonschema:"consolidated source documents"`
}

// ReindexInput defines the input schema for the reindex tool.
type ReindexInput struct {
	DocumentID string `json:"document_id,omitempty" jsonschema:"document to reindex; omit to rebuild the whole corpus"`
}

// ReindexOutput defines the output schema for the reindex tool.
type ReindexOutput struct {
	Documents         int      `json:"documents" jsonschema:"documents processed"`
	TotalChunks       int      `json:"total_chunks" jsonschema:"chunks produced"`
	EmbeddingsCreated int      `json:"embeddings_created" jsonschema:"embeddings stored"`
	Failed            []string `json:"failed,omitempty" jsonschema:"document IDs that failed"`
}

// CorpusStatusInput defines the (empty) input schema for corpus_status.
type CorpusStatusInput struct{}

// CorpusStatusOutput defines the output schema for the corpus_status tool.
type CorpusStatusOutput struct {
	Documents      int    `json:"documents" jsonschema:"indexed document count"`
	Chunks         int    `json:"chunks" jsonschema:"stored chunk count"`
	EmbeddingModel string `json:"embedding_model,omitempty" jsonschema:"model the corpus was embedded with"`
	Dimensions     int    `json:"dimensions,omitempty" jsonschema:"embedding vector dimensions"`
	Status         string `json:"status" jsonschema:"ready or unavailable"`
	Version        string `json:"version" jsonschema:"server version"`
}

// NewServer creates the MCP server and registers its tools.
func NewServer(p Pipeline, s store.Store, embedder embed.Embedder, logger *slog.Logger) (*Server, error) {
	if p == nil {
		return nil, errors.New("pipeline is required")
	}
	if s == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	srv := &Server{
		pipeline: p,
		store:    s,
		embedder: embedder,
		logger:   logger,
	}

	srv.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "Veracite",
			Version: version.Version,
		},
		nil,
	)
	srv.registerTools()
	return srv, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "legal_search",
		Description: "Answer a legal research question from the indexed corpus. Returns a drafted answer plus consolidated source documents with page- and line-level citation excerpts. Always pass the account scope.",
	}, s.legalSearchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "reindex_document",
		Description: "Rebuild embeddings for one document, or the whole corpus when document_id is omitted. Use after documents change outside the watcher.",
	}, s.reindexHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "corpus_status",
		Description: "Report indexed document and chunk counts and the active embedding model. Use before searching to verify the index is ready.",
	}, s.corpusStatusHandler)

	s.logger.Info("mcp_tools_registered", slog.Int("count", 3))
}

func (s *Server) legalSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input LegalSearchInput) (
	*mcp.CallToolResult,
	LegalSearchOutput,
	error,
) {
	out, err := s.handleLegalSearch(ctx, input)
	if err != nil {
		return nil, LegalSearchOutput{}, err
	}
	return nil, out, nil
}

// handleLegalSearch runs one grounded search for an MCP client.
func (s *Server) handleLegalSearch(ctx context.Context, input LegalSearchInput) (LegalSearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return LegalSearchOutput{}, NewInvalidParamsError("query parameter is required and must not be empty")
	}
	if strings.TrimSpace(input.Scope) == "" {
		return LegalSearchOutput{}, NewInvalidParamsError("scope parameter is required")
	}

	resp, err := s.pipeline.Search(ctx, input.Query, input.Scope, input.Context)
	if err != nil {
		s.logger.Error("legal_search_failed", slog.String("error", err.Error()))
		return LegalSearchOutput{}, MapError(err)
	}

	out := LegalSearchOutput{
		Answer:    resp.AnswerText,
		Message:   resp.Message,
		Documents: make([]DocumentOutput, 0, len(resp.ConsolidatedDocuments)),
	}
	for _, doc := range resp.ConsolidatedDocuments {
		out.Documents = append(out.Documents, toDocumentOutput(doc))
	}
	return out, nil
}

func (s *Server) reindexHandler(ctx context.Context, _ *mcp.CallToolRequest, input ReindexInput) (
	*mcp.CallToolResult,
	ReindexOutput,
	error,
) {
	out, err := s.handleReindex(ctx, input)
	if err != nil {
		return nil, ReindexOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) handleReindex(ctx context.Context, input ReindexInput) (ReindexOutput, error) {
	if input.DocumentID == "" {
		report, err := s.pipeline.ReindexAll(ctx)
		if err != nil {
			return ReindexOutput{}, MapError(err)
		}
		return ReindexOutput{
			Documents:         report.Documents,
			TotalChunks:       report.TotalChunks,
			EmbeddingsCreated: report.EmbeddingsCreated,
			Failed:            report.Failed,
		}, nil
	}

	summary, err := s.pipeline.Reindex(ctx, input.DocumentID)
	if err != nil {
		return ReindexOutput{}, MapError(err)
	}
	return ReindexOutput{
		Documents:         1,
		TotalChunks:       summary.TotalChunks,
		EmbeddingsCreated: summary.EmbeddingsCreated,
	}, nil
}

func (s *Server) corpusStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ CorpusStatusInput) (
	*mcp.CallToolResult,
	CorpusStatusOutput,
	error,
) {
	out, err := s.handleCorpusStatus(ctx)
	if err != nil {
		return nil, CorpusStatusOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) handleCorpusStatus(ctx context.Context) (CorpusStatusOutput, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return CorpusStatusOutput{}, MapError(err)
	}

	model, _ := s.store.GetState(ctx, store.StateKeyModel)

	out := CorpusStatusOutput{
		Documents:      stats.Documents,
		Chunks:         stats.Chunks,
		EmbeddingModel: model,
		Status:         "ready",
		Version:        version.Version,
	}
	if s.embedder != nil {
		out.Dimensions = s.embedder.Dimensions()
		if !s.embedder.Available(ctx) {
			out.Status = "unavailable"
		}
	}
	return out, nil
}

// toDocumentOutput converts a consolidated document to the wire schema.
func toDocumentOutput(doc consolidate.Document) DocumentOutput {
	out := DocumentOutput{
		DocumentID: doc.DocumentID,
		Title:      doc.Title,
		FileName:   doc.FileName,
		Client:     doc.Client,
		Matter:     doc.Matter,
		Relevance:  string(doc.Relevance),
		Excerpts:   make([]ExcerptOutput, 0, len(doc.Excerpts)),
	}
	for _, ex := range doc.Excerpts {
		out.Excerpts = append(out.Excerpts, ExcerptOutput{
			Text:           ex.Text,
			Page:           ex.Page,
			LineStart:      ex.LineStart,
			LineEnd:        ex.LineEnd,
			Section:        ex.Section,
			QueryRelevance: ex.QueryRelevance,
		})
	}
	return out
}

// Serve starts the server with the specified transport. Only stdio is
// supported.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
