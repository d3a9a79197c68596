// Package store persists embedded chunks and their document metadata.
//
// SQLite is the source of truth. Per-scope HNSW graphs provide an optional
// approximate shortlist for large corpora; they are rebuilt from SQLite and
// never consulted across scope boundaries.
package store

import (
	"context"
	"time"
)

// State keys guarding embedding model and dimension drift. A corpus indexed
// with one model must not be searched with vectors from another.
const (
	StateKeyModel      = "embedding_model"
	StateKeyDimensions = "embedding_dimensions"
)

// Document is the per-document metadata row.
type Document struct {
	ID         string
	Title      string
	FileName   string
	Client     string
	Matter     string
	Scope      string
	TotalPages int
	IndexedAt  time.Time
}

// EmbeddedChunk is a stored chunk joined with its document metadata.
type EmbeddedChunk struct {
	DocumentID string
	ChunkIndex int
	Content    string
	Vector     []float32
	Page       int
	LineStart  int
	LineEnd    int

	Title      string
	FileName   string
	Client     string
	Matter     string
	Scope      string
	TotalPages int
}

// Stats summarizes the stored corpus.
type Stats struct {
	Documents int
	Chunks    int
}

// Store is the persistence contract for embedded chunks.
type Store interface {
	// ReplaceDocument atomically deletes the document's prior chunk set and
	// inserts the new one, together with the metadata row. A concurrent
	// reader never observes a partially-emptied document.
	ReplaceDocument(ctx context.Context, doc Document, chunks []EmbeddedChunk) error

	// DeleteDocument removes the document row and all its chunks.
	DeleteDocument(ctx context.Context, documentID string) error

	// QueryScope returns every embedded chunk owned by the scope. The scope
	// restriction is applied here, before any scoring, as an access-control
	// boundary.
	QueryScope(ctx context.Context, scope string) ([]EmbeddedChunk, error)

	// CountScope returns the number of chunks owned by the scope.
	CountScope(ctx context.Context, scope string) (int, error)

	// Documents lists all document metadata rows.
	Documents(ctx context.Context) ([]Document, error)

	// GetState reads an index-level state value; missing keys return "".
	GetState(ctx context.Context, key string) (string, error)

	// SetState writes an index-level state value.
	SetState(ctx context.Context, key, value string) error

	// Stats summarizes the stored corpus.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the underlying database.
	Close() error
}
