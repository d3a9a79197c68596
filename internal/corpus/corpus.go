// Package corpus supplies raw document text. Extraction from binary
// formats is out of scope; sources deal in plain text.
package corpus

import (
	"context"
)

// DocumentInfo describes one corpus document.
type DocumentInfo struct {
	// ID is the stable document identifier.
	ID string
	// Path is the document's path relative to the corpus root.
	Path string
	// Title defaults to the file name when no sidecar metadata exists.
	Title  string
	Client string
	Matter string
	// Scope is the access-control owner of the document.
	Scope string
	// Pages is the sidecar-declared page count, 0 when unknown.
	Pages int
}

// Source supplies documents and their raw text.
type Source interface {
	// Documents lists every document in the corpus.
	Documents(ctx context.Context) ([]DocumentInfo, error)

	// Info returns metadata for one document.
	Info(ctx context.Context, documentID string) (DocumentInfo, error)

	// Content returns the document's raw text.
	Content(ctx context.Context, documentID string) (string, error)
}
