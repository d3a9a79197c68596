// Package llm drafts free-text answers from retrieved chunks. The provider
// is a black box; its output feeds the citation grounder.
package llm

import (
	"context"

	"github.com/veracite/veracite/internal/search"
)

// Provider drafts an answer for a query over retrieved chunks.
type Provider interface {
	// Answer returns free-text prose answering the query from the given
	// chunks. clientContext carries caller-supplied framing such as the
	// client or matter under discussion.
	Answer(ctx context.Context, query, clientContext string, chunks []search.Result) (string, error)

	// ModelName returns the model identifier.
	ModelName() string
}
