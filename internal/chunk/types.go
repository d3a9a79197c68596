// Package chunk splits raw document text into bounded, indexable windows.
// Chunks are the unit of embedding and citation for the whole pipeline.
package chunk

// Chunk is a contiguous slice of a document's text, trimmed of surrounding
// whitespace, with a dense per-document index starting at 0.
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
	// Page is the 1-indexed page derived from form-feed separators,
	// 0 when the source text carries no page markers.
	Page int
	// LineStart and LineEnd are 1-indexed line numbers of the chunk's
	// trimmed span within the source text.
	LineStart int
	LineEnd   int
}

// Options configures the chunker.
type Options struct {
	// WindowSize is the target chunk size in characters.
	WindowSize int
	// Overlap bounds the character overlap between consecutive chunks.
	Overlap int
	// MinChars drops chunks whose trimmed length is at or below this.
	MinChars int
}

// DefaultOptions returns the standard chunking parameters.
func DefaultOptions() Options {
	return Options{
		WindowSize: 1000,
		Overlap:    200,
		MinChars:   50,
	}
}
