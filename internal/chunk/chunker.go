package chunk

import (
	"strings"
)

// Chunker splits document text into fixed-size windows, preferring to cut
// at sentence or word boundaries near the end of each window.
type Chunker struct {
	opts Options
}

// NewChunker creates a chunker with the given options. Zero-value fields
// fall back to defaults.
func NewChunker(opts Options) *Chunker {
	def := DefaultOptions()
	if opts.WindowSize <= 0 {
		opts.WindowSize = def.WindowSize
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.WindowSize {
		opts.Overlap = def.Overlap
		if opts.Overlap >= opts.WindowSize {
			opts.Overlap = opts.WindowSize / 5
		}
	}
	if opts.MinChars < 0 {
		opts.MinChars = def.MinChars
	}
	return &Chunker{opts: opts}
}

// Split chunks the document text. It is deterministic: the same input
// always yields the same chunks with the same dense 0-based indices.
// Chunks whose trimmed text is at or below MinChars are dropped without
// consuming an index.
func (c *Chunker) Split(documentID, text string) []Chunk {
	if len(text) == 0 {
		return nil
	}

	paged := strings.ContainsRune(text, '\f')

	var chunks []Chunk
	start := 0
	for start < len(text) {
		end := start + c.opts.WindowSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = c.adjustBoundary(text, start, end)
		}

		trimmed := strings.TrimSpace(text[start:end])
		if len(trimmed) > c.opts.MinChars {
			lead := strings.Index(text[start:end], trimmed[:1])
			trimStart := start + lead
			trimEnd := trimStart + len(trimmed)

			ch := Chunk{
				DocumentID: documentID,
				Index:      len(chunks),
				Text:       trimmed,
				LineStart:  1 + strings.Count(text[:trimStart], "\n"),
				LineEnd:    1 + strings.Count(text[:trimEnd], "\n"),
			}
			if paged {
				ch.Page = 1 + strings.Count(text[:trimStart], "\f")
			}
			chunks = append(chunks, ch)
		}

		// Advancing past end as well as past the overlap point keeps the
		// loop moving even when the boundary adjustment shortened the
		// window to almost nothing.
		next := start + c.opts.WindowSize - c.opts.Overlap
		if end > next {
			next = end
		}
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// adjustBoundary looks backward from the proposed end for the nearest
// sentence terminator or whitespace. The shortened cut is accepted only
// when it keeps at least 80% of the window, otherwise the hard cut stands.
func (c *Chunker) adjustBoundary(text string, start, end int) int {
	min := start + c.opts.WindowSize*4/5
	for i := end - 1; i >= min; i-- {
		b := text[i]
		if b == '.' {
			return i + 1
		}
		if b == ' ' || b == '\n' || b == '\t' || b == '\r' || b == '\f' {
			return i
		}
	}
	return end
}
