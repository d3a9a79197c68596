// Package search ranks stored chunk vectors against a query vector.
package search

// Result is one chunk-level search hit. Transient, computed per query.
type Result struct {
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	FileName      string  `json:"file_name"`
	Content       string  `json:"content"`
	Similarity    float64 `json:"similarity"`
	ChunkIndex    int     `json:"chunk_index"`
	Page          int     `json:"page,omitempty"`
	LineStart     int     `json:"line_start,omitempty"`
	LineEnd       int     `json:"line_end,omitempty"`
	Client        string  `json:"client,omitempty"`
	Matter        string  `json:"matter,omitempty"`
}

// Options tunes the engine.
type Options struct {
	// Threshold discards results with similarity at or below this value.
	Threshold float64
	// MaxResults caps the number of returned results.
	MaxResults int
	// ANNCutoff is the scope corpus size above which the HNSW shortlist
	// is consulted instead of scanning every vector. Zero disables the
	// cutoff check and always shortlists when an ANN index is attached.
	ANNCutoff int
	// ANNOverfetch multiplies MaxResults when shortlisting, so exact
	// rescoring rarely misses an above-threshold neighbor.
	ANNOverfetch int
}

// DefaultOptions returns the standard engine settings.
func DefaultOptions() Options {
	return Options{
		Threshold:    0.7,
		MaxResults:   10,
		ANNCutoff:    2048,
		ANNOverfetch: 4,
	}
}
