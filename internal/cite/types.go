// Package cite extracts factual entities from generated answers and grounds
// them back into literal source sentences for citation display.
package cite

// EntityKind tags the kind of factual entity found in an answer.
type EntityKind string

const (
	KindName      EntityKind = "name"
	KindAge       EntityKind = "age"
	KindDate      EntityKind = "date"
	KindAmount    EntityKind = "amount"
	KindNumber    EntityKind = "number"
	KindReference EntityKind = "reference"
)

// Entity is one factual assertion extracted from an answer.
// Value is the normalized content; Context is the full matched span.
type Entity struct {
	Kind    EntityKind `json:"kind"`
	Value   string     `json:"value"`
	Context string     `json:"context"`
}

// Sentence is a grounded source sentence selected as citation material.
// Transient, computed per query.
type Sentence struct {
	Text            string   `json:"text"`
	RelevanceScore  float64  `json:"relevance_score"`
	MatchedEntities []Entity `json:"matched_entities,omitempty"`
	Page            int      `json:"page,omitempty"`
	LineStart       int      `json:"line_start,omitempty"`
	LineEnd         int      `json:"line_end,omitempty"`
	Section         string   `json:"section,omitempty"`
}

// GrounderOptions tunes sentence selection.
type GrounderOptions struct {
	// MinSentenceChars drops candidate sentences shorter than this.
	MinSentenceChars int
	// AcceptThreshold is the minimum relevance score to keep a sentence
	// that matched fewer than two distinct entities.
	AcceptThreshold float64
	// MaxSentences caps the returned sentences.
	MaxSentences int
	// SimilarityThreshold excludes chunks at or below this similarity.
	SimilarityThreshold float64
}

// DefaultGrounderOptions returns the standard grounding parameters.
func DefaultGrounderOptions() GrounderOptions {
	return GrounderOptions{
		MinSentenceChars:    30,
		AcceptThreshold:     0.6,
		MaxSentences:        3,
		SimilarityThreshold: 0.7,
	}
}

// Scoring weights. The quoted-span bonus alone clears the acceptance
// threshold; a single entity match does not.
const (
	weightName      = 0.40
	weightReference = 0.35
	weightAge       = 0.25
	weightDate      = 0.25
	weightAmount    = 0.25
	weightNumber    = 0.10

	quotedSpanBonus   = 1.0
	tokenOverlapScale = 0.5

	// minQuotedSpanLen is the minimum length of a double-quoted answer
	// substring treated as a literal quote.
	minQuotedSpanLen = 11
)

func entityWeight(kind EntityKind) float64 {
	switch kind {
	case KindName:
		return weightName
	case KindReference:
		return weightReference
	case KindAge:
		return weightAge
	case KindDate:
		return weightDate
	case KindAmount:
		return weightAmount
	default:
		return weightNumber
	}
}
