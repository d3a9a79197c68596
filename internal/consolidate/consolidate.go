// Package consolidate groups chunk-level search hits into one entry per
// source document with an aggregate relevance label and citation excerpts.
package consolidate

import (
	"sort"
	"strings"

	"github.com/veracite/veracite/internal/cite"
	"github.com/veracite/veracite/internal/search"
)

// Relevance is the coarse per-document bucket derived from mean similarity.
type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// Excerpt is one citation-bearing snippet of a consolidated document.
type Excerpt struct {
	Text           string  `json:"text"`
	Page           int     `json:"page,omitempty"`
	LineStart      int     `json:"line_start,omitempty"`
	LineEnd        int     `json:"line_end,omitempty"`
	Section        string  `json:"section,omitempty"`
	QueryRelevance float64 `json:"query_relevance,omitempty"`
}

// Document is one consolidated result. Transient, computed per query.
type Document struct {
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title"`
	FileName   string    `json:"file_name"`
	Client     string    `json:"client,omitempty"`
	Matter     string    `json:"matter,omitempty"`
	Relevance  Relevance `json:"relevance"`
	Excerpts   []Excerpt `json:"excerpts"`
	TotalPages int       `json:"total_pages,omitempty"`
}

// Options tunes consolidation.
type Options struct {
	// MaxExcerpts caps excerpts per document.
	MaxExcerpts int
	// Grounder configures citation grounding when query and answer are
	// available.
	Grounder cite.GrounderOptions
}

// DefaultOptions returns the standard consolidation parameters.
func DefaultOptions() Options {
	return Options{
		MaxExcerpts: 3,
		Grounder:    cite.DefaultGrounderOptions(),
	}
}

// minKeyPhraseChars is the sentence length floor for the fallback
// key-phrase extractor.
const minKeyPhraseChars = 20

// Consolidate groups results by document and selects excerpts. With both
// query and answerText present it delegates to the citation grounder;
// otherwise it falls back to key phrases from the group's first chunk.
// Document order follows descending mean similarity.
func Consolidate(results []search.Result, query, answerText string, opts Options) []Document {
	if len(results) == 0 {
		return nil
	}
	if opts.MaxExcerpts <= 0 {
		opts.MaxExcerpts = DefaultOptions().MaxExcerpts
	}

	groups := make(map[string][]search.Result)
	var order []string
	for _, r := range results {
		if _, seen := groups[r.DocumentID]; !seen {
			order = append(order, r.DocumentID)
		}
		groups[r.DocumentID] = append(groups[r.DocumentID], r)
	}

	docs := make([]Document, 0, len(order))
	means := make(map[string]float64, len(order))
	for _, docID := range order {
		group := groups[docID]
		mean := meanSimilarity(group)
		means[docID] = mean

		doc := Document{
			DocumentID: docID,
			Title:      group[0].DocumentTitle,
			FileName:   group[0].FileName,
			Client:     group[0].Client,
			Matter:     group[0].Matter,
			Relevance:  relevanceOf(mean),
			Excerpts:   selectExcerpts(group, query, answerText, opts),
		}
		docs = append(docs, doc)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return means[docs[i].DocumentID] > means[docs[j].DocumentID]
	})
	return docs
}

// relevanceOf buckets a mean similarity. Boundary values fall into the
// lower bucket: a mean of exactly 0.6 is Medium, not High.
func relevanceOf(mean float64) Relevance {
	switch {
	case mean > 0.6:
		return RelevanceHigh
	case mean > 0.3:
		return RelevanceMedium
	default:
		return RelevanceLow
	}
}

func meanSimilarity(group []search.Result) float64 {
	var sum float64
	for _, r := range group {
		sum += r.Similarity
	}
	return sum / float64(len(group))
}

// selectExcerpts chooses up to MaxExcerpts excerpts for one document group.
func selectExcerpts(group []search.Result, query, answerText string, opts Options) []Excerpt {
	if strings.TrimSpace(query) != "" && strings.TrimSpace(answerText) != "" {
		gopts := opts.Grounder
		gopts.MaxSentences = opts.MaxExcerpts
		sentences := cite.GroundSentences(group, query, answerText, gopts)
		if len(sentences) > 0 {
			excerpts := make([]Excerpt, 0, len(sentences))
			for _, s := range sentences {
				excerpts = append(excerpts, Excerpt{
					Text:           s.Text,
					Page:           s.Page,
					LineStart:      s.LineStart,
					LineEnd:        s.LineEnd,
					Section:        s.Section,
					QueryRelevance: s.RelevanceScore,
				})
			}
			return excerpts
		}
	}
	return keyPhraseExcerpts(group, opts.MaxExcerpts)
}

// keyPhraseExcerpts is the fallback when grounding is unavailable or found
// nothing: the first two qualifying sentences of the group's first chunk,
// with no relevance score.
func keyPhraseExcerpts(group []search.Result, maxExcerpts int) []Excerpt {
	first := group[0]
	section := cite.DetectSection(first.Content)

	limit := 2
	if limit > maxExcerpts {
		limit = maxExcerpts
	}

	var excerpts []Excerpt
	for _, raw := range strings.FieldsFunc(first.Content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		text := strings.TrimSpace(raw)
		if len(text) <= minKeyPhraseChars {
			continue
		}
		excerpts = append(excerpts, Excerpt{
			Text:      text,
			Page:      first.Page,
			LineStart: first.LineStart,
			LineEnd:   first.LineEnd,
			Section:   section,
		})
		if len(excerpts) >= limit {
			break
		}
	}
	return excerpts
}
