package cite

import (
	"regexp"
	"sort"
	"strings"

	"github.com/veracite/veracite/internal/search"
)

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
	quotedSpanRe    = regexp.MustCompile(`"([^"]+)"`)
)

// GroundSentences scores sentences from the given chunks against the
// entities asserted by answerText and its literal quotes, returning the
// best citations. It never fails: entity-free answers and chunks without
// qualifying sentences yield an empty slice.
func GroundSentences(chunks []search.Result, query, answerText string, opts GrounderOptions) []Sentence {
	if len(chunks) == 0 || strings.TrimSpace(answerText) == "" {
		return nil
	}
	if opts.MaxSentences <= 0 {
		opts.MaxSentences = DefaultGrounderOptions().MaxSentences
	}
	if opts.MinSentenceChars <= 0 {
		opts.MinSentenceChars = DefaultGrounderOptions().MinSentenceChars
	}
	// Zero thresholds would admit every sentence from every chunk.
	if opts.AcceptThreshold <= 0 {
		opts.AcceptThreshold = DefaultGrounderOptions().AcceptThreshold
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultGrounderOptions().SimilarityThreshold
	}

	entities := ExtractEntities(answerText)
	quotes := quotedSpans(answerText)
	answerTokens := tokenSet(query + " " + answerText)

	var candidates []Sentence
	for i := range chunks {
		ch := &chunks[i]
		if ch.Similarity <= opts.SimilarityThreshold {
			continue
		}
		section := DetectSection(ch.Content)

		for _, raw := range sentenceSplitRe.Split(ch.Content, -1) {
			text := strings.TrimSpace(raw)
			if len(text) < opts.MinSentenceChars {
				continue
			}

			score, matched := scoreSentence(text, entities, quotes, answerTokens)
			if score <= opts.AcceptThreshold && len(distinctEntities(matched)) < 2 {
				continue
			}

			candidates = append(candidates, Sentence{
				Text:            text,
				RelevanceScore:  score,
				MatchedEntities: matched,
				Page:            ch.Page,
				LineStart:       ch.LineStart,
				LineEnd:         ch.LineEnd,
				Section:         section,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RelevanceScore > candidates[j].RelevanceScore
	})
	if len(candidates) > opts.MaxSentences {
		candidates = candidates[:opts.MaxSentences]
	}
	return candidates
}

// scoreSentence sums the entity-match, quoted-span, and token-overlap
// components for one candidate sentence.
func scoreSentence(sentence string, entities []Entity, quotes []string, answerTokens map[string]struct{}) (float64, []Entity) {
	lower := strings.ToLower(sentence)

	var score float64
	var matched []Entity
	for _, ent := range entities {
		if strings.Contains(lower, strings.ToLower(ent.Value)) {
			score += entityWeight(ent.Kind)
			matched = append(matched, ent)
		}
	}

	// Literally-quoted answer text is the strongest signal: one hit alone
	// clears the acceptance threshold.
	for _, q := range quotes {
		if strings.Contains(lower, strings.ToLower(q)) {
			score += quotedSpanBonus
		}
	}

	score += tokenOverlap(tokenSet(sentence), answerTokens) * tokenOverlapScale
	return score, matched
}

// quotedSpans returns double-quoted answer substrings longer than the
// minimum quote length.
func quotedSpans(answerText string) []string {
	var spans []string
	for _, m := range quotedSpanRe.FindAllStringSubmatch(answerText, -1) {
		if len(m[1]) >= minQuotedSpanLen {
			spans = append(spans, m[1])
		}
	}
	return spans
}

// distinctEntities counts entities by kind and value.
func distinctEntities(matched []Entity) map[string]struct{} {
	set := make(map[string]struct{}, len(matched))
	for _, e := range matched {
		set[string(e.Kind)+"\x00"+strings.ToLower(e.Value)] = struct{}{}
	}
	return set
}
