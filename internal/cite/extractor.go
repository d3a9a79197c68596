package cite

import (
	"regexp"
	"strconv"
	"strings"
)

// Each matcher is independent: it produces zero or more entities and never
// fails. Malformed or entity-free answer text yields an empty slice.

var (
	// Capitalized word(s) followed by an ALLCAPS surname, with an optional
	// trailing age clause that is stripped from the value.
	nameRe = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\s+[A-Z]{2,})\b(\s*,?\s*(?:aged?\s+\d{1,3}|\d{1,3}\s+years?\s+old))?`)

	ageRe      = regexp.MustCompile(`(?i)\baged?[:\s]+(\d{1,3})\b`)
	yearsOldRe = regexp.MustCompile(`(?i)\b(\d{1,3})\s+years?\s+old\b`)

	longDateRe  = regexp.MustCompile(`(?i)\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`)
	slashDateRe = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	isoDateRe   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)

	amountRe = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d+)?`)

	referenceRe = regexp.MustCompile(`(?i)\b(?:case|client|matter|file)\b[\s.]*(?:number|no\.?|num\.?|#)?\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9-]{2,})`)

	numberKeywordRe = regexp.MustCompile(`(?i)\b(?:case|client|matter|file|number|no\.?|ref)\w*\W{0,3}\b([A-Za-z0-9][A-Za-z0-9-]{3,})`)
	bareDigitsRe    = regexp.MustCompile(`\b\d{4,}\b`)
)

// nameStopwords are common capitalized words that start false-positive
// name matches.
var nameStopwords = map[string]struct{}{
	"The": {}, "This": {}, "That": {}, "These": {}, "Those": {},
	"There": {}, "Dear": {}, "From": {}, "With": {}, "Case": {},
	"Client": {}, "Matter": {}, "File": {}, "Section": {}, "Article": {},
	"Part": {}, "Exhibit": {}, "Court": {}, "State": {}, "United": {},
}

// ExtractEntities parses an answer string into typed factual entities.
// Matchers run independently; near-duplicates are only removed within a
// single matcher. It never fails.
func ExtractEntities(answerText string) []Entity {
	if strings.TrimSpace(answerText) == "" {
		return nil
	}

	var entities []Entity
	entities = append(entities, extractNames(answerText)...)
	entities = append(entities, extractAges(answerText)...)
	entities = append(entities, extractDates(answerText)...)
	entities = append(entities, extractAmounts(answerText)...)
	entities = append(entities, extractReferences(answerText)...)
	entities = append(entities, extractNumbers(answerText)...)
	return entities
}

func extractNames(text string) []Entity {
	var out []Entity
	seen := map[string]struct{}{}
	for _, m := range nameRe.FindAllStringSubmatch(text, -1) {
		value := strings.TrimSpace(m[1])
		first := strings.Fields(value)[0]
		if _, stop := nameStopwords[first]; stop {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, Entity{Kind: KindName, Value: value, Context: strings.TrimSpace(m[0])})
	}
	return out
}

func extractAges(text string) []Entity {
	var out []Entity
	seen := map[string]struct{}{}
	for _, re := range []*regexp.Regexp{ageRe, yearsOldRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 || n >= 150 {
				continue
			}
			if _, dup := seen[m[1]]; dup {
				continue
			}
			seen[m[1]] = struct{}{}
			out = append(out, Entity{Kind: KindAge, Value: m[1], Context: m[0]})
		}
	}
	return out
}

func extractDates(text string) []Entity {
	var out []Entity
	seen := map[string]struct{}{}
	for _, re := range []*regexp.Regexp{longDateRe, slashDateRe, isoDateRe} {
		for _, m := range re.FindAllString(text, -1) {
			value := strings.TrimSpace(m)
			if _, dup := seen[value]; dup {
				continue
			}
			seen[value] = struct{}{}
			out = append(out, Entity{Kind: KindDate, Value: value, Context: m})
		}
	}
	return out
}

func extractAmounts(text string) []Entity {
	var out []Entity
	seen := map[string]struct{}{}
	for _, m := range amountRe.FindAllString(text, -1) {
		numeric := strings.NewReplacer("$", "", ",", "", " ", "").Replace(m)
		f, err := strconv.ParseFloat(numeric, 64)
		if err != nil || f <= 0 {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, Entity{Kind: KindAmount, Value: m, Context: m})
	}
	return out
}

func extractReferences(text string) []Entity {
	var out []Entity
	seen := map[string]struct{}{}
	for _, m := range referenceRe.FindAllStringSubmatch(text, -1) {
		token := m[1]
		if len(token) < 3 {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, Entity{Kind: KindReference, Value: token, Context: strings.TrimSpace(m[0])})
	}
	return out
}

// extractNumbers is the weak fallback signal: tokens near a reference
// keyword and bare digit runs.
func extractNumbers(text string) []Entity {
	var out []Entity
	seen := map[string]struct{}{}

	for _, m := range numberKeywordRe.FindAllStringSubmatch(text, -1) {
		token := m[1]
		if len(token) < 4 {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, Entity{Kind: KindNumber, Value: token, Context: strings.TrimSpace(m[0])})
	}

	for _, m := range bareDigitsRe.FindAllString(text, -1) {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, Entity{Kind: KindNumber, Value: m, Context: m})
	}
	return out
}
