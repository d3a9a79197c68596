package cite

import (
	"regexp"
	"strings"
)

var (
	sectionHeadingRe  = regexp.MustCompile(`(?i)\b(section|article|part)\s+([0-9]+(?:\.[0-9]+)*|[IVXLC]+|[A-Z])\s*[:.]`)
	numberedHeadingRe = regexp.MustCompile(`(?m)^\s*([0-9]+(?:\.[0-9]+)*)[.)]?\s+[A-Z]`)
)

// DetectSection finds a best-effort section label in the chunk's full text.
// Returns "" when nothing resembling a heading is present.
func DetectSection(chunkText string) string {
	if m := sectionHeadingRe.FindStringSubmatch(chunkText); m != nil {
		label := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])
		return label + " " + m[2]
	}
	if m := numberedHeadingRe.FindStringSubmatch(chunkText); m != nil {
		return "Section " + m[1]
	}
	return ""
}
