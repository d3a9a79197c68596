package consolidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veracite/veracite/internal/search"
)

func result(docID string, idx int, similarity float64, content string) search.Result {
	return search.Result{
		DocumentID:    docID,
		DocumentTitle: "Title " + docID,
		FileName:      docID + ".txt",
		Client:        "Acme Corp",
		Matter:        "M-100",
		Content:       content,
		Similarity:    similarity,
		ChunkIndex:    idx,
		Page:          1,
	}
}

const sampleContent = "The tenant shall maintain the premises in good condition throughout the term. Renewal requires written notice at least sixty days in advance. OK."

func TestConsolidate_GroupsByDocument(t *testing.T) {
	// Given: hits across two documents
	results := []search.Result{
		result("doc-a", 0, 0.9, sampleContent),
		result("doc-a", 1, 0.8, sampleContent),
		result("doc-b", 0, 0.75, sampleContent),
	}

	docs := Consolidate(results, "", "", DefaultOptions())

	require.Len(t, docs, 2)
	assert.Equal(t, "doc-a", docs[0].DocumentID)
	assert.Equal(t, "Title doc-a", docs[0].Title)
	assert.Equal(t, "Acme Corp", docs[0].Client)
}

func TestConsolidate_RelevanceBuckets(t *testing.T) {
	high := Consolidate([]search.Result{result("d", 0, 0.81, sampleContent)}, "", "", DefaultOptions())
	require.Len(t, high, 1)
	assert.Equal(t, RelevanceHigh, high[0].Relevance)

	medium := Consolidate([]search.Result{result("d", 0, 0.45, sampleContent)}, "", "", DefaultOptions())
	assert.Equal(t, RelevanceMedium, medium[0].Relevance)

	low := Consolidate([]search.Result{result("d", 0, 0.2, sampleContent)}, "", "", DefaultOptions())
	assert.Equal(t, RelevanceLow, low[0].Relevance)
}

func TestConsolidate_BoundaryMeanIsMedium(t *testing.T) {
	// Given: a group whose mean similarity is exactly 0.6
	results := []search.Result{
		result("d", 0, 0.5, sampleContent),
		result("d", 1, 0.7, sampleContent),
	}

	docs := Consolidate(results, "", "", DefaultOptions())

	// Then: the strict comparison puts it in Medium, not High
	require.Len(t, docs, 1)
	assert.Equal(t, RelevanceMedium, docs[0].Relevance)
}

func TestConsolidate_KeyPhraseFallback(t *testing.T) {
	// Given: no query or answer text
	docs := Consolidate([]search.Result{result("d", 0, 0.9, sampleContent)}, "", "", DefaultOptions())

	// Then: the first two sentences over 20 chars become excerpts with no score
	require.Len(t, docs, 1)
	require.Len(t, docs[0].Excerpts, 2)
	assert.Contains(t, docs[0].Excerpts[0].Text, "maintain the premises")
	assert.Contains(t, docs[0].Excerpts[1].Text, "Renewal requires")
	assert.Zero(t, docs[0].Excerpts[0].QueryRelevance)
}

func TestConsolidate_GroundedExcerptsCarryRelevance(t *testing.T) {
	// Given: an answer quoting the source
	answer := `The lease requires "written notice at least sixty days in advance" for renewal.`
	results := []search.Result{result("d", 0, 0.9, sampleContent)}

	docs := Consolidate(results, "renewal notice", answer, DefaultOptions())

	require.Len(t, docs, 1)
	require.NotEmpty(t, docs[0].Excerpts)
	assert.Contains(t, docs[0].Excerpts[0].Text, "written notice at least sixty days")
	assert.Greater(t, docs[0].Excerpts[0].QueryRelevance, 0.6)
}

func TestConsolidate_NeverMoreThanThreeExcerpts(t *testing.T) {
	long := ""
	for i := 0; i < 8; i++ {
		long += "The party of the first part shall indemnify the party of the second part. "
	}
	answer := `It repeats "party of the first part shall indemnify" throughout.`
	results := []search.Result{result("d", 0, 0.9, long)}

	docs := Consolidate(results, "indemnity", answer, DefaultOptions())

	require.Len(t, docs, 1)
	assert.LessOrEqual(t, len(docs[0].Excerpts), 3)
}

func TestConsolidate_OrdersByMeanSimilarity(t *testing.T) {
	results := []search.Result{
		result("doc-low", 0, 0.72, sampleContent),
		result("doc-high", 0, 0.95, sampleContent),
	}

	docs := Consolidate(results, "", "", DefaultOptions())

	require.Len(t, docs, 2)
	assert.Equal(t, "doc-high", docs[0].DocumentID)
	assert.Equal(t, "doc-low", docs[1].DocumentID)
}

func TestConsolidate_Empty(t *testing.T) {
	assert.Nil(t, Consolidate(nil, "q", "a", DefaultOptions()))
}
