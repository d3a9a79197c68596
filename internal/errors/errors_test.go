package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	// Given: a rate-limit error
	err := New(ErrCodeRateLimited, "embedding provider throttled", nil)

	// Then: category, severity and retryability follow the code
	assert.Equal(t, CategoryProvider, err.Category)
	assert.Equal(t, SeverityWarning, err.Severity)
	assert.True(t, err.Retryable)
	assert.Equal(t, "[ERR_304_RATE_LIMITED] embedding provider throttled", err.Error())
}

func TestEmptyCorpus_IsInformational(t *testing.T) {
	err := EmptyCorpus("no embeddings stored yet")

	assert.Equal(t, SeverityInfo, err.Severity)
	assert.Equal(t, CategoryValidation, err.Category)
	assert.False(t, err.Retryable)
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeNetworkUnavailable, cause)

	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeNetworkUnavailable, GetCode(err))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := New(ErrCodeQueryEmpty, "first", nil)
	b := New(ErrCodeQueryEmpty, "second", nil)
	c := New(ErrCodeProvider, "other", nil)

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}

func TestHasCode_ThroughWrappedChain(t *testing.T) {
	// Given: a VeraError buried under plain fmt wrapping
	inner := RateLimited("429 from provider", nil)
	outer := fmt.Errorf("embedding chunk 3: %w", inner)

	assert.True(t, IsRateLimited(outer))
	assert.True(t, IsRetryable(outer))
	assert.Equal(t, ErrCodeRateLimited, GetCode(outer))
}

func TestDimensionMismatch_Message(t *testing.T) {
	err := DimensionMismatch(1536, 768)

	assert.Equal(t, ErrCodeDimensionMismatch, err.Code)
	assert.Contains(t, err.Error(), "expected 1536, got 768")
	assert.False(t, err.Retryable)
}

func TestWithDetail_Chains(t *testing.T) {
	err := ProviderError("embed call failed", nil).
		WithDetail("document_id", "doc-1").
		WithDetail("chunk_index", "4")

	assert.Equal(t, "doc-1", err.Details["document_id"])
	assert.Equal(t, "4", err.Details["chunk_index"])
}

func TestCategoryFromCode_Buckets(t *testing.T) {
	assert.Equal(t, CategoryConfig, categoryFromCode(ErrCodeConfigInvalid))
	assert.Equal(t, CategoryIO, categoryFromCode(ErrCodeFileNotFound))
	assert.Equal(t, CategoryProvider, categoryFromCode(ErrCodeProvider))
	assert.Equal(t, CategoryValidation, categoryFromCode(ErrCodeQueryEmpty))
	assert.Equal(t, CategoryInternal, categoryFromCode(ErrCodeInternal))
	assert.Equal(t, CategoryInternal, categoryFromCode("bogus"))
}
