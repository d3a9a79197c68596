package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"strings"
	"unicode"
)

// StaticEmbedder produces deterministic embeddings from token hashes.
// It needs no network or model files, which makes it the offline fallback
// and the default provider in tests. Vectors are unit-normalized so cosine
// similarity behaves the same as with a real model.
type StaticEmbedder struct {
	dimensions int
}

// NewStaticEmbedder creates a static embedder with the given dimension.
func NewStaticEmbedder(dimensions int) *StaticEmbedder {
	if dimensions <= 0 {
		dimensions = StaticDimensions
	}
	return &StaticEmbedder{dimensions: dimensions}
}

// Embed generates a deterministic embedding for the text.
func (s *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, s.dimensions)

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vec, nil
	}

	for _, tok := range tokens {
		h := sha256.Sum256([]byte(tok))
		// Each token contributes to four buckets with hash-derived signs.
		for i := 0; i < 4; i++ {
			bucket := binary.LittleEndian.Uint32(h[i*8:]) % uint32(s.dimensions)
			sign := float32(1)
			if h[i*8+4]&1 == 1 {
				sign = -1
			}
			vec[bucket] += sign
		}
	}

	return normalizeVector(vec), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension.
func (s *StaticEmbedder) Dimensions() int {
	return s.dimensions
}

// ModelName returns the model identifier.
func (s *StaticEmbedder) ModelName() string {
	return "static-hash"
}

// Available always reports true.
func (s *StaticEmbedder) Available(_ context.Context) bool {
	return true
}

// Close releases resources.
func (s *StaticEmbedder) Close() error {
	return nil
}

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

var _ Embedder = (*StaticEmbedder)(nil)
