// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder is a deterministic local embedder: each token is hashed
// into a bucket of the vector, and the result is L2-normalized. It
// carries no semantic knowledge and exists for offline operation and
// tests, where reproducibility matters more than embedding quality.
type HashEmbedder struct {
	// Dimensions is the vector width. Zero uses 768.
	Dimensions int
}

// EmbedText returns the token-hash vector for text. Identical input
// always yields an identical vector.
func (e *HashEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	dims := e.Dimensions
	if dims <= 0 {
		dims = 768
	}

	vec := make([]float32, dims)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(dims)] += 1.0
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1.0 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
