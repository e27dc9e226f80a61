// Package hashing implements an offline docrag.EmbeddingProvider using the
// hashing trick: each lowercase word token and each adjacent token pair is
// hashed with xxhash into one of N buckets with a sign derived from the
// hash, and the resulting vector is L2-normalized.
//
// The vectors are deterministic and need no network or model, so they suit
// tests, demos and air-gapped setups. Texts that share vocabulary end up
// close in cosine distance; there is no semantic generalization.
package hashing

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/nevindra/docrag"
)

// DefaultDimensions is the vector size used when New is given dims <= 0.
const DefaultDimensions = 384

// Embedding is a feature-hashing embedder. It is stateless and safe for
// concurrent use.
type Embedding struct {
	dims int
}

var _ docrag.EmbeddingProvider = (*Embedding)(nil)

// New creates a hashing embedder producing vectors of size dims.
func New(dims int) *Embedding {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedding{dims: dims}
}

// Name returns "hashing".
func (e *Embedding) Name() string { return "hashing" }

// Dimensions returns the vector size.
func (e *Embedding) Dimensions() int { return e.dims }

// Embed returns one vector per text. Texts without any word token map to the
// zero vector.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *Embedding) vector(text string) []float32 {
	acc := make([]float64, e.dims)
	tokens := tokenize(text)
	for i, tok := range tokens {
		e.add(acc, tok, 1)
		if i > 0 {
			e.add(acc, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, e.dims)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (e *Embedding) add(acc []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	bucket := h % uint64(e.dims)
	if h>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}

// tokenize lowercases text and splits it into runs of letters and digits.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
