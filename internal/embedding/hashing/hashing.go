package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"slices"

	"docqa/internal/domain"
	"docqa/internal/textutil"
)

// DefaultDimension is the vector length used when none is configured.
const DefaultDimension = 512

// Embedder implements a local feature-hashing vectorizer.
// Each non-stopword term is hashed into one of dimension signed buckets and
// weighted by sublinear term frequency; vectors are L2-normalized. No corpus
// preparation is needed, so the dimension is fixed by configuration and the
// output depends only on the input text.
type Embedder struct {
	dimension int
}

var _ domain.Embedder = (*Embedder)(nil)

// NewEmbedder creates a hashing embedder; non-positive dimensions fall back
// to DefaultDimension.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// EmbedOne computes the embedding for the given text. Text without any
// content term embeds to the zero vector.
func (e *Embedder) EmbedOne(_ context.Context, text string) ([]float64, error) {
	return e.embed(text), nil
}

// EmbedBatch embeds each text in order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *Embedder) embed(text string) []float64 {
	vec := make([]float64, e.dimension)
	tf := make(map[string]int)
	for _, tok := range textutil.Terms(text) {
		tf[tok]++
	}
	if len(tf) == 0 {
		return vec
	}
	// sorted so colliding buckets always sum in the same order
	terms := make([]string, 0, len(tf))
	for term := range tf {
		terms = append(terms, term)
	}
	slices.Sort(terms)
	for _, term := range terms {
		idx, sign := e.bucket(term)
		vec[idx] += sign * (1 + math.Log(float64(tf[term])))
	}
	// L2 normalize
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func (e *Embedder) bucket(term string) (int, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(term))
	sum := h.Sum64()
	sign := 1.0
	if sum>>63 == 1 {
		sign = -1.0
	}
	return int(sum % uint64(e.dimension)), sign
}
