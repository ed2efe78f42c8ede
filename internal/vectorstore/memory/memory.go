// Package memory provides an in-memory vector index that publishes each
// generation as an immutable snapshot.
package memory

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sync/atomic"

	"docqa/internal/domain"
)

// snapshot is one complete generation. It is never mutated after publication.
type snapshot struct {
	generation uint64
	dimension  int
	chunks     []domain.Chunk
	vectors    [][]float64
	norms      []float64
}

// Index is a brute-force cosine index. Searches load the current snapshot
// once and take no locks; Build prepares a new snapshot off to the side and
// swaps it in only if its generation is newer than the visible one.
type Index struct {
	current atomic.Pointer[snapshot]
	next    atomic.Uint64
}

var _ domain.VectorIndex = (*Index)(nil)

func NewIndex() *Index { return &Index{} }

// Reserve allocates the next generation id. Ids are strictly increasing.
func (x *Index) Reserve() uint64 { return x.next.Add(1) }

// Build replaces the index contents with the given generation. It returns
// domain.ErrGenerationSuperseded, leaving the index untouched, when an equal
// or newer generation is already visible.
func (x *Index) Build(generation uint64, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) == 0 {
		return domain.ErrEmptyIndex
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrDimensionMismatch, len(chunks), len(vectors))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrDimensionMismatch)
	}
	snap := &snapshot{
		generation: generation,
		dimension:  dim,
		chunks:     make([]domain.Chunk, len(chunks)),
		vectors:    make([][]float64, len(vectors)),
		norms:      make([]float64, len(vectors)),
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has length %d, expected %d", domain.ErrDimensionMismatch, i, len(v), dim)
		}
		snap.vectors[i] = slices.Clone(v)
		snap.norms[i] = norm(v)
		snap.chunks[i] = chunks[i]
		snap.chunks[i].Generation = generation
	}

	for {
		cur := x.current.Load()
		if cur != nil && cur.generation >= generation {
			return fmt.Errorf("%w: generation %d is older than visible %d", domain.ErrGenerationSuperseded, generation, cur.generation)
		}
		if x.current.CompareAndSwap(cur, snap) {
			break
		}
	}
	// keep Reserve ahead of generations built with ids it never handed out
	for {
		n := x.next.Load()
		if n >= generation || x.next.CompareAndSwap(n, generation) {
			return nil
		}
	}
}

// Search returns the topK chunks most similar to vector by cosine
// similarity, ties broken by ascending sequence index.
func (x *Index) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidArgument, topK)
	}
	snap := x.current.Load()
	if snap == nil {
		return nil, domain.ErrIndexNotBuilt
	}
	if len(vector) != snap.dimension {
		return nil, fmt.Errorf("%w: query has length %d, index has %d", domain.ErrDimensionMismatch, len(vector), snap.dimension)
	}

	qn := norm(vector)
	scores := make([]float64, len(snap.vectors))
	for i, v := range snap.vectors {
		if qn == 0 || snap.norms[i] == 0 {
			continue
		}
		scores[i] = dot(v, vector) / (qn * snap.norms[i])
	}

	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	slices.SortFunc(idxs, func(a, b int) int {
		if c := cmp.Compare(scores[b], scores[a]); c != 0 {
			return c
		}
		return cmp.Compare(snap.chunks[a].Sequence, snap.chunks[b].Sequence)
	})

	n := min(topK, len(idxs))
	results := make([]domain.SearchResult, n)
	for i := 0; i < n; i++ {
		j := idxs[i]
		results[i] = domain.SearchResult{Chunk: snap.chunks[j], Score: scores[j]}
	}
	return results, nil
}

// Generation reports the visible generation, 0 before the first build.
func (x *Index) Generation() uint64 {
	if snap := x.current.Load(); snap != nil {
		return snap.generation
	}
	return 0
}

// Len reports the number of chunks in the visible generation.
func (x *Index) Len() int {
	if snap := x.current.Load(); snap != nil {
		return len(snap.chunks)
	}
	return 0
}

// Stats reports the visible generation and its chunk count, read from the
// same snapshot.
func (x *Index) Stats() (uint64, int) {
	if snap := x.current.Load(); snap != nil {
		return snap.generation, len(snap.chunks)
	}
	return 0, 0
}

// Dimension reports the vector length of the visible generation.
func (x *Index) Dimension() int {
	if snap := x.current.Load(); snap != nil {
		return snap.dimension
	}
	return 0
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(v []float64) float64 { return math.Sqrt(dot(v, v)) }
