// Package retriever turns a query string into the most relevant chunks of
// the visible index generation.
package retriever

import (
	"context"
	"fmt"

	"docqa/internal/domain"
)

// Retriever couples an embedder with the index it was built for.
type Retriever struct {
	embedder domain.Embedder
	index    domain.VectorIndex
}

func New(embedder domain.Embedder, index domain.VectorIndex) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve embeds query and searches the index for the k best chunks. Errors
// from either step are returned unchanged. An empty query is embedded like
// any other text.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error) {
	if k < 1 {
		return domain.RetrievalResult{}, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidArgument, k)
	}
	vec, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return domain.RetrievalResult{}, err
	}
	results, err := r.index.Search(vec, k)
	if err != nil {
		return domain.RetrievalResult{}, err
	}
	res := domain.RetrievalResult{Results: results}
	if len(results) > 0 {
		res.Generation = results[0].Chunk.Generation
	} else {
		res.Generation = r.index.Generation()
	}
	return res, nil
}
