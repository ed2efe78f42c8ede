package domain

import "context"

// Document is the extracted text of one upload. Sections are contiguous
// spans of text (for example PDF pages); chunks never overlap across them.
type Document struct {
	ID       string
	Source   string
	Sections []string
}

// Chunk is an ordered, bounded span of a document's text belonging to one
// index generation.
type Chunk struct {
	DocumentID string
	Generation uint64
	Sequence   int
	Section    int
	Offset     int
	Text       string
	Length     int
	Oversized  bool
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// RetrievalResult is the ranked outcome of one query, most relevant first.
type RetrievalResult struct {
	Generation uint64
	Results    []SearchResult
}

// Chunks drops the scores and returns the chunks in ranked order.
func (r RetrievalResult) Chunks() []Chunk {
	out := make([]Chunk, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Chunk
	}
	return out
}

// Embedder converts free text into a numeric vector representation.
// EmbedBatch returns one vector per input, in input order.
type Embedder interface {
	Name() string
	Dimension() int
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	EmbedOne(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits document sections into chunks suitable for indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// VectorIndex holds the (chunk, vector) pairs of exactly one generation and
// supports similarity search over them.
type VectorIndex interface {
	Reserve() uint64
	Build(generation uint64, chunks []Chunk, vectors [][]float64) error
	Search(vector []float64, topK int) ([]SearchResult, error)
	Generation() uint64
	Len() int
	// Stats reports generation and chunk count of one visible snapshot.
	Stats() (generation uint64, size int)
}

// Generator is an opaque text-completion service.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
