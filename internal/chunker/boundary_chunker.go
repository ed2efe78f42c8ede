// Package chunker splits document text into ordered, overlapping chunks that
// prefer to end on paragraph, sentence or word boundaries.
package chunker

import (
	"fmt"
	"unicode"

	"docqa/internal/domain"
)

// Defaults used when no configuration is given.
const (
	DefaultMaxSize = 500
	DefaultOverlap = 50
)

type boundaryClass int8

const (
	noBoundary boundaryClass = iota
	wordBoundary
	sentenceBoundary
	paragraphBoundary
)

// BoundaryChunker cuts text into chunks of at most maxSize runes. Consecutive
// chunks of one section share exactly overlap runes.
//
// A chunk is longer than maxSize only when its window contains no boundary
// past the overlap region, i.e. a single unbreakable token. Such chunks run to
// the next boundary and are flagged Oversized, unless hard splitting is on.
type BoundaryChunker struct {
	maxSize   int
	overlap   int
	hardSplit bool
}

// Option configures a BoundaryChunker.
type Option func(*BoundaryChunker)

// WithHardSplit cuts unbreakable tokens at maxSize instead of emitting an
// oversized chunk.
func WithHardSplit(enabled bool) Option {
	return func(c *BoundaryChunker) { c.hardSplit = enabled }
}

// NewBoundaryChunker validates maxSize > overlap >= 0.
func NewBoundaryChunker(maxSize, overlap int, opts ...Option) (*BoundaryChunker, error) {
	if overlap < 0 || maxSize <= overlap {
		return nil, fmt.Errorf("%w: chunk size %d must exceed overlap %d >= 0", domain.ErrInvalidConfiguration, maxSize, overlap)
	}
	c := &BoundaryChunker{maxSize: maxSize, overlap: overlap}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Split is a convenience for chunking a single continuous text.
func Split(text string, maxSize, overlap int) ([]domain.Chunk, error) {
	c, err := NewBoundaryChunker(maxSize, overlap)
	if err != nil {
		return nil, err
	}
	return c.Split(text), nil
}

// Chunk splits every section of the document and stamps the document ID.
func (c *BoundaryChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	chunks := c.SplitSections(document.Sections)
	for i := range chunks {
		chunks[i].DocumentID = document.ID
	}
	return chunks, nil
}

// Split chunks one continuous text.
func (c *BoundaryChunker) Split(text string) []domain.Chunk {
	return c.SplitSections([]string{text})
}

// SplitSections chunks each section independently. Sequence numbers run
// across sections; overlap does not.
func (c *BoundaryChunker) SplitSections(sections []string) []domain.Chunk {
	var chunks []domain.Chunk
	for sec, text := range sections {
		runes := []rune(text)
		for _, sp := range c.spans(runes) {
			chunks = append(chunks, domain.Chunk{
				Sequence:  len(chunks),
				Section:   sec,
				Offset:    sp.start,
				Text:      string(runes[sp.start:sp.end]),
				Length:    sp.end - sp.start,
				Oversized: sp.oversized,
			})
		}
	}
	return chunks
}

type span struct {
	start, end int
	oversized  bool
}

func (c *BoundaryChunker) spans(runes []rune) []span {
	n := len(runes)
	if n == 0 {
		return nil
	}
	classes := classify(runes)
	var out []span
	start := 0
	for {
		if n-start <= c.maxSize {
			out = append(out, span{start: start, end: n})
			return out
		}
		lo, hi := start+c.overlap, start+c.maxSize
		end, best := -1, noBoundary
		for p := lo + 1; p <= hi; p++ {
			if classes[p] != noBoundary && classes[p] >= best {
				end, best = p, classes[p]
			}
		}
		oversized := false
		if end < 0 {
			if c.hardSplit {
				end = hi
			} else {
				end = n
				for p := hi + 1; p < n; p++ {
					if classes[p] != noBoundary {
						end = p
						break
					}
				}
				oversized = end-start > c.maxSize
			}
		}
		out = append(out, span{start: start, end: end, oversized: oversized})
		if end >= n {
			return out
		}
		start = end - c.overlap
	}
}

// classify marks every position that starts a new token after whitespace.
// The whitespace stays with the earlier chunk.
func classify(runes []rune) []boundaryClass {
	classes := make([]boundaryClass, len(runes)+1)
	for i := 0; i < len(runes); {
		if !unicode.IsSpace(runes[i]) {
			i++
			continue
		}
		j, newlines := i, 0
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			if runes[j] == '\n' {
				newlines++
			}
			j++
		}
		if i > 0 && j < len(runes) {
			switch {
			case newlines >= 2:
				classes[j] = paragraphBoundary
			case isTerminator(runes[i-1]):
				classes[j] = sentenceBoundary
			default:
				classes[j] = wordBoundary
			}
		}
		i = j
	}
	return classes
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
