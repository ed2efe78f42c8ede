package summarizer

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/textutil"
)

// DefaultMaxSentences is used when the caller asks for a non-positive count.
const DefaultMaxSentences = 5

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered).
type FrequencySummarizer struct{}

var _ domain.Summarizer = (*FrequencySummarizer)(nil)

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer { return &FrequencySummarizer{} }

// Summarize returns the highest scoring sentences in document order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	sentences := textutil.Sentences(text)
	if len(sentences) == 0 {
		return "", nil
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range textutil.Terms(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, sent := range sentences {
		words := textutil.Words(sent)
		score := 0.0
		for _, tok := range words {
			score += freq[tok]
		}
		// normalize by sentence length to avoid bias toward long sentences
		if l := float64(len(words)); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = pair{i, score}
	}
	slices.SortStableFunc(scores, func(a, b pair) int { return cmp.Compare(b.score, a.score) })

	n := min(maxSentences, len(scores))
	selected := make([]int, n)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	slices.Sort(selected)
	out := make([]string, n)
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}
