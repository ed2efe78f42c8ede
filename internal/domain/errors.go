package domain

import "errors"

// Pipeline errors. Adapters match them with errors.Is or translate them
// through Code; messages are not part of the contract.
var (
	// ErrInvalidConfiguration indicates bad chunker or service parameters.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidArgument indicates a malformed request such as k < 1.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmbeddingUnavailable indicates the embedding model could not be
	// reached, failed, timed out or returned malformed vectors.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrEmptyIndex indicates a build was attempted with zero chunks.
	ErrEmptyIndex = errors.New("empty index")

	// ErrIndexNotBuilt indicates a search before the first successful build.
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrDimensionMismatch indicates vectors of different lengths were mixed.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrGenerationSuperseded indicates a newer generation was committed
	// while this build was in flight; the stale build is discarded.
	ErrGenerationSuperseded = errors.New("generation superseded")

	// ErrUnsupportedFormat indicates the extractor cannot read a file type.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// Generation service errors.

	// ErrGenerationUnavailable indicates no generation service is configured.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrGenerationFailed indicates the generation service returned an error.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrEmptyAnswer indicates the generation service returned no text.
	ErrEmptyAnswer = errors.New("empty answer")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidConfiguration, "invalid_configuration"},
	{ErrInvalidArgument, "invalid_argument"},
	{ErrEmbeddingUnavailable, "embedding_unavailable"},
	{ErrEmptyIndex, "empty_index"},
	{ErrIndexNotBuilt, "index_not_built"},
	{ErrDimensionMismatch, "dimension_mismatch"},
	{ErrGenerationSuperseded, "generation_superseded"},
	{ErrUnsupportedFormat, "unsupported_format"},
	{ErrGenerationUnavailable, "generation_unavailable"},
	{ErrGenerationFailed, "generation_failed"},
	{ErrEmptyAnswer, "empty_answer"},
}

// Code returns the stable failure signal for err, "" for nil and
// "internal" for errors outside the pipeline's vocabulary.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
