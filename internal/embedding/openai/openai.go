package openai

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"docqa/internal/domain"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultKeyEnv  = "OPENAI_API_KEY"
)

// Client is an OpenAI-compatible embeddings client implementing the Embedder interface.
type Client struct {
	api       openai.Client
	model     string
	dimension atomic.Int64
	requested int
}

var _ domain.Embedder = (*Client)(nil)

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	// Dimension asks text-embedding-3 models for shorter vectors; zero keeps
	// the model default, learned from the first response.
	Dimension int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = DefaultKeyEnv
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrInvalidConfiguration, cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	c := &Client{
		api: openai.NewClient(
			option.WithAPIKey(key),
			option.WithBaseURL(cfg.BaseURL),
			option.WithRequestTimeout(cfg.Timeout),
			option.WithMaxRetries(cfg.MaxRetries),
		),
		model:     cfg.Model,
		requested: cfg.Dimension,
	}
	c.dimension.Store(int64(cfg.Dimension))
	return c, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the dimensionality of the produced embedding vectors, or
// zero before the first response when none was configured.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

// EmbedOne returns an embedding vector for the given text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in a single request. The response is reordered
// by its index field, so vectors line up with texts.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	}
	if c.requested > 0 {
		params.Dimensions = openai.Int(int64(c.requested))
	}
	resp, err := c.api.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) || out[d.Index] != nil {
			return nil, fmt.Errorf("openai embeddings: bad index %d in response", d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("openai embeddings: empty vector at index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	dim := int64(len(out[0]))
	for i, v := range out {
		if int64(len(v)) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d values, expected %d", domain.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	c.dimension.CompareAndSwap(0, dim)
	return out, nil
}
