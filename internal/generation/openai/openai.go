// Package openai generates answers through an OpenAI-compatible chat
// completions endpoint.
package openai

import (
	"context"
	"fmt"
	"os"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"docqa/internal/domain"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultKeyEnv  = "OPENAI_API_KEY"
	DefaultTimeout = 60 * time.Second
)

// Config configures the chat completions client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
	MaxTokens   int
}

// Generator sends the assembled prompt as a single user message.
type Generator struct {
	api     openai.Client
	model   string
	timeout time.Duration
	temp    float64
	maxTok  int
}

var _ domain.Generator = (*Generator)(nil)

// NewGenerator reads the API key from cfg.APIKeyEnv.
func NewGenerator(cfg Config) (*Generator, error) {
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
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Generator{
		api: openai.NewClient(
			option.WithAPIKey(key),
			option.WithBaseURL(cfg.BaseURL),
			option.WithMaxRetries(cfg.MaxRetries),
		),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		temp:    cfg.Temperature,
		maxTok:  cfg.MaxTokens,
	}, nil
}

// Name returns the identifier of this generator implementation.
func (g *Generator) Name() string { return "openai" }

// Generate returns the content of the first choice. The whole call, retries
// included, is bounded by the configured timeout.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	}
	if g.temp > 0 {
		params.Temperature = openai.Float(g.temp)
	}
	if g.maxTok > 0 {
		params.MaxCompletionTokens = openai.Int(int64(g.maxTok))
	}
	resp, err := g.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
