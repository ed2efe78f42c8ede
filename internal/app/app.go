// Package app builds the pipeline components selected by the configuration.
package app

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/embedding/hashing"
	embopenai "docqa/internal/embedding/openai"
	genopenai "docqa/internal/generation/openai"
	"docqa/internal/prompt"
	"docqa/internal/service"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore/memory"
)

// NewService assembles a Service from cfg.
func NewService(cfg *config.AppConfig, log *zap.Logger) (*service.Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ch, err := chunker.NewBoundaryChunker(cfg.Chunker.MaxSize, cfg.Chunker.Overlap, chunker.WithHardSplit(cfg.Chunker.HardSplit))
	if err != nil {
		return nil, err
	}
	emb, err := NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	gen, err := NewGenerator(cfg.Generator)
	if err != nil {
		return nil, err
	}
	var sum domain.Summarizer
	if cfg.Summarizer.Type == "frequency" {
		sum = summarizer.NewFrequencySummarizer()
	}
	log.Info("pipeline configured",
		zap.Int("chunk_size", cfg.Chunker.MaxSize),
		zap.Int("chunk_overlap", cfg.Chunker.Overlap),
		zap.String("embedder", emb.Name()),
		zap.Bool("generator", gen != nil))

	return service.New(ch, emb, memory.NewIndex(),
		prompt.NewAssembler(cfg.Prompt.Instructions, cfg.Prompt.Delimiter),
		service.Options{
			Generator:        gen,
			Summarizer:       sum,
			SummarySentences: cfg.Summarizer.MaxSentences,
			Logger:           log,
		}), nil
}

// NewEmbedder returns the configured backend wrapped in an embedding.Guard.
func NewEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	var backend domain.Embedder
	switch cfg.Type {
	case "hashing":
		backend = hashing.NewEmbedder(cfg.Dimension)
	case "openai":
		oc := cfg.OpenAI
		if oc == nil {
			oc = &config.OpenAIConfig{}
		}
		c, err := embopenai.NewClient(embopenai.Config{
			BaseURL:    oc.BaseURL,
			APIKeyEnv:  oc.APIKeyEnv,
			Model:      oc.Model,
			Timeout:    cfg.Timeout(),
			MaxRetries: oc.MaxRetries,
			Dimension:  cfg.Dimension,
		})
		if err != nil {
			return nil, err
		}
		backend = c
	default:
		return nil, fmt.Errorf("%w: unknown embedder type %q", domain.ErrInvalidConfiguration, cfg.Type)
	}
	return embedding.NewGuard(backend, embedding.Config{
		Timeout:           cfg.Timeout(),
		BatchSize:         cfg.BatchSize,
		Concurrency:       cfg.Concurrency,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}), nil
}

// NewGenerator returns nil when no generation service is configured.
func NewGenerator(cfg config.GeneratorConfig) (domain.Generator, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "openai":
		oc := cfg.OpenAI
		if oc == nil {
			oc = &config.OpenAIConfig{}
		}
		g, err := genopenai.NewGenerator(genopenai.Config{
			BaseURL:     oc.BaseURL,
			APIKeyEnv:   oc.APIKeyEnv,
			Model:       oc.Model,
			Timeout:     cfg.Timeout(),
			MaxRetries:  oc.MaxRetries,
			Temperature: oc.Temperature,
			MaxTokens:   oc.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: unknown generator type %q", domain.ErrInvalidConfiguration, cfg.Type)
	}
}

// NewLogger builds a production JSON logger, or a console logger when
// development is set, at the given level. Output goes to stderr unless paths
// are given.
func NewLogger(level string, development bool, paths ...string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: log level: %w", domain.ErrInvalidConfiguration, err)
	}
	zc := zap.NewProductionConfig()
	if development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	if len(paths) > 0 {
		zc.OutputPaths = paths
		zc.ErrorOutputPaths = paths
	}
	return zc.Build()
}
