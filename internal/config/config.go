package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"docqa/internal/domain"
	"docqa/internal/prompt"
)

// ChunkerConfig configures how documents are split into chunks. Sizes are in
// characters (runes).
type ChunkerConfig struct {
	MaxSize   int  `yaml:"max_size"`
	Overlap   int  `yaml:"overlap"`
	HardSplit bool `yaml:"hard_split"`
}

// OpenAIConfig holds the connection settings shared by the OpenAI-compatible
// embedder and generator.
type OpenAIConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	MaxRetries  int     `yaml:"max_retries"`
	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type              string        `yaml:"type"`
	Dimension         int           `yaml:"dimension"`
	TimeoutSecs       int           `yaml:"timeout_secs"`
	BatchSize         int           `yaml:"batch_size"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	OpenAI            *OpenAIConfig `yaml:"openai,omitempty"`
}

// Timeout returns the per-call embedding timeout.
func (c EmbedderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RetrieverConfig configures query-time retrieval.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// PromptConfig configures prompt layout.
type PromptConfig struct {
	Instructions string `yaml:"instructions"`
	Delimiter    string `yaml:"delimiter"`
}

// MarshalYAML double-quotes both values. A whitespace-only delimiter written
// as a block scalar would not read back unchanged.
func (c PromptConfig) MarshalYAML() (any, error) {
	str := func(v string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v, Style: yaml.DoubleQuotedStyle}
	}
	return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		str("instructions"), str(c.Instructions),
		str("delimiter"), str(c.Delimiter),
	}}, nil
}

// GeneratorConfig selects the answer generation service.
type GeneratorConfig struct {
	Type        string        `yaml:"type"`
	TimeoutSecs int           `yaml:"timeout_secs"`
	OpenAI      *OpenAIConfig `yaml:"openai,omitempty"`
}

// Timeout returns the generation timeout.
func (c GeneratorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Retriever  RetrieverConfig  `yaml:"retriever"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidConfiguration, path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports inconsistent settings as domain.ErrInvalidConfiguration.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Chunker.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("chunker.max_size must be positive, got %d", c.Chunker.MaxSize))
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.MaxSize {
		errs = append(errs, fmt.Errorf("chunker.overlap must be in [0, max_size), got %d", c.Chunker.Overlap))
	}
	switch c.Embedder.Type {
	case "hashing", "openai":
	default:
		errs = append(errs, fmt.Errorf("unknown embedder.type %q", c.Embedder.Type))
	}
	if c.Embedder.Dimension < 0 {
		errs = append(errs, fmt.Errorf("embedder.dimension must not be negative"))
	}
	if c.Embedder.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("embedder.requests_per_second must not be negative"))
	}
	switch c.Generator.Type {
	case "none", "openai":
	default:
		errs = append(errs, fmt.Errorf("unknown generator.type %q", c.Generator.Type))
	}
	switch c.Summarizer.Type {
	case "none", "frequency":
	default:
		errs = append(errs, fmt.Errorf("unknown summarizer.type %q", c.Summarizer.Type))
	}
	if c.Retriever.TopK < 1 {
		errs = append(errs, fmt.Errorf("retriever.top_k must be at least 1, got %d", c.Retriever.TopK))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, errors.Join(errs...))
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

// Default returns the built-in configuration: local hashing embeddings and
// no generation service.
func Default() *AppConfig {
	cfg := &AppConfig{
		Chunker:    ChunkerConfig{MaxSize: 500, Overlap: 50},
		Embedder:   EmbedderConfig{Type: "hashing"},
		Generator:  GeneratorConfig{Type: "none"},
		Summarizer: SummarizerConfig{Type: "frequency"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.MaxSize == 0 {
		cfg.Chunker.MaxSize = 500
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = 50
		}
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Type == "hashing" && cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 512
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 32
	}
	if cfg.Embedder.Concurrency == 0 {
		cfg.Embedder.Concurrency = 4
	}
	if cfg.Embedder.Type == "openai" {
		cfg.Embedder.OpenAI = openAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small")
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 4
	}
	if cfg.Prompt.Instructions == "" {
		cfg.Prompt.Instructions = prompt.DefaultInstructions
	}
	if cfg.Prompt.Delimiter == "" {
		cfg.Prompt.Delimiter = prompt.DefaultDelimiter
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "none"
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 60
	}
	if cfg.Generator.Type == "openai" {
		cfg.Generator.OpenAI = openAIDefaults(cfg.Generator.OpenAI, "gpt-4o-mini")
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 3
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5000"
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 20
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func openAIDefaults(c *OpenAIConfig, model string) *OpenAIConfig {
	if c == nil {
		c = &OpenAIConfig{}
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	return c
}
