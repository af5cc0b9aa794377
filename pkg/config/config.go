// Package config provides configuration loading and validation for the report
// pipeline, knowledge store, and HTTP server. A Config is constructed once at
// process start and passed by reference to all consumers; there is no global
// mutable configuration state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Generation mode constants.
const (
	ModeTeam   = "team"
	ModeSimple = "simple"
)

// Provider name constants.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Default model identifiers.
const (
	DefaultGeminiModel     = "gemini-2.0-flash-001"
	DefaultOpenAIModel     = "gpt-4o"
	DefaultAnthropicModel  = "claude-sonnet-4-20250514"
	DefaultOllamaModel     = "llama3.1"
	DefaultEmbeddingModel  = "text-embedding-004"
	DefaultOllamaEmbedding = "nomic-embed-text"
)

// RetryConfig defines the retry policy for provider failures. The attempt cap
// is shared between network and rate-limit failures; fatal failures never
// consult this config.
type RetryConfig struct {
	MaxAttempts      int `json:"max_attempts"`
	NetworkWaitSec   int `json:"network_wait_sec"`
	RateLimitBaseSec int `json:"rate_limit_base_sec"`
}

// NetworkWait returns the fixed wait applied before retrying a network failure.
func (r RetryConfig) NetworkWait() time.Duration {
	return time.Duration(r.NetworkWaitSec) * time.Second
}

// RateLimitBase returns the base delay for exponential rate-limit backoff.
func (r RetryConfig) RateLimitBase() time.Duration {
	return time.Duration(r.RateLimitBaseSec) * time.Second
}

// ChunkerConfig controls how report text is split for embedding.
type ChunkerConfig struct {
	MaxChars     int `json:"max_chars"`
	OverlapChars int `json:"overlap_chars"`
}

// BatchConfig controls multi-subject batch runs.
type BatchConfig struct {
	CooldownSec         int `json:"cooldown_sec"`
	UnavailablePauseSec int `json:"unavailable_pause_sec"`
}

// Cooldown returns the inter-subject cooldown interval.
func (b BatchConfig) Cooldown() time.Duration {
	return time.Duration(b.CooldownSec) * time.Second
}

// UnavailablePause returns the pause applied after a provider-unavailable
// terminal failure when the operator chooses to continue the batch.
func (b BatchConfig) UnavailablePause() time.Duration {
	return time.Duration(b.UnavailablePauseSec) * time.Second
}

// ChatConfig bounds grounded question answering.
type ChatConfig struct {
	DefaultTopK      int `json:"default_top_k"`
	MaxTopK          int `json:"max_top_k"`
	MaxContextTokens int `json:"max_context_tokens"`
}

// ModelSelection names a provider and model for one capability.
type ModelSelection struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Config is the root configuration for the analyst process.
type Config struct {
	Generation ModelSelection `json:"generation"`
	Embedding  ModelSelection `json:"embedding"`
	Retry      RetryConfig    `json:"retry"`
	Chunker    ChunkerConfig  `json:"chunker"`
	Batch      BatchConfig    `json:"batch"`
	Chat       ChatConfig     `json:"chat"`
	ServerAddr string         `json:"server_addr"`
	DBPath     string         `json:"db_path"`
	OutputDir  string         `json:"output_dir"`
	OllamaHost string         `json:"ollama_host"`
	// PrometheusURL is only consulted by the usage query service.
	PrometheusURL string `json:"prometheus_url"`
}

// Default returns the built-in configuration. The retry and chunker values
// are the tuning the pipeline was validated with; override via config file
// when operating against a paid provider tier.
func Default() *Config {
	return &Config{
		Generation: ModelSelection{Provider: ProviderGemini, Model: DefaultGeminiModel},
		Embedding:  ModelSelection{Provider: ProviderGemini, Model: DefaultEmbeddingModel},
		Retry: RetryConfig{
			MaxAttempts:      3,
			NetworkWaitSec:   30,
			RateLimitBaseSec: 60,
		},
		Chunker: ChunkerConfig{
			MaxChars:     1100,
			OverlapChars: 150,
		},
		Batch: BatchConfig{
			CooldownSec:         90,
			UnavailablePauseSec: 300,
		},
		Chat: ChatConfig{
			DefaultTopK:      5,
			MaxTopK:          10,
			MaxContextTokens: 6000,
		},
		ServerAddr:    ":5000",
		DBPath:        "reports.db",
		OutputDir:     "reports/output",
		OllamaHost:    "http://localhost:11434",
		PrometheusURL: "http://localhost:9090",
	}
}

// Load reads a JSON config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.NetworkWaitSec < 0 || c.Retry.RateLimitBaseSec < 0 {
		return fmt.Errorf("retry waits must be non-negative")
	}
	if c.Chunker.MaxChars <= 0 {
		return fmt.Errorf("chunker.max_chars must be positive")
	}
	if c.Chunker.OverlapChars < 0 || c.Chunker.OverlapChars >= c.Chunker.MaxChars {
		return fmt.Errorf("chunker.overlap_chars must be in [0, max_chars)")
	}
	if c.Chat.DefaultTopK < 1 || c.Chat.MaxTopK < c.Chat.DefaultTopK {
		return fmt.Errorf("chat top_k bounds are inconsistent")
	}
	if c.Generation.Provider == "" || c.Embedding.Provider == "" {
		return fmt.Errorf("generation and embedding providers must be set")
	}
	return nil
}

// NormalizeMode maps user-supplied mode synonyms onto the canonical mode
// constants. Unrecognized values return an error; callers treat that as a
// client input error.
func NormalizeMode(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ModeTeam, "multi", "advanced", "full":
		return ModeTeam, nil
	case ModeSimple, "single", "lite":
		return ModeSimple, nil
	default:
		return "", fmt.Errorf("mode must be 'team' or 'simple', got %q", raw)
	}
}
