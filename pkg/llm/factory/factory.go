// Package factory constructs LLM clients from configuration, resolving
// provider API keys from the environment.
package factory

import (
	"fmt"

	"analyst/pkg/config"
	"analyst/pkg/llm"
	"analyst/pkg/llm/anthropic"
	"analyst/pkg/llm/gemini"
	"analyst/pkg/llm/ollamaclient"
	"analyst/pkg/llm/openai"
)

// NewGenerationClient builds the raw generation client selected by the
// configuration. Middleware (metrics, retry) is applied by callers.
func NewGenerationClient(cfg *config.Config) (llm.Client, error) {
	sel := cfg.Generation
	switch sel.Provider {
	case config.ProviderGemini:
		key, err := config.GoogleAPIKey(true)
		if err != nil {
			return nil, err
		}
		return gemini.NewClient(key, sel.Model), nil
	case config.ProviderOpenAI:
		key, err := config.OpenAIAPIKey(true)
		if err != nil {
			return nil, err
		}
		return openai.NewClient(key, sel.Model), nil
	case config.ProviderAnthropic:
		key, err := config.AnthropicAPIKey(true)
		if err != nil {
			return nil, err
		}
		return anthropic.NewClient(key, sel.Model), nil
	case config.ProviderOllama:
		return ollamaclient.NewClient(cfg.OllamaHost, sel.Model), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", sel.Provider)
	}
}
