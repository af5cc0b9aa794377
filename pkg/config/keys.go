package config

import (
	"fmt"
	"os"
)

// API keys are read from the environment rather than the config file so that
// config files stay safe to commit. Several historical variable names are
// honored for each provider; the first non-empty one wins.

var googleKeyCandidates = []string{
	"GOOGLE_API_KEY",
	"GEMINI_API_KEY",
	"google_api_key",
}

var openAIKeyCandidates = []string{
	"OPENAI_API_KEY",
	"openai_api_key",
}

var anthropicKeyCandidates = []string{
	"ANTHROPIC_API_KEY",
	"anthropic_api_key",
}

func firstNonEmpty(names []string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}

// GoogleAPIKey returns the Google API key from the environment.
func GoogleAPIKey(required bool) (string, error) {
	key := firstNonEmpty(googleKeyCandidates)
	if required && key == "" {
		return "", fmt.Errorf("missing Google API key: set one of GOOGLE_API_KEY, GEMINI_API_KEY")
	}
	return key, nil
}

// OpenAIAPIKey returns the OpenAI API key from the environment.
func OpenAIAPIKey(required bool) (string, error) {
	key := firstNonEmpty(openAIKeyCandidates)
	if required && key == "" {
		return "", fmt.Errorf("missing OpenAI API key: set OPENAI_API_KEY")
	}
	return key, nil
}

// AnthropicAPIKey returns the Anthropic API key from the environment.
func AnthropicAPIKey(required bool) (string, error) {
	key := firstNonEmpty(anthropicKeyCandidates)
	if required && key == "" {
		return "", fmt.Errorf("missing Anthropic API key: set ANTHROPIC_API_KEY")
	}
	return key, nil
}
