// Package embed provides the embedding gateway: a fixed-dimension vector per
// text, L2-normalized on receipt so similarity reduces to a dot product.
// Gateways are explicit client objects constructed once at process start and
// passed to consumers; there is no lazily configured global client.
package embed

import (
	"context"
	"fmt"
	"math"
	"strings"

	"analyst/pkg/config"
)

// normFloor avoids division by zero when normalizing a degenerate vector.
const normFloor = 1e-12

// Gateway produces embedding vectors for text. Implementations must return
// vectors of a consistent dimensionality for a given model.
type Gateway interface {
	// EmbedText embeds a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts embeds a batch of texts, preserving order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName returns the embedding model identifier.
	ModelName() string
}

// Normalize L2-normalizes a vector in place and returns it. Norms below the
// floor are clamped so the zero vector stays finite.
func Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm < normFloor {
		norm = normFloor
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// cleanText substitutes a single space for empty input; embedding providers
// reject empty strings.
func cleanText(text string) string {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return " "
	}
	return cleaned
}

// NewGateway builds the embedding gateway selected by the configuration.
func NewGateway(cfg *config.Config) (Gateway, error) {
	sel := cfg.Embedding
	switch sel.Provider {
	case config.ProviderGemini:
		key, err := config.GoogleAPIKey(true)
		if err != nil {
			return nil, err
		}
		return NewGeminiGateway(key, sel.Model), nil
	case config.ProviderOllama:
		return NewOllamaGateway(cfg.OllamaHost, sel.Model), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", sel.Provider)
	}
}
