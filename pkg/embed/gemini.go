package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiGateway embeds text through the Gemini embedding models.
type GeminiGateway struct {
	client *genai.Client
	apiKey string
	model  string
}

// NewGeminiGateway creates a Gemini embedding gateway. Client creation
// requires a context, so it is deferred to the first embedding call.
func NewGeminiGateway(apiKey, model string) *GeminiGateway {
	return &GeminiGateway{
		client: nil, // Created on first use
		apiKey: apiKey,
		model:  model,
	}
}

func (g *GeminiGateway) ensureClient(ctx context.Context) error {
	if g.client != nil {
		return nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini embedding client: %w", err)
	}
	g.client = client
	return nil
}

// EmbedText implements the Gateway interface.
func (g *GeminiGateway) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := g.ensureClient(ctx); err != nil {
		return nil, err
	}

	result, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(cleanText(text)), nil)
	if err != nil {
		return nil, fmt.Errorf("Gemini embedding call failed: %w", err)
	}
	if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("Gemini embedding response missing values")
	}

	return Normalize(result.Embeddings[0].Values), nil
}

// EmbedTexts implements the Gateway interface.
func (g *GeminiGateway) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := g.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vec)
	}
	return vectors, nil
}

// ModelName returns the embedding model identifier.
func (g *GeminiGateway) ModelName() string {
	return g.model
}
