package embed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// OllamaGateway embeds text through a local Ollama server.
type OllamaGateway struct {
	client *api.Client
	model  string
}

// NewOllamaGateway creates an Ollama embedding gateway.
func NewOllamaGateway(hostURL, model string) *OllamaGateway {
	parsedURL, err := url.Parse(hostURL)
	if err != nil {
		parsedURL, _ = url.Parse("http://localhost:11434")
	}

	return &OllamaGateway{
		client: api.NewClient(parsedURL, http.DefaultClient),
		model:  model,
	}
}

// EmbedText implements the Gateway interface.
func (o *OllamaGateway) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts implements the Gateway interface.
func (o *OllamaGateway) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	cleaned := make([]string, len(texts))
	for i, text := range texts {
		cleaned[i] = cleanText(text)
	}

	resp, err := o.client.Embed(ctx, &api.EmbedRequest{
		Model: o.model,
		Input: cleaned,
	})
	if err != nil {
		return nil, fmt.Errorf("Ollama embedding call failed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("Ollama embedding response has %d vectors, want %d", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, vec := range resp.Embeddings {
		vectors[i] = Normalize(vec)
	}
	return vectors, nil
}

// ModelName returns the embedding model identifier.
func (o *OllamaGateway) ModelName() string {
	return o.model
}
