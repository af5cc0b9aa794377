// Package gemini provides the Google Gemini client implementation for the llm.Client interface.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"analyst/pkg/llm"
)

// Client wraps the Google GenAI client to implement llm.Client.
type Client struct {
	client *genai.Client
	apiKey string
	model  string
}

// NewClient creates a new Gemini client (raw client, middleware applied at
// higher level). Client creation requires a context, so it is deferred to the
// first Complete call.
func NewClient(apiKey, model string) llm.Client {
	return &Client{
		client: nil, // Created on first use
		apiKey: apiKey,
		model:  model,
	}
}

// Complete implements the llm.Client interface.
func (g *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	if g.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return llm.CompletionResponse{}, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		g.client = client
	}

	contents, systemInstruction, err := convertMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("message conversion error: %w", err)
	}

	//nolint:gosec // MaxTokens validated at higher layer, overflow acceptable
	maxTokens := int32(in.MaxTokens)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &in.Temperature,
		MaxOutputTokens: maxTokens,
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("Gemini API call failed: %w", err)
	}
	if result == nil {
		return llm.CompletionResponse{}, fmt.Errorf("empty response from Gemini API")
	}

	return llm.CompletionResponse{
		Content:    result.Text(),
		StopReason: stopReason(result),
	}, nil
}

// ModelName returns the model name for this client.
func (g *Client) ModelName() string {
	return g.model
}

// convertMessages converts our message format to Gemini's Content format.
// Returns the contents array and an optional system instruction.
func convertMessages(messages []llm.CompletionMessage) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("message list cannot be empty")
	}

	var systemInstruction string
	var contents []*genai.Content

	for i := range messages {
		msg := &messages[i]

		// System messages become the system instruction
		if msg.Role == llm.RoleSystem {
			if systemInstruction != "" {
				systemInstruction += "\n\n" + msg.Content
			} else {
				systemInstruction = msg.Content
			}
			continue
		}

		var role string
		switch msg.Role {
		case llm.RoleUser:
			role = "user"
		case llm.RoleAssistant:
			role = "model" // Gemini uses "model" instead of "assistant"
		default:
			return nil, "", fmt.Errorf("unsupported message role: %s", msg.Role)
		}

		if msg.Content == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	return contents, systemInstruction, nil
}

func stopReason(result *genai.GenerateContentResponse) string {
	if len(result.Candidates) == 0 {
		return ""
	}
	return string(result.Candidates[0].FinishReason)
}
