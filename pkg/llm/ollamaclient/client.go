// Package ollamaclient provides the Ollama client implementation for the llm.Client interface.
// Ollama is a local LLM runtime that allows running open-source models.
package ollamaclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"analyst/pkg/llm"
)

// Client wraps the Ollama API client to implement llm.Client.
type Client struct {
	client *api.Client
	model  string
}

// NewClient creates a new Ollama client with a specific model.
// hostURL should be the Ollama server URL (e.g., "http://localhost:11434").
func NewClient(hostURL, model string) llm.Client {
	parsedURL, err := url.Parse(hostURL)
	if err != nil {
		// Fall back to default if URL is invalid
		parsedURL, _ = url.Parse("http://localhost:11434")
	}

	return &Client{
		client: api.NewClient(parsedURL, http.DefaultClient),
		model:  model,
	}
}

// Complete implements the llm.Client interface.
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	messages, err := convertMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("message conversion error: %w", err)
	}

	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": in.Temperature,
			"num_predict": in.MaxTokens,
		},
	}

	var response api.ChatResponse
	err = o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("Ollama chat failed: %w", err)
	}

	return llm.CompletionResponse{
		Content:    response.Message.Content,
		StopReason: response.DoneReason,
	}, nil
}

// ModelName returns the model name for this client.
func (o *Client) ModelName() string {
	return o.model
}

func convertMessages(messages []llm.CompletionMessage) ([]api.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("message list cannot be empty")
	}

	result := make([]api.Message, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		result = append(result, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return result, nil
}
