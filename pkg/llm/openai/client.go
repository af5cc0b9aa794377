// Package openai provides the OpenAI client implementation using the official OpenAI Go package.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"analyst/pkg/llm"
)

// Client wraps the official OpenAI Go client to implement llm.Client.
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates a new OpenAI client (raw client, middleware applied at higher level).
func NewClient(apiKey, model string) llm.Client {
	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Complete implements the llm.Client interface using the Responses API.
func (o *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	// Combine messages into a single input string for the responses API
	var inputText string
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			inputText += fmt.Sprintf("System: %s\n\n", msg.Content)
		case llm.RoleUser:
			inputText += msg.Content
		case llm.RoleAssistant:
			inputText += fmt.Sprintf("Assistant: %s\n\n", msg.Content)
		}
	}

	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(int64(in.MaxTokens)),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(inputText)},
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("OpenAI Responses API failed: %w", err)
	}
	if resp == nil {
		return llm.CompletionResponse{}, fmt.Errorf("empty response from OpenAI Responses API")
	}

	return llm.CompletionResponse{
		Content: resp.OutputText(),
	}, nil
}

// ModelName returns the model name for this client.
func (o *Client) ModelName() string {
	return o.model
}
