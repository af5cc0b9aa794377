// Package anthropic provides the Anthropic Claude client implementation for the llm.Client interface.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"analyst/pkg/llm"
)

// Client wraps the Anthropic API client to implement llm.Client.
type Client struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClient creates a new Claude client (raw client, middleware applied at higher level).
func NewClient(apiKey, model string) llm.Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// prepareMessages extracts system messages to the top-level system parameter
// and merges consecutive user messages. Anthropic requires strict
// user/assistant alternation starting and ending with a user message.
func prepareMessages(messages []llm.CompletionMessage) (systemPrompt string, merged []llm.CompletionMessage, err error) {
	if len(messages) == 0 {
		return "", nil, fmt.Errorf("message list cannot be empty")
	}

	var systemParts []string
	var currentUserParts []string

	flush := func() {
		if len(currentUserParts) > 0 {
			merged = append(merged, llm.CompletionMessage{
				Role:    llm.RoleUser,
				Content: strings.Join(currentUserParts, "\n\n"),
			})
			currentUserParts = nil
		}
	}

	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			systemParts = append(systemParts, msg.Content)
		case llm.RoleAssistant:
			flush()
			merged = append(merged, *msg)
		default:
			currentUserParts = append(currentUserParts, msg.Content)
		}
	}
	flush()

	if len(merged) == 0 {
		return "", nil, fmt.Errorf("must have at least one non-system message")
	}
	if merged[0].Role != llm.RoleUser {
		return "", nil, fmt.Errorf("first message must be user role, got: %s", merged[0].Role)
	}
	if merged[len(merged)-1].Role != llm.RoleUser {
		return "", nil, fmt.Errorf("last message must be user role, got: %s", merged[len(merged)-1].Role)
	}

	return strings.Join(systemParts, "\n\n"), merged, nil
}

// Complete implements the llm.Client interface.
func (c *Client) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	systemPrompt, prepared, err := prepareMessages(in.Messages)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("message preparation error: %w", err)
	}

	messages := make([]anthropic.MessageParam, 0, len(prepared))
	for i := range prepared {
		msg := &prepared[i]
		messages = append(messages, anthropic.MessageParam{
			Role:    anthropic.MessageParamRole(msg.Role),
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)},
		})
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   int64(in.MaxTokens),
		Temperature: anthropic.Float(float64(in.Temperature)),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{
			Text: systemPrompt,
			Type: "text",
		}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("Anthropic API call failed: %w", err)
	}

	var content strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return llm.CompletionResponse{
		Content:    content.String(),
		StopReason: string(resp.StopReason),
	}, nil
}

// ModelName returns the model name for this client.
func (c *Client) ModelName() string {
	return string(c.model)
}
