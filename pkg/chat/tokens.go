package chat

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// TokenCounter measures excerpt sizes so the grounding context stays inside
// the model's budget. All supported chat models are close enough to GPT-4
// tokenization for budgeting purposes.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter creates a token counter using GPT-4 encoding.
func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &TokenCounter{codec: codec}, nil
}

// CountTokens returns the token count for text, falling back to a 4-chars-
// per-token estimate if the codec errors.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.codec == nil {
		return len(text) / 4
	}
	count, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}
