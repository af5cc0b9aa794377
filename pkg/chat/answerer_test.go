package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"analyst/pkg/config"
	"analyst/pkg/llm"
	"analyst/pkg/store"
)

type stubGateway struct {
	err error
}

func (s *stubGateway) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubGateway) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (s *stubGateway) ModelName() string { return "stub-embedding" }

type stubSearcher struct {
	results  []store.SearchResult
	err      error
	lastTopK int
	lastID   string
}

func (s *stubSearcher) Search(ctx context.Context, queryVec []float32, reportID string, topK int) ([]store.SearchResult, error) {
	s.lastTopK = topK
	s.lastID = reportID
	return s.results, s.err
}

type stubClient struct {
	reply      string
	err        error
	lastPrompt string
	calls      int
}

func (c *stubClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	c.calls++
	for _, msg := range in.Messages {
		if msg.Role == llm.RoleUser {
			c.lastPrompt = msg.Content
		}
	}
	if c.err != nil {
		return llm.CompletionResponse{}, c.err
	}
	return llm.CompletionResponse{Content: c.reply, StopReason: "end_turn"}, nil
}

func (c *stubClient) ModelName() string { return "stub-model" }

func chatConfig() config.ChatConfig {
	return config.ChatConfig{DefaultTopK: 5, MaxTopK: 10, MaxContextTokens: 6000}
}

func newTestAnswerer(searcher Searcher, client llm.Client) *Answerer {
	return New(&stubGateway{}, searcher, client, nil, chatConfig())
}

func matches(contents ...string) []store.SearchResult {
	out := make([]store.SearchResult, len(contents))
	for i, content := range contents {
		out[i] = store.SearchResult{
			ReportID:   "r1",
			ChunkIndex: i + 1,
			Content:    content,
			Score:      1.0 - float64(i)*0.1,
		}
	}
	return out
}

func TestAnswerInsufficientInfo(t *testing.T) {
	client := &stubClient{reply: "should not be called"}
	a := newTestAnswerer(&stubSearcher{}, client)

	answer, err := a.Answer(context.Background(), "What is the rating?", "", 0)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer.Reply != InsufficientInfoReply {
		t.Errorf("reply = %q", answer.Reply)
	}
	if answer.Grounded {
		t.Error("empty retrieval must not be grounded")
	}
	if len(answer.Evidence) != 0 {
		t.Errorf("evidence = %d items, want 0", len(answer.Evidence))
	}
	if client.calls != 0 {
		t.Error("model must not be called without evidence")
	}
}

func TestAnswerGrounded(t *testing.T) {
	searcher := &stubSearcher{results: matches("AAPL is rated Strong Buy.", "Revenue grew 12% YoY.")}
	client := &stubClient{reply: "Strong Buy, per [Excerpt 1]."}
	a := newTestAnswerer(searcher, client)

	answer, err := a.Answer(context.Background(), "What is the rating?", "", 0)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !answer.Grounded {
		t.Error("expected grounded answer")
	}
	if len(answer.Evidence) != 2 {
		t.Fatalf("evidence = %d items, want 2", len(answer.Evidence))
	}
	if answer.Evidence[0].Ref != "Excerpt 1" || answer.Evidence[1].Ref != "Excerpt 2" {
		t.Errorf("evidence refs = %q, %q", answer.Evidence[0].Ref, answer.Evidence[1].Ref)
	}
	if !strings.Contains(client.lastPrompt, "[Excerpt 1]\nAAPL is rated Strong Buy.") {
		t.Errorf("prompt missing labeled excerpt:\n%s", client.lastPrompt)
	}
	if !strings.Contains(client.lastPrompt, "Question: What is the rating?") {
		t.Errorf("prompt missing question:\n%s", client.lastPrompt)
	}
}

func TestAnswerTopKClamping(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 5},
		{-3, 5},
		{1, 1},
		{7, 7},
		{10, 10},
		{50, 10},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("topK=%d", tt.in), func(t *testing.T) {
			searcher := &stubSearcher{}
			a := newTestAnswerer(searcher, &stubClient{reply: "x"})
			if _, err := a.Answer(context.Background(), "q", "", tt.in); err != nil {
				t.Fatal(err)
			}
			if searcher.lastTopK != tt.want {
				t.Errorf("topK %d clamped to %d, want %d", tt.in, searcher.lastTopK, tt.want)
			}
		})
	}
}

func TestAnswerScopedToReport(t *testing.T) {
	searcher := &stubSearcher{results: matches("scoped content")}
	a := newTestAnswerer(searcher, &stubClient{reply: "answer"})

	if _, err := a.Answer(context.Background(), "q", "report-42", 3); err != nil {
		t.Fatal(err)
	}
	if searcher.lastID != "report-42" {
		t.Errorf("report scope = %q, want report-42", searcher.lastID)
	}
}

func TestAnswerContextBudget(t *testing.T) {
	// Without a tokenizer the budget falls back to len/4; each excerpt is
	// ~2000 tokens, so only three fit in the 6000-token budget.
	big := strings.Repeat("word ", 1600)
	searcher := &stubSearcher{results: matches(big, big, big, big, big)}
	a := newTestAnswerer(searcher, &stubClient{reply: "ok"})

	answer, err := a.Answer(context.Background(), "q", "", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(answer.Evidence) >= 5 {
		t.Errorf("context budget not applied: %d excerpts included", len(answer.Evidence))
	}
	if len(answer.Evidence) == 0 {
		t.Error("at least the best excerpt must be included")
	}
}

func TestAnswerEmptyQuestion(t *testing.T) {
	a := newTestAnswerer(&stubSearcher{}, &stubClient{})
	if _, err := a.Answer(context.Background(), "   ", "", 0); err == nil {
		t.Error("expected error for empty question")
	}
}

func TestAnswerEmbeddingFailure(t *testing.T) {
	a := New(&stubGateway{err: errors.New("embedder down")}, &stubSearcher{}, &stubClient{}, nil, chatConfig())
	if _, err := a.Answer(context.Background(), "q", "", 0); err == nil {
		t.Error("expected error when embedding fails")
	}
}

func TestAnswerModelErrorPropagates(t *testing.T) {
	searcher := &stubSearcher{results: matches("content")}
	client := &stubClient{err: errors.New("429 rate limit")}
	a := newTestAnswerer(searcher, client)

	if _, err := a.Answer(context.Background(), "q", "", 0); err == nil {
		t.Error("expected provider error to propagate")
	}
}

func TestAnswerBlankReplyFallsBack(t *testing.T) {
	searcher := &stubSearcher{results: matches("content")}
	a := newTestAnswerer(searcher, &stubClient{reply: "   "})

	answer, err := a.Answer(context.Background(), "q", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Reply != InsufficientInfoReply {
		t.Errorf("blank reply should fall back, got %q", answer.Reply)
	}
	if answer.Grounded {
		t.Error("fallback reply must not be grounded")
	}
}
