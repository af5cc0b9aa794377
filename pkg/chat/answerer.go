// Package chat answers questions grounded in stored report chunks. Every
// answer is built only from retrieved excerpts; when retrieval comes back
// empty the answerer returns a fixed insufficient-information reply without
// calling the model at all.
package chat

import (
	"context"
	"fmt"
	"strings"

	"analyst/pkg/config"
	"analyst/pkg/embed"
	"analyst/pkg/llm"
	"analyst/pkg/logx"
	"analyst/pkg/store"
)

// InsufficientInfoReply is returned verbatim when no stored chunks match the
// question.
const InsufficientInfoReply = "I couldn't locate relevant information in the stored reports for that question."

const systemInstruction = `You are a financial research assistant.
Answer the user's question using ONLY the report excerpts provided.
Cite the excerpts you relied on by their labels, e.g. [Excerpt 2].
If the excerpts do not contain enough information to answer, say so plainly instead of guessing.
Keep answers concise and factual.`

// Searcher retrieves the most similar stored chunks for a query vector.
// Satisfied by *store.Store.
type Searcher interface {
	Search(ctx context.Context, queryVec []float32, reportID string, topK int) ([]store.SearchResult, error)
}

// Evidence is one excerpt that grounded an answer.
type Evidence struct {
	Ref        string  `json:"ref"`
	ReportID   string  `json:"report_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// Answer is a grounded reply with the evidence that produced it. Grounded is
// false only for the insufficient-information reply.
type Answer struct {
	Reply    string     `json:"reply"`
	Evidence []Evidence `json:"evidence"`
	Grounded bool       `json:"grounded"`
}

// Answerer wires retrieval and generation into grounded question answering.
type Answerer struct {
	gateway  embed.Gateway
	searcher Searcher
	client   llm.Client
	counter  *TokenCounter
	cfg      config.ChatConfig
	logger   *logx.Logger
}

// New creates an answerer. counter may be nil; budgeting then falls back to
// character-based estimation.
func New(gateway embed.Gateway, searcher Searcher, client llm.Client, counter *TokenCounter, cfg config.ChatConfig) *Answerer {
	return &Answerer{
		gateway:  gateway,
		searcher: searcher,
		client:   client,
		counter:  counter,
		cfg:      cfg,
		logger:   logx.NewLogger("chat"),
	}
}

// Answer responds to question using stored report excerpts. reportID narrows
// retrieval to one report when non-empty. topK outside [1, MaxTopK] is
// clamped, and topK <= 0 selects the configured default.
func (a *Answerer) Answer(ctx context.Context, question, reportID string, topK int) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}
	topK = a.clampTopK(topK)

	queryVec, err := a.gateway.EmbedText(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	matches, err := a.searcher.Search(ctx, queryVec, reportID, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	if len(matches) == 0 {
		a.logger.Debug("no matching chunks for question %q", question)
		return &Answer{Reply: InsufficientInfoReply, Evidence: []Evidence{}, Grounded: false}, nil
	}

	evidence, contextText := a.buildContext(matches)

	prompt := fmt.Sprintf("Report excerpts:\n\n%s\n\nQuestion: %s", contextText, question)
	completion := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(systemInstruction),
		llm.NewUserMessage(prompt),
	})
	completion.MaxTokens = llm.ChatMaxTokens

	resp, err := a.client.Complete(ctx, completion)
	if err != nil {
		return nil, err
	}
	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		reply = InsufficientInfoReply
		return &Answer{Reply: reply, Evidence: evidence, Grounded: false}, nil
	}

	return &Answer{Reply: reply, Evidence: evidence, Grounded: true}, nil
}

// buildContext labels matches as excerpts and packs them into the context
// token budget. At least one excerpt is always included so the model sees
// the best match even when it alone exceeds the budget.
func (a *Answerer) buildContext(matches []store.SearchResult) ([]Evidence, string) {
	var sections []string
	var evidence []Evidence
	used := 0

	for i, match := range matches {
		section := fmt.Sprintf("[Excerpt %d]\n%s", i+1, match.Content)
		cost := a.counter.CountTokens(section)
		if len(sections) > 0 && used+cost > a.cfg.MaxContextTokens {
			break
		}
		used += cost
		sections = append(sections, section)
		evidence = append(evidence, Evidence{
			Ref:        fmt.Sprintf("Excerpt %d", i+1),
			ReportID:   match.ReportID,
			ChunkIndex: match.ChunkIndex,
			Score:      match.Score,
			Content:    match.Content,
		})
	}

	return evidence, strings.Join(sections, "\n\n")
}

func (a *Answerer) clampTopK(topK int) int {
	if topK <= 0 {
		topK = a.cfg.DefaultTopK
	}
	if topK < 1 {
		topK = 1
	}
	if topK > a.cfg.MaxTopK {
		topK = a.cfg.MaxTopK
	}
	return topK
}
