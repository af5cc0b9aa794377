package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"analyst/pkg/config"
	"analyst/pkg/embed"
	"analyst/pkg/llm/llmerrors"
)

// stubGateway embeds text as normalized letter frequencies over a/b/c/d, so
// similarity between texts is predictable from their composition.
type stubGateway struct {
	fail bool
}

func (s *stubGateway) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if s.fail {
		return nil, errors.New("embedding backend down")
	}
	vec := make([]float32, 4)
	for _, r := range text {
		if r >= 'a' && r <= 'd' {
			vec[r-'a']++
		}
	}
	return embed.Normalize(vec), nil
}

func (s *stubGateway) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, err := s.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (s *stubGateway) ModelName() string { return "stub-embedding" }

func newTestStore(t *testing.T, gateway embed.Gateway) *Store {
	t.Helper()
	db, err := OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDatabase failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db, gateway, config.ChunkerConfig{MaxChars: 1100, OverlapChars: 150})
}

func multiChunkMarkdown() string {
	return strings.Join([]string{
		strings.Repeat("a", 700),
		strings.Repeat("b", 700),
		strings.Repeat("c", 700),
	}, "\n\n")
}

func TestSaveAndGet(t *testing.T) {
	st := newTestStore(t, &stubGateway{})
	ctx := context.Background()

	report, err := st.Save(ctx, SaveRequest{
		Ticker:      "AAPL",
		CompanyName: "Apple Inc.",
		Mode:        "team",
		Markdown:    "## Executive Summary\n\nStrong Buy rating based on fundamentals.",
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if report.ID == "" {
		t.Error("report ID not assigned")
	}
	if report.Summary != "## Executive Summary" {
		t.Errorf("summary = %q", report.Summary)
	}
	if report.ChunkCount < 1 {
		t.Errorf("chunk count = %d, want at least 1", report.ChunkCount)
	}

	got, err := st.Get(ctx, report.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Markdown != "## Executive Summary\n\nStrong Buy rating based on fundamentals." {
		t.Errorf("markdown round trip failed: %q", got.Markdown)
	}
	if got.CompanyName != "Apple Inc." {
		t.Errorf("company name = %q", got.CompanyName)
	}
	if got.ChunkCount != report.ChunkCount {
		t.Errorf("chunk count = %d, want %d", got.ChunkCount, report.ChunkCount)
	}
}

func TestGetNotFound(t *testing.T) {
	st := newTestStore(t, &stubGateway{})
	if _, err := st.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveDegradedOnEmbeddingFailure(t *testing.T) {
	st := newTestStore(t, &stubGateway{fail: true})
	ctx := context.Background()

	report, err := st.Save(ctx, SaveRequest{
		Ticker:   "MSFT",
		Mode:     "simple",
		Markdown: multiChunkMarkdown(),
	})
	var degraded *llmerrors.StorageDegradedError
	if !errors.As(err, &degraded) {
		t.Fatalf("expected StorageDegradedError, got %v", err)
	}
	if report == nil {
		t.Fatal("degraded save must still return the report")
	}
	if report.ChunkCount != 0 {
		t.Errorf("degraded save stored %d chunks, want 0", report.ChunkCount)
	}

	// The report is readable but not retrievable.
	if _, err := st.Get(ctx, report.ID); err != nil {
		t.Errorf("Get after degraded save failed: %v", err)
	}
	results, err := st.Search(ctx, []float32{1, 0, 0, 0}, "", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("degraded report must not be searchable, got %d hits", len(results))
	}
}

func TestSearchRanking(t *testing.T) {
	gateway := &stubGateway{}
	st := newTestStore(t, gateway)
	ctx := context.Background()

	report, err := st.Save(ctx, SaveRequest{Ticker: "NVDA", Mode: "team", Markdown: multiChunkMarkdown()})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if report.ChunkCount < 2 {
		t.Fatalf("need multiple chunks for ranking, got %d", report.ChunkCount)
	}

	query, err := gateway.EmbedText(ctx, strings.Repeat("a", 10))
	if err != nil {
		t.Fatal(err)
	}

	results, err := st.Search(ctx, query, "", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	// The all-a chunk matches the all-a query exactly.
	if results[0].Score < 0.999 {
		t.Errorf("best score = %f, want ~1.0", results[0].Score)
	}
	if !strings.HasPrefix(results[0].Content, "aaa") {
		t.Errorf("wrong chunk ranked first: %q", results[0].Content[:10])
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("scores not non-increasing at %d: %f > %f", i, results[i].Score, results[i-1].Score)
		}
	}
}

func TestSearchScopedToReport(t *testing.T) {
	gateway := &stubGateway{}
	st := newTestStore(t, gateway)
	ctx := context.Background()

	first, err := st.Save(ctx, SaveRequest{Ticker: "AAPL", Mode: "team", Markdown: strings.Repeat("a", 300)})
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.Save(ctx, SaveRequest{Ticker: "MSFT", Mode: "team", Markdown: strings.Repeat("a", 300)})
	if err != nil {
		t.Fatal(err)
	}

	query, _ := gateway.EmbedText(ctx, "aaaa")
	results, err := st.Search(ctx, query, second.ID, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, hit := range results {
		if hit.ReportID != second.ID {
			t.Errorf("hit from report %s leaked into scoped search for %s", hit.ReportID, second.ID)
		}
	}
	if len(results) == 0 {
		t.Error("scoped search returned nothing")
	}
	_ = first
}

func TestSearchSkipsDimensionMismatch(t *testing.T) {
	gateway := &stubGateway{}
	st := newTestStore(t, gateway)
	ctx := context.Background()

	if _, err := st.Save(ctx, SaveRequest{Ticker: "AAPL", Mode: "team", Markdown: strings.Repeat("a", 300)}); err != nil {
		t.Fatal(err)
	}

	// Stored vectors are 4-dimensional; an 8-dimensional query matches nothing.
	results, err := st.Search(ctx, make([]float32, 8), "", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("dimension-mismatched chunks must be skipped, got %d hits", len(results))
	}
}

func TestSearchRejectsBadTopK(t *testing.T) {
	st := newTestStore(t, &stubGateway{})
	if _, err := st.Search(context.Background(), []float32{1}, "", 0); err == nil {
		t.Error("expected error for topK < 1")
	}
}

func TestDeleteCascades(t *testing.T) {
	gateway := &stubGateway{}
	st := newTestStore(t, gateway)
	ctx := context.Background()

	report, err := st.Save(ctx, SaveRequest{Ticker: "AMD", Mode: "team", Markdown: multiChunkMarkdown()})
	if err != nil {
		t.Fatal(err)
	}

	if err := st.Delete(ctx, report.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := st.Get(ctx, report.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	query, _ := gateway.EmbedText(ctx, "aaaa")
	results, err := st.Search(ctx, query, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("chunks survived report deletion: %d hits", len(results))
	}

	if err := st.Delete(ctx, report.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete should return ErrNotFound, got %v", err)
	}
}

func TestListMetadataOnly(t *testing.T) {
	st := newTestStore(t, &stubGateway{})
	ctx := context.Background()

	for _, ticker := range []string{"AAPL", "MSFT"} {
		if _, err := st.Save(ctx, SaveRequest{Ticker: ticker, Mode: "team", Markdown: "# " + ticker + "\n\nBuy."}); err != nil {
			t.Fatal(err)
		}
	}

	reports, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	for _, r := range reports {
		if r.Markdown != "" {
			t.Errorf("List must not return full markdown for %s", r.Ticker)
		}
		if r.Summary == "" {
			t.Errorf("List missing summary for %s", r.Ticker)
		}
	}
}

func TestSummarize(t *testing.T) {
	long := strings.Repeat("z", 500)
	summary, preview := summarize("# Heading\n\n" + long)
	if summary != "# Heading" {
		t.Errorf("summary = %q", summary)
	}
	if len([]rune(preview)) != 401 || !strings.HasSuffix(preview, "…") {
		t.Errorf("preview not truncated to 400 runes with ellipsis: %d runes", len([]rune(preview)))
	}

	summary, preview = summarize("")
	if summary != "" || preview != "" {
		t.Errorf("empty markdown should yield empty summary/preview")
	}

	firstLine := strings.Repeat("h", 200)
	summary, _ = summarize(firstLine + "\nrest")
	if len([]rune(summary)) != 160 {
		t.Errorf("summary not truncated to 160 runes: %d", len([]rune(summary)))
	}
}
