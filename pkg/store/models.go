// Package store provides SQLite-backed persistence for generated reports and
// their chunk embeddings, plus cosine-similarity retrieval over the chunks.
package store

import (
	"strings"
	"unicode/utf8"
)

// Report is a generated document. Immutable once created.
type Report struct {
	ID           string `json:"id"`
	Ticker       string `json:"ticker"`
	CompanyName  string `json:"company_name,omitempty"`
	Mode         string `json:"mode"`
	CreatedAt    string `json:"created_at"`
	Summary      string `json:"summary"`
	Preview      string `json:"preview"`
	Markdown     string `json:"report_markdown,omitempty"`
	MarkdownPath string `json:"markdown_path,omitempty"`
	PDFPath      string `json:"pdf_path,omitempty"`
	// ChunkCount is the number of chunk rows persisted for this report.
	// Zero means the report is not retrievable by similarity search.
	ChunkCount int `json:"chunk_count"`
}

// Chunk is a bounded slice of a report's text with its embedding.
type Chunk struct {
	ReportID  string
	Index     int // 1-based, contiguous within a report
	Content   string
	Embedding []float32 // L2-normalized
}

// SearchResult is one ranked retrieval hit.
type SearchResult struct {
	ReportID   string  `json:"report_id"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

const (
	summaryMaxChars = 160
	previewMaxChars = 400
)

// summarize derives the bounded summary (first line) and preview (flattened
// text) from report markdown.
func summarize(markdown string) (summary, preview string) {
	text := strings.TrimSpace(markdown)
	if text == "" {
		return "", ""
	}

	firstLine, _, _ := strings.Cut(text, "\n")
	summary = truncateRunes(firstLine, summaryMaxChars)

	flattened := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(flattened) > previewMaxChars {
		preview = truncateRunes(flattened, previewMaxChars) + "…"
	} else {
		preview = flattened
	}
	return summary, preview
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
