package server

import (
	"path/filepath"

	"analyst/pkg/store"
)

// Request and response bodies use camelCase field names on the wire,
// independent of the store's own serialization.

type createReportRequest struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"companyName"`
	Mode        string `json:"mode"`
	// SaveToFile controls artifact export; nil defaults to true.
	SaveToFile *bool `json:"saveToFile"`
}

type createReportResponse struct {
	Report   *reportSummary `json:"report,omitempty"`
	Markdown string         `json:"markdown"`
	Attempts int            `json:"attempts"`
	Warnings []string       `json:"warnings,omitempty"`
}

type reportSummary struct {
	ID          string `json:"id"`
	Ticker      string `json:"ticker"`
	CompanyName string `json:"companyName,omitempty"`
	Mode        string `json:"mode"`
	CreatedAt   string `json:"createdAt"`
	Summary     string `json:"summary"`
	Preview     string `json:"preview"`
	ChunkCount  int    `json:"chunkCount"`
}

type reportDetail struct {
	reportSummary
	Markdown  string     `json:"markdown"`
	Downloads []fileItem `json:"downloads"`
}

type fileItem struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type chatRequest struct {
	Message  string `json:"message"`
	ReportID string `json:"reportId"`
	TopK     int    `json:"topK"`
}

type chatResponse struct {
	Reply    string         `json:"reply"`
	Grounded bool           `json:"grounded"`
	Evidence []evidenceItem `json:"evidence"`
}

type evidenceItem struct {
	Ref        string  `json:"ref"`
	ReportID   string  `json:"reportId"`
	ChunkIndex int     `json:"chunkIndex"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

func summaryFromReport(r *store.Report) reportSummary {
	return reportSummary{
		ID:          r.ID,
		Ticker:      r.Ticker,
		CompanyName: r.CompanyName,
		Mode:        r.Mode,
		CreatedAt:   r.CreatedAt,
		Summary:     r.Summary,
		Preview:     r.Preview,
		ChunkCount:  r.ChunkCount,
	}
}

func detailFromReport(r *store.Report) reportDetail {
	detail := reportDetail{
		reportSummary: summaryFromReport(r),
		Markdown:      r.Markdown,
		Downloads:     []fileItem{},
	}
	for _, path := range []string{r.MarkdownPath, r.PDFPath} {
		if path == "" {
			continue
		}
		name := filepath.Base(path)
		detail.Downloads = append(detail.Downloads, fileItem{
			Name: name,
			URL:  "/api/files/" + name,
		})
	}
	return detail
}
