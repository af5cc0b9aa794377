package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"analyst/pkg/config"
	"analyst/pkg/embed"
	"analyst/pkg/llm/llmerrors"
	"analyst/pkg/logx"
)

// ErrNotFound is returned when a report id does not exist.
var ErrNotFound = errors.New("report not found")

// Store persists reports and their chunk embeddings and answers similarity
// queries over the chunks. Reports are append-only: inserts and cascading
// deletes only, never updates.
type Store struct {
	db      *sql.DB
	gateway embed.Gateway
	chunker config.ChunkerConfig
	logger  *logx.Logger
}

// New creates a Store over an opened database.
func New(db *sql.DB, gateway embed.Gateway, chunker config.ChunkerConfig) *Store {
	return &Store{
		db:      db,
		gateway: gateway,
		chunker: chunker,
		logger:  logx.NewLogger("store"),
	}
}

// SaveRequest carries the fields of a report to persist.
type SaveRequest struct {
	Ticker       string
	CompanyName  string
	Mode         string
	Markdown     string
	MarkdownPath string
	PDFPath      string
}

// Save persists a report and its derived chunks. The report row and chunk
// rows are inserted in one transaction. If embedding fails, the report is
// still persisted with no chunk rows at all (never a partial chunk set) and
// a *llmerrors.StorageDegradedError is returned alongside the saved report;
// callers log it and treat the save as successful with degraded retrieval.
func (s *Store) Save(ctx context.Context, req SaveRequest) (*Report, error) {
	report := &Report{
		ID:           uuid.NewString(),
		Ticker:       req.Ticker,
		CompanyName:  req.CompanyName,
		Mode:         req.Mode,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		Markdown:     req.Markdown,
		MarkdownPath: req.MarkdownPath,
		PDFPath:      req.PDFPath,
	}
	report.Summary, report.Preview = summarize(req.Markdown)

	chunks := ChunkText(req.Markdown, s.chunker)

	var vectors [][]float32
	var degraded *llmerrors.StorageDegradedError
	if len(chunks) > 0 {
		var err error
		vectors, err = s.gateway.EmbedTexts(ctx, chunks)
		if err != nil {
			// Embedder failures must not abort storage; the report is
			// saved without retrieval support.
			degraded = &llmerrors.StorageDegradedError{ReportID: report.ID, Err: err}
			vectors = nil
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (
			id, ticker, company_name, mode, created_at,
			summary, preview, report_markdown, markdown_path, pdf_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Ticker, nullable(report.CompanyName), report.Mode, report.CreatedAt,
		report.Summary, report.Preview, report.Markdown,
		nullable(report.MarkdownPath), nullable(report.PDFPath),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}

	if vectors != nil {
		for i, content := range chunks {
			encoded, err := json.Marshal(vectors[i])
			if err != nil {
				return nil, fmt.Errorf("failed to encode embedding: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO report_chunks (report_id, chunk_index, content, embedding)
				VALUES (?, ?, ?, ?)`,
				report.ID, i+1, content, string(encoded),
			)
			if err != nil {
				return nil, fmt.Errorf("failed to insert chunk %d: %w", i+1, err)
			}
		}
		report.ChunkCount = len(chunks)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit report: %w", err)
	}

	if degraded != nil {
		s.logger.Warn("report %s saved without embeddings: %v", report.ID, degraded.Err)
		return report, degraded
	}

	s.logger.Info("💾 Saved report %s for %s (%d chunks)", report.ID, report.Ticker, report.ChunkCount)
	return report, nil
}

// List returns report metadata (excluding full report text), most recent first.
func (s *Store) List(ctx context.Context) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.ticker, r.company_name, r.mode, r.created_at, r.summary, r.preview,
		       r.markdown_path, r.pdf_path,
		       (SELECT COUNT(*) FROM report_chunks c WHERE c.report_id = r.id)
		FROM reports r
		ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reports []Report
	for rows.Next() {
		var r Report
		var companyName, markdownPath, pdfPath sql.NullString
		if err := rows.Scan(&r.ID, &r.Ticker, &companyName, &r.Mode, &r.CreatedAt,
			&r.Summary, &r.Preview, &markdownPath, &pdfPath, &r.ChunkCount); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		r.CompanyName = companyName.String
		r.MarkdownPath = markdownPath.String
		r.PDFPath = pdfPath.String
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// Get returns full report detail for one id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Report, error) {
	var r Report
	var companyName, markdownPath, pdfPath sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.ticker, r.company_name, r.mode, r.created_at, r.summary, r.preview,
		       r.report_markdown, r.markdown_path, r.pdf_path,
		       (SELECT COUNT(*) FROM report_chunks c WHERE c.report_id = r.id)
		FROM reports r
		WHERE r.id = ?`, id).
		Scan(&r.ID, &r.Ticker, &companyName, &r.Mode, &r.CreatedAt, &r.Summary, &r.Preview,
			&r.Markdown, &markdownPath, &pdfPath, &r.ChunkCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report %s: %w", id, err)
	}
	r.CompanyName = companyName.String
	r.MarkdownPath = markdownPath.String
	r.PDFPath = pdfPath.String
	return &r, nil
}

// Delete removes a report and, by cascade, all of its chunks.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM reports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete report %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Search returns the topK chunks most similar to queryVec by cosine
// similarity (dot product over L2-normalized vectors), optionally restricted
// to one report. Chunks whose stored vector dimensionality does not match
// the query are skipped. Ties keep original chunk order.
func (s *Store) Search(ctx context.Context, queryVec []float32, reportID string, topK int) ([]SearchResult, error) {
	if topK < 1 {
		return nil, fmt.Errorf("topK must be at least 1, got %d", topK)
	}

	query := "SELECT report_id, chunk_index, content, embedding FROM report_chunks"
	var args []any
	if reportID != "" {
		query += " WHERE report_id = ?"
		args = append(args, reportID)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var result SearchResult
		var encoded string
		if err := rows.Scan(&result.ReportID, &result.ChunkIndex, &result.Content, &encoded); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}

		var vec []float32
		if err := json.Unmarshal([]byte(encoded), &vec); err != nil {
			continue // Unparseable embeddings are skipped, not errored
		}
		if len(vec) != len(queryVec) {
			continue // Dimensionality mismatch (e.g. embedding model changed)
		}

		result.Score = dot(queryVec, vec)
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
