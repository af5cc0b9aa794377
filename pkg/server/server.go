// Package server exposes the report pipeline and knowledge store over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"analyst/pkg/chat"
	"analyst/pkg/config"
	"analyst/pkg/llm/llmerrors"
	"analyst/pkg/logx"
	"analyst/pkg/metrics"
	"analyst/pkg/pipeline"
	"analyst/pkg/render"
	"analyst/pkg/store"
	"analyst/pkg/version"
)

// Server wires the HTTP API to the pipeline, store and chat answerer.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	orch     *pipeline.Orchestrator
	answerer *chat.Answerer
	renderer *render.Renderer
	recorder *metrics.PipelineRecorder
	logger   *logx.Logger
}

// New creates a server. recorder may be nil when metrics are disabled.
func New(cfg *config.Config, st *store.Store, orch *pipeline.Orchestrator, answerer *chat.Answerer, renderer *render.Renderer, recorder *metrics.PipelineRecorder) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		orch:     orch,
		answerer: answerer,
		renderer: renderer,
		recorder: recorder,
		logger:   logx.NewLogger("server"),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/reports", s.handleListReports)
	mux.HandleFunc("POST /api/reports", s.handleCreateReport)
	mux.HandleFunc("GET /api/reports/{id}", s.handleGetReport)
	mux.HandleFunc("DELETE /api/reports/{id}", s.handleDeleteReport)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/files", s.handleListFiles)
	mux.HandleFunc("GET /api/files/{name}", s.handleDownloadFile)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ServerAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🌐 Listening on %s", s.cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	items := make([]reportSummary, 0, len(reports))
	for i := range reports {
		items = append(items, summaryFromReport(&reports[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Ticker == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("ticker is required"))
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = config.ModeTeam
	}
	if _, err := config.NormalizeMode(mode); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	export := req.SaveToFile == nil || *req.SaveToFile
	result, err := s.orch.Run(r.Context(), pipeline.Request{
		Ticker:      req.Ticker,
		CompanyName: req.CompanyName,
		Mode:        mode,
		Persist:     true,
		Export:      export,
	})
	if err != nil {
		writeError(w, statusForRunError(err), err)
		return
	}

	resp := createReportResponse{
		Markdown: result.Markdown,
		Attempts: result.Attempts,
	}
	if result.Report != nil {
		summary := summaryFromReport(result.Report)
		resp.Report = &summary
	}
	if result.StorageErr != nil {
		resp.Warnings = append(resp.Warnings, result.StorageErr.Error())
	}
	if result.RenderErr != nil {
		resp.Warnings = append(resp.Warnings, result.RenderErr.Error())
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, detailFromReport(report))
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	err := s.store.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("message is required"))
		return
	}

	answer, err := s.answerer.Answer(r.Context(), req.Message, req.ReportID, req.TopK)
	if err != nil {
		s.observeChat("error")
		writeError(w, statusForRunError(err), err)
		return
	}
	if answer.Grounded {
		s.observeChat("grounded")
	} else {
		s.observeChat("insufficient")
	}

	resp := chatResponse{Reply: answer.Reply, Grounded: answer.Grounded}
	for _, ev := range answer.Evidence {
		resp.Evidence = append(resp.Evidence, evidenceItem{
			Ref:        ev.Ref,
			ReportID:   ev.ReportID,
			ChunkIndex: ev.ChunkIndex,
			Score:      ev.Score,
			Content:    ev.Content,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	names, err := s.renderer.ListArtifacts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	downloads := make([]fileItem, 0, len(names))
	for _, name := range names {
		downloads = append(downloads, fileItem{
			Name: name,
			URL:  "/api/files/" + name,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"downloads": downloads})
}

func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	path, err := s.renderer.ArtifactPath(r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) observeChat(outcome string) {
	if s.recorder != nil {
		s.recorder.ChatObserved(outcome)
	}
}

// statusForRunError maps the terminal failure taxonomy onto HTTP statuses.
func statusForRunError(err error) int {
	var unavail *llmerrors.ProviderUnavailableError
	var conn *llmerrors.ConnectivityError
	switch {
	case errors.As(err, &unavail):
		return http.StatusServiceUnavailable
	case errors.As(err, &conn):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
