// Package metrics records pipeline and chat counters and queries them back
// from Prometheus for usage reporting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineRecorder counts report runs, retries, persisted chunks and chat
// queries. It satisfies pipeline.Observer.
type PipelineRecorder struct {
	runsTotal     *prometheus.CounterVec
	retriesTotal  *prometheus.CounterVec
	reportsSaved  prometheus.Counter
	chunksIndexed prometheus.Counter
	chatQueries   *prometheus.CounterVec
}

// NewPipelineRecorder creates and registers the pipeline counters on the
// default registry. Create at most one per process.
func NewPipelineRecorder() *PipelineRecorder {
	return &PipelineRecorder{
		runsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "report_runs_total",
			Help: "Report generation runs by ticker, mode and final status.",
		}, []string{"ticker", "mode", "status"}),
		retriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "report_retries_total",
			Help: "Retry waits scheduled during report generation, by failure class.",
		}, []string{"class"}),
		reportsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reports_persisted_total",
			Help: "Reports saved to the knowledge store.",
		}),
		chunksIndexed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "report_chunks_indexed_total",
			Help: "Report chunks stored with embeddings.",
		}),
		chatQueries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_queries_total",
			Help: "Grounded chat queries by outcome.",
		}, []string{"outcome"}),
	}
}

// RunObserved records a finished report run.
func (p *PipelineRecorder) RunObserved(ticker, mode, status string) {
	p.runsTotal.WithLabelValues(ticker, mode, status).Inc()
}

// RetryObserved records one scheduled retry wait.
func (p *PipelineRecorder) RetryObserved(class string) {
	p.retriesTotal.WithLabelValues(class).Inc()
}

// PersistObserved records a saved report and its indexed chunk count.
func (p *PipelineRecorder) PersistObserved(chunks int) {
	p.reportsSaved.Inc()
	p.chunksIndexed.Add(float64(chunks))
}

// ChatObserved records a chat query outcome: "grounded", "insufficient" or
// "error".
func (p *PipelineRecorder) ChatObserved(outcome string) {
	p.chatQueries.WithLabelValues(outcome).Inc()
}
