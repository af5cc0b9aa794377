// Package metrics provides Prometheus-based metrics recording for LLM calls.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"analyst/pkg/llm"
	"analyst/pkg/llm/llmerrors"
)

// Recorder holds the Prometheus collectors for LLM request accounting.
type Recorder struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRecorder creates a recorder registered on the default registry.
func NewRecorder() *Recorder {
	return &Recorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM requests by model, status, and error class",
			},
			[]string{"model", "status", "error_class"},
		),
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Duration of LLM requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model", "status"},
		),
	}
}

// Record accounts for one completed request.
func (r *Recorder) Record(model string, duration time.Duration, err error) {
	status := "success"
	errorClass := ""
	if err != nil {
		status = "error"
		errorClass = llmerrors.ClassifyErr(err).String()
	}

	r.requestsTotal.WithLabelValues(model, status, errorClass).Inc()
	r.requestDuration.WithLabelValues(model, status).Observe(duration.Seconds())
}

// Middleware returns a middleware that records request metrics for every
// completion through the wrapped client.
func Middleware(recorder *Recorder) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				start := time.Now()
				resp, err := next.Complete(ctx, req)
				recorder.Record(next.ModelName(), time.Since(start), err)
				return resp, err
			},
			func() string {
				return next.ModelName()
			},
		)
	}
}
