package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// TickerUsage aggregates run outcomes for one ticker symbol.
type TickerUsage struct {
	Ticker    string `json:"ticker"`
	Runs      int64  `json:"runs"`
	Succeeded int64  `json:"succeeded"`
	Failed    int64  `json:"failed"`
}

// ModelUsage aggregates provider request counts and latency for one model.
type ModelUsage struct {
	Model             string  `json:"model"`
	Requests          int64   `json:"requests"`
	Errors            int64   `json:"errors"`
	AvgLatencySeconds float64 `json:"avg_latency_seconds"`
}

// QueryService reads usage aggregates back from a Prometheus server that
// scrapes this process.
type QueryService struct {
	queryAPI v1.API
}

// NewQueryService creates a query service against prometheusURL.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	return &QueryService{queryAPI: v1.NewAPI(client)}, nil
}

func (q *QueryService) scalar(ctx context.Context, query string) (float64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to query %q: %w", query, err)
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return float64(vector[0].Value), nil
	}
	return 0, nil
}

// GetTickerUsage returns run totals for one ticker.
func (q *QueryService) GetTickerUsage(ctx context.Context, ticker string) (*TickerUsage, error) {
	usage := &TickerUsage{Ticker: ticker}

	succeeded, err := q.scalar(ctx, fmt.Sprintf(`sum(report_runs_total{ticker=%q, status="success"})`, ticker))
	if err != nil {
		return nil, err
	}
	failed, err := q.scalar(ctx, fmt.Sprintf(`sum(report_runs_total{ticker=%q, status="failure"})`, ticker))
	if err != nil {
		return nil, err
	}

	usage.Succeeded = int64(succeeded)
	usage.Failed = int64(failed)
	usage.Runs = usage.Succeeded + usage.Failed
	return usage, nil
}

// GetModelUsage returns provider request aggregates broken down by model.
func (q *QueryService) GetModelUsage(ctx context.Context) (map[string]*ModelUsage, error) {
	result := make(map[string]*ModelUsage)

	modelsResult, _, err := q.queryAPI.Query(ctx, `group by (model) (llm_requests_total)`, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}

	var models []string
	if vector, ok := modelsResult.(model.Vector); ok {
		for _, sample := range vector {
			if name, ok := sample.Metric["model"]; ok {
				models = append(models, string(name))
			}
		}
	}

	for _, name := range models {
		usage := &ModelUsage{Model: name}

		requests, err := q.scalar(ctx, fmt.Sprintf(`sum(llm_requests_total{model=%q})`, name))
		if err != nil {
			return nil, err
		}
		errors, err := q.scalar(ctx, fmt.Sprintf(`sum(llm_requests_total{model=%q, status="error"})`, name))
		if err != nil {
			return nil, err
		}
		durationSum, err := q.scalar(ctx, fmt.Sprintf(`sum(llm_request_duration_seconds_sum{model=%q})`, name))
		if err != nil {
			return nil, err
		}
		durationCount, err := q.scalar(ctx, fmt.Sprintf(`sum(llm_request_duration_seconds_count{model=%q})`, name))
		if err != nil {
			return nil, err
		}

		usage.Requests = int64(requests)
		usage.Errors = int64(errors)
		if durationCount > 0 {
			usage.AvgLatencySeconds = durationSum / durationCount
		}
		result[name] = usage
	}

	return result, nil
}
