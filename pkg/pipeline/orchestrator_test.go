package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"analyst/pkg/config"
	"analyst/pkg/llm"
	"analyst/pkg/llm/llmerrors"
	"analyst/pkg/llm/retry"
	"analyst/pkg/store"
)

type scriptedClient struct {
	responses []llm.CompletionResponse
	errs      []error
	calls     int
}

func (c *scriptedClient) Complete(ctx context.Context, in llm.CompletionRequest) (llm.CompletionResponse, error) {
	idx := c.calls
	c.calls++
	if idx >= len(c.errs) {
		idx = len(c.errs) - 1
	}
	return c.responses[idx], c.errs[idx]
}

func (c *scriptedClient) ModelName() string { return "test-model" }

type fakeStore struct {
	saved  []store.SaveRequest
	report *store.Report
	err    error
}

func (f *fakeStore) Save(ctx context.Context, req store.SaveRequest) (*store.Report, error) {
	f.saved = append(f.saved, req)
	return f.report, f.err
}

type fakeRenderer struct {
	err   error
	calls int
}

func (f *fakeRenderer) Render(ticker, mode, markdown string) (string, string, error) {
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	return "/out/" + ticker + ".md", "/out/" + ticker + ".html", nil
}

func testRetryPolicy() *retry.Policy {
	return retry.NewPolicy(config.RetryConfig{
		MaxAttempts:      3,
		NetworkWaitSec:   30,
		RateLimitBaseSec: 60,
	})
}

// recordingSleep captures scheduled waits without actually waiting.
func recordingSleep(record *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*record = append(*record, d)
		return nil
	}
}

func TestRunSuccessFirstAttempt(t *testing.T) {
	client := &scriptedClient{
		responses: []llm.CompletionResponse{{Content: "## Executive Summary\n\nBuy."}},
		errs:      []error{nil},
	}
	st := &fakeStore{report: &store.Report{ID: "r1", Ticker: "AAPL", ChunkCount: 2}}
	var waits []time.Duration
	orch := New(client, testRetryPolicy(), st, nil, WithSleep(recordingSleep(&waits)))

	result, err := orch.Run(context.Background(), Request{Ticker: "aapl", Mode: "team", Persist: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Ticker != "AAPL" {
		t.Errorf("ticker not normalized: %s", result.Ticker)
	}
	if result.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", result.Attempts)
	}
	if len(waits) != 0 {
		t.Errorf("no waits expected, got %v", waits)
	}
	if len(st.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(st.saved))
	}
	if st.saved[0].Mode != config.ModeTeam {
		t.Errorf("saved mode = %s", st.saved[0].Mode)
	}
	if result.Report == nil || result.Report.ID != "r1" {
		t.Errorf("result missing saved report")
	}
}

func TestRunRetriesRateLimitThenSucceeds(t *testing.T) {
	client := &scriptedClient{
		responses: []llm.CompletionResponse{{}, {Content: "# Report\n\nHold."}},
		errs:      []error{errors.New("429 too many requests"), nil},
	}
	var waits []time.Duration
	orch := New(client, testRetryPolicy(), nil, nil, WithSleep(recordingSleep(&waits)))

	result, err := orch.Run(context.Background(), Request{Ticker: "MSFT", Mode: "simple"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", result.Attempts)
	}
	if len(waits) != 1 || waits[0] != 60*time.Second {
		t.Errorf("waits = %v, want one 60s wait", waits)
	}
}

func TestRunNetworkExhaustion(t *testing.T) {
	netErr := errors.New("dial tcp: connection refused")
	client := &scriptedClient{
		responses: []llm.CompletionResponse{{}, {}, {}},
		errs:      []error{netErr, netErr, netErr},
	}
	var waits []time.Duration
	orch := New(client, testRetryPolicy(), nil, nil, WithSleep(recordingSleep(&waits)))

	_, err := orch.Run(context.Background(), Request{Ticker: "NVDA", Mode: "team"})
	var conn *llmerrors.ConnectivityError
	if !errors.As(err, &conn) {
		t.Fatalf("expected ConnectivityError, got %v", err)
	}
	if conn.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", conn.Attempts)
	}
	if len(waits) != 2 {
		t.Errorf("expected 2 waits before exhaustion, got %v", waits)
	}
	for _, w := range waits {
		if w != 30*time.Second {
			t.Errorf("network wait = %s, want fixed 30s", w)
		}
	}
}

func TestRunRateLimitExhaustion(t *testing.T) {
	rlErr := errors.New("RESOURCE_EXHAUSTED")
	client := &scriptedClient{
		responses: []llm.CompletionResponse{{}, {}, {}},
		errs:      []error{rlErr, rlErr, rlErr},
	}
	var waits []time.Duration
	orch := New(client, testRetryPolicy(), nil, nil, WithSleep(recordingSleep(&waits)))

	_, err := orch.Run(context.Background(), Request{Ticker: "AMD", Mode: "team"})
	if !llmerrors.IsProviderUnavailable(err) {
		t.Fatalf("expected ProviderUnavailableError, got %v", err)
	}
	want := []time.Duration{60 * time.Second, 120 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait %d = %s, want %s", i, waits[i], want[i])
		}
	}
}

func TestRunFatalFailsImmediately(t *testing.T) {
	client := &scriptedClient{
		responses: []llm.CompletionResponse{{}},
		errs:      []error{errors.New("invalid api key")},
	}
	st := &fakeStore{}
	var waits []time.Duration
	orch := New(client, testRetryPolicy(), st, nil, WithSleep(recordingSleep(&waits)))

	_, err := orch.Run(context.Background(), Request{Ticker: "TSLA", Mode: "team", Persist: true})
	var fatal *llmerrors.FatalGenerationError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalGenerationError, got %v", err)
	}
	if client.calls != 1 {
		t.Errorf("fatal errors must not be retried, got %d calls", client.calls)
	}
	if len(waits) != 0 {
		t.Errorf("fatal errors must not wait, got %v", waits)
	}
	if len(st.saved) != 0 {
		t.Error("nothing should be persisted on failure")
	}
}

func TestRunEmptyResult(t *testing.T) {
	client := &scriptedClient{
		responses: []llm.CompletionResponse{{Content: "   \n\n  "}},
		errs:      []error{nil},
	}
	orch := New(client, testRetryPolicy(), nil, nil)

	_, err := orch.Run(context.Background(), Request{Ticker: "INTC", Mode: "simple"})
	if !errors.Is(err, llmerrors.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
}

func TestRunInvalidMode(t *testing.T) {
	orch := New(&scriptedClient{responses: []llm.CompletionResponse{{}}, errs: []error{nil}}, testRetryPolicy(), nil, nil)
	if _, err := orch.Run(context.Background(), Request{Ticker: "AAPL", Mode: "turbo"}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestRunRenderFailureNonFatal(t *testing.T) {
	client := &scriptedClient{
		responses: []llm.CompletionResponse{{Content: "# Report\n\nBuy."}},
		errs:      []error{nil},
	}
	renderer := &fakeRenderer{err: errors.New("disk full")}
	orch := New(client, testRetryPolicy(), nil, renderer)

	result, err := orch.Run(context.Background(), Request{Ticker: "AAPL", Mode: "team", Export: true})
	if err != nil {
		t.Fatalf("render failures must not abort the run: %v", err)
	}
	var renderErr *llmerrors.RenderingFailedError
	if !errors.As(result.RenderErr, &renderErr) {
		t.Errorf("expected RenderingFailedError, got %v", result.RenderErr)
	}
}

func TestRunDegradedSave(t *testing.T) {
	client := &scriptedClient{
		responses: []llm.CompletionResponse{{Content: "# Report\n\nBuy."}},
		errs:      []error{nil},
	}
	st := &fakeStore{
		report: &store.Report{ID: "r2", Ticker: "AAPL"},
		err:    &llmerrors.StorageDegradedError{ReportID: "r2", Err: errors.New("embedder down")},
	}
	orch := New(client, testRetryPolicy(), st, nil)

	result, err := orch.Run(context.Background(), Request{Ticker: "AAPL", Mode: "team", Persist: true})
	if err != nil {
		t.Fatalf("degraded saves must not abort the run: %v", err)
	}
	if result.Report == nil || result.Report.ID != "r2" {
		t.Error("degraded save should still return the stored report")
	}
	var degraded *llmerrors.StorageDegradedError
	if !errors.As(result.StorageErr, &degraded) {
		t.Errorf("expected StorageDegradedError, got %v", result.StorageErr)
	}
}
