// Package pipeline runs the report generation workflow: prompt assembly,
// provider invocation with classified retries, coordination-text stripping,
// artifact rendering and persistence.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"analyst/pkg/config"
	"analyst/pkg/llm"
	"analyst/pkg/llm/llmerrors"
	"analyst/pkg/llm/retry"
	"analyst/pkg/logx"
	"analyst/pkg/store"
)

// ReportStore persists finished reports. Satisfied by *store.Store.
type ReportStore interface {
	Save(ctx context.Context, req store.SaveRequest) (*store.Report, error)
}

// Renderer exports report artifacts to disk and returns their paths.
// Satisfied by *render.Renderer.
type Renderer interface {
	Render(ticker, mode, markdown string) (markdownPath, htmlPath string, err error)
}

// Observer receives pipeline lifecycle events for metrics recording.
type Observer interface {
	RunObserved(ticker, mode, status string)
	RetryObserved(class string)
	PersistObserved(chunks int)
}

type nopObserver struct{}

func (nopObserver) RunObserved(ticker, mode, status string) {}
func (nopObserver) RetryObserved(class string)              {}
func (nopObserver) PersistObserved(chunks int)              {}

// Request describes a single report to generate.
type Request struct {
	Ticker      string
	CompanyName string
	Mode        string
	Persist     bool // save to the report store
	Export      bool // write markdown/HTML artifacts to disk
}

// Result carries the outcome of a successful run. StorageErr and RenderErr
// record degraded side effects that did not abort the run.
type Result struct {
	Report       *store.Report
	Ticker       string
	Mode         string
	Markdown     string
	MarkdownPath string
	HTMLPath     string
	Attempts     int
	StorageErr   error
	RenderErr    error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver installs a metrics observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithSleep overrides the wait between retry attempts. Tests inject a
// recording sleeper so retry schedules are observable without real waits.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// Orchestrator drives report generation against a single provider client.
type Orchestrator struct {
	client   llm.Client
	policy   *retry.Policy
	store    ReportStore
	renderer Renderer
	observer Observer
	logger   *logx.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator. store and renderer may be nil when the caller
// never sets Persist or Export on its requests.
func New(client llm.Client, policy *retry.Policy, st ReportStore, renderer Renderer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:   client,
		policy:   policy,
		store:    st,
		renderer: renderer,
		observer: nopObserver{},
		logger:   logx.NewLogger("pipeline"),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run generates one report. On terminal failure it returns one of the
// llmerrors terminal types; transient failures are retried per the policy.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	ticker := normalizeTicker(req.Ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	mode, err := config.NormalizeMode(req.Mode)
	if err != nil {
		return nil, err
	}

	system, prompt := buildPrompt(mode, ticker, req.CompanyName)
	completion := llm.NewCompletionRequest([]llm.CompletionMessage{
		llm.NewSystemMessage(system),
		llm.NewUserMessage(prompt),
	})

	o.logger.Info("🚀 Generating %s report for %s", mode, ticker)

	markdown, attempts, err := o.generate(ctx, ticker, mode, completion)
	if err != nil {
		o.observer.RunObserved(ticker, mode, "failure")
		return nil, err
	}

	result := &Result{
		Ticker:   ticker,
		Mode:     mode,
		Markdown: markdown,
		Attempts: attempts,
	}

	if req.Export && o.renderer != nil {
		mdPath, htmlPath, renderErr := o.renderer.Render(ticker, mode, markdown)
		if renderErr != nil {
			result.RenderErr = &llmerrors.RenderingFailedError{Err: renderErr}
			o.logger.Warn("report for %s generated but not exported: %v", ticker, renderErr)
		} else {
			result.MarkdownPath = mdPath
			result.HTMLPath = htmlPath
			o.logger.Info("📄 Exported %s", mdPath)
		}
	}

	if req.Persist && o.store != nil {
		report, saveErr := o.store.Save(ctx, store.SaveRequest{
			Ticker:       ticker,
			CompanyName:  req.CompanyName,
			Mode:         mode,
			Markdown:     markdown,
			MarkdownPath: result.MarkdownPath,
			PDFPath:      result.HTMLPath,
		})
		switch {
		case report == nil && saveErr != nil:
			// Hard storage failure: the report text survived, so the run
			// still succeeds with the save error attached.
			result.StorageErr = saveErr
			o.logger.Error("report for %s generated but not saved: %v", ticker, saveErr)
		case saveErr != nil:
			// Degraded save: persisted without retrieval support.
			result.Report = report
			result.StorageErr = saveErr
		default:
			result.Report = report
			o.observer.PersistObserved(report.ChunkCount)
		}
	}

	o.observer.RunObserved(ticker, mode, "success")
	return result, nil
}

// generate runs the retry loop and returns the stripped report body.
func (o *Orchestrator) generate(ctx context.Context, ticker, mode string, completion llm.CompletionRequest) (string, int, error) {
	var lastErr error
	var lastClass llmerrors.Class

	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		resp, err := o.client.Complete(ctx, completion)
		if err == nil {
			body := StripCoordinationText(resp.Content)
			if strings.TrimSpace(body) == "" {
				return "", attempt, fmt.Errorf("%s %s report: %w", ticker, mode, llmerrors.ErrEmptyResult)
			}
			o.logger.Debug("report for %s completed on attempt %d (stop: %s)", ticker, attempt, resp.StopReason)
			return body, attempt, nil
		}

		lastErr = err
		lastClass = llmerrors.ClassifyErr(err)

		delay, retryable := o.policy.Delay(lastClass, attempt)
		if !retryable {
			return "", attempt, o.terminal(lastClass, lastErr, attempt)
		}

		o.observer.RetryObserved(lastClass.String())
		o.logger.Warn("⏳ Attempt %d/%d for %s failed (%s), retrying in %s: %v",
			attempt, o.policy.MaxAttempts, ticker, lastClass, delay, err)
		if err := o.sleep(ctx, delay); err != nil {
			return "", attempt, err
		}
	}

	return "", o.policy.MaxAttempts, o.terminal(lastClass, lastErr, o.policy.MaxAttempts)
}

func (o *Orchestrator) terminal(class llmerrors.Class, err error, attempts int) error {
	switch class {
	case llmerrors.ClassNetwork:
		return &llmerrors.ConnectivityError{Err: err, Attempts: attempts}
	case llmerrors.ClassRateLimited:
		return &llmerrors.ProviderUnavailableError{Err: err, Attempts: attempts}
	default:
		return &llmerrors.FatalGenerationError{Err: err}
	}
}
