package pipeline

import (
	"context"
	"time"

	"analyst/pkg/config"
	"analyst/pkg/llm/llmerrors"
	"analyst/pkg/logx"
)

// Subject is one watchlist entry for a batch run.
type Subject struct {
	Ticker      string `json:"ticker" yaml:"ticker"`
	CompanyName string `json:"company_name" yaml:"company_name"`
}

// SubjectOutcome records how one subject fared. Err is nil on success.
type SubjectOutcome struct {
	Subject  Subject
	Result   *Result
	Err      error
	Duration time.Duration
}

// BatchSummary aggregates a full batch run. Stopped is true when the
// operator declined to continue after a provider-unavailable failure, or the
// context was cancelled; remaining subjects were not attempted.
type BatchSummary struct {
	Outcomes  []SubjectOutcome
	Succeeded int
	Failed    int
	Stopped   bool
}

// ConfirmFunc asks the operator whether to keep going after the provider
// reported sustained unavailability. Non-interactive callers supply a policy
// function instead of a prompt.
type ConfirmFunc func(failed Subject, err error) bool

// BatchRunner runs a watchlist of subjects sequentially through one
// orchestrator, spacing runs out to stay under provider quotas.
type BatchRunner struct {
	orch    *Orchestrator
	cfg     config.BatchConfig
	confirm ConfirmFunc
	logger  *logx.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewBatchRunner creates a batch runner. confirm may be nil, in which case
// the batch stops on the first provider-unavailable failure.
func NewBatchRunner(orch *Orchestrator, cfg config.BatchConfig, confirm ConfirmFunc) *BatchRunner {
	return &BatchRunner{
		orch:    orch,
		cfg:     cfg,
		confirm: confirm,
		logger:  logx.NewLogger("batch"),
		sleep:   orch.sleep,
	}
}

// Run processes subjects in order. A failed subject is recorded and the
// batch moves on, except provider-unavailable failures, which pause for
// operator confirmation before continuing.
func (b *BatchRunner) Run(ctx context.Context, subjects []Subject, req Request) (*BatchSummary, error) {
	summary := &BatchSummary{}

	for i, subject := range subjects {
		if i > 0 {
			b.logger.Info("😴 Cooling down %ds before %s", b.cfg.CooldownSec, subject.Ticker)
			if err := b.sleep(ctx, b.cfg.Cooldown()); err != nil {
				summary.Stopped = true
				return summary, err
			}
		}

		run := req
		run.Ticker = subject.Ticker
		run.CompanyName = subject.CompanyName

		b.logger.Info("📊 [%d/%d] %s", i+1, len(subjects), subject.Ticker)
		start := time.Now()
		result, err := b.orch.Run(ctx, run)
		outcome := SubjectOutcome{Subject: subject, Result: result, Err: err, Duration: time.Since(start)}
		summary.Outcomes = append(summary.Outcomes, outcome)

		if err == nil {
			summary.Succeeded++
			continue
		}
		summary.Failed++
		b.logger.Error("subject %s failed: %v", subject.Ticker, err)

		if ctx.Err() != nil {
			summary.Stopped = true
			return summary, ctx.Err()
		}

		if llmerrors.IsProviderUnavailable(err) {
			if b.confirm == nil || !b.confirm(subject, err) {
				b.logger.Warn("🛑 Stopping batch after provider-unavailable failure on %s", subject.Ticker)
				summary.Stopped = true
				return summary, nil
			}
			b.logger.Info("⏸️  Pausing %ds before resuming batch", b.cfg.UnavailablePauseSec)
			if err := b.sleep(ctx, b.cfg.UnavailablePause()); err != nil {
				summary.Stopped = true
				return summary, err
			}
		}
	}

	b.logger.Info("✅ Batch complete: %d succeeded, %d failed", summary.Succeeded, summary.Failed)
	return summary, nil
}
