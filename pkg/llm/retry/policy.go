// Package retry provides the backoff schedule applied to retryable provider
// failures.
package retry

import (
	"time"

	"analyst/pkg/config"
	"analyst/pkg/llm/llmerrors"
)

// Policy computes wait durations from a failure class and 1-based attempt
// number. The attempt cap and delays come from configuration, not call sites.
type Policy struct {
	MaxAttempts   int
	NetworkWait   time.Duration
	RateLimitBase time.Duration
}

// NewPolicy builds a policy from the retry configuration.
func NewPolicy(cfg config.RetryConfig) *Policy {
	return &Policy{
		MaxAttempts:   cfg.MaxAttempts,
		NetworkWait:   cfg.NetworkWait(),
		RateLimitBase: cfg.RateLimitBase(),
	}
}

// Delay returns the wait before re-attempting after a failure of the given
// class on the given attempt, and whether a retry should happen at all.
// Network failures wait a fixed interval; rate-limit failures wait
// base * 2^(attempt-1). Fatal failures and exhausted caps return false.
func (p *Policy) Delay(class llmerrors.Class, attempt int) (time.Duration, bool) {
	if attempt < 1 {
		attempt = 1
	}
	if !class.Retryable() || attempt >= p.MaxAttempts {
		return 0, false
	}

	switch class {
	case llmerrors.ClassNetwork:
		return p.NetworkWait, true
	case llmerrors.ClassRateLimited:
		return p.RateLimitBase << (attempt - 1), true
	default:
		return 0, false
	}
}
