package retry

import (
	"context"
	"fmt"
	"time"

	"analyst/pkg/llm"
	"analyst/pkg/llm/llmerrors"
)

// Middleware returns a middleware function that wraps an LLM client with the
// retry policy. Failed requests are re-attempted per the backoff schedule;
// exhausting the cap on a retryable error surfaces the classification-specific
// terminal error.
func Middleware(policy *Policy) llm.Middleware {
	return func(next llm.Client) llm.Client {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				var lastErr error
				var lastClass llmerrors.Class

				for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
					resp, err := next.Complete(ctx, req)
					if err == nil {
						return resp, nil
					}

					lastErr = err
					lastClass = llmerrors.ClassifyErr(err)

					delay, retry := policy.Delay(lastClass, attempt)
					if !retry {
						break
					}

					select {
					case <-ctx.Done():
						return llm.CompletionResponse{}, fmt.Errorf("retry cancelled: %w", ctx.Err())
					case <-time.After(delay):
					}
				}

				switch lastClass {
				case llmerrors.ClassNetwork:
					return llm.CompletionResponse{}, &llmerrors.ConnectivityError{Err: lastErr, Attempts: policy.MaxAttempts}
				case llmerrors.ClassRateLimited:
					return llm.CompletionResponse{}, &llmerrors.ProviderUnavailableError{Err: lastErr, Attempts: policy.MaxAttempts}
				default:
					return llm.CompletionResponse{}, &llmerrors.FatalGenerationError{Err: lastErr}
				}
			},
			func() string {
				return next.ModelName()
			},
		)
	}
}
