package llmerrors

import (
	"errors"
	"fmt"
)

// Terminal error taxonomy for a single report run. Only ConnectivityError,
// ProviderUnavailableError, FatalGenerationError and EmptyResultError abort a
// run; StorageDegradedError and RenderingFailedError are logged and the run
// still succeeds with degraded capability.

// ConnectivityError indicates the provider was unreachable after the retry
// cap was exhausted on network failures.
type ConnectivityError struct {
	Err      error
	Attempts int
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("network connection error after %d attempts: cannot reach the model provider, check connectivity, firewall, or VPN settings: %v", e.Attempts, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// ProviderUnavailableError indicates the provider stayed rate-limited or
// overloaded through the retry cap.
type ProviderUnavailableError struct {
	Err      error
	Attempts int
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider unavailable after %d retry attempts: %v", e.Attempts, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// FatalGenerationError indicates a non-retryable provider or application
// error, propagated immediately without any waits.
type FatalGenerationError struct {
	Err error
}

func (e *FatalGenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *FatalGenerationError) Unwrap() error { return e.Err }

// ErrEmptyResult is returned when the provider reported success but produced
// no content.
var ErrEmptyResult = errors.New("generation produced no content")

// StorageDegradedError indicates embedding or chunk persistence failed; the
// report itself was saved but is not retrievable by similarity search.
type StorageDegradedError struct {
	Err      error
	ReportID string
}

func (e *StorageDegradedError) Error() string {
	return fmt.Sprintf("report %s saved without retrieval support: %v", e.ReportID, e.Err)
}

func (e *StorageDegradedError) Unwrap() error { return e.Err }

// RenderingFailedError indicates the artifact export step failed. Non-fatal.
type RenderingFailedError struct {
	Err error
}

func (e *RenderingFailedError) Error() string {
	return fmt.Sprintf("report rendering failed: %v", e.Err)
}

func (e *RenderingFailedError) Unwrap() error { return e.Err }

// IsTerminal reports whether err aborts a single report's generation.
func IsTerminal(err error) bool {
	var conn *ConnectivityError
	var unavail *ProviderUnavailableError
	var fatal *FatalGenerationError
	return errors.As(err, &conn) || errors.As(err, &unavail) || errors.As(err, &fatal) || errors.Is(err, ErrEmptyResult)
}

// IsProviderUnavailable reports whether err is a provider-unavailable
// terminal failure. Batch runs pause for operator confirmation on these.
func IsProviderUnavailable(err error) bool {
	var unavail *ProviderUnavailableError
	return errors.As(err, &unavail)
}
