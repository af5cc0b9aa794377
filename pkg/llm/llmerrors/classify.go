// Package llmerrors provides failure classification and terminal error types
// for interactions with remote model providers.
package llmerrors

import "strings"

// Class represents the retry classification of a provider failure.
type Class int8

const (
	// ClassNetwork indicates connectivity to the provider could not be
	// established at all (DNS, refused connection, unreachable network).
	ClassNetwork Class = iota
	// ClassRateLimited indicates the provider signalled overload or
	// throttling (429/503, resource exhausted, rate limit).
	ClassRateLimited
	// ClassFatal indicates a non-retryable failure.
	ClassFatal
)

// String returns the string representation of the class.
func (c Class) String() string {
	switch c {
	case ClassNetwork:
		return "network"
	case ClassRateLimited:
		return "rate_limited"
	case ClassFatal:
		return "fatal"
	default:
		return "invalid"
	}
}

// Marker lists are data, not scattered conditionals, so the classification
// can be swapped for structured provider error codes if they ever appear.
// All matching is case-insensitive substring search over the rendered error.

var networkMarkers = []string{
	"getaddrinfo failed",
	"no such host",
	"connection refused",
	"failed to establish",
	"network is unreachable",
	"timed out",
}

var rateLimitMarkers = []string{
	"429",
	"resource_exhausted",
	"resource exhausted",
	"503",
	"unavailable",
	"rate limit",
	"overloaded",
}

// Classify maps an error's rendered message to a retry class. Network markers
// take precedence over rate-limit markers: a timeout reaching the service is
// a connectivity problem even when the message also mentions availability.
// Deterministic for identical input; anything unmatched is fatal.
func Classify(message string) Class {
	lowered := strings.ToLower(message)

	for _, marker := range networkMarkers {
		if strings.Contains(lowered, marker) {
			return ClassNetwork
		}
	}
	for _, marker := range rateLimitMarkers {
		if strings.Contains(lowered, marker) {
			return ClassRateLimited
		}
	}
	return ClassFatal
}

// ClassifyErr classifies an error value. A nil error is fatal to call out the
// programming mistake loudly in tests rather than masking it as retryable.
func ClassifyErr(err error) Class {
	if err == nil {
		return ClassFatal
	}
	return Classify(err.Error())
}

// Retryable reports whether the class is eligible for delayed re-attempts.
func (c Class) Retryable() bool {
	return c == ClassNetwork || c == ClassRateLimited
}
