// Provider error classification.
//
// The waterfall never inspects provider error strings. The provider adapter
// maps transport failures onto ProviderError with a fixed class taxonomy at
// the package boundary; orchestration and retry predicates branch on the
// class alone.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrorClass is the fixed classification of provider failures.
type ErrorClass string

const (
	// ClassInvalidArgument: the request itself was rejected (HTTP 400). Not
	// retryable; when a prompt cache was attached it usually means the cache
	// expired or belongs to another model, and the call should be rebuilt
	// without it.
	ClassInvalidArgument ErrorClass = "invalid_argument"
	// ClassRateLimited: quota exhausted (HTTP 429). Retryable with backoff.
	ClassRateLimited ErrorClass = "rate_limited"
	// ClassUnavailable: the model is overloaded or down (HTTP 503). Retryable;
	// after exhaustion the waterfall may fail over to the fallback model.
	ClassUnavailable ErrorClass = "unavailable"
	// ClassTimeout: the call exceeded its deadline (HTTP 504 or local
	// context deadline). Retryable.
	ClassTimeout ErrorClass = "timeout"
	// ClassInternal: provider-side 5xx other than the above. Retryable.
	ClassInternal ErrorClass = "internal"
	// ClassUnknown: everything else. Not retryable.
	ClassUnknown ErrorClass = "unknown"
)

// ProviderError is a classified provider failure.
type ProviderError struct {
	Class   ErrorClass
	Code    int // provider HTTP status when known, else 0
	Message string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm: %s (code %d): %s", e.Class, e.Code, e.Message)
}

// ClassOf extracts the class of err, or ClassUnknown for unclassified errors.
// Context deadline errors are mapped to ClassTimeout even when they were not
// wrapped by the adapter.
func ClassOf(err error) ErrorClass {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	return ClassUnknown
}

// IsTransient reports whether err is worth retrying on the same model.
func IsTransient(err error) bool {
	switch ClassOf(err) {
	case ClassRateLimited, ClassUnavailable, ClassTimeout, ClassInternal:
		return true
	}
	return false
}

// IsOverloaded reports whether err indicates the model cannot take load right
// now, which is the trigger for the fallback-model leg of the waterfall.
func IsOverloaded(err error) bool {
	return ClassOf(err) == ClassUnavailable
}

// IsInvalidArgument reports whether the request was structurally rejected.
func IsInvalidArgument(err error) bool {
	return ClassOf(err) == ClassInvalidArgument
}
