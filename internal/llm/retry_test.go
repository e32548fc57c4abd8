package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
	}
}

func TestRetryPolicySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := fastPolicy(4).Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicyStopsOnPermanentError(t *testing.T) {
	calls := 0
	perm := &ProviderError{Class: ClassInvalidArgument, Code: 400, Message: "bad cache"}
	err := fastPolicy(4).Do(context.Background(), func(context.Context) error {
		calls++
		return perm
	})
	if !errors.Is(err, perm) {
		t.Fatalf("err = %v, want %v", err, perm)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicyExhaustsTransientErrors(t *testing.T) {
	calls := 0
	overloaded := &ProviderError{Class: ClassUnavailable, Code: 503, Message: "overloaded"}
	err := fastPolicy(3).Do(context.Background(), func(context.Context) error {
		calls++
		return overloaded
	})
	if !errors.Is(err, overloaded) {
		t.Fatalf("err = %v, want last transient error", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryPolicyRecoversMidway(t *testing.T) {
	calls := 0
	err := fastPolicy(4).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &ProviderError{Class: ClassRateLimited, Code: 429}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryPolicyHonorsContextDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxAttempts: 5, BaseBackoff: time.Minute}
	calls := 0
	err := policy.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return &ProviderError{Class: ClassUnavailable, Code: 503}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestClassOfUnwrapsDeadline(t *testing.T) {
	if got := ClassOf(context.DeadlineExceeded); got != ClassTimeout {
		t.Fatalf("ClassOf(deadline) = %s, want %s", got, ClassTimeout)
	}
	if got := ClassOf(errors.New("boom")); got != ClassUnknown {
		t.Fatalf("ClassOf(unknown) = %s, want %s", got, ClassUnknown)
	}
}

func TestErrorPredicates(t *testing.T) {
	if !IsOverloaded(&ProviderError{Class: ClassUnavailable}) {
		t.Fatal("IsOverloaded should match ClassUnavailable")
	}
	if IsOverloaded(&ProviderError{Class: ClassRateLimited}) {
		t.Fatal("IsOverloaded should not match ClassRateLimited")
	}
	if !IsInvalidArgument(&ProviderError{Class: ClassInvalidArgument}) {
		t.Fatal("IsInvalidArgument should match ClassInvalidArgument")
	}
	if IsTransient(&ProviderError{Class: ClassInvalidArgument}) {
		t.Fatal("invalid argument must not be retryable")
	}
}
