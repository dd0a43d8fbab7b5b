package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func fastOptions() Options {
	return Options{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDoSucceedsAfterRetryableFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOptions(), func() error {
		calls++
		if calls < 3 {
			return &HTTPError{StatusCode: http.StatusServiceUnavailable}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	cause := &HTTPError{StatusCode: http.StatusBadRequest}
	err := Do(context.Background(), fastOptions(), func() error {
		calls++
		return cause
	})
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want the original failure", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoExhaustsBudget(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOptions(), func() error {
		calls++
		return &HTTPError{StatusCode: http.StatusTooManyRequests}
	})

	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("err = %v, want the final 429", err)
	}
	if calls != 4 {
		t.Fatalf("calls = %d, want 4 (1 + 3 retries)", calls)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastOptions(), func() error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("fn ran %d times after cancellation", calls)
	}
}

func TestIsRateLimited(t *testing.T) {
	if !IsRateLimited(&HTTPError{StatusCode: 429}) {
		t.Error("429 not reported as rate limited")
	}
	if IsRateLimited(&HTTPError{StatusCode: 503}) {
		t.Error("503 reported as rate limited")
	}
	if IsRateLimited(errors.New("boom")) {
		t.Error("plain error reported as rate limited")
	}
}

func TestIsRetryable(t *testing.T) {
	for code, want := range map[int]bool{
		429: true, 500: true, 502: true, 503: true, 504: true,
		400: false, 401: false, 404: false,
	} {
		if got := IsRetryable(&HTTPError{StatusCode: code}); got != want {
			t.Errorf("IsRetryable(%d) = %v, want %v", code, got, want)
		}
	}
	if IsRetryable(errors.New("boom")) {
		t.Error("plain error reported as retryable")
	}
}

func TestParseRetryAfterSeconds(t *testing.T) {
	if got := ParseRetryAfter("7"); got != 7*time.Second {
		t.Errorf("ParseRetryAfter(7) = %v", got)
	}
	if got := ParseRetryAfter(""); got != 0 {
		t.Errorf("ParseRetryAfter(empty) = %v", got)
	}
	if got := ParseRetryAfter("garbage"); got != 0 {
		t.Errorf("ParseRetryAfter(garbage) = %v", got)
	}
}

func TestParseRetryAfterHTTPDate(t *testing.T) {
	future := time.Now().Add(30 * time.Second).UTC().Format(time.RFC1123)
	got := ParseRetryAfter(future)
	if got <= 0 || got > 31*time.Second {
		t.Errorf("ParseRetryAfter(%q) = %v", future, got)
	}

	past := time.Now().Add(-time.Minute).UTC().Format(time.RFC1123)
	if got := ParseRetryAfter(past); got != 0 {
		t.Errorf("ParseRetryAfter(past date) = %v", got)
	}
}

func TestFullJitterSleepBounds(t *testing.T) {
	for attempt := 0; attempt < 6; attempt++ {
		for i := 0; i < 50; i++ {
			d := FullJitterSleep(attempt, time.Millisecond, 4*time.Millisecond)
			if d < 0 || d > 4*time.Millisecond {
				t.Fatalf("attempt %d: sleep %v out of bounds", attempt, d)
			}
		}
	}
}
