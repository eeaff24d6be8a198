package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(slept *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	calls := 0
	got, err := Do(context.Background(), Policy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, Sleep: noSleep(&slept)},
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("flaky")
			}
			return "ok", nil
		})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("Do() = %q after %d calls", got, calls)
	}
	if len(slept) != 2 || slept[0] != 10*time.Millisecond || slept[1] != 20*time.Millisecond {
		t.Fatalf("backoff = %v", slept)
	}
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	calls := 0
	boom := errors.New("boom")
	_, err := Do(context.Background(), Policy{MaxAttempts: 3, Sleep: noSleep(&slept)},
		func(context.Context) (int, error) {
			calls++
			return 0, boom
		})
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) || exhausted.Attempts != 3 {
		t.Fatalf("Do() error = %v, want exhausted after 3", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("Do() error must wrap the last failure: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoPermanentErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	calls := 0
	bad := errors.New("bad input")
	_, err := Do(context.Background(), Policy{MaxAttempts: 5},
		func(context.Context) (int, error) {
			calls++
			return 0, Permanent(bad)
		})
	if !errors.Is(err, bad) || calls != 1 {
		t.Fatalf("Do() = %v after %d calls, want one permanent failure", err, calls)
	}
	if IsPermanent(err) {
		t.Fatal("returned error must be unwrapped from the permanent marker")
	}
}

func TestDoAttemptTimeoutIsRetried(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	calls := 0
	got, err := Do(context.Background(), Policy{MaxAttempts: 2, AttemptTimeout: 5 * time.Millisecond, Sleep: noSleep(&slept)},
		func(ctx context.Context) (string, error) {
			calls++
			if calls == 1 {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "second", nil
		})
	if err != nil || got != "second" {
		t.Fatalf("Do() = %q, %v", got, err)
	}
}

func TestDoHonoursCancelledParent(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Do(ctx, Policy{}, func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Fatalf("Do() = %v after %d calls", err, calls)
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	t.Parallel()

	if d := backoffDelay(time.Second, 3*time.Second, 0, 5); d != 3*time.Second {
		t.Fatalf("backoffDelay() = %v, want cap", d)
	}
	d := backoffDelay(100*time.Millisecond, time.Second, 0.5, 0)
	if d < 100*time.Millisecond || d > 150*time.Millisecond {
		t.Fatalf("backoffDelay() with jitter = %v", d)
	}
}
