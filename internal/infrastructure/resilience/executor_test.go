package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func fastConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	}
}

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)

	var retried []int
	exec.OnRetry(func(_ string, attempt int, _ error) {
		retried = append(retried, attempt)
	})

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "backend.get_document", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, errTemp),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Fatalf("unexpected retry notifications: %v", retried)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "backend.get_document", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOnceNeverRetries(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.ExecuteOnce(context.Background(), "backend.upload", func(context.Context) error {
		attempts++
		return errTemp
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if !errors.Is(err, errTemp) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	}, nil)

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "backend.schema", func(context.Context) error {
			return errTemp
		}, classifier)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "backend.schema", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if !IsCircuitOpen(err) {
		t.Fatalf("expected IsCircuitOpen to report true for %v", err)
	}
	if state := exec.State("backend.schema"); state != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", state)
	}
	if state := exec.State("backend.upload"); state != gobreaker.StateClosed {
		t.Fatalf("expected untouched breaker to be closed, got %s", state)
	}
}

func TestExecuteStopsOnCancelledContext(t *testing.T) {
	exec := NewExecutor(fastConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := exec.Execute(ctx, "backend.get_document", func(context.Context) error {
		called = true
		return nil
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatalf("operation must not run with a cancelled context")
	}
}

func TestForPollIntervalBoundsBreakerTimings(t *testing.T) {
	cfg := DefaultConfig().ForPollInterval(3 * time.Second)
	if cfg.BreakerOpenTimeout != 6*time.Second {
		t.Fatalf("expected open timeout of two ticks, got %s", cfg.BreakerOpenTimeout)
	}
	if cfg.BreakerCountWindow != 30*time.Second {
		t.Fatalf("expected count window of ten ticks, got %s", cfg.BreakerCountWindow)
	}

	slow := DefaultConfig().ForPollInterval(time.Minute)
	if slow.BreakerOpenTimeout != DefaultConfig().BreakerOpenTimeout {
		t.Fatalf("expected default open timeout to be kept, got %s", slow.BreakerOpenTimeout)
	}

	unchanged := DefaultConfig().ForPollInterval(0)
	if unchanged.BreakerCountWindow != 0 {
		t.Fatalf("expected no count window without an interval, got %s", unchanged.BreakerCountWindow)
	}
}

func TestExecuteForgetsFailuresOutsideCountWindow(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Second,
		BreakerHalfOpenMaxCalls: 1,
		BreakerCountWindow:      20 * time.Millisecond,
	}, nil)

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{RecordFailure: true}
	}
	fail := func(context.Context) error { return errTemp }

	if err := exec.ExecuteOnce(context.Background(), "backend.get_document", fail, classifier); !errors.Is(err, errTemp) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if err := exec.ExecuteOnce(context.Background(), "backend.get_document", fail, classifier); !errors.Is(err, errTemp) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if state := exec.State("backend.get_document"); state != gobreaker.StateClosed {
		t.Fatalf("expected breaker to stay closed after the window reset, got %s", state)
	}
}
