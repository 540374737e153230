package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sindit-io/kgsync/pkg/apperrors"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:   maxRetries,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.MaxRetries)
	}
	if cfg.InitialDelay != time.Second {
		t.Errorf("expected InitialDelay=1s, got %v", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 10*time.Second {
		t.Errorf("expected MaxDelay=10s, got %v", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("expected Multiplier=2.0, got %f", cfg.Multiplier)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	callCount := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		callCount++
		if callCount < 3 {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected no error after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDo_MaxRetriesExhausted(t *testing.T) {
	expectedErr := errors.New("persistent error")
	callCount := 0
	err := Do(context.Background(), fastConfig(2), func() error {
		callCount++
		return expectedErr
	})

	if err != expectedErr {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
	// MaxRetries=2 means: initial attempt + 2 retries = 3 total calls
	if callCount != 3 {
		t.Errorf("expected 3 calls (1 initial + 2 retries), got %d", callCount)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxRetries:   5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	callCount := 0
	err := Do(ctx, cfg, func() error {
		callCount++
		return errors.New("error")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", callCount)
	}
}

func TestDoWithResult_KeepsLastResult(t *testing.T) {
	callCount := 0
	result, err := DoWithResult(context.Background(), fastConfig(1), func() (int, error) {
		callCount++
		return callCount, errors.New("still failing")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if result != 2 {
		t.Errorf("expected last result 2, got %d", result)
	}
}

func TestNextDelay_Capped(t *testing.T) {
	cfg := fastConfig(5)
	delay := cfg.InitialDelay
	for i := 0; i < 5; i++ {
		delay = nextDelay(delay, cfg)
	}
	if delay != cfg.MaxDelay {
		t.Errorf("expected delay capped at %v, got %v", cfg.MaxDelay, delay)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "network error", err: &apperrors.NetworkError{Endpoint: "kg/nodes", Cause: errors.New("connection refused")}, expected: true},
		{name: "wrapped network error", err: fmt.Errorf("page 3: %w", &apperrors.NetworkError{Cause: errors.New("reset")}), expected: true},
		{name: "503 api error", err: &apperrors.APIError{StatusCode: 503}, expected: true},
		{name: "429 api error", err: &apperrors.APIError{StatusCode: 429}, expected: true},
		{name: "400 api error", err: &apperrors.APIError{StatusCode: 400}, expected: false},
		{name: "auth error", err: &apperrors.AuthError{Message: "expired"}, expected: false},
		{name: "config error", err: apperrors.NewConfigError("k", "missing"), expected: false},
		{name: "plain error", err: errors.New("boom"), expected: false},
		{name: "context canceled", err: context.Canceled, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestDoIfRetryable_RetryableError(t *testing.T) {
	callCount := 0
	err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
		callCount++
		if callCount < 2 {
			return &apperrors.APIError{StatusCode: 502, Endpoint: "kg/nodes", Method: "GET"}
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success after retry, got %v", err)
	}
	if callCount != 2 {
		t.Errorf("expected 2 calls, got %d", callCount)
	}
}

func TestDoIfRetryable_AuthErrorNotRetried(t *testing.T) {
	callCount := 0
	err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
		callCount++
		return &apperrors.AuthError{Endpoint: "kg/nodes", Message: "token rejected"}
	})

	if !apperrors.IsAuth(err) {
		t.Errorf("expected auth error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected auth error to stop after 1 call, got %d", callCount)
	}
}

func TestDoIfRetryableWithResult_MaxRetriesExhausted(t *testing.T) {
	callCount := 0
	_, err := DoIfRetryableWithResult(context.Background(), fastConfig(2), func() ([]string, error) {
		callCount++
		return nil, &apperrors.NetworkError{Endpoint: "kg/nodes", Cause: errors.New("i/o timeout")}
	})

	var netErr *apperrors.NetworkError
	if !errors.As(err, &netErr) {
		t.Errorf("expected network error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDoIfRetryable_NilConfig(t *testing.T) {
	err := DoIfRetryable(context.Background(), nil, func() error { return nil })
	if err != nil {
		t.Errorf("expected nil error with default config, got %v", err)
	}
}
