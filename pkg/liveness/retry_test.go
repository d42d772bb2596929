package liveness

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicy_Do(t *testing.T) {
	errTransient := errors.New("transient")

	tests := []struct {
		name         string
		policy       RetryPolicy
		failures     int
		wantAttempts int
		wantErr      bool
	}{
		{"first try", RetryPolicy{MaxAttempts: 3}, 0, 1, false},
		{"second try", RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}, 1, 2, false},
		{"exhausted", RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}, 5, 3, true},
		{"zero attempts runs once", RetryPolicy{}, 5, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := tt.policy.Do(context.Background(), func(ctx context.Context, attempt int) error {
				attempts++
				if attempt != attempts {
					t.Errorf("attempt = %d, want %d", attempt, attempts)
				}
				if attempts <= tt.failures {
					return errTransient
				}
				return nil
			})

			if (err != nil) != tt.wantErr {
				t.Errorf("Do() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, errTransient) {
				t.Errorf("Do() error = %v, should wrap the last failure", err)
			}
			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
		})
	}
}

func TestRetryPolicy_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{MaxAttempts: 3, Delay: time.Hour}

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, func(ctx context.Context, attempt int) error {
			attempts++
			return errors.New("fail")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do() did not return after cancel")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetryPolicy_LinearBackoff(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Delay: 20 * time.Millisecond}

	start := time.Now()
	p.Do(context.Background(), func(ctx context.Context, attempt int) error {
		return errors.New("fail")
	})

	// 20ms after the first attempt, 40ms after the second.
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("elapsed = %v, want at least 60ms", elapsed)
	}
}
