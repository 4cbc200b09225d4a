/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package retry_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"chainguard.dev/rubriceval/agents/retry"
)

func testConfig() retry.Config {
	return retry.Config{
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  10 * time.Millisecond,
		MaxJitter:   time.Millisecond,
	}
}

func alwaysRetryable(err error) bool {
	return err != nil
}

func TestDo_Success(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	got, err := retry.Do(context.Background(), testConfig(), "score", alwaysRetryable, func(context.Context) (string, error) {
		attempts.Add(1)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do() = %v", err)
	}
	if got != "ok" {
		t.Errorf("Do() = %q, want %q", got, "ok")
	}
	if n := attempts.Load(); n != 1 {
		t.Errorf("attempts = %d, want 1", n)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	got, err := retry.Do(context.Background(), testConfig(), "score", alwaysRetryable, func(context.Context) (int, error) {
		if attempts.Add(1) < 3 {
			return 0, errors.New("429 Too Many Requests")
		}
		return 7, nil
	})
	if err != nil {
		t.Fatalf("Do() = %v", err)
	}
	if got != 7 {
		t.Errorf("Do() = %d, want 7", got)
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestDo_ExhaustedRetries(t *testing.T) {
	t.Parallel()
	cause := errors.New("503 Service Unavailable")
	var attempts atomic.Int32
	_, err := retry.Do(context.Background(), testConfig(), "score", alwaysRetryable, func(context.Context) (string, error) {
		attempts.Add(1)
		return "", cause
	})
	if !errors.Is(err, cause) {
		t.Fatalf("Do() = %v, want wrapped %v", err, cause)
	}
	if !strings.HasPrefix(err.Error(), "score failed after 3 retries") {
		t.Errorf("Do() error = %q, want operation prefix", err)
	}
	if n := attempts.Load(); n != 4 {
		t.Errorf("attempts = %d, want 4 (1 initial + 3 retries)", n)
	}
}

func TestDo_NonRetryable(t *testing.T) {
	t.Parallel()
	cause := errors.New("401 unauthorized")
	var attempts atomic.Int32
	_, err := retry.Do(context.Background(), testConfig(), "score", func(error) bool { return false }, func(context.Context) (string, error) {
		attempts.Add(1)
		return "", cause
	})
	if !errors.Is(err, cause) {
		t.Fatalf("Do() = %v, want %v", err, cause)
	}
	if n := attempts.Load(); n != 1 {
		t.Errorf("attempts = %d, want 1", n)
	}
}

func TestDo_NilClassifier(t *testing.T) {
	t.Parallel()
	var attempts atomic.Int32
	_, err := retry.Do(context.Background(), testConfig(), "score", nil, func(context.Context) (string, error) {
		attempts.Add(1)
		return "", errors.New("429")
	})
	if err == nil {
		t.Fatal("Do() = nil, want error")
	}
	if n := attempts.Load(); n != 1 {
		t.Errorf("attempts = %d, want 1", n)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cfg := testConfig()
	cfg.BaseBackoff = time.Hour
	cfg.MaxBackoff = time.Hour

	var attempts atomic.Int32
	_, err := retry.Do(ctx, cfg, "score", alwaysRetryable, func(context.Context) (string, error) {
		attempts.Add(1)
		cancel()
		return "", errors.New("429 rate limit")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() = %v, want context.Canceled", err)
	}
	if n := attempts.Load(); n != 1 {
		t.Errorf("attempts = %d, want 1", n)
	}
}

func TestDo_AlreadyCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := retry.Do(ctx, testConfig(), "score", alwaysRetryable, func(context.Context) (string, error) {
		called = true
		return "", nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() = %v, want context.Canceled", err)
	}
	if called {
		t.Error("fn was called with a cancelled context")
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()
	cfg := retry.Config{BaseBackoff: time.Second, MaxBackoff: 5 * time.Second}
	for attempt, want := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second} {
		if got := retry.Backoff(cfg, attempt); got != want {
			t.Errorf("Backoff(%d) = %v, want %v", attempt, got, want)
		}
	}
	if got := retry.Backoff(cfg, 200); got != 5*time.Second {
		t.Errorf("Backoff(200) = %v, want cap", got)
	}

	cfg.MaxJitter = 100 * time.Millisecond
	for range 20 {
		if got := retry.Backoff(cfg, 0); got < time.Second || got >= time.Second+cfg.MaxJitter {
			t.Fatalf("Backoff with jitter = %v, want in [1s, 1.1s)", got)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     retry.Config
		wantErr bool
	}{
		{name: "default", cfg: retry.Default()},
		{name: "disabled", cfg: retry.Disabled()},
		{name: "negative retries", cfg: retry.Config{MaxRetries: -1}, wantErr: true},
		{name: "negative base", cfg: retry.Config{BaseBackoff: -1}, wantErr: true},
		{name: "negative max", cfg: retry.Config{MaxBackoff: -1}, wantErr: true},
		{name: "negative jitter", cfg: retry.Config{MaxJitter: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryableStatus(t *testing.T) {
	t.Parallel()
	for code, want := range map[int]bool{
		200: false, 400: false, 401: false, 404: false, 500: false,
		429: true, 502: true, 503: true, 504: true, 529: true,
	} {
		if got := retry.RetryableStatus(code); got != want {
			t.Errorf("RetryableStatus(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestRetryableMessage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want bool
	}{
		{err: nil, want: false},
		{err: errors.New("Error 429, Message: RESOURCE_EXHAUSTED"), want: true},
		{err: errors.New("model is Overloaded"), want: true},
		{err: errors.New("quota exceeded for project"), want: true},
		{err: errors.New("permission denied"), want: false},
		{err: errors.New("invalid argument"), want: false},
	}
	for _, tt := range tests {
		if got := retry.RetryableMessage(tt.err); got != tt.want {
			t.Errorf("RetryableMessage(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
