/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package retry retries scoring API calls that fail with rate limit or
// transient server errors, using capped exponential backoff with jitter.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
)

// Config configures retry behavior.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	// 0 means do not retry at all.
	MaxRetries int
	// BaseBackoff is the delay before the first retry; it doubles on every retry.
	BaseBackoff time.Duration
	// MaxBackoff caps the doubled delay.
	MaxBackoff time.Duration
	// MaxJitter is the maximum random jitter added to each delay.
	MaxJitter time.Duration
}

// Validate checks that the configuration has valid values.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.BaseBackoff < 0 {
		return errors.New("base backoff cannot be negative")
	}
	if c.MaxBackoff < 0 {
		return errors.New("max backoff cannot be negative")
	}
	if c.MaxJitter < 0 {
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

// Default returns the configuration used for scoring calls. A whole round
// waits on its slowest criterion, so retries are few and short.
func Default() Config {
	return Config{
		MaxRetries:  2,
		BaseBackoff: 1 * time.Second,
		MaxBackoff:  20 * time.Second,
		MaxJitter:   250 * time.Millisecond,
	}
}

// Disabled returns a configuration that never retries.
func Disabled() Config {
	return Config{}
}

// Classifier decides whether an error is worth retrying.
type Classifier func(error) bool

// Do runs fn, retrying with exponential backoff while isRetryable reports the
// returned error as transient. The operation name is used for logging and error
// wrapping.
func Do[T any](ctx context.Context, cfg Config, operation string, isRetryable Classifier, fn func(context.Context) (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result, lastErr = fn(ctx)
		if lastErr == nil {
			return result, nil
		}
		if isRetryable == nil || !isRetryable(lastErr) {
			return result, lastErr
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		delay := Backoff(cfg, attempt)
		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("max_retries", cfg.MaxRetries).
			With("backoff", delay).
			With("error", lastErr.Error()).
			Warn("Transient scoring API error, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}

	return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, lastErr)
}

// Backoff returns the delay before retry number attempt+1:
// BaseBackoff * 2^attempt capped at MaxBackoff, plus up to MaxJitter.
func Backoff(cfg Config, attempt int) time.Duration {
	backoff := cfg.MaxBackoff
	if attempt < 32 {
		backoff = min(cfg.BaseBackoff<<attempt, cfg.MaxBackoff)
	}
	if backoff < 0 {
		backoff = cfg.MaxBackoff
	}

	if cfg.MaxJitter > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(int64(cfg.MaxJitter))); err == nil {
			backoff += time.Duration(n.Int64())
		}
	}
	return backoff
}

// RetryableStatus reports whether an HTTP status from a scoring API is
// transient: rate limiting, gateway failures and provider overload (529).
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		529:
		return true
	}
	return false
}

// transientMarkers are substrings seen in errors from providers that do not
// expose a typed status code.
var transientMarkers = []string{
	"Resource exhausted",
	"RESOURCE_EXHAUSTED",
	"429",
	"rate limit",
	"Overloaded",
	"503",
	"quota exceeded",
}

// RetryableMessage classifies an error by its text.
func RetryableMessage(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
