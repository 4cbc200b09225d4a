/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package completion defines the single-turn chat completion call that scores
// a criterion, independent of the provider serving it.
//
// Backends live in subpackages:
//   - openaicompat: any OpenAI-compatible chat-completions endpoint
//   - claude: the Anthropic messages API, directly or through Vertex AI
//   - gemini: the Gemini API or Vertex AI through google.golang.org/genai
package completion

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/rubriceval/agents/retry"
)

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("empty response from scoring API")

// Request is a single system + user exchange.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int64
}

// Validate checks the request before it is sent.
func (r Request) Validate() error {
	if r.User == "" {
		return errors.New("user message is required")
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", r.Temperature)
	}
	if r.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", r.MaxTokens)
	}
	return nil
}

// Response is the model's reply text plus token usage.
type Response struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Interface is implemented by every backend.
type Interface interface {
	// Complete sends the request and returns the reply. Transport failures,
	// non-success statuses and replies without text are all errors.
	Complete(ctx context.Context, req Request) (*Response, error)
	// Provider names the backend, e.g. "openai".
	Provider() string
	// Model names the model requests are sent to.
	Model() string
}

// Func adapts a function to Interface. It is mostly useful in tests.
type Func func(ctx context.Context, req Request) (*Response, error)

func (f Func) Complete(ctx context.Context, req Request) (*Response, error) { return f(ctx, req) }
func (Func) Provider() string                                               { return "func" }
func (Func) Model() string                                                  { return "func" }

// Classifier is implemented by backends that know which of their errors are
// transient.
type Classifier interface {
	IsRetryable(error) bool
}

type retrying struct {
	Interface
	cfg         retry.Config
	isRetryable retry.Classifier
}

// WithRetry wraps inner so that transient failures are retried according to
// cfg. When isRetryable is nil the backend's own classification is used if it
// provides one, falling back to matching well-known error text.
func WithRetry(inner Interface, cfg retry.Config, isRetryable retry.Classifier) (Interface, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	if isRetryable == nil {
		if c, ok := inner.(Classifier); ok {
			isRetryable = c.IsRetryable
		} else {
			isRetryable = retry.RetryableMessage
		}
	}
	return &retrying{Interface: inner, cfg: cfg, isRetryable: isRetryable}, nil
}

func (r *retrying) Complete(ctx context.Context, req Request) (*Response, error) {
	return retry.Do(ctx, r.cfg, r.Provider()+"_complete", r.isRetryable, func(ctx context.Context) (*Response, error) {
		return r.Interface.Complete(ctx, req)
	})
}
