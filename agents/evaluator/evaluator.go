/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package evaluator scores a document against a single rubric criterion by
// asking a chat completion model and extracting the score from its reply.
//
// Evaluate never returns an error to its caller. Every failure (transport,
// status, timeout, malformed reply) becomes a Result whose feedback starts with
// "API error: " and whose score is 0, with Err recording the cause.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/rubriceval/agents/completion"
	"chainguard.dev/rubriceval/agents/metrics"
	"chainguard.dev/rubriceval/agents/score"
	"chainguard.dev/rubriceval/rubric"
	"github.com/chainguard-dev/clog"
)

// Defaults for the scoring request.
const (
	DefaultTimeout     = 300 * time.Second
	DefaultTemperature = 0.5
	DefaultMaxTokens   = 500
)

// ErrorPrefix starts the feedback of every failed evaluation.
const ErrorPrefix = "API error: "

// Result is the outcome of scoring one criterion.
type Result struct {
	// Feedback is the model's reply, or ErrorPrefix plus a diagnostic.
	Feedback string
	// RawScore is in [0, 10].
	RawScore int
	// Err is non-nil when the evaluation failed.
	Err error
}

// Failed reports whether the evaluation did not produce a model reply.
func (r Result) Failed() bool { return r.Err != nil }

// Interface scores a document against one criterion.
type Interface interface {
	Evaluate(ctx context.Context, document string, c rubric.Criterion) Result
}

// Option configures the evaluator.
type Option func(*evaluator) error

// WithTimeout bounds each evaluation call.
func WithTimeout(d time.Duration) Option {
	return func(e *evaluator) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		e.timeout = d
		return nil
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(e *evaluator) error {
		if t < 0 || t > 2 {
			return fmt.Errorf("temperature must be between 0 and 2, got %v", t)
		}
		e.temperature = t
		return nil
	}
}

// WithMaxTokens caps the length of the reply.
func WithMaxTokens(n int64) Option {
	return func(e *evaluator) error {
		if n <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", n)
		}
		e.maxTokens = n
		return nil
	}
}

// WithLanguage selects the prompt language. Thai is the default.
func WithLanguage(l Language) Option {
	return func(e *evaluator) error {
		p, ok := promptsByLanguage[l]
		if !ok {
			return fmt.Errorf("unsupported prompt language %q", l)
		}
		e.prompts = p
		return nil
	}
}

type evaluator struct {
	client      completion.Interface
	timeout     time.Duration
	temperature float64
	maxTokens   int64
	prompts     prompts
}

var _ Interface = (*evaluator)(nil)

// New creates an evaluator that sends requests through client.
func New(client completion.Interface, opts ...Option) (Interface, error) {
	if client == nil {
		return nil, errors.New("completion client is required")
	}
	e := &evaluator{
		client:      client,
		timeout:     DefaultTimeout,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		prompts:     promptsByLanguage[Thai],
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return e, nil
}

// Evaluate implements Interface.
func (e *evaluator) Evaluate(ctx context.Context, document string, c rubric.Criterion) (res Result) {
	log := clog.FromContext(ctx).With("criterion", c.Name).With("model", e.client.Model())
	ctx = clog.WithLogger(ctx, log)
	ctx = metrics.WithCriterion(ctx, c.Name)

	defer func() {
		if r := recover(); r != nil {
			res = failure(fmt.Errorf("panic while scoring: %v", r))
		}
		if res.Failed() {
			log.With("error", res.Err.Error()).Warn("Criterion evaluation failed")
		}
	}()

	user, err := e.prompts.render(document, c.Name, c.Prompt)
	if err != nil {
		return failure(fmt.Errorf("building prompt: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.client.Complete(ctx, completion.Request{
		System:      e.prompts.system,
		User:        user,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		return failure(err)
	}

	raw := score.Extract(resp.Text)
	log.With("score", raw).With("elapsed", time.Since(start)).Info("Criterion evaluated")
	return Result{Feedback: resp.Text, RawScore: raw}
}

func failure(err error) Result {
	return Result{
		Feedback: ErrorPrefix + err.Error(),
		RawScore: 0,
		Err:      err,
	}
}
