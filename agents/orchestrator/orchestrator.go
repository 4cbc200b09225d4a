/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package orchestrator runs an evaluation round: every criterion of a rubric
// is scored concurrently against one document, progress is reported as each
// criterion finishes, and the results are aggregated in rubric order.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chainguard.dev/rubriceval/agents/agenttrace"
	"chainguard.dev/rubriceval/agents/evaluator"
	"chainguard.dev/rubriceval/agents/progress"
	"chainguard.dev/rubriceval/rubric"
	"github.com/chainguard-dev/clog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidInput is wrapped by every error RunRound returns. A round
	// that fails validation makes no scoring calls.
	ErrInvalidInput = errors.New("invalid evaluation input")

	ErrEmptyDocument    = fmt.Errorf("%w: document has no text", ErrInvalidInput)
	ErrNoCriteria       = fmt.Errorf("%w: rubric has no criteria", ErrInvalidInput)
	ErrInvalidCriterion = fmt.Errorf("%w: invalid criterion", ErrInvalidInput)
)

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithConcurrency caps how many criteria are scored at once. By default every
// criterion of a round is scored at the same time.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) error {
		if n <= 0 {
			return fmt.Errorf("concurrency must be positive, got %d", n)
		}
		o.limit = n
		return nil
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		o.now = now
		return nil
	}
}

// Orchestrator runs rounds. It keeps no state between rounds and may run
// several rounds at once.
type Orchestrator struct {
	ev    evaluator.Interface
	limit int
	now   func() time.Time
}

// New creates an Orchestrator that scores criteria with ev.
func New(ev evaluator.Interface, opts ...Option) (*Orchestrator, error) {
	if ev == nil {
		return nil, errors.New("evaluator is required")
	}
	o := &Orchestrator{ev: ev, now: time.Now}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	return o, nil
}

// Validate checks a document and criteria the way RunRound does, without
// scoring anything.
func Validate(document string, criteria []rubric.Criterion) error {
	if strings.TrimSpace(document) == "" {
		return ErrEmptyDocument
	}
	if len(criteria) == 0 {
		return ErrNoCriteria
	}
	for i, c := range criteria {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%w %d (%q): %w", ErrInvalidCriterion, i, c.Name, err)
		}
	}
	return nil
}

// notification is one message for the reporter goroutine.
type notification struct {
	reset bool
	n     int
	index int
	state progress.State
	score *int
}

// RunRound scores document against every criterion and returns the finished
// round. Validation failures are returned before any scoring starts; once
// started, a round always completes with one result per criterion.
//
// Cancelling ctx fails the criteria still being scored; it does not abort the
// round. sink may be nil.
func (o *Orchestrator) RunRound(ctx context.Context, document string, criteria []rubric.Criterion, sink progress.Sink) (*Round, error) {
	if err := Validate(document, criteria); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = progress.Nop
	}

	round := &Round{
		ID:        uuid.NewString(),
		Criteria:  append([]rubric.Criterion(nil), criteria...),
		Results:   make([]CriterionResult, len(criteria)),
		StartedAt: o.now(),
	}
	for i, c := range round.Criteria {
		round.Results[i] = CriterionResult{
			Criterion: c.Name,
			Weight:    c.Weight,
			Status:    progress.Pending,
		}
	}

	log := clog.FromContext(ctx).With("round", round.ID)
	ctx = clog.WithLogger(ctx, log)
	log.With("criteria", len(criteria)).Info("Starting evaluation round")

	ctx, span := agenttrace.StartRound(ctx, round.ID, len(criteria))

	// Every notification goes through one reporter goroutine so the sink is
	// never called concurrently. The buffer holds every notification a round
	// can produce, so tasks never block on a slow sink.
	notes := make(chan notification, 2*len(criteria)+1)
	reported := make(chan struct{})
	go func() {
		defer close(reported)
		report(sink, len(criteria), notes)
	}()
	notes <- notification{reset: true, n: len(criteria)}

	var g errgroup.Group
	if o.limit > 0 {
		g.SetLimit(o.limit)
	}
	for i, c := range round.Criteria {
		g.Go(func() error {
			notes <- notification{index: i, state: progress.Evaluating}
			res := o.evaluate(ctx, i, document, c)

			slot := &round.Results[i]
			slot.RawScore = res.RawScore
			slot.WeightedScore = float64(res.RawScore) * c.Weight
			slot.Feedback = res.Feedback
			slot.Status = progress.Done
			if res.Failed() {
				slot.Status = progress.Failed
				slot.Error = res.Err.Error()
			}

			score := res.RawScore
			notes <- notification{index: i, state: slot.Status, score: &score}
			return nil
		})
	}
	// Tasks report failures as results, so Wait never returns an error.
	_ = g.Wait()
	close(notes)
	<-reported

	round.Elapsed = o.now().Sub(round.StartedAt)
	round.ElapsedSeconds = round.Elapsed.Seconds()
	round.aggregate()
	span.RecordTotals(round.WeightedTotal, round.MaxPossible, round.FailedCount())
	span.Complete(nil)

	log.With("weighted_total", round.WeightedTotal).
		With("max_possible", round.MaxPossible).
		With("failed", round.FailedCount()).
		With("elapsed", round.Elapsed).
		Info("Evaluation round finished")
	return round, nil
}

// evaluate calls the evaluator inside a criterion span, turning a panic into
// a failed result.
func (o *Orchestrator) evaluate(ctx context.Context, index int, document string, c rubric.Criterion) (res evaluator.Result) {
	ctx, span := agenttrace.StartCriterion(ctx, index, c.Name, c.Weight)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("evaluator panicked: %v", r)
			res = evaluator.Result{Feedback: evaluator.ErrorPrefix + err.Error(), Err: err}
		}
		span.RecordScore(res.RawScore)
		span.Complete(res.Err)
	}()
	return o.ev.Evaluate(ctx, document, c)
}

// report delivers notifications to the sink in arrival order, dropping any
// that would move a criterion backwards.
func report(sink progress.Sink, n int, notes <-chan notification) {
	states := make([]progress.State, n)
	for note := range notes {
		if note.reset {
			sink.OnReset(note.n)
			continue
		}
		if !states[note.index].CanTransition(note.state) {
			continue
		}
		states[note.index] = note.state
		sink.OnStateChange(note.index, note.state, note.score)
	}
}
