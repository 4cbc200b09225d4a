/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package agenttrace records evaluation rounds and the scoring of each
// criterion as OpenTelemetry spans.
//
// A round span is the parent of one criterion span per criterion, and the
// completion backends annotate the active criterion span with token usage:
//
//	ctx, round := agenttrace.StartRound(ctx, id, len(criteria))
//	defer round.Complete(nil)
//
//	ctx, span := agenttrace.StartCriterion(ctx, i, c.Name, c.Weight)
//	span.RecordScore(score)
//	span.Complete(err)
package agenttrace

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	// TracerName identifies spans created by this package.
	TracerName = "chainguard.rubriceval.agenttrace"

	// RoundSpan and CriterionSpan are the span names.
	RoundSpan     = "rubriceval.round"
	CriterionSpan = "rubriceval.criterion"
)

func tracer() oteltrace.Tracer {
	return otel.Tracer(TracerName, oteltrace.WithInstrumentationVersion("1.0.0"))
}

// Span is an in-progress round or criterion span.
type Span struct {
	mu    sync.Mutex
	span  oteltrace.Span
	start time.Time
	ended bool
}

// StartRound starts the span covering a whole round.
func StartRound(ctx context.Context, roundID string, criteria int) (context.Context, *Span) {
	ctx, span := tracer().Start(ctx, RoundSpan, oteltrace.WithAttributes(
		attribute.String("round.id", roundID),
		attribute.Int("round.criteria", criteria),
	))
	return ctx, &Span{span: span, start: time.Now()}
}

// StartCriterion starts the span for scoring one criterion.
func StartCriterion(ctx context.Context, index int, name string, weight float64) (context.Context, *Span) {
	ctx, span := tracer().Start(ctx, CriterionSpan, oteltrace.WithAttributes(
		attribute.Int("criterion.index", index),
		attribute.String("criterion.name", name),
		attribute.Float64("criterion.weight", weight),
	))
	return ctx, &Span{span: span, start: time.Now()}
}

// RecordScore sets the criterion's raw score.
func (s *Span) RecordScore(score int) {
	s.span.SetAttributes(attribute.Int("criterion.score", score))
}

// RecordTotals sets the weighted total and maximum of a round.
func (s *Span) RecordTotals(weighted, maxPossible float64, failed int) {
	s.span.SetAttributes(
		attribute.Float64("round.weighted_total", weighted),
		attribute.Float64("round.max_possible", maxPossible),
		attribute.Int("round.failed", failed),
	)
}

// Complete ends the span, marking it as an error when err is non-nil.
// Calls after the first are ignored.
func (s *Span) Complete(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true

	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// Duration returns the time since the span started.
func (s *Span) Duration() time.Duration {
	return time.Since(s.start)
}

// RecordTokenUsage annotates the span active in ctx with the model and its
// token usage, so that consumption is visible per criterion in traces.
func RecordTokenUsage(ctx context.Context, model string, inputTokens, outputTokens int64) {
	span := oteltrace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String("model", model),
		attribute.Int64("tokens.input", inputTokens),
		attribute.Int64("tokens.output", outputTokens),
		attribute.Int64("tokens.total", inputTokens+outputTokens),
	)
}
