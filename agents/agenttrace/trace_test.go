/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace_test

import (
	"context"
	"errors"
	"testing"

	"chainguard.dev/rubriceval/agents/agenttrace"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return sr
}

func attrs(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestRoundAndCriterionSpans(t *testing.T) {
	sr := recorder(t)

	ctx, round := agenttrace.StartRound(context.Background(), "round-1", 2)

	cctx, ok := agenttrace.StartCriterion(ctx, 0, "Clarity", 1.5)
	agenttrace.RecordTokenUsage(cctx, "gpt-4.1", 120, 30)
	ok.RecordScore(8)
	ok.Complete(nil)

	_, bad := agenttrace.StartCriterion(ctx, 1, "Budget", 1)
	bad.Complete(errors.New("status 503"))
	bad.Complete(nil) // ignored

	round.RecordTotals(12, 25, 1)
	round.Complete(nil)

	spans := sr.Ended()
	if got, want := len(spans), 3; got != want {
		t.Fatalf("ended spans: got = %d, wanted = %d", got, want)
	}

	clarity, budget, parent := spans[0], spans[1], spans[2]
	if clarity.Name() != agenttrace.CriterionSpan || parent.Name() != agenttrace.RoundSpan {
		t.Errorf("span names: got = %q, %q", clarity.Name(), parent.Name())
	}
	if clarity.Parent().SpanID() != parent.SpanContext().SpanID() {
		t.Error("criterion span is not a child of the round span")
	}

	a := attrs(clarity)
	if got := a["criterion.name"].AsString(); got != "Clarity" {
		t.Errorf("criterion.name: got = %q, wanted = Clarity", got)
	}
	if got := a["criterion.score"].AsInt64(); got != 8 {
		t.Errorf("criterion.score: got = %d, wanted = 8", got)
	}
	if got := a["tokens.total"].AsInt64(); got != 150 {
		t.Errorf("tokens.total: got = %d, wanted = 150", got)
	}
	if clarity.Status().Code != codes.Ok {
		t.Errorf("clarity status: got = %v, wanted = Ok", clarity.Status().Code)
	}

	if budget.Status().Code != codes.Error || budget.Status().Description != "status 503" {
		t.Errorf("budget status: got = %+v, wanted = Error(status 503)", budget.Status())
	}

	if got := attrs(parent)["round.weighted_total"].AsFloat64(); got != 12 {
		t.Errorf("round.weighted_total: got = %v, wanted = 12", got)
	}
}

func TestRecordTokenUsageWithoutSpan(t *testing.T) {
	// Must not panic when nothing is recording.
	agenttrace.RecordTokenUsage(context.Background(), "m", 1, 2)
}
