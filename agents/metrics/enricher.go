/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// AttributeEnricher adds contextual attributes to the base set (provider, model)
// before a metric is recorded.
type AttributeEnricher func(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue

type criterionKey struct{}

// WithCriterion returns a context carrying the name of the criterion being scored.
func WithCriterion(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, criterionKey{}, name)
}

// CriterionFrom returns the criterion name stored by WithCriterion, if any.
func CriterionFrom(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(criterionKey{}).(string)
	return name, ok
}

// CriterionEnricher tags metrics with the criterion carried by the context.
func CriterionEnricher(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	if name, ok := CriterionFrom(ctx); ok {
		return append(baseAttrs, attribute.String("criterion", name))
	}
	return baseAttrs
}
