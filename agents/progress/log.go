/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package progress

import (
	"context"

	"github.com/chainguard-dev/clog"
)

type logSink struct {
	ctx   context.Context
	names []string
}

// Log returns a Sink that logs each transition through the logger carried by
// ctx. names labels criteria by index; it may be nil.
func Log(ctx context.Context, names []string) Sink {
	return &logSink{ctx: ctx, names: names}
}

func (l *logSink) OnReset(n int) {
	clog.FromContext(l.ctx).With("criteria", n).Info("Evaluation round started")
}

func (l *logSink) OnStateChange(index int, state State, score *int) {
	log := clog.FromContext(l.ctx).With("index", index).With("state", state.String())
	if index >= 0 && index < len(l.names) {
		log = log.With("criterion", l.names[index])
	}
	if score != nil {
		log = log.With("score", *score)
	}
	if state == Failed {
		log.Warn("Criterion failed")
		return
	}
	log.Debug("Criterion state changed")
}
