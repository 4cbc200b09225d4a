/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package progress defines the observer notified while a round is scored,
// along with the sinks used by the command line and the HTTP server.
//
// The orchestrator delivers every notification of a round from a single
// goroutine, so a Sink never sees concurrent calls from the same round. Sinks
// shared between rounds that run at the same time must guard their own state;
// every sink in this package does.
package progress

// Sink observes per-criterion state changes during a round.
// Implementations must return quickly: a slow sink delays later notifications.
type Sink interface {
	// OnReset announces a new round of n criteria, all Pending.
	OnReset(n int)
	// OnStateChange reports that criterion index entered state. score is
	// set only for Done and Failed.
	OnStateChange(index int, state State, score *int)
}

type nop struct{}

func (nop) OnReset(int)                     {}
func (nop) OnStateChange(int, State, *int) {}

// Nop is a Sink that discards every notification.
var Nop Sink = nop{}

type multi []Sink

// Multi fans notifications out to every sink in order. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) OnReset(n int) {
	for _, s := range m {
		s.OnReset(n)
	}
}

func (m multi) OnStateChange(index int, state State, score *int) {
	for _, s := range m {
		s.OnStateChange(index, state, score)
	}
}
