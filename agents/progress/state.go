/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package progress

import "fmt"

// State is the lifecycle position of one criterion within a round.
// States only move forward: Pending, then Evaluating, then Done or Failed.
type State int

const (
	Pending State = iota
	Evaluating
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Evaluating:
		return "evaluating"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether s is Done or Failed.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// CanTransition reports whether a criterion in state s may move to next.
func (s State) CanTransition(next State) bool {
	switch s {
	case Pending:
		return next == Evaluating || next.Terminal()
	case Evaluating:
		return next.Terminal()
	}
	return false
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	if s < Pending || s > Failed {
		return nil, fmt.Errorf("unknown state %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for c := Pending; c <= Failed; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}
