/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Checklist marks for each criterion.
const (
	MarkDone    = "✅"
	MarkWaiting = "⏳"
	MarkFailed  = "❌"
)

// Checklist renders the round as a markdown checklist, one line per
// criterion. When constructed with a writer it redraws after every change.
type Checklist struct {
	mu     sync.Mutex
	names  []string
	states []State
	out    io.Writer
}

var _ Sink = (*Checklist)(nil)

// NewChecklist creates a checklist for the named criteria. out may be nil.
func NewChecklist(names []string, out io.Writer) *Checklist {
	return &Checklist{
		names:  append([]string(nil), names...),
		states: make([]State, len(names)),
		out:    out,
	}
}

// OnReset implements Sink.
func (c *Checklist) OnReset(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = make([]State, n)
	c.draw()
}

// OnStateChange implements Sink.
func (c *Checklist) OnStateChange(index int, state State, _ *int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.states) {
		return
	}
	c.states[index] = state
	c.draw()
}

// Completed returns how many criteria have finished.
func (c *Checklist) Completed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.states {
		if s.Terminal() {
			n++
		}
	}
	return n
}

// String renders the checklist.
func (c *Checklist) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.render()
}

func (c *Checklist) render() string {
	var sb strings.Builder
	for i, s := range c.states {
		name := fmt.Sprintf("#%d", i+1)
		if i < len(c.names) {
			name = c.names[i]
		}
		mark := MarkWaiting
		switch s {
		case Done:
			mark = MarkDone
		case Failed:
			mark = MarkFailed
		}
		fmt.Fprintf(&sb, "- %s %s\n", mark, name)
	}
	return sb.String()
}

func (c *Checklist) draw() {
	if c.out == nil {
		return
	}
	done := 0
	for _, s := range c.states {
		if s.Terminal() {
			done++
		}
	}
	fmt.Fprintf(c.out, "Evaluated %d/%d\n%s\n", done, len(c.states), c.render())
}
