/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package progress

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
)

// Event is one notification, in a form that can be stored or streamed.
type Event struct {
	// Type is "reset" or "state".
	Type  string `json:"type"`
	Count int    `json:"count,omitempty"`
	Index int    `json:"index"`
	State State  `json:"state"`
	Score *int   `json:"score,omitempty"`
}

func resetEvent(n int) Event { return Event{Type: "reset", Count: n} }

func stateEvent(index int, state State, score *int) Event {
	e := Event{Type: "state", Index: index, State: state}
	if score != nil {
		s := *score
		e.Score = &s
	}
	return e
}

// Recorder captures every notification in arrival order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ Sink = (*Recorder)(nil)

// OnReset implements Sink.
func (r *Recorder) OnReset(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, resetEvent(n))
}

// OnStateChange implements Sink.
func (r *Recorder) OnStateChange(index int, state State, score *int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, stateEvent(index, state, score))
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Stream is a Sink that writes each notification as a line of JSON, flushing
// after each one when the writer supports it.
type Stream struct {
	mu  sync.Mutex
	w   io.Writer
	enc *json.Encoder
	err error
}

var _ Sink = (*Stream)(nil)

// NewStream creates a Stream writing to w.
func NewStream(w io.Writer) *Stream {
	return &Stream{w: w, enc: json.NewEncoder(w)}
}

// Encode writes an arbitrary value as the next line of the stream.
func (s *Stream) Encode(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(v)
}

// Err returns the first write error, if any. Writes stop after an error.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// OnReset implements Sink.
func (s *Stream) OnReset(n int) {
	_ = s.Encode(resetEvent(n))
}

// OnStateChange implements Sink.
func (s *Stream) OnStateChange(index int, state State, score *int) {
	_ = s.Encode(stateEvent(index, state, score))
}

func (s *Stream) write(v any) error {
	if s.err != nil {
		return s.err
	}
	if err := s.enc.Encode(v); err != nil {
		s.err = err
		return err
	}
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
