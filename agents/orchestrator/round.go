/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package orchestrator

import (
	"time"

	"chainguard.dev/rubriceval/agents/progress"
	"chainguard.dev/rubriceval/rubric"
)

// CriterionResult is the outcome for one criterion, at the same position as
// the criterion in the rubric.
type CriterionResult struct {
	Criterion     string         `json:"criterion" yaml:"criterion"`
	Weight        float64        `json:"weight" yaml:"weight"`
	RawScore      int            `json:"raw_score" yaml:"raw_score"`
	WeightedScore float64        `json:"weighted_score" yaml:"weighted_score"`
	Feedback      string         `json:"feedback" yaml:"feedback"`
	Status        progress.State `json:"status" yaml:"status"`
	// Error is the failure cause when Status is Failed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Round is a finished evaluation of one document against a list of criteria.
type Round struct {
	ID       string             `json:"id" yaml:"id"`
	Rubric   string             `json:"rubric,omitempty" yaml:"rubric,omitempty"`
	Criteria []rubric.Criterion `json:"-" yaml:"-"`
	Results  []CriterionResult  `json:"results" yaml:"results"`

	StartedAt      time.Time     `json:"started_at" yaml:"started_at"`
	Elapsed        time.Duration `json:"-" yaml:"-"`
	ElapsedSeconds float64       `json:"elapsed_seconds" yaml:"elapsed_seconds"`

	// WeightedTotal sums RawScore*Weight over all results; failed results
	// score 0 and so add nothing.
	WeightedTotal float64 `json:"weighted_total" yaml:"weighted_total"`
	// MaxPossible is 10 times the total weight.
	MaxPossible float64 `json:"max_possible" yaml:"max_possible"`
}

func (r *Round) aggregate() {
	r.WeightedTotal = 0
	for _, res := range r.Results {
		r.WeightedTotal += res.WeightedScore
	}
	r.MaxPossible = rubric.MaxPossible(r.Criteria)
}

// FailedCount returns how many criteria failed to be scored.
func (r *Round) FailedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == progress.Failed {
			n++
		}
	}
	return n
}

// Degraded reports whether any criterion failed, so that the weighted total
// includes zero scores that are not genuine.
func (r *Round) Degraded() bool {
	return r.FailedCount() > 0
}
