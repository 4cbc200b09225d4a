/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// DefaultWeight is applied to criteria that do not declare a weight.
const DefaultWeight = 1.0

// MaxScore is the highest score a single criterion can receive.
const MaxScore = 10

var (
	// ErrEmptyName is returned for a criterion without a name.
	ErrEmptyName = errors.New("criterion name is required")
	// ErrEmptyPrompt is returned for a criterion without a prompt.
	ErrEmptyPrompt = errors.New("criterion prompt is required")
	// ErrNegativeWeight is returned for a criterion with a weight below zero.
	ErrNegativeWeight = errors.New("criterion weight cannot be negative")
	// ErrInvalidWeight is returned for a NaN or infinite weight.
	ErrInvalidWeight = errors.New("criterion weight must be a finite number")
	// ErrIndexOutOfRange is returned when editing a criterion that does not exist.
	ErrIndexOutOfRange = errors.New("criterion index out of range")
)

// Criterion is a named, weighted evaluation dimension.
type Criterion struct {
	// Name identifies the criterion. Names are not required to be unique.
	Name string `json:"name" yaml:"name" jsonschema:"required,minLength=1,description=Name of the criterion shown in reports"`

	// Weight scales the criterion's 0-10 score in the weighted total.
	Weight float64 `json:"weight" yaml:"weight" jsonschema:"minimum=0,default=1,description=Multiplier applied to the 0-10 score"`

	// Prompt is the instructional text sent to the scoring model.
	Prompt string `json:"prompt" yaml:"prompt" jsonschema:"required,minLength=1,description=Instructions given to the scoring model"`
}

// UnmarshalJSON decodes a criterion, defaulting a missing weight to DefaultWeight.
func (c *Criterion) UnmarshalJSON(data []byte) error {
	type plain Criterion
	aux := struct {
		*plain
		Weight *float64 `json:"weight"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Weight = DefaultWeight
	if aux.Weight != nil {
		c.Weight = *aux.Weight
	}
	return nil
}

// Validate checks the criterion's fields.
func (c Criterion) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(c.Prompt) == "" {
		return fmt.Errorf("%q: %w", c.Name, ErrEmptyPrompt)
	}
	if math.IsNaN(c.Weight) || math.IsInf(c.Weight, 0) {
		return fmt.Errorf("%q: %w", c.Name, ErrInvalidWeight)
	}
	if c.Weight < 0 {
		return fmt.Errorf("%q: %w", c.Name, ErrNegativeWeight)
	}
	return nil
}

// Rubric is a named, ordered collection of criteria.
type Rubric struct {
	// Name is the rubric's identifier in a store. It is not part of the document body.
	Name string `json:"-" yaml:"-"`

	// Criteria are evaluated and reported in this order.
	Criteria []Criterion `json:"criteria" yaml:"criteria" jsonschema:"required,description=Criteria in evaluation and report order"`
}

// Validate checks every criterion in the rubric.
// Duplicate criterion names are allowed.
func (r *Rubric) Validate() error {
	for i, c := range r.Criteria {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("criterion %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the rubric.
func (r *Rubric) Clone() *Rubric {
	return &Rubric{
		Name:     r.Name,
		Criteria: slices.Clone(r.Criteria),
	}
}

// Add returns a copy of the rubric with c appended.
func (r *Rubric) Add(c Criterion) (*Rubric, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	out := r.Clone()
	out.Criteria = append(out.Criteria, c)
	return out, nil
}

// Replace returns a copy of the rubric with the criterion at index i replaced by c.
func (r *Rubric) Replace(i int, c Criterion) (*Rubric, error) {
	if i < 0 || i >= len(r.Criteria) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	out := r.Clone()
	out.Criteria[i] = c
	return out, nil
}

// Remove returns a copy of the rubric without the criterion at index i.
func (r *Rubric) Remove(i int) (*Rubric, error) {
	if i < 0 || i >= len(r.Criteria) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	out := r.Clone()
	out.Criteria = slices.Delete(out.Criteria, i, i+1)
	return out, nil
}

// TotalWeight sums the weights of the given criteria.
func TotalWeight(criteria []Criterion) float64 {
	var total float64
	for _, c := range criteria {
		total += c.Weight
	}
	return total
}

// MaxPossible is the weighted total a document would receive with a perfect
// score on every criterion.
func MaxPossible(criteria []Criterion) float64 {
	return MaxScore * TotalWeight(criteria)
}

// IsBalanced reports whether the weights sum to 1.0.
func IsBalanced(criteria []Criterion) bool {
	return math.Abs(TotalWeight(criteria)-1.0) <= 1e-6
}
