/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rubric

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlCriterion mirrors Criterion with an optional weight so that YAML
// documents get the same defaulting as JSON ones.
type yamlCriterion struct {
	Name   string   `yaml:"name"`
	Weight *float64 `yaml:"weight"`
	Prompt string   `yaml:"prompt"`
}

// MarshalJSON encodes the rubric document body.
func MarshalJSON(r *Rubric) ([]byte, error) {
	criteria := r.Criteria
	if criteria == nil {
		criteria = []Criterion{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		Criteria []Criterion `json:"criteria"`
	}{criteria}); err != nil {
		return nil, fmt.Errorf("encoding rubric %q: %w", r.Name, err)
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a rubric document body into a rubric named name.
func UnmarshalJSON(name string, data []byte) (*Rubric, error) {
	r := &Rubric{Name: name}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decoding rubric %q: %w", name, err)
	}
	if r.Criteria == nil {
		r.Criteria = []Criterion{}
	}
	return r, nil
}

// MarshalYAML encodes the rubric document body as YAML.
func MarshalYAML(r *Rubric) ([]byte, error) {
	criteria := r.Criteria
	if criteria == nil {
		criteria = []Criterion{}
	}
	out, err := yaml.Marshal(struct {
		Criteria []Criterion `yaml:"criteria"`
	}{criteria})
	if err != nil {
		return nil, fmt.Errorf("encoding rubric %q: %w", r.Name, err)
	}
	return out, nil
}

// UnmarshalYAML decodes a YAML rubric document into a rubric named name.
func UnmarshalYAML(name string, data []byte) (*Rubric, error) {
	var doc struct {
		Criteria []yamlCriterion `yaml:"criteria"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding rubric %q: %w", name, err)
	}
	r := &Rubric{Name: name, Criteria: make([]Criterion, 0, len(doc.Criteria))}
	for _, c := range doc.Criteria {
		weight := DefaultWeight
		if c.Weight != nil {
			weight = *c.Weight
		}
		r.Criteria = append(r.Criteria, Criterion{Name: c.Name, Weight: weight, Prompt: c.Prompt})
	}
	return r, nil
}
