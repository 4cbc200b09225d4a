/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package store defines persistence for named rubrics.
//
// Two implementations are provided: fsstore keeps one JSON document per
// rubric in a directory, and sqlstore keeps rubrics in a SQL database
// (SQLite or PostgreSQL).
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"chainguard.dev/rubriceval/rubric"
)

var (
	// ErrNotFound is returned when a rubric does not exist.
	ErrNotFound = errors.New("rubric not found")
	// ErrExists is returned when creating a rubric whose name is taken.
	ErrExists = errors.New("rubric already exists")
	// ErrInvalidName is returned for names that cannot be stored.
	ErrInvalidName = errors.New("invalid rubric name")
)

// Interface is implemented by rubric stores.
type Interface interface {
	// List returns the names of all stored rubrics in lexical order.
	List(ctx context.Context) ([]string, error)

	// Load returns the named rubric.
	Load(ctx context.Context, name string) (*rubric.Rubric, error)

	// Save writes the rubric, creating or replacing it.
	Save(ctx context.Context, r *rubric.Rubric) error

	// Create stores a new rubric without criteria. It fails with ErrExists if the name is taken.
	Create(ctx context.Context, name string) error

	// Duplicate copies the rubric from into a new rubric named to.
	Duplicate(ctx context.Context, from, to string) error

	// Delete removes the named rubric.
	Delete(ctx context.Context, name string) error
}

var validName = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{M}\p{N} ._-]{0,127}$`)

// ValidateName checks that a rubric name is safe to use as a file name or key.
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// LoadCriteria loads the named rubric's criteria, returning an empty list when
// the rubric is missing or unreadable. This is the lenient read used ahead of
// an evaluation, where a broken rubric simply has nothing to evaluate.
func LoadCriteria(ctx context.Context, s Interface, name string) []rubric.Criterion {
	r, err := s.Load(ctx, name)
	if err != nil {
		return []rubric.Criterion{}
	}
	return r.Criteria
}
