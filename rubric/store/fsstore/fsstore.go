/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package fsstore stores rubrics as JSON documents in a directory, one
// <name>.json file per rubric.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"chainguard.dev/rubriceval/rubric"
	"chainguard.dev/rubriceval/rubric/store"
	"github.com/chainguard-dev/clog"
)

const ext = ".json"

// Store is a directory-backed rubric store.
type Store struct {
	dir string
}

var _ store.Interface = (*Store)(nil)

// New returns a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("rubric directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating rubric directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory the store reads and writes.
func (s *Store) Dir() string {
	return s.dir
}

// path resolves a rubric name to its file, refusing anything that would
// escape the store directory.
func (s *Store) path(name string) (string, error) {
	if err := store.ValidateName(name); err != nil {
		return "", err
	}
	p := filepath.Join(s.dir, name+ext)
	if filepath.Dir(p) != filepath.Clean(s.dir) {
		return "", fmt.Errorf("%w: %q", store.ErrInvalidName, name)
	}
	return p, nil
}

// List implements store.Interface.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading rubric directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(names)
	return names, nil
}

// Load implements store.Interface.
func (s *Store) Load(ctx context.Context, name string) (*rubric.Rubric, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", store.ErrNotFound, name)
	} else if err != nil {
		return nil, fmt.Errorf("reading rubric %q: %w", name, err)
	}
	r, err := rubric.UnmarshalJSON(name, data)
	if err != nil {
		clog.FromContext(ctx).With("rubric", name).With("path", p).
			Warnf("Rubric file is corrupt: %v", err)
		return nil, err
	}
	return r, nil
}

// Save implements store.Interface. The file is replaced atomically.
func (s *Store) Save(ctx context.Context, r *rubric.Rubric) error {
	p, err := s.path(r.Name)
	if err != nil {
		return err
	}
	data, err := rubric.MarshalJSON(r)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+r.Name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("saving rubric %q: %w", r.Name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("saving rubric %q: %w", r.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving rubric %q: %w", r.Name, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("saving rubric %q: %w", r.Name, err)
	}

	clog.FromContext(ctx).With("rubric", r.Name).
		With("criteria", len(r.Criteria)).
		Debug("Saved rubric")
	return nil
}

// Create implements store.Interface.
func (s *Store) Create(ctx context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if _, err := os.Stat(p); err == nil {
		return fmt.Errorf("%w: %q", store.ErrExists, name)
	}
	return s.Save(ctx, &rubric.Rubric{Name: name, Criteria: []rubric.Criterion{}})
}

// Duplicate implements store.Interface. The source document is copied byte for byte.
func (s *Store) Duplicate(ctx context.Context, from, to string) error {
	src, err := s.path(from)
	if err != nil {
		return err
	}
	dst, err := s.path(to)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %q", store.ErrExists, to)
	}
	data, err := os.ReadFile(src)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %q", store.ErrNotFound, from)
	} else if err != nil {
		return fmt.Errorf("reading rubric %q: %w", from, err)
	}
	if err := os.WriteFile(dst, data, 0o600); err != nil {
		return fmt.Errorf("writing rubric %q: %w", to, err)
	}
	return nil
}

// Delete implements store.Interface.
func (s *Store) Delete(ctx context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %q", store.ErrNotFound, name)
	} else if err != nil {
		return fmt.Errorf("deleting rubric %q: %w", name, err)
	}
	clog.FromContext(ctx).With("rubric", name).Info("Deleted rubric")
	return nil
}
