/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chainguard.dev/rubriceval/rubric"
)

func writeRubric(w io.Writer, r *rubric.Rubric, format string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "yaml":
		data, err = rubric.MarshalYAML(r)
	case "json":
		data, err = rubric.MarshalJSON(r)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

// readRubric reads a rubric file, choosing JSON for .json files and YAML
// otherwise.
func readRubric(stdin io.Reader, path, name string) (*rubric.Rubric, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var r *rubric.Rubric
	if strings.EqualFold(filepath.Ext(path), ".json") {
		r, err = rubric.UnmarshalJSON(name, data)
	} else {
		r, err = rubric.UnmarshalYAML(name, data)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return r, nil
}
