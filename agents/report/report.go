/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package report renders a finished evaluation round as a markdown table,
// JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"chainguard.dev/rubriceval/agents/orchestrator"
	"gopkg.in/yaml.v3"
)

// Format names an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML}

// ParseFormat returns the Format named by s.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want one of %v)", s, Formats)
}

// Write renders round in the given format.
func Write(w io.Writer, f Format, round *orchestrator.Round) error {
	switch f {
	case FormatTable:
		return Table(w, round)
	case FormatJSON:
		return JSON(w, round)
	case FormatYAML:
		return YAML(w, round)
	}
	return fmt.Errorf("unknown format %q", f)
}

// JSON writes round as indented JSON.
func JSON(w io.Writer, round *orchestrator.Round) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(round)
}

// YAML writes round as YAML.
func YAML(w io.Writer, round *orchestrator.Round) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(round); err != nil {
		return err
	}
	return enc.Close()
}
