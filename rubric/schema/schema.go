/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package schema publishes the JSON Schema of rubric documents, for editors
// that validate rubric files and for clients of the HTTP API.
package schema

import (
	"encoding/json"

	"chainguard.dev/rubriceval/rubric"
	"github.com/invopop/jsonschema"
)

// Generator wraps jsonschema.Reflector with the settings used for rubric
// documents.
type Generator struct {
	reflector jsonschema.Reflector
}

// NewGenerator constructs a Generator. Required fields come from jsonschema
// tags and definitions are inlined.
func NewGenerator() *Generator {
	return &Generator{
		reflector: jsonschema.Reflector{
			RequiredFromJSONSchemaTags: true,
			ExpandedStruct:             true,
			AllowAdditionalProperties:  true,
			DoNotReference:             true,
		},
	}
}

// Reflect returns the JSON Schema for v.
func (g *Generator) Reflect(v any) *jsonschema.Schema {
	return g.reflector.Reflect(v)
}

// Rubric returns the schema of a rubric document: {"criteria": [...]}.
func Rubric() *jsonschema.Schema {
	s := NewGenerator().Reflect(&rubric.Rubric{})
	s.Title = "Rubric"
	s.Description = "Weighted criteria a document is scored against. Each criterion is scored 0-10."
	return s
}

// JSON returns the rubric document schema as indented JSON.
func JSON() ([]byte, error) {
	return json.MarshalIndent(Rubric(), "", "  ")
}
