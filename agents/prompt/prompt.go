/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package prompt renders scoring prompts from templates with named
// {{placeholder}} slots.
//
// Every placeholder in a template must be bound exactly once before the
// prompt can be rendered, and binding a name the template does not contain is
// an error. Values are inserted once and never re-scanned, so text containing
// "{{" cannot introduce new placeholders.
//
//	var tmpl = prompt.MustNew(`Evaluate {{document}} against {{criterion}}.`)
//
//	out, err := tmpl.Render(map[string]prompt.Value{
//		"document":  prompt.Element("document", doc),
//		"criterion": prompt.Text(c.Name),
//	})
package prompt

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// Value is something that can be substituted into a placeholder.
type Value interface {
	render() (string, error)
}

type textValue string

func (t textValue) render() (string, error) { return string(t), nil }

// Text inserts s verbatim.
func Text(s string) Value { return textValue(s) }

type elementValue struct {
	tag     string
	content string
}

// escaper escapes only what could end the element early; newlines and quotes
// in documents are kept as written.
var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func (e elementValue) render() (string, error) {
	if !isIdentifier(e.tag) {
		return "", fmt.Errorf("invalid element name %q", e.tag)
	}
	return "<" + e.tag + ">\n" + escaper.Replace(e.content) + "\n</" + e.tag + ">", nil
}

// Element wraps content in an XML element named tag, escaping the content so
// that it cannot close the element early.
func Element(tag, content string) Value {
	return elementValue{tag: tag, content: content}
}

// Template is a parsed prompt template.
type Template struct {
	text  string
	names []string
}

// New parses a template, collecting its placeholder names.
func New(text string) (*Template, error) {
	var names []string
	_, err := walk(text, func(name string) (string, error) {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	return &Template{text: text, names: names}, nil
}

// MustNew is like New but panics on error. It is intended for package-level templates.
func MustNew(text string) *Template {
	t, err := New(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Names returns the template's placeholder names in order of first appearance.
func (t *Template) Names() []string {
	return slices.Clone(t.names)
}

// Render substitutes every placeholder with its bound value.
func (t *Template) Render(values map[string]Value) (string, error) {
	for name := range values {
		if !slices.Contains(t.names, name) {
			return "", fmt.Errorf("binding %q not found in template", name)
		}
	}
	rendered := make(map[string]string, len(t.names))
	for _, name := range t.names {
		v, ok := values[name]
		if !ok || v == nil {
			return "", fmt.Errorf("unbound placeholder: %s", name)
		}
		s, err := v.render()
		if err != nil {
			return "", err
		}
		rendered[name] = s
	}
	return walk(t.text, func(name string) (string, error) {
		return rendered[name], nil
	})
}

// walk copies text, replacing each {{name}} with resolve(name).
func walk(text string, resolve func(string) (string, error)) (string, error) {
	var out strings.Builder
	for len(text) > 0 {
		start := strings.Index(text, "{{")
		if start == -1 {
			out.WriteString(text)
			break
		}
		out.WriteString(text[:start])

		end := strings.Index(text[start:], "}}")
		if end == -1 {
			return "", errors.New("unclosed placeholder: missing '}}'")
		}
		end += start + 2

		name := strings.TrimSpace(text[start+2 : end-2])
		if !isIdentifier(name) {
			return "", fmt.Errorf("invalid placeholder %q", name)
		}
		s, err := resolve(name)
		if err != nil {
			return "", err
		}
		out.WriteString(s)
		text = text[end:]
	}
	return out.String(), nil
}

// isIdentifier reports whether s starts with a letter and continues with
// letters, digits or underscores.
func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '_'):
		default:
			return false
		}
	}
	return s != ""
}
