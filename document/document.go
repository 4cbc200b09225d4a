/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package document turns an uploaded or referenced file into the plain text
// that is scored.
//
// Plain text (.txt, .md), Word (.docx) and PDF documents are supported. Files are
// read from the local filesystem, from standard input ("-"), or from object
// storage ("gs://bucket/key", "s3://bucket/key") when an Opener for the scheme
// is configured.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/chainguard-dev/clog"
)

// MaxSize is the largest document accepted, in bytes.
const MaxSize = 32 << 20

var (
	// ErrUnsupported is returned for file types that cannot be converted to text.
	ErrUnsupported = errors.New("unsupported document type")
	// ErrNoText is returned when a document converts to nothing but whitespace.
	ErrNoText = errors.New("no text available in document")
	// ErrTooLarge is returned for documents over MaxSize.
	ErrTooLarge = fmt.Errorf("document exceeds %d bytes", MaxSize)
)

// Extract converts the content of a file to text, choosing the format by the
// file name's extension.
func Extract(name string, data []byte) (string, error) {
	var text string
	switch ext := strings.ToLower(path.Ext(filepath.ToSlash(name))); ext {
	case ".txt", ".text", ".md", ".markdown", "":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s: text is not valid UTF-8", name)
		}
		text = string(bytes.TrimPrefix(data, []byte("\uFEFF")))
	case ".docx":
		var err error
		if text, err = extractDOCX(data); err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
	case ".pdf":
		var err error
		if text, err = extractPDF(data); err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNoText)
	}
	return text, nil
}

// Opener fetches objects from a storage service.
type Opener interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Loader reads documents from the locations it knows how to open.
type Loader struct {
	stdin   io.Reader
	openers map[string]Opener
}

// Option configures a Loader.
type Option func(*Loader)

// WithStdin sets the reader used for the "-" location.
func WithStdin(r io.Reader) Option {
	return func(l *Loader) { l.stdin = r }
}

// WithOpener handles locations of the form scheme://bucket/key.
func WithOpener(scheme string, o Opener) Option {
	return func(l *Loader) { l.openers[scheme] = o }
}

// NewLoader creates a Loader. Without options it reads local files and os.Stdin.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{stdin: os.Stdin, openers: map[string]Opener{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the document at location and extracts its text.
func (l *Loader) Load(ctx context.Context, location string) (string, error) {
	data, name, err := l.read(ctx, location)
	if err != nil {
		return "", err
	}
	text, err := Extract(name, data)
	if err != nil {
		return "", err
	}
	clog.FromContext(ctx).With("location", location).
		With("bytes", len(data)).
		With("chars", utf8.RuneCountInString(text)).
		Debug("Loaded document")
	return text, nil
}

func (l *Loader) read(ctx context.Context, location string) ([]byte, string, error) {
	if location == "-" {
		data, err := readLimited(l.stdin)
		return data, "stdin.txt", err
	}

	if scheme, rest, ok := strings.Cut(location, "://"); ok {
		o, found := l.openers[scheme]
		if !found {
			return nil, "", fmt.Errorf("%w: no reader configured for %s:// locations", ErrUnsupported, scheme)
		}
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return nil, "", fmt.Errorf("location %q must be %s://bucket/key", location, scheme)
		}
		rc, err := o.Open(ctx, bucket, key)
		if err != nil {
			return nil, "", fmt.Errorf("opening %s: %w", location, err)
		}
		defer rc.Close()
		data, err := readLimited(rc)
		if err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", location, err)
		}
		return data, key, nil
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := readLimited(f)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", location, err)
	}
	return data, location, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
