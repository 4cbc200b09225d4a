/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gemini sends scoring requests to Gemini models through the Gemini
// API or Vertex AI.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"chainguard.dev/rubriceval/agents/agenttrace"
	"chainguard.dev/rubriceval/agents/completion"
	"chainguard.dev/rubriceval/agents/metrics"
	"chainguard.dev/rubriceval/agents/retry"
	"github.com/chainguard-dev/clog"
	"google.golang.org/genai"
)

// DefaultModel is the model requested when none is configured.
const DefaultModel = "gemini-2.5-flash"

const provider = "gemini"

// Option configures a Backend.
type Option func(*Backend) error

// WithAPIKey authenticates against the Gemini API.
func WithAPIKey(key string) Option {
	return func(b *Backend) error {
		b.cfg.APIKey = key
		return nil
	}
}

// WithVertex routes requests through Vertex AI in the given project and location.
func WithVertex(projectID, location string) Option {
	return func(b *Backend) error {
		if projectID == "" || location == "" {
			return errors.New("vertex requires both a project ID and a location")
		}
		b.cfg.Backend = genai.BackendVertexAI
		b.cfg.Project = projectID
		b.cfg.Location = location
		return nil
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(b *Backend) error {
		b.cfg.HTTPOptions.BaseURL = u
		return nil
	}
}

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(b *Backend) error {
		if model == "" {
			return errors.New("model cannot be empty")
		}
		b.model = model
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) error {
		if c == nil {
			return errors.New("http client cannot be nil")
		}
		b.cfg.HTTPClient = c
		return nil
	}
}

// WithMetrics sets where token usage is recorded.
func WithMetrics(m *metrics.GenAI) Option {
	return func(b *Backend) error {
		if m == nil {
			return errors.New("metrics cannot be nil")
		}
		b.metrics = m
		return nil
	}
}

// Backend implements completion.Interface over google.golang.org/genai.
type Backend struct {
	client  *genai.Client
	cfg     genai.ClientConfig
	model   string
	metrics *metrics.GenAI
}

var (
	_ completion.Interface  = (*Backend)(nil)
	_ completion.Classifier = (*Backend)(nil)
)

// New creates a Gemini backend. Without WithVertex it talks to the Gemini API
// and requires WithAPIKey.
func New(ctx context.Context, opts ...Option) (*Backend, error) {
	b := &Backend{
		model: DefaultModel,
		cfg:   genai.ClientConfig{Backend: genai.BackendGeminiAPI},
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	if b.cfg.Backend == genai.BackendGeminiAPI && b.cfg.APIKey == "" {
		return nil, errors.New("gemini backend needs an API key or a Vertex project")
	}
	if b.metrics == nil {
		b.metrics = metrics.NewGenAI(metrics.MeterName)
	}

	client, err := genai.NewClient(ctx, &b.cfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	b.client = client
	return b, nil
}

// Provider implements completion.Interface.
func (b *Backend) Provider() string { return provider }

// Model implements completion.Interface.
func (b *Backend) Model() string { return b.model }

// Complete implements completion.Interface.
func (b *Backend) Complete(ctx context.Context, req completion.Request) (resp *completion.Response, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { b.metrics.RecordCall(ctx, provider, b.model, time.Since(start), err) }()

	config := &genai.GenerateContentConfig{
		Temperature:     ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(min(req.MaxTokens, math.MaxInt32)),
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	out, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(req.User), config)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	var in, outTokens int64
	if out.UsageMetadata != nil {
		in = int64(out.UsageMetadata.PromptTokenCount)
		outTokens = int64(out.UsageMetadata.CandidatesTokenCount)
		b.metrics.RecordTokens(ctx, provider, b.model, in, outTokens)
		agenttrace.RecordTokenUsage(ctx, b.model, in, outTokens)
	}

	if len(out.Candidates) == 0 {
		return nil, errors.New("no content generated - no candidates")
	}
	candidate := out.Candidates[0]
	clog.FromContext(ctx).With("model", b.model).
		With("finish_reason", string(candidate.FinishReason)).
		With("prompt_tokens", in).
		With("candidate_tokens", outTokens).
		Debug("Received Gemini response")

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, completion.ErrEmptyResponse
	}
	return &completion.Response{Text: text.String(), InputTokens: in, OutputTokens: outTokens}, nil
}

// IsRetryable reports whether err is a rate limit, quota or transient server error.
func (b *Backend) IsRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retry.RetryableStatus(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return retry.RetryableStatus(apiErrPtr.Code)
	}
	return retry.RetryableMessage(err)
}

func ptr[T any](v T) *T {
	return &v
}
