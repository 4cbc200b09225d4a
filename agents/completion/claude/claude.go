/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claude sends scoring requests to the Anthropic messages API, either
// directly with an API key or through Vertex AI with Google credentials.
package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chainguard.dev/rubriceval/agents/agenttrace"
	"chainguard.dev/rubriceval/agents/completion"
	"chainguard.dev/rubriceval/agents/metrics"
	"chainguard.dev/rubriceval/agents/retry"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
	"github.com/chainguard-dev/clog"
)

// DefaultModel is the model requested when none is configured.
const DefaultModel = "claude-sonnet-4-5"

const provider = "anthropic"

// Option configures a Backend.
type Option func(*Backend) error

// WithAPIKey authenticates directly against the Anthropic API.
func WithAPIKey(key string) Option {
	return func(b *Backend) error {
		b.apiKey = key
		return nil
	}
}

// WithVertex routes requests through Vertex AI in the given region and project
// using application default credentials.
func WithVertex(region, projectID string) Option {
	return func(b *Backend) error {
		if region == "" || projectID == "" {
			return errors.New("vertex requires both a region and a project ID")
		}
		b.region, b.projectID = region, projectID
		return nil
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(b *Backend) error {
		b.baseURL = u
		return nil
	}
}

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(b *Backend) error {
		if !strings.HasPrefix(model, "claude-") {
			return fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", model)
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
		b.httpClient = c
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

// Backend implements completion.Interface over the Anthropic SDK.
type Backend struct {
	client     anthropic.Client
	apiKey     string
	region     string
	projectID  string
	baseURL    string
	model      string
	httpClient *http.Client
	metrics    *metrics.GenAI
}

var (
	_ completion.Interface  = (*Backend)(nil)
	_ completion.Classifier = (*Backend)(nil)
)

// New creates a Claude backend.
func New(ctx context.Context, opts ...Option) (*Backend, error) {
	b := &Backend{model: DefaultModel}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	if b.metrics == nil {
		b.metrics = metrics.NewGenAI(metrics.MeterName)
	}

	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	switch {
	case b.projectID != "":
		clientOpts = append(clientOpts, vertex.WithGoogleAuth(ctx, b.region, b.projectID))
	case b.apiKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(b.apiKey))
	default:
		return nil, errors.New("claude backend needs an API key or a Vertex project")
	}
	if b.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(b.baseURL))
	}
	if b.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(b.httpClient))
	}
	b.client = anthropic.NewClient(clientOpts...)
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

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: req.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
		// Anthropic caps temperature at 1.0.
		Temperature: anthropic.Float(min(req.Temperature, 1.0)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	b.metrics.RecordTokens(ctx, provider, b.model, msg.Usage.InputTokens, msg.Usage.OutputTokens)
	agenttrace.RecordTokenUsage(ctx, b.model, msg.Usage.InputTokens, msg.Usage.OutputTokens)
	clog.FromContext(ctx).With("model", b.model).
		With("stop_reason", string(msg.StopReason)).
		With("input_tokens", msg.Usage.InputTokens).
		With("output_tokens", msg.Usage.OutputTokens).
		Debug("Received Claude message")

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, completion.ErrEmptyResponse
	}
	return &completion.Response{
		Text:         text.String(),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}, nil
}

// IsRetryable reports whether err is a rate limit, overload or gateway error.
func (b *Backend) IsRetryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return retry.RetryableStatus(apiErr.StatusCode)
	}
	return false
}
