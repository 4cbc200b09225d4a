/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaicompat sends scoring requests to an OpenAI-compatible
// chat-completions endpoint, such as OpenAI itself or a self-hosted gateway.
package openaicompat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"chainguard.dev/rubriceval/agents/agenttrace"
	"chainguard.dev/rubriceval/agents/completion"
	"chainguard.dev/rubriceval/agents/metrics"
	"chainguard.dev/rubriceval/agents/retry"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultEndpoint is the full chat-completions URL used when none is configured.
	DefaultEndpoint = "https://api.openai.com/v1/chat/completions"
	// DefaultModel is the model requested when none is configured.
	DefaultModel = "gpt-4.1"

	provider = "openai"
)

// Option configures a Backend.
type Option func(*Backend) error

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(b *Backend) error {
		b.apiKey = key
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

// Backend implements completion.Interface over the openai-go client.
type Backend struct {
	client     openai.Client
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	metrics    *metrics.GenAI
}

var (
	_ completion.Interface  = (*Backend)(nil)
	_ completion.Classifier = (*Backend)(nil)
)

// New creates a backend for the given chat-completions endpoint. The endpoint
// may be given either as the full ".../chat/completions" URL or as the API base.
func New(endpoint string, opts ...Option) (*Backend, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	base, err := baseURL(endpoint)
	if err != nil {
		return nil, err
	}

	b := &Backend{
		endpoint: endpoint,
		model:    DefaultModel,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("applying option: %w", err)
		}
	}
	if b.metrics == nil {
		b.metrics = metrics.NewGenAI(metrics.MeterName)
	}

	clientOpts := []option.RequestOption{
		option.WithBaseURL(base),
		option.WithAPIKey(b.apiKey),
		// Retries are owned by completion.WithRetry.
		option.WithMaxRetries(0),
	}
	if b.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(b.httpClient))
	}
	b.client = openai.NewClient(clientOpts...)
	return b, nil
}

// baseURL turns a chat-completions URL into the API base the SDK expects.
// The SDK appends "chat/completions" to the base itself, so endpoints that
// carry a query string or name another operation are rejected rather than
// silently rewritten.
func baseURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("endpoint %q must be an http(s) URL", endpoint)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("endpoint %q cannot carry a query string or fragment", endpoint)
	}

	p := strings.TrimSuffix(u.Path, "/")
	p = strings.TrimSuffix(p, "/chat/completions")
	switch path.Base(p) {
	case "completions", "responses", "embeddings", "messages":
		return "", fmt.Errorf("endpoint %q must be a chat-completions URL or an API base", endpoint)
	}
	u.Path = p + "/"
	u.RawPath = ""
	return u.String(), nil
}

// Provider implements completion.Interface.
func (b *Backend) Provider() string { return provider }

// Model implements completion.Interface.
func (b *Backend) Model() string { return b.model }

// Endpoint returns the configured chat-completions URL.
func (b *Backend) Endpoint() string { return b.endpoint }

// Complete implements completion.Interface.
func (b *Backend) Complete(ctx context.Context, req completion.Request) (resp *completion.Response, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { b.metrics.RecordCall(ctx, provider, b.model, time.Since(start), err) }()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	out, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(b.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
		MaxTokens:   openai.Int(req.MaxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	b.metrics.RecordTokens(ctx, provider, b.model, out.Usage.PromptTokens, out.Usage.CompletionTokens)
	agenttrace.RecordTokenUsage(ctx, b.model, out.Usage.PromptTokens, out.Usage.CompletionTokens)
	clog.FromContext(ctx).With("model", b.model).
		With("prompt_tokens", out.Usage.PromptTokens).
		With("completion_tokens", out.Usage.CompletionTokens).
		Debug("Received chat completion")

	if len(out.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}
	text := out.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, completion.ErrEmptyResponse
	}
	return &completion.Response{
		Text:         text,
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
	}, nil
}

// IsRetryable reports whether err is a rate limit or transient server error.
func (b *Backend) IsRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return retry.RetryableStatus(apiErr.StatusCode)
	}
	return false
}
