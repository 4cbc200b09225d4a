/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"context"
	"fmt"
	"io"
	"strings"

	"chainguard.dev/rubriceval/agents/completion"
	"chainguard.dev/rubriceval/agents/completion/claude"
	"chainguard.dev/rubriceval/agents/completion/gemini"
	"chainguard.dev/rubriceval/agents/completion/openaicompat"
	"chainguard.dev/rubriceval/agents/evaluator"
	"chainguard.dev/rubriceval/agents/orchestrator"
	"chainguard.dev/rubriceval/rubric/store"
	"chainguard.dev/rubriceval/rubric/store/fsstore"
	"chainguard.dev/rubriceval/rubric/store/sqlstore"
	"github.com/chainguard-dev/clog"
)

// Completion builds the scoring API backend, wrapped with the retry policy.
func (c *Config) Completion(ctx context.Context) (completion.Interface, error) {
	var (
		backend completion.Interface
		err     error
	)
	switch c.Provider {
	case ProviderOpenAI:
		opts := []openaicompat.Option{openaicompat.WithAPIKey(c.APIKey)}
		if c.Model != "" {
			opts = append(opts, openaicompat.WithModel(c.Model))
		}
		backend, err = openaicompat.New(c.APIURL, opts...)

	case ProviderAnthropic:
		var opts []claude.Option
		if c.APIKey != "" {
			opts = append(opts, claude.WithAPIKey(c.APIKey))
		} else {
			project, perr := c.vertexProject(ctx)
			if perr != nil {
				return nil, perr
			}
			opts = append(opts, claude.WithVertex(c.GCPRegion, project))
		}
		if c.Model != "" {
			opts = append(opts, claude.WithModel(c.Model))
		}
		backend, err = claude.New(ctx, opts...)

	case ProviderGemini:
		var opts []gemini.Option
		if c.APIKey != "" {
			opts = append(opts, gemini.WithAPIKey(c.APIKey))
		} else {
			project, perr := c.vertexProject(ctx)
			if perr != nil {
				return nil, perr
			}
			opts = append(opts, gemini.WithVertex(project, c.GCPRegion))
		}
		if c.Model != "" {
			opts = append(opts, gemini.WithModel(c.Model))
		}
		backend, err = gemini.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unknown provider %q", c.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s backend: %w", c.Provider, err)
	}

	clog.FromContext(ctx).With("provider", backend.Provider()).
		With("model", backend.Model()).
		Debug("Created scoring backend")
	return completion.WithRetry(backend, c.RetryConfig(), nil)
}

func (c *Config) vertexProject(ctx context.Context) (string, error) {
	project := c.ProjectID(ctx)
	if project == "" {
		return "", fmt.Errorf("provider %s needs %sAPI_KEY, or a GCP project for Vertex AI (%sGCP_PROJECT_ID)", c.Provider, Prefix, Prefix)
	}
	return project, nil
}

// Evaluator builds a criterion evaluator over client.
func (c *Config) Evaluator(client completion.Interface) (evaluator.Interface, error) {
	lang, err := c.PromptLanguage()
	if err != nil {
		return nil, err
	}
	return evaluator.New(client,
		evaluator.WithLanguage(lang),
		evaluator.WithTemperature(c.Temperature),
		evaluator.WithMaxTokens(c.MaxTokens),
		evaluator.WithTimeout(c.Timeout),
	)
}

// Orchestrator builds the round orchestrator over ev.
func (c *Config) Orchestrator(ev evaluator.Interface) (*orchestrator.Orchestrator, error) {
	var opts []orchestrator.Option
	if c.Concurrency > 0 {
		opts = append(opts, orchestrator.WithConcurrency(c.Concurrency))
	}
	return orchestrator.New(ev, opts...)
}

// Store opens the rubric store. The returned closer releases it.
func (c *Config) Store(ctx context.Context) (store.Interface, io.Closer, error) {
	if c.DatabaseURL == "" {
		s, err := fsstore.New(c.RubricDir)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	}

	driver, dsn, err := ParseDatabaseURL(c.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	s, err := sqlstore.Open(ctx, driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	return s, s, nil
}

// ParseDatabaseURL maps a database URL onto a sqlstore driver and DSN.
// sqlite:///var/lib/rubrics.db and sqlite:rubrics.db select SQLite;
// postgres:// and postgresql:// URLs are passed to pgx unchanged.
func ParseDatabaseURL(u string) (sqlstore.Driver, string, error) {
	switch {
	case strings.HasPrefix(u, "sqlite://"):
		return sqlstore.SQLite, strings.TrimPrefix(u, "sqlite://"), nil
	case strings.HasPrefix(u, "sqlite:"):
		return sqlstore.SQLite, strings.TrimPrefix(u, "sqlite:"), nil
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return sqlstore.Postgres, u, nil
	}
	return "", "", fmt.Errorf("unsupported database URL %q (want sqlite: or postgres://)", u)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
