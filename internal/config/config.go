/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config loads rubriceval settings from RUBRICEVAL_-prefixed
// environment variables and builds the components they describe.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"chainguard.dev/rubriceval/agents/evaluator"
	"chainguard.dev/rubriceval/agents/retry"
	"github.com/sethvargo/go-envconfig"
)

// Prefix is prepended to every environment variable name.
const Prefix = "RUBRICEVAL_"

// Providers accepted by Config.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Retry mirrors retry.Config.
type Retry struct {
	MaxRetries  int           `env:"MAX_RETRIES,default=2"`
	BaseBackoff time.Duration `env:"BASE_BACKOFF,default=1s"`
	MaxBackoff  time.Duration `env:"MAX_BACKOFF,default=20s"`
	MaxJitter   time.Duration `env:"MAX_JITTER,default=250ms"`
}

// Config holds every setting of the CLI and the server.
type Config struct {
	// Scoring API
	Provider string `env:"PROVIDER,default=openai"`
	APIURL   string `env:"API_URL,default=https://api.openai.com/v1/chat/completions"`
	APIKey   string `env:"API_KEY"`
	// Model defaults per provider when empty.
	Model        string `env:"MODEL"`
	GCPProjectID string `env:"GCP_PROJECT_ID"`
	GCPRegion    string `env:"GCP_REGION,default=us-east5"`

	// Scoring request
	Language    string        `env:"PROMPT_LANGUAGE,default=th"`
	Temperature float64       `env:"TEMPERATURE,default=0.5"`
	MaxTokens   int64         `env:"MAX_TOKENS,default=500"`
	Timeout     time.Duration `env:"TIMEOUT,default=300s"`
	Concurrency int           `env:"CONCURRENCY,default=0"`
	Retry       Retry         `env:", prefix=RETRY_"`

	// Rubric storage: a directory of JSON files unless DatabaseURL is set
	// (sqlite:///path/to.db or postgres://...).
	RubricDir   string `env:"RUBRIC_DIR,default=rubrics"`
	DatabaseURL string `env:"DATABASE_URL"`

	// Server
	Port        int    `env:"PORT,default=8080"`
	MetricsPort int    `env:"METRICS_PORT,default=2112"`
	AuthToken   string `env:"AUTH_TOKEN"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
}

// Load reads the configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads the configuration through l, which sees names with Prefix.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(Prefix, l),
	}); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that can be checked without network access.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}
	if _, err := c.PromptLanguage(); err != nil {
		errs = append(errs, err)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature must be between 0 and 2, got %v", c.Temperature))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max tokens must be positive, got %d", c.MaxTokens))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %v", c.Timeout))
	}
	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency cannot be negative, got %d", c.Concurrency))
	}
	if err := c.RetryConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("retry: %w", err))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// RetryConfig returns the retry policy for scoring calls.
func (c *Config) RetryConfig() retry.Config {
	return retry.Config{
		MaxRetries:  c.Retry.MaxRetries,
		BaseBackoff: c.Retry.BaseBackoff,
		MaxBackoff:  c.Retry.MaxBackoff,
		MaxJitter:   c.Retry.MaxJitter,
	}
}

// PromptLanguage returns the configured prompt language.
func (c *Config) PromptLanguage() (evaluator.Language, error) {
	switch l := evaluator.Language(strings.ToLower(c.Language)); l {
	case evaluator.Thai, evaluator.English:
		return l, nil
	}
	return "", fmt.Errorf("unsupported prompt language %q (want th or en)", c.Language)
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

// Logger returns the slog logger the configuration describes, writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
