/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package cli implements the rubriceval command line.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"chainguard.dev/rubriceval/agents/evaluator"
	"chainguard.dev/rubriceval/agents/orchestrator"
	"chainguard.dev/rubriceval/internal/config"
	"chainguard.dev/rubriceval/rubric/store"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// app carries the state shared by every subcommand.
type app struct {
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// ev replaces the configured scoring backend when set.
	ev evaluator.Interface

	store  store.Interface
	closer io.Closer
}

// Option configures the root command.
type Option func(*app)

// WithConfig uses cfg instead of reading the environment.
func WithConfig(cfg *config.Config) Option {
	return func(a *app) { a.cfg = cfg }
}

// WithEvaluator scores criteria with ev instead of the configured backend.
func WithEvaluator(ev evaluator.Interface) Option {
	return func(a *app) { a.ev = ev }
}

// WithIO redirects the standard streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(a *app) {
		a.stdin, a.stdout, a.stderr = stdin, stdout, stderr
	}
}

// NewRootCommand builds the rubriceval command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:     "rubriceval",
		Version: Version,
		Short:   "Score documents against weighted rubrics with a language model",
		Long: `rubriceval scores a document against every criterion of a rubric in
parallel, asking a language model for a 0-10 score and short feedback per
criterion, and reports the weighted total.

Configuration is read from RUBRICEVAL_* environment variables.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.closer != nil {
				return a.closer.Close()
			}
			return nil
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.AddCommand(
		a.rubricCommand(),
		a.evaluateCommand(),
		a.serveCommand(),
	)
	return root
}

// Execute runs the command line until ctx is done.
func Execute(ctx context.Context, opts ...Option) error {
	return NewRootCommand(opts...).ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if a.cfg == nil {
		cfg, err := config.Load(ctx)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	logger := a.cfg.Logger(a.stderr)
	slog.SetDefault(logger)
	ctx = clog.WithLogger(ctx, clog.New(logger.Handler()))
	cmd.SetContext(ctx)

	s, closer, err := a.cfg.Store(ctx)
	if err != nil {
		return err
	}
	a.store, a.closer = s, closer
	return nil
}

func (a *app) orchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	ev := a.ev
	if ev == nil {
		client, err := a.cfg.Completion(ctx)
		if err != nil {
			return nil, err
		}
		if ev, err = a.cfg.Evaluator(client); err != nil {
			return nil, err
		}
	}
	return a.cfg.Orchestrator(ev)
}
