/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cli

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/rubriceval/agents/progress"
	"chainguard.dev/rubriceval/agents/report"
	"chainguard.dev/rubriceval/document"
	"chainguard.dev/rubriceval/rubric/store"
	"cloud.google.com/go/storage"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

func (a *app) evaluateCommand() *cobra.Command {
	var (
		rubricName string
		file       string
		format     string
		quiet      bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a document against a rubric",
		Long: `Score a document against every criterion of a rubric and print the
weighted report. The document is a .txt, .md, .docx or .pdf file, "-" for stdin,
or a gs://bucket/key or s3://bucket/key object.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			loader, cleanup, err := a.loader(ctx, file)
			if err != nil {
				return err
			}
			defer cleanup()
			text, err := loader.Load(ctx, file)
			if err != nil {
				return err
			}

			criteria := store.LoadCriteria(ctx, a.store, rubricName)
			names := make([]string, len(criteria))
			for i, c := range criteria {
				names[i] = c.Name
			}

			orch, err := a.orchestrator(ctx)
			if err != nil {
				return err
			}
			sinks := []progress.Sink{progress.Log(ctx, names)}
			if !quiet {
				sinks = append(sinks, progress.NewChecklist(names, a.stderr))
			}

			round, err := orch.RunRound(ctx, text, criteria, progress.Multi(sinks...))
			if err != nil {
				return err
			}
			round.Rubric = rubricName
			return report.Write(a.stdout, f, round)
		},
	}
	cmd.Flags().StringVarP(&rubricName, "rubric", "r", "", "Rubric to score against")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Document to score")
	cmd.Flags().StringVarP(&format, "format", "o", string(report.FormatTable), "Output format: table, json or yaml")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not draw the progress checklist")
	_ = cmd.MarkFlagRequired("rubric")
	return cmd
}

// loader returns a document loader able to read location, creating an object
// storage client only when the location needs one.
func (a *app) loader(ctx context.Context, location string) (*document.Loader, func(), error) {
	opts := []document.Option{document.WithStdin(a.stdin)}
	cleanup := func() {}

	switch {
	case strings.HasPrefix(location, "gs://"):
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("creating storage client: %w", err)
		}
		opts = append(opts, document.WithOpener("gs", document.GCS{Client: client}))
		cleanup = func() {
			if err := client.Close(); err != nil {
				clog.FromContext(ctx).With("error", err.Error()).Warn("Closing storage client")
			}
		}

	case strings.HasPrefix(location, "s3://"):
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("loading AWS config: %w", err)
		}
		opts = append(opts, document.WithOpener("s3", document.S3{Client: s3.NewFromConfig(cfg)}))
	}
	return document.NewLoader(opts...), cleanup, nil
}

