/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cli

import (
	"fmt"

	"chainguard.dev/rubriceval/internal/config"
	"chainguard.dev/rubriceval/internal/server"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			orch, err := a.orchestrator(ctx)
			if err != nil {
				return err
			}

			var opts []server.Option
			if a.cfg.AuthToken != "" {
				opts = append(opts, server.WithAuthToken(a.cfg.AuthToken))
			} else {
				clog.WarnContextf(ctx, "%sAUTH_TOKEN is not set; the API is unauthenticated", config.Prefix)
			}
			srv := server.New(a.store, orch, opts...)

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				addr := fmt.Sprintf(":%d", a.cfg.Port)
				clog.InfoContextf(ctx, "Serving API on %s", addr)
				return server.ListenAndServe(ctx, addr, srv.Handler())
			})
			eg.Go(func() error {
				addr := fmt.Sprintf(":%d", a.cfg.MetricsPort)
				clog.InfoContextf(ctx, "Serving metrics on %s", addr)
				return server.ListenAndServe(ctx, addr, server.MetricsHandler())
			})
			return eg.Wait()
		},
	}
}
