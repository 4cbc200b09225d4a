/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"context"
	"os"

	"cloud.google.com/go/compute/metadata"
	"github.com/chainguard-dev/clog"
	"golang.org/x/oauth2/google"
)

// ProjectID returns the GCP project used for Vertex AI. An explicit
// GCPProjectID wins; otherwise the project is detected from
// GOOGLE_CLOUD_PROJECT, the GCE metadata server, and finally the application
// default credentials. It returns "" when no project can be found.
func (c *Config) ProjectID(ctx context.Context) string {
	if c.GCPProjectID != "" {
		return c.GCPProjectID
	}
	log := clog.FromContext(ctx)

	if project := os.Getenv("GOOGLE_CLOUD_PROJECT"); project != "" {
		log.With("project", project).Debug("Using project from GOOGLE_CLOUD_PROJECT")
		return project
	}

	if metadata.OnGCE() {
		if project, err := metadata.ProjectIDWithContext(ctx); err == nil && project != "" {
			log.With("project", project).Debug("Using project from the metadata server")
			return project
		}
	}

	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err == nil && creds.ProjectID != "" {
		log.With("project", creds.ProjectID).Debug("Using project from application default credentials")
		return creds.ProjectID
	}
	return ""
}
