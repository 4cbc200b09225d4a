/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package document

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// GCS opens objects in Google Cloud Storage.
type GCS struct {
	Client *storage.Client
}

// Open implements Opener.
func (g GCS) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return g.Client.Bucket(bucket).Object(key).NewReader(ctx)
}

// S3 opens objects in Amazon S3 or an S3-compatible store.
type S3 struct {
	Client *s3.Client
}

// Open implements Opener.
func (s S3) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}
