/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package document_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chainguard.dev/rubriceval/document"
	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

const bodyXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>ข้อเสนอโครงการ</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Budget: </w:t></w:r><w:r><w:tab/><w:t>5,000 &amp; more</w:t></w:r></w:p>
    <w:p/>
    <w:p><w:r><w:t>Line one</w:t><w:br/><w:t>Line two</w:t></w:r></w:p>
  </w:body>
</w:document>`

func makeDOCX(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	data := makeDOCX(t, map[string]string{
		"[Content_Types].xml": "<Types/>",
		"word/document.xml":   bodyXML,
	})
	got, err := document.Extract("proposal.DOCX", data)
	require.NoError(t, err)
	require.Equal(t, "ข้อเสนอโครงการ\nBudget: \t5,000 & more\n\nLine one\nLine two", got)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    []byte
		want    string
		wantErr error
	}{
		{name: "text", file: "a.txt", data: []byte("hello"), want: "hello"},
		{name: "markdown with BOM", file: "a.md", data: []byte("\uFEFF# Title"), want: "# Title"},
		{name: "whitespace only", file: "a.txt", data: []byte(" \n\t"), wantErr: document.ErrNoText},
		{name: "truncated pdf", file: "a.pdf", data: []byte("%PDF-1.7")},
		{name: "image", file: "a.png", data: []byte{0x89}, wantErr: document.ErrUnsupported},
		{name: "empty docx", file: "a.docx", data: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := document.Extract(tt.file, tt.data)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.want == "":
				require.Error(t, err)
			default:
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractPDF(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "proposal.pdf"))
	require.NoError(t, err)

	got, err := document.Extract("proposal.PDF", data)
	require.NoError(t, err)
	require.Contains(t, got, "Budget plan 5000")
}

func TestExtractPDFWithoutText(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "scanned.pdf"))
	require.NoError(t, err)

	_, err = document.Extract("scanned.pdf", data)
	require.ErrorIs(t, err, document.ErrNoText)
}

func TestExtractInvalidUTF8(t *testing.T) {
	_, err := document.Extract("a.txt", []byte{0xff, 0xfe, 0x00})
	require.Error(t, err)
}

func TestExtractDOCXWithoutBody(t *testing.T) {
	_, err := document.Extract("a.docx", makeDOCX(t, map[string]string{"word/styles.xml": "<x/>"}))
	require.ErrorContains(t, err, "word/document.xml")
}

func TestLoaderLocalAndStdin(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "proposal.md")
	require.NoError(t, os.WriteFile(p, []byte("# Proposal\nBody"), 0o600))

	l := document.NewLoader(document.WithStdin(strings.NewReader("pasted text")))
	got, err := l.Load(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, "# Proposal\nBody", got)

	got, err = l.Load(context.Background(), "-")
	require.NoError(t, err)
	require.Equal(t, "pasted text", got)

	_, err = l.Load(context.Background(), filepath.Join(dir, "missing.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

type fakeOpener map[string]string

func (f fakeOpener) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	body, ok := f[bucket+"/"+key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestLoaderObjectStorage(t *testing.T) {
	l := document.NewLoader(document.WithOpener("gs", fakeOpener{"proposals/2026/a.txt": "from bucket"}))

	got, err := l.Load(context.Background(), "gs://proposals/2026/a.txt")
	require.NoError(t, err)
	require.Equal(t, "from bucket", got)

	_, err = l.Load(context.Background(), "gs://proposals/missing.txt")
	require.ErrorContains(t, err, "object not found")

	_, err = l.Load(context.Background(), "gs://proposals")
	require.Error(t, err)

	_, err = l.Load(context.Background(), "s3://bucket/a.txt")
	require.ErrorIs(t, err, document.ErrUnsupported)
}

func TestLoaderTooLarge(t *testing.T) {
	big := io.LimitReader(zeroReader{}, document.MaxSize+10)
	_, err := document.NewLoader(document.WithStdin(big)).Load(context.Background(), "-")
	require.ErrorIs(t, err, document.ErrTooLarge)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'a'
	}
	return len(p), nil
}

func TestS3Opener(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/proposals/a.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "from s3")
	}))
	defer srv.Close()

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
	})
	l := document.NewLoader(document.WithOpener("s3", document.S3{Client: client}))

	got, err := l.Load(context.Background(), "s3://proposals/a.txt")
	require.NoError(t, err)
	require.Equal(t, "from s3", got)
}

func TestGCSOpener(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// XML reads use /bucket/object; JSON reads use /b/bucket/o/object.
		if !strings.HasSuffix(r.URL.Path, "proposals/b.md") && !strings.HasSuffix(r.URL.Path, "proposals/o/b.md") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/markdown")
		_, _ = io.WriteString(w, "# from gcs")
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := storage.NewClient(ctx,
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	defer client.Close()

	l := document.NewLoader(document.WithOpener("gs", document.GCS{Client: client}))
	got, err := l.Load(ctx, "gs://proposals/b.md")
	require.NoError(t, err)
	require.Equal(t, "# from gcs", got)
}
