/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package server_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chainguard.dev/rubriceval/agents/evaluator"
	"chainguard.dev/rubriceval/agents/orchestrator"
	"chainguard.dev/rubriceval/agents/progress"
	"chainguard.dev/rubriceval/internal/server"
	"chainguard.dev/rubriceval/rubric"
	"chainguard.dev/rubriceval/rubric/store/fsstore"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// scorer gives every criterion a fixed score, failing the ones listed.
type scorer struct {
	score int
	fail  map[string]bool
}

func (s scorer) Evaluate(_ context.Context, doc string, c rubric.Criterion) evaluator.Result {
	if s.fail[c.Name] {
		return evaluator.Result{Feedback: evaluator.ErrorPrefix + "boom", Err: fmt.Errorf("boom")}
	}
	return evaluator.Result{Feedback: fmt.Sprintf("Score: %d (%d bytes)", s.score, len(doc)), RawScore: s.score}
}

type fixture struct {
	srv   *httptest.Server
	store *fsstore.Store
}

func setup(t *testing.T, ev evaluator.Interface, opts ...server.Option) *fixture {
	t.Helper()
	st, err := fsstore.New(t.TempDir())
	require.NoError(t, err)
	orch, err := orchestrator.New(ev)
	require.NoError(t, err)

	srv := httptest.NewServer(server.New(st, orch, opts...).Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: st}
}

func (f *fixture) seed(t *testing.T, name string, criteria ...rubric.Criterion) {
	t.Helper()
	require.NoError(t, f.store.Save(context.Background(), &rubric.Rubric{Name: name, Criteria: criteria}))
}

func (f *fixture) do(t *testing.T, method, path, contentType string, body []byte, hdr ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

var grant = []rubric.Criterion{
	{Name: "Clarity", Weight: 1, Prompt: "Is it clear?"},
	{Name: "Budget", Weight: 2, Prompt: "Is the budget justified?"},
}

func TestHealthz(t *testing.T) {
	f := setup(t, scorer{})
	resp := f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
}

func TestAuthToken(t *testing.T) {
	f := setup(t, scorer{}, server.WithAuthToken("s3cret"))

	resp := f.do(t, http.MethodGet, "/v1/rubrics", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, map[string]string{"error": "unauthorized"}, decode[map[string]string](t, resp))

	resp = f.do(t, http.MethodGet, "/v1/rubrics", "", nil, "Authorization", "Bearer wrong")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/v1/rubrics", "", nil, "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Health checks stay open.
	resp = f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRubricLifecycle(t *testing.T) {
	f := setup(t, scorer{})

	resp := f.do(t, http.MethodGet, "/v1/rubrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, map[string][]string{"rubrics": {}}, decode[map[string][]string](t, resp))

	body, err := json.Marshal(map[string]any{"criteria": grant})
	require.NoError(t, err)
	resp = f.do(t, http.MethodPut, "/v1/rubrics/grant", "application/json", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	type rubricBody struct {
		Name        string             `json:"name"`
		Criteria    []rubric.Criterion `json:"criteria"`
		TotalWeight float64            `json:"total_weight"`
		MaxPossible float64            `json:"max_possible"`
		Balanced    bool               `json:"balanced"`
	}
	resp = f.do(t, http.MethodGet, "/v1/rubrics/grant", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	want := rubricBody{Name: "grant", Criteria: grant, TotalWeight: 3, MaxPossible: 30, Balanced: false}
	if diff := cmp.Diff(want, decode[rubricBody](t, resp)); diff != "" {
		t.Errorf("rubric (-want, +got):\n%s", diff)
	}

	resp = f.do(t, http.MethodPost, "/v1/rubrics/grant/duplicate", "application/json", []byte(`{"to":"grant copy"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/v1/rubrics/grant/duplicate", "application/json", []byte(`{"to":"grant copy"}`))
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/v1/rubrics", "", nil)
	require.Equal(t, map[string][]string{"rubrics": {"grant", "grant copy"}}, decode[map[string][]string](t, resp))

	resp = f.do(t, http.MethodDelete, "/v1/rubrics/grant", "", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/v1/rubrics/grant", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/v1/rubrics/grant", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPutRubricRejectsInvalid(t *testing.T) {
	f := setup(t, scorer{})
	for name, body := range map[string]string{
		"malformed":       `{"criteria": [`,
		"negative weight": `{"criteria": [{"name": "a", "weight": -1, "prompt": "p"}]}`,
		"empty prompt":    `{"criteria": [{"name": "a", "weight": 1, "prompt": ""}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp := f.do(t, http.MethodPut, "/v1/rubrics/bad", "application/json", []byte(body))
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestEvaluateJSON(t *testing.T) {
	f := setup(t, scorer{score: 7})
	f.seed(t, "grant", grant...)

	resp := f.do(t, http.MethodPost, "/v1/rubrics/grant/evaluate", "application/json", []byte(`{"document":"hello"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	round := decode[orchestrator.Round](t, resp)
	require.Equal(t, "grant", round.Rubric)
	require.NotEmpty(t, round.ID)
	require.InDelta(t, 21.0, round.WeightedTotal, 1e-9)
	require.InDelta(t, 30.0, round.MaxPossible, 1e-9)
	require.Len(t, round.Results, 2)
	for i, res := range round.Results {
		require.Equal(t, grant[i].Name, res.Criterion)
		require.Equal(t, progress.Done, res.Status)
		require.Equal(t, "Score: 7 (5 bytes)", res.Feedback)
	}
}

func TestEvaluateMultipart(t *testing.T) {
	f := setup(t, scorer{score: 4})
	f.seed(t, "grant", grant...)

	upload := func(filename, content string) *http.Response {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.Close())
		return f.do(t, http.MethodPost, "/v1/rubrics/grant/evaluate", mw.FormDataContentType(), buf.Bytes())
	}

	resp := upload("proposal.md", "# Proposal\n")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	round := decode[orchestrator.Round](t, resp)
	require.Equal(t, "Score: 4 (11 bytes)", round.Results[0].Feedback)

	pdf, err := os.ReadFile(filepath.Join("testdata", "proposal.pdf"))
	require.NoError(t, err)
	resp = upload("proposal.pdf", string(pdf))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	round = decode[orchestrator.Round](t, resp)
	require.True(t, strings.HasPrefix(round.Results[0].Feedback, "Score: 4 ("), round.Results[0].Feedback)

	resp = upload("broken.pdf", "%PDF-1.7")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = upload("scan.png", "\x89PNG")
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)

	resp = upload("blank.txt", "   \n")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEvaluateRejectsInvalidInput(t *testing.T) {
	f := setup(t, scorer{score: 4})
	f.seed(t, "grant", grant...)
	f.seed(t, "empty")
	require.NoError(t, os.WriteFile(filepath.Join(f.store.Dir(), "corrupt.json"), []byte("{not json"), 0o600))

	tests := []struct {
		name string
		path string
		body string
		want int
	}{{
		name: "blank document",
		path: "/v1/rubrics/grant/evaluate",
		body: `{"document":"  \n\t"}`,
		want: http.StatusBadRequest,
	}, {
		name: "missing rubric",
		path: "/v1/rubrics/nope/evaluate",
		body: `{"document":"hello"}`,
		want: http.StatusNotFound,
	}, {
		name: "rubric without criteria",
		path: "/v1/rubrics/empty/evaluate",
		body: `{"document":"hello"}`,
		want: http.StatusBadRequest,
	}, {
		name: "corrupt rubric",
		path: "/v1/rubrics/corrupt/evaluate",
		body: `{"document":"hello"}`,
		want: http.StatusBadRequest,
	}, {
		name: "malformed body",
		path: "/v1/rubrics/grant/evaluate",
		body: `{"document":`,
		want: http.StatusBadRequest,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, tt.path, "application/json", []byte(tt.body))
			require.Equal(t, tt.want, resp.StatusCode)
			require.NotEmpty(t, decode[map[string]string](t, resp)["error"])
		})
	}
}

func TestEvaluateStream(t *testing.T) {
	f := setup(t, scorer{score: 9, fail: map[string]bool{"Budget": true}})
	f.seed(t, "grant", grant...)

	resp := f.do(t, http.MethodPost, "/v1/rubrics/grant/evaluate", "application/json",
		[]byte(`{"document":"hello"}`), "Accept", "application/x-ndjson")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	var lines []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	// reset, two evaluating, two terminal, round
	require.Len(t, lines, 6)

	var reset progress.Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &reset))
	require.Equal(t, progress.Event{Type: "reset", Count: 2}, reset)

	terminal := map[int]progress.State{}
	for _, l := range lines[1:5] {
		var ev progress.Event
		require.NoError(t, json.Unmarshal([]byte(l), &ev))
		require.Equal(t, "state", ev.Type)
		if ev.State.Terminal() {
			terminal[ev.Index] = ev.State
		}
	}
	require.Equal(t, map[int]progress.State{0: progress.Done, 1: progress.Failed}, terminal)

	require.True(t, strings.HasPrefix(lines[5], `{"type":"round"`), lines[5])
	var last struct {
		Round orchestrator.Round `json:"round"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[5]), &last))
	require.InDelta(t, 9.0, last.Round.WeightedTotal, 1e-9)
	require.True(t, last.Round.Degraded())
	require.Equal(t, evaluator.ErrorPrefix+"boom", last.Round.Results[1].Feedback)
}

func TestMetricsHandler(t *testing.T) {
	srv := httptest.NewServer(server.MetricsHandler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRubricSchema(t *testing.T) {
	f := setup(t, scorer{})
	resp := f.do(t, http.MethodGet, "/v1/schema/rubric", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := decode[map[string]any](t, resp)
	require.Equal(t, "Rubric", doc["title"])
	require.Equal(t, []any{"criteria"}, doc["required"])
}
