/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"chainguard.dev/rubriceval/agents/orchestrator"
	"chainguard.dev/rubriceval/agents/progress"
	"chainguard.dev/rubriceval/agents/report"
	"chainguard.dev/rubriceval/rubric"
	"gopkg.in/yaml.v3"
)

func sampleRound() *orchestrator.Round {
	return &orchestrator.Round{
		ID:             "round-1",
		Rubric:         "grant-2026",
		StartedAt:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		ElapsedSeconds: 12.34,
		WeightedTotal:  20,
		MaxPossible:    30,
		Results: []orchestrator.CriterionResult{
			{Criterion: "ความชัดเจน", Weight: 1, RawScore: 10, WeightedScore: 10, Feedback: "Score: 10 Excellent.", Status: progress.Done},
			{Criterion: "Budget", Weight: 2, RawScore: 5, WeightedScore: 10, Feedback: "Score: 5 Thin.", Status: progress.Done},
			{Criterion: "Impact", Weight: 0, Feedback: "API error: timeout", Status: progress.Failed, Error: "timeout"},
		},
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Table(&buf, sampleRound()); err != nil {
		t.Fatalf("Table() = %v", err)
	}
	got := buf.String()
	t.Logf("Generated report:\n%s", got)

	for _, want := range []string{
		"## grant-2026",
		"Evaluation complete in 12.3 seconds",
		"**Total Weighted Score:** 20.00 / 30.00",
		"1 of 3 criteria could not be scored",
		"Criterion",
		"Weighted Score",
		"10 / 10",
		"2.00",
		"✅ done",
		"❌ failed",
		"**Budget**: Score: 5 Thin.",
		"**Impact**: API error: timeout",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// Rows follow rubric order.
	first := strings.Index(got, "ความชัดเจน")
	second := strings.Index(got, "| Budget")
	if first < 0 || second < 0 || first > second {
		t.Errorf("rows out of order: ความชัดเจน at %d, Budget at %d", first, second)
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := report.JSON(&buf, sampleRound()); err != nil {
		t.Fatalf("JSON() = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() = %v", err)
	}
	if got["weighted_total"] != 20.0 || got["max_possible"] != 30.0 {
		t.Errorf("totals = %v / %v, want 20 / 30", got["weighted_total"], got["max_possible"])
	}
	results := got["results"].([]any)
	if status := results[2].(map[string]any)["status"]; status != "failed" {
		t.Errorf("results[2].status = %v, want failed", status)
	}
	if !strings.Contains(buf.String(), "ความชัดเจน") {
		t.Error("non-ASCII criterion names should not be escaped")
	}
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := report.YAML(&buf, sampleRound()); err != nil {
		t.Fatalf("YAML() = %v", err)
	}
	var got struct {
		ID      string `yaml:"id"`
		Results []struct {
			Criterion string `yaml:"criterion"`
			Status    string `yaml:"status"`
		} `yaml:"results"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() = %v", err)
	}
	if got.ID != "round-1" || len(got.Results) != 3 || got.Results[1].Status != "done" {
		t.Errorf("decoded = %+v", got)
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml"} {
		if _, err := report.ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) = %v", s, err)
		}
	}
	if _, err := report.ParseFormat("csv"); err == nil {
		t.Error("ParseFormat(csv) = nil error, want error")
	}
	if err := report.Write(&bytes.Buffer{}, report.Format("csv"), sampleRound()); err == nil {
		t.Error("Write(csv) = nil error, want error")
	}
}

func TestRubricTable(t *testing.T) {
	r := &rubric.Rubric{Name: "grant-2026", Criteria: []rubric.Criterion{
		{Name: "Clarity", Weight: 0.25, Prompt: "Is the\nproposal clear?"},
		{Name: "Budget", Weight: 0.75, Prompt: "Is the budget justified?"},
	}}
	var buf bytes.Buffer
	if err := report.RubricTable(&buf, r); err != nil {
		t.Fatalf("RubricTable() = %v", err)
	}
	got := buf.String()
	for _, want := range []string{
		"## grant-2026",
		"| 1 ", "Clarity", "0.25", "Is the proposal clear?",
		"| 2 ", "Budget", "0.75",
		"**Total Weight:** 1.00",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("RubricTable() missing %q in:\n%s", want, got)
		}
	}

	buf.Reset()
	if err := report.RubricTable(&buf, &rubric.Rubric{Name: "empty"}); err != nil {
		t.Fatalf("RubricTable() = %v", err)
	}
	if !strings.Contains(buf.String(), "No criteria.") {
		t.Errorf("RubricTable() = %q, want empty notice", buf.String())
	}
}
