/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"chainguard.dev/rubriceval/agents/orchestrator"
	"chainguard.dev/rubriceval/agents/progress"
	"chainguard.dev/rubriceval/rubric"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// createStandardTable creates a markdown table writer with the formatting
// shared by every report.
func createStandardTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 100,
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// Table writes the round as a markdown report: a summary line, a results
// table in rubric order and the feedback for each criterion.
func Table(w io.Writer, round *orchestrator.Round) error {
	var out strings.Builder

	if round.Rubric != "" {
		fmt.Fprintf(&out, "## %s\n\n", round.Rubric)
	}
	fmt.Fprintf(&out, "Evaluation complete in %.1f seconds\n\n", round.ElapsedSeconds)
	fmt.Fprintf(&out, "**Total Weighted Score:** %.2f / %.2f\n", round.WeightedTotal, round.MaxPossible)
	if n := round.FailedCount(); n > 0 {
		fmt.Fprintf(&out, "\n> %d of %d criteria could not be scored and count as 0.\n", n, len(round.Results))
	}

	out.WriteString("\n### Results\n\n")
	var buf bytes.Buffer
	table := createStandardTable([]string{"Criterion", "Score", "Weight", "Weighted Score", "Status"}, &buf)
	for _, r := range round.Results {
		_ = table.Append([]string{
			r.Criterion,
			fmt.Sprintf("%d / %d", r.RawScore, rubric.MaxScore),
			fmt.Sprintf("%.2f", r.Weight),
			fmt.Sprintf("%.2f", r.WeightedScore),
			statusLabel(r.Status),
		})
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering results table: %w", err)
	}
	out.Write(buf.Bytes())

	out.WriteString("\n### Feedback\n")
	for _, r := range round.Results {
		fmt.Fprintf(&out, "\n**%s**: %s\n", r.Criterion, strings.TrimSpace(r.Feedback))
	}

	_, err := io.WriteString(w, out.String())
	return err
}

func statusLabel(s progress.State) string {
	switch s {
	case progress.Done:
		return progress.MarkDone + " done"
	case progress.Failed:
		return progress.MarkFailed + " failed"
	}
	return progress.MarkWaiting + " " + s.String()
}

// RubricTable writes the criteria of r as a numbered markdown table followed
// by the total weight.
func RubricTable(w io.Writer, r *rubric.Rubric) error {
	var out strings.Builder
	fmt.Fprintf(&out, "## %s\n\n", r.Name)
	if len(r.Criteria) == 0 {
		out.WriteString("No criteria.\n")
		_, err := io.WriteString(w, out.String())
		return err
	}

	var buf bytes.Buffer
	table := createStandardTable([]string{"#", "Criterion", "Weight", "Prompt"}, &buf)
	for i, c := range r.Criteria {
		_ = table.Append([]string{
			fmt.Sprintf("%d", i+1),
			c.Name,
			fmt.Sprintf("%.2f", c.Weight),
			strings.Join(strings.Fields(c.Prompt), " "),
		})
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("rendering rubric table: %w", err)
	}
	out.Write(buf.Bytes())
	fmt.Fprintf(&out, "\n**Total Weight:** %.2f\n", rubric.TotalWeight(r.Criteria))

	_, err := io.WriteString(w, out.String())
	return err
}
