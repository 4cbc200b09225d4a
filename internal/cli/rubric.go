/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"chainguard.dev/rubriceval/agents/report"
	"chainguard.dev/rubriceval/rubric"
	"chainguard.dev/rubriceval/rubric/schema"
	"github.com/spf13/cobra"
)

func (a *app) rubricCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rubric",
		Aliases: []string{"rubrics"},
		Short:   "Create, edit and share rubrics",
	}
	cmd.AddCommand(
		a.rubricListCommand(),
		a.rubricCreateCommand(),
		a.rubricDuplicateCommand(),
		a.rubricDeleteCommand(),
		a.rubricShowCommand(),
		a.rubricAddCommand(),
		a.rubricEditCommand(),
		a.rubricRemoveCommand(),
		a.rubricExportCommand(),
		a.rubricImportCommand(),
		a.rubricSchemaCommand(),
	)
	return cmd
}

func (a *app) rubricListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored rubrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(a.stdout, n)
			}
			return nil
		},
	}
}

func (a *app) rubricCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty rubric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Create(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Created rubric %q\n", args[0])
			return nil
		},
	}
}

func (a *app) rubricDuplicateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <from> <to>",
		Short: "Copy a rubric under a new name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Duplicate(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Duplicated rubric %q as %q\n", args[0], args[1])
			return nil
		},
	}
}

func (a *app) rubricDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a rubric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Deleted rubric %q\n", args[0])
			return nil
		},
	}
}

func (a *app) rubricShowCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show the criteria of a rubric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			switch format {
			case "table":
				if err := report.RubricTable(a.stdout, r); err != nil {
					return err
				}
				a.warnUnbalanced(r)
				return nil
			case "json", "yaml":
				return writeRubric(a.stdout, r, format)
			}
			return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "table", "Output format: table, json or yaml")
	return cmd
}

type criterionFlags struct {
	name   string
	weight float64
	prompt string
}

func (f *criterionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "criterion", "c", "", "Criterion name")
	cmd.Flags().Float64VarP(&f.weight, "weight", "w", rubric.DefaultWeight, "Criterion weight")
	cmd.Flags().StringVarP(&f.prompt, "prompt", "p", "", "Evaluation instructions for the criterion")
}

func (f *criterionFlags) criterion() rubric.Criterion {
	return rubric.Criterion{Name: strings.TrimSpace(f.name), Weight: f.weight, Prompt: strings.TrimSpace(f.prompt)}
}

func (a *app) rubricAddCommand() *cobra.Command {
	var f criterionFlags
	cmd := &cobra.Command{
		Use:   "add <rubric>",
		Short: "Append a criterion to a rubric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd.Context(), args[0], func(r *rubric.Rubric) (*rubric.Rubric, error) {
				return r.Add(f.criterion())
			})
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("criterion")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func (a *app) rubricEditCommand() *cobra.Command {
	var f criterionFlags
	cmd := &cobra.Command{
		Use:   "edit <rubric> <number>",
		Short: "Change a criterion, identified by its number in 'rubric show'",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := criterionIndex(args[1])
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), args[0], func(r *rubric.Rubric) (*rubric.Rubric, error) {
				if i >= len(r.Criteria) {
					return nil, fmt.Errorf("rubric %q has no criterion %d", r.Name, i+1)
				}
				c := r.Criteria[i]
				if cmd.Flags().Changed("criterion") {
					c.Name = f.criterion().Name
				}
				if cmd.Flags().Changed("weight") {
					c.Weight = f.weight
				}
				if cmd.Flags().Changed("prompt") {
					c.Prompt = f.criterion().Prompt
				}
				return r.Replace(i, c)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) rubricRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <rubric> <number>",
		Short: "Remove a criterion, identified by its number in 'rubric show'",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := criterionIndex(args[1])
			if err != nil {
				return err
			}
			return a.edit(cmd.Context(), args[0], func(r *rubric.Rubric) (*rubric.Rubric, error) {
				return r.Remove(i)
			})
		},
	}
}

func criterionIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("criterion number must be a positive integer, got %q", s)
	}
	return n - 1, nil
}

// edit loads a rubric, applies fn and saves the result.
func (a *app) edit(ctx context.Context, name string, fn func(*rubric.Rubric) (*rubric.Rubric, error)) error {
	r, err := a.store.Load(ctx, name)
	if err != nil {
		return err
	}
	updated, err := fn(r)
	if err != nil {
		return err
	}
	if err := a.store.Save(ctx, updated); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Saved rubric %q (%d criteria, total weight %.2f)\n",
		updated.Name, len(updated.Criteria), rubric.TotalWeight(updated.Criteria))
	a.warnUnbalanced(updated)
	return nil
}

func (a *app) warnUnbalanced(r *rubric.Rubric) {
	if len(r.Criteria) > 0 && !rubric.IsBalanced(r.Criteria) {
		fmt.Fprintf(a.stderr, "Warning: total weight is %.2f, not 1.0\n", rubric.TotalWeight(r.Criteria))
	}
}

func (a *app) rubricExportCommand() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Write a rubric as YAML or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return writeRubric(a.stdout, r, format)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := writeRubric(f, r, format); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write (default stdout)")
	return cmd
}

func (a *app) rubricImportCommand() *cobra.Command {
	var name string
	var force bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store a rubric read from a YAML or JSON file",
		Long: `Store a rubric read from a YAML or JSON file. The rubric is named after
the file unless --name is given; "-" reads YAML from stdin and requires --name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]
			if name == "" {
				if path == "-" {
					return fmt.Errorf("--name is required when importing from stdin")
				}
				name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}
			r, err := readRubric(a.stdin, path, name)
			if err != nil {
				return err
			}
			if !force {
				if _, err := a.store.Load(ctx, name); err == nil {
					return fmt.Errorf("rubric %q already exists (use --force to replace it)", name)
				}
			}
			if err := a.store.Save(ctx, r); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Imported rubric %q (%d criteria)\n", r.Name, len(r.Criteria))
			a.warnUnbalanced(r)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Name to store the rubric under")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing rubric")
	return cmd
}

func (a *app) rubricSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of rubric files",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			b, err := schema.JSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "%s\n", b)
			return err
		},
	}
}
