package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/snooze/internal/journal"
	"github.com/yairfalse/snooze/pkg/lifecycle"
)

var errNoJournal = errors.New("no journal configured (set [journal] path or --journal)")

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the journal",
		Example: `  snooze history --limit 5
  snooze history --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := openJournal()
			if err != nil {
				return err
			}
			defer func() { _ = j.Close() }()

			runs, err := j.List(limit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, runs, func(t table.Writer) {
				t.AppendHeader(table.Row{"#", "Started", "Region", "Kind", "Action", "Found", "OK", "Failed", "Error"})
				for _, r := range runs {
					action := r.Action
					if r.DryRun {
						action += " (dry run)"
					}
					t.AppendRow(table.Row{
						r.Seq, r.StartedAt.Local().Format(time.DateTime), r.Region, r.Kind, action,
						r.Discovered, r.Succeeded, r.Failed, r.Error,
					})
				}
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json, yaml")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status [region kind resource]",
		Short: "Show the last recorded outcome per resource",
		Example: `  snooze status
  snooze status eu-west-1 container_service clusterA/worker -o json`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 3 {
				return fmt.Errorf("expected no arguments or region, kind and resource, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var kind lifecycle.Kind
			if len(args) == 3 {
				var err error
				if kind, err = lifecycle.ParseKind(args[1]); err != nil {
					return err
				}
			}

			j, err := openJournal()
			if err != nil {
				return err
			}
			defer func() { _ = j.Close() }()

			states := j.Status()
			if len(args) == 3 {
				s, ok := j.Get(args[0], kind, args[2])
				if !ok {
					return fmt.Errorf("no recorded outcome for %s %s in %s", kind, args[2], args[0])
				}
				states = []journal.ResourceState{s}
			}
			return render(cmd.OutOrStdout(), output, states, func(t table.Writer) {
				t.AppendHeader(table.Row{"Region", "Kind", "Resource", "Last action", "At", "Result"})
				for _, s := range states {
					result := "ok"
					if !s.OK() {
						result = s.ErrorKind
					}
					t.AppendRow(table.Row{s.Region, s.Kind, s.Resource, s.LastAction, s.At.Local().Format(time.DateTime), result})
				}
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json, yaml")
	return cmd
}

func openJournal() (*journal.Journal, error) {
	if cfg.Journal.Path == "" {
		return nil, errNoJournal
	}
	return journal.Open(cfg.Journal.Path)
}

// render writes v as JSON or YAML, or fills and renders a table.
func render(w io.Writer, format string, v any, fill func(table.Writer)) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		fill(t)
		t.Render()
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}
