package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yairfalse/snooze/internal/plugin/aws"
	"github.com/yairfalse/snooze/pkg/lifecycle"
)

var kindActions = map[lifecycle.Kind][2]string{
	lifecycle.KindAlarm:            {"enable alarm actions", "disable alarm actions"},
	lifecycle.KindDatabaseCluster:  {"start db cluster", "stop db cluster"},
	lifecycle.KindContainerService: {"desired count 1", "desired count 0"},
	lifecycle.KindWarehouseCluster: {"resume cluster", "pause cluster"},
	lifecycle.KindInstance:         {"start instance", "stop instance"},
	lifecycle.KindDatabaseInstance: {"start db instance", "stop db instance"},
}

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List supported resource kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tags := aws.TypeTags()

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Kind", "Type tag", "Start", "Stop"})
			for _, k := range lifecycle.Kinds() {
				actions := kindActions[k]
				t.AppendRow(table.Row{k, tags[k], actions[0], actions[1]})
			}
			t.Render()
			return nil
		},
	}
}
