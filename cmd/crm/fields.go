package main

import (
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/atlekbai/crm_backoffice/internal/entity"
)

func newFieldsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "fields <entity>",
		Short:     "Print the filterable attributes of an entity",
		Args:      cobra.ExactArgs(1),
		ValidArgs: entityNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printFields(cmd.OutOrStdout(), entity.NewRegistry(), args[0])
		},
	}
}

func printFields(w io.Writer, reg *entity.Registry, name string) error {
	entry, err := reg.Lookup(name)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Label", "Type", "Relation"})
	rows := make([][]string, 0, len(entry.Attributes))
	for _, attr := range entry.Catalogue() {
		rows = append(rows, []string{attr.Name, attr.Label, string(attr.Type), relationOf(entry, attr)})
	}
	table.AppendBulk(rows)
	table.Render()
	return nil
}

func relationOf(entry *entity.Entry, attr entity.Attribute) string {
	if attr.Type != entity.AttrRelation {
		return ""
	}
	rel := entry.Relation(strings.TrimSuffix(attr.Name, "Id"))
	if rel == nil {
		return string(attr.Target)
	}
	return rel.Name + " -> " + string(rel.Target)
}

func entityNames() []string {
	out := make([]string, len(entity.Names))
	for i, n := range entity.Names {
		out[i] = string(n)
	}
	return out
}
