package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"celtrix/internal/stack"
)

// stacksCmd lists every stack celtrix can create.
var stacksCmd = &cobra.Command{
	Use:   "stacks",
	Short: "List the supported stacks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := stack.NewRegistry()
		if err != nil {
			return err
		}
		return listStacks(cmd.OutOrStdout(), registry)
	},
}

func listStacks(w io.Writer, registry *stack.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLANGUAGES\tDESCRIPTION")
	for _, id := range registry.IDs() {
		d, _ := registry.Lookup(id)
		langs := make([]string, len(d.Languages))
		for i, l := range d.Languages {
			langs[i] = string(l)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Name, strings.Join(langs, ","), d.Description)
	}
	return tw.Flush()
}
