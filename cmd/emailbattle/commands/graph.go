package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/emailbattle/pkg/battleserver"
	"github.com/haivivi/emailbattle/pkg/cli"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the battle graph",
	Long: `Show the nodes and transitions of the battle graph.

Without --format the edges are printed one per line; conditional edges are
marked with '?'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		g := battleserver.NewGraph()
		if formatOutput != "" {
			return output(g, cli.FormatYAML)
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "start: %s\n", g.Start)
		for _, e := range g.Edges {
			arrow := "->"
			if e.Conditional {
				arrow = "-?"
			}
			fmt.Fprintf(w, "  %-22s %s %s\n", e.From, arrow, e.To)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
