package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var noCache bool

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections across all sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ls, err := newLodestar(cmd.Context())
		if err != nil {
			return err
		}

		cols, err := ls.Collections(cmd.Context(), !noCache)
		if err != nil {
			// Partial listings still print; the error names the sources
			// that contributed nothing.
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}

		if jsonOutput {
			return printJSON(cols)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tTITLE\tITEMS")
		for _, c := range cols {
			fmt.Fprintf(w, "%s\t%s\t%d\n", c.Key(), c.Title, c.ItemCount)
		}
		return w.Flush()
	},
}

func init() {
	collectionsCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the collections cache")
	rootCmd.AddCommand(collectionsCmd)
}
