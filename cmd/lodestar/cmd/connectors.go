package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lodestar-gis/lodestar/pkg/connectors"
)

var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "List configured connectors and their state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ls, err := newLodestar(cmd.Context())
		if err != nil {
			return err
		}

		descriptors := ls.Connectors()
		if jsonOutput {
			return printJSON(descriptorsJSON(descriptors))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tAUTH\tSTATE\tCAPABILITIES")
		for _, d := range descriptors {
			auth := "open"
			if d.RequiresAuth() {
				auth = "required"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				d.ID, d.Name, auth, d.AuthState, capabilityList(d.Capabilities))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(connectorsCmd)
}

type descriptorView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	RequiresAuth bool     `json:"requires_auth"`
	AuthState    string   `json:"auth_state"`
	Capabilities []string `json:"capabilities"`
}

func descriptorsJSON(ds []connectors.Descriptor) []descriptorView {
	views := make([]descriptorView, 0, len(ds))
	for _, d := range ds {
		caps := make([]string, 0, len(d.Capabilities))
		for _, c := range d.Capabilities {
			caps = append(caps, string(c))
		}
		views = append(views, descriptorView{
			ID:           d.ID.String(),
			Name:         d.Name,
			RequiresAuth: d.RequiresAuth(),
			AuthState:    d.AuthState.String(),
			Capabilities: caps,
		})
	}
	return views
}

func capabilityList(caps connectors.Capabilities) string {
	out := ""
	for i, c := range caps {
		if i > 0 {
			out += ","
		}
		out += string(c)
	}
	return out
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
