package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lodestar-gis/lodestar/pkg/catalog"
	"github.com/lodestar-gis/lodestar/pkg/connectors"
	"github.com/lodestar-gis/lodestar/pkg/geo"
)

var (
	searchBBox      string
	searchStart     string
	searchEnd       string
	searchColl      string
	searchCloud     float64
	searchLimit     int
	searchConnector string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search imagery across sources",
	Long: `Search queries every ready connector (or one, with --connector) and
prints the merged results. Dates are ISO 8601; the bounding box is
west,south,east,north in degrees.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		q, err := buildQuery(cmd)
		if err != nil {
			return err
		}

		ls, err := newLodestar(cmd.Context())
		if err != nil {
			return err
		}

		var items []catalog.Item
		if searchConnector != "" {
			items, err = ls.Search(cmd.Context(), connectors.ID(searchConnector), q)
			if err != nil {
				return err
			}
		} else {
			items, err = ls.SearchAll(cmd.Context(), q)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
		}

		if jsonOutput {
			return printJSON(items)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSOURCE\tCOLLECTION\tACQUIRED\tBBOX")
		for _, item := range items {
			acquired := ""
			if !item.Acquired.IsZero() {
				acquired = item.Acquired.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				item.ID, item.ConnectorID, item.Collection, acquired, item.BBox)
		}
		return w.Flush()
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchBBox, "bbox", "", "bounding box west,south,east,north (degrees)")
	searchCmd.Flags().StringVar(&searchStart, "start", "", "earliest acquisition date (ISO 8601)")
	searchCmd.Flags().StringVar(&searchEnd, "end", "", "latest acquisition date (ISO 8601)")
	searchCmd.Flags().StringVar(&searchColl, "collection", "", `collection id, optionally "connector::collection"`)
	searchCmd.Flags().Float64Var(&searchCloud, "max-cloud-cover", -1, "maximum cloud cover percentage")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results per connector")
	searchCmd.Flags().StringVar(&searchConnector, "connector", "", "query a single connector")
	rootCmd.AddCommand(searchCmd)
}

func buildQuery(_ *cobra.Command) (catalog.Query, error) {
	q := catalog.Query{
		Collection: searchColl,
		Limit:      searchLimit,
	}

	if searchBBox != "" {
		bbox, err := parseBBox(searchBBox)
		if err != nil {
			return q, err
		}
		q.BBox = bbox
	}
	if searchStart != "" {
		ts, err := parseDate(searchStart)
		if err != nil {
			return q, fmt.Errorf("invalid --start: %w", err)
		}
		q.Start = ts
	}
	if searchEnd != "" {
		ts, err := parseDate(searchEnd)
		if err != nil {
			return q, fmt.Errorf("invalid --end: %w", err)
		}
		q.End = ts
	}
	if searchCloud >= 0 {
		cloud := searchCloud
		q.MaxCloudCover = &cloud
	}
	return q, nil
}

func parseBBox(raw string) (geo.BBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return geo.BBox{}, fmt.Errorf("bbox needs four comma-separated values, got %q", raw)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.BBox{}, fmt.Errorf("invalid bbox value %q", p)
		}
		vals[i] = v
	}
	return geo.NewBBox(vals)
}

func parseDate(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}
