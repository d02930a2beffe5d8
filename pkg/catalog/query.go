package catalog

import (
	"strings"
	"time"

	"github.com/lodestar-gis/lodestar/pkg/constants"
	"github.com/lodestar-gis/lodestar/pkg/geo"
)

// Query carries the caller's search constraints. Connectors apply only the
// filters their capabilities cover and ignore the rest.
type Query struct {
	// BBox restricts results spatially. The zero value means unconstrained.
	BBox geo.BBox

	// Start and End bound the acquisition timestamp. Zero values mean
	// open-ended on that side.
	Start time.Time
	End   time.Time

	// Collection restricts the search to one collection id. The
	// "connector::collection" form additionally scopes an aggregate search
	// to that connector.
	Collection string

	// MaxCloudCover is a percentage in [0,100]. Nil means no constraint.
	MaxCloudCover *float64

	// Limit caps the number of returned items. Zero means the default.
	Limit int

	// Extra carries connector-specific filters by name.
	Extra map[string]string
}

// Normalize applies the default limit and the hard cap, returning a copy.
func (q Query) Normalize() Query {
	if q.Limit <= 0 {
		q.Limit = constants.DefaultSearchLimit
	}
	if q.Limit > constants.MaxSearchLimit {
		q.Limit = constants.MaxSearchLimit
	}
	return q
}

// SplitCollection separates a "connector::collection" scoped collection id
// into its parts. The connector part is empty for plain collection ids.
func (q Query) SplitCollection() (connectorID, collectionID string) {
	if before, after, found := strings.Cut(q.Collection, "::"); found {
		return before, after
	}
	return "", q.Collection
}

// MatchesTime reports whether an acquisition timestamp satisfies the
// query's temporal bounds. Items without a timestamp pass only when the
// query is unconstrained on both sides.
func (q Query) MatchesTime(acquired time.Time) bool {
	if acquired.IsZero() {
		return q.Start.IsZero() && q.End.IsZero()
	}
	if !q.Start.IsZero() && acquired.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && acquired.After(q.End) {
		return false
	}
	return true
}
