// Package stac implements the subset of SpatioTemporal Asset Catalog
// traversal the aggregator needs: walking parent/child/item link graphs,
// lazily fetching nodes, and filtering items spatially and temporally.
package stac

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/lodestar-gis/lodestar/pkg/geo"
)

// Link relation types the traversal engine cares about. Everything else
// (self, parent, root, license) is ignored.
const (
	RelChild = "child"
	RelItem  = "item"
)

// Link is one entry of a STAC document's links array.
type Link struct {
	Rel   string `json:"rel"`
	Href  string `json:"href"`
	Title string `json:"title,omitempty"`
	Type  string `json:"type,omitempty"`
}

// Asset is one entry of a STAC item's assets map.
type Asset struct {
	Href  string   `json:"href"`
	Type  string   `json:"type,omitempty"`
	Title string   `json:"title,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Document is a catalog, collection, or item node. Which one it is only
// matters through its links and fields; the traversal engine treats every
// organization scheme (by date, product type, region) as the same link
// graph.
type Document struct {
	Type        string           `json:"type,omitempty"`
	ID          string           `json:"id"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	StacVersion string           `json:"stac_version,omitempty"`
	Links       []Link           `json:"links,omitempty"`
	BBox        []float64        `json:"bbox,omitempty"`
	Geometry    json.RawMessage  `json:"geometry,omitempty"`
	Properties  map[string]any   `json:"properties,omitempty"`
	Assets      map[string]Asset `json:"assets,omitempty"`
}

// ChildLinks returns the document's descend candidates.
func (d *Document) ChildLinks() []Link {
	return d.linksByRel(RelChild)
}

// ItemLinks returns the document's leaf candidates.
func (d *Document) ItemLinks() []Link {
	return d.linksByRel(RelItem)
}

func (d *Document) linksByRel(rel string) []Link {
	var out []Link
	for _, l := range d.Links {
		if l.Rel == rel && l.Href != "" {
			out = append(out, l)
		}
	}
	return out
}

// Bounds returns the item's bounding box when present.
func (d *Document) Bounds() (geo.BBox, bool) {
	if len(d.BBox) < 4 {
		return geo.BBox{}, false
	}
	b, err := geo.NewBBox(d.BBox)
	if err != nil {
		return geo.BBox{}, false
	}
	return b, true
}

// Acquired extracts the item's acquisition timestamp from the standard
// datetime property, falling back to start_datetime for interval items.
func (d *Document) Acquired() (time.Time, bool) {
	for _, key := range []string{"datetime", "start_datetime"} {
		raw, ok := d.Properties[key].(string)
		if !ok || raw == "" {
			continue
		}
		if ts, err := ParseTime(raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// ParseTime parses the timestamp formats STAC catalogs use in practice:
// RFC 3339 and bare dates.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}

// ResolveHref makes a possibly relative link absolute against the document
// URL it appeared in.
func ResolveHref(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
