// Package catalog defines the uniform search/collection data model every
// connector normalizes into. Callers receive these types regardless of
// which remote catalog produced them and must never special-case by source.
package catalog

import (
	"encoding/json"
	"time"

	"github.com/lodestar-gis/lodestar/pkg/geo"
)

// Collection is one searchable dataset exposed by a connector.
// Immutable once returned; identity is (ConnectorID, ID).
type Collection struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ItemCount   int    `json:"item_count,omitempty"`
	ConnectorID string `json:"connector_id"`
}

// Key returns the globally unique identity of the collection in
// "connector::collection" form, the same form accepted by Query.Collection
// for source-scoped aggregate searches.
func (c Collection) Key() string {
	return c.ConnectorID + "::" + c.ID
}

// AssetRole names entries of an item's asset map. The vocabulary is fixed
// so callers can look up imagery without knowing the source's naming.
type AssetRole string

const (
	// AssetVisual is the display-ready (usually RGB) raster.
	AssetVisual AssetRole = "visual"
	// AssetData is the analytic raster (multispectral, SAR, panchromatic).
	AssetData AssetRole = "data"
	// AssetThumbnail is a small browse image.
	AssetThumbnail AssetRole = "thumbnail"
)

// Asset is one downloadable or streamable resource attached to an item.
type Asset struct {
	Href  string `json:"href"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

// Item is the standardized search result shape. BBox is always
// [west, south, east, north] in geographic degrees; Acquired is the
// acquisition timestamp as reported by the source, unmodified.
type Item struct {
	ID          string              `json:"id"`
	ConnectorID string              `json:"connector_id"`
	Collection  string              `json:"collection,omitempty"`
	BBox        geo.BBox            `json:"bbox"`
	Geometry    json.RawMessage     `json:"geometry,omitempty"`
	Acquired    time.Time           `json:"acquired"`
	Properties  map[string]any      `json:"properties,omitempty"`
	Assets      map[AssetRole]Asset `json:"assets,omitempty"`
}
