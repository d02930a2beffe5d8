// Package staccat implements a connector over static STAC catalog
// hierarchies: link graphs of catalog files on plain object storage, with
// no search endpoint. Queries are answered by lazily traversing the
// hierarchy and filtering fetched items locally.
package staccat

import (
	"context"
	"strings"

	"github.com/lodestar-gis/lodestar/internal/stac"
	"github.com/lodestar-gis/lodestar/internal/transport"
	"github.com/lodestar-gis/lodestar/pkg/catalog"
	"github.com/lodestar-gis/lodestar/pkg/connectors"
	"github.com/lodestar-gis/lodestar/pkg/logging"
)

// Config describes one static STAC catalog.
type Config struct {
	// ID is the registry identifier, e.g. "umbra".
	ID string

	// Name is the human-readable source name.
	Name string

	// CatalogURL points at the root catalog document.
	CatalogURL string
}

// Connector answers searches by walking a STAC link hierarchy.
type Connector struct {
	cfg    Config
	engine *stac.Engine
}

var _ connectors.Connector = (*Connector)(nil)

// New creates a static-catalog connector. A nil client gets a default one.
func New(cfg Config, client *transport.Client) *Connector {
	if client == nil {
		client = transport.New()
	}
	return &Connector{
		cfg:    cfg,
		engine: stac.NewEngine(client, cfg.ID),
	}
}

// Descriptor implements the Connector interface. Cloud cover is not
// advertised: SAR archives have no meaningful cloud metric, and the filter
// is simply ignored when present.
func (c *Connector) Descriptor() connectors.Descriptor {
	return connectors.Descriptor{
		ID:          connectors.ID(c.cfg.ID),
		Name:        c.cfg.Name,
		Description: "Static STAC catalog hierarchy",
		Capabilities: connectors.Capabilities{
			connectors.CapBBoxSearch,
			connectors.CapDateRange,
			connectors.CapCollections,
		},
		AuthState: connectors.AuthStateAuthenticated,
	}
}

// Authenticate implements the Connector interface. Static catalogs are
// public, so any credentials succeed and are ignored.
func (c *Connector) Authenticate(_ context.Context, _ connectors.Credentials) error {
	return nil
}

// Collections implements the Connector interface, listing the root
// catalog's direct children.
func (c *Connector) Collections(ctx context.Context) ([]catalog.Collection, error) {
	return c.engine.Collections(ctx, c.cfg.CatalogURL)
}

// Search implements the Connector interface by traversing the hierarchy
// from the root. A query collection narrows the walk to the matching root
// child; a collection no child matches yields no results.
func (c *Connector) Search(ctx context.Context, q catalog.Query) ([]catalog.Item, error) {
	q = q.Normalize()
	rootURL := c.cfg.CatalogURL

	if _, collectionID := q.SplitCollection(); collectionID != "" {
		href, ok := c.findChild(ctx, collectionID)
		if !ok {
			logging.Ctx(ctx).Warn().
				Str("connector", c.cfg.ID).
				Str("collection", collectionID).
				Msg("No catalog branch matches the requested collection")
			return nil, nil
		}
		rootURL = href
	}

	docs, hrefs, err := c.engine.Items(ctx, rootURL, q)
	if err != nil {
		return nil, err
	}

	items := make([]catalog.Item, 0, len(docs))
	for i, doc := range docs {
		items = append(items, c.convert(doc, hrefs[i]))
	}
	return items, nil
}

// findChild resolves a collection id to a root child catalog URL.
func (c *Connector) findChild(ctx context.Context, collectionID string) (string, bool) {
	root, err := c.engine.FetchDocument(ctx, c.cfg.CatalogURL)
	if err != nil {
		return "", false
	}
	for _, link := range root.ChildLinks() {
		title := link.Title
		if title == "" {
			title = link.Href
		}
		if title == collectionID || strings.Contains(link.Href, "/"+collectionID+"/") {
			return stac.ResolveHref(c.cfg.CatalogURL, link.Href), true
		}
	}
	return "", false
}

// convert maps one STAC item document into the uniform item shape.
func (c *Connector) convert(doc *stac.Document, href string) catalog.Item {
	bounds, _ := doc.Bounds()
	acquired, _ := doc.Acquired()

	id := doc.ID
	if id == "" {
		id = href
	}

	item := catalog.Item{
		ID:          id,
		ConnectorID: c.cfg.ID,
		BBox:        bounds,
		Geometry:    doc.Geometry,
		Acquired:    acquired,
		Properties:  doc.Properties,
		Assets:      convertAssets(doc.Assets),
	}
	if col, ok := doc.Properties["collection"].(string); ok {
		item.Collection = col
	}
	return item
}

// convertAssets picks one asset per role from a STAC asset map. Geocoded
// GeoTIFF products rank as visual imagery, complex and derived radar
// products as data, and small browse images as thumbnails.
func convertAssets(assets map[string]stac.Asset) map[catalog.AssetRole]catalog.Asset {
	if len(assets) == 0 {
		return nil
	}

	out := make(map[catalog.AssetRole]catalog.Asset)
	set := func(role catalog.AssetRole, a stac.Asset, key string) {
		if _, taken := out[role]; taken {
			return
		}
		title := a.Title
		if title == "" {
			title = key
		}
		out[role] = catalog.Asset{Href: a.Href, Type: a.Type, Title: title}
	}

	for key, a := range assets {
		if a.Href == "" {
			continue
		}
		upper := strings.ToUpper(key)
		switch {
		case hasRole(a, "thumbnail") || key == "thumbnail" || key == "preview" || key == "overview":
			set(catalog.AssetThumbnail, a, key)
		case hasRole(a, "visual") || strings.Contains(upper, "GEC") || strings.Contains(a.Type, "image/tiff"):
			set(catalog.AssetVisual, a, key)
		case hasRole(a, "data") || strings.Contains(upper, "SICD") || strings.Contains(upper, "SIDD") || strings.Contains(upper, "CPHD"):
			set(catalog.AssetData, a, key)
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func hasRole(a stac.Asset, role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}
