// Package flatfile implements a connector over GitHub-hosted open-data
// archives organized as a datasets index (CSV of event name and tile count)
// plus one GeoJSON footprint file per event. All filtering happens client
// side; the remote end is plain static file hosting.
package flatfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lodestar-gis/lodestar/internal/stac"
	"github.com/lodestar-gis/lodestar/internal/transport"
	"github.com/lodestar-gis/lodestar/pkg/catalog"
	"github.com/lodestar-gis/lodestar/pkg/connectors"
	"github.com/lodestar-gis/lodestar/pkg/errors"
	"github.com/lodestar-gis/lodestar/pkg/geo"
	"github.com/lodestar-gis/lodestar/pkg/logging"
)

const cogMediaType = "image/tiff; application=geotiff; profile=cloud-optimized"

// Config describes one flat-file archive.
type Config struct {
	// ID is the registry identifier, e.g. "vantor".
	ID string

	// Name is the human-readable source name.
	Name string

	// BaseURL is the archive root; the datasets index lives at
	// <BaseURL>/datasets.csv and footprints at
	// <BaseURL>/datasets/<event>.geojson.
	BaseURL string
}

// Connector serves searches from a CSV event index and per-event GeoJSON
// footprint files, filtering entirely in memory.
type Connector struct {
	cfg    Config
	client *transport.Client

	mu         sync.RWMutex
	events     []event
	footprints map[string]*featureCollection
}

type event struct {
	Name  string
	Tiles int
}

var _ connectors.Connector = (*Connector)(nil)

// New creates a flat-file connector. A nil client gets a default one.
func New(cfg Config, client *transport.Client) *Connector {
	if client == nil {
		client = transport.New()
	}
	return &Connector{
		cfg:        cfg,
		client:     client,
		footprints: make(map[string]*featureCollection),
	}
}

// Descriptor implements the Connector interface.
func (c *Connector) Descriptor() connectors.Descriptor {
	return connectors.Descriptor{
		ID:          connectors.ID(c.cfg.ID),
		Name:        c.cfg.Name,
		Description: "Open-data archive indexed by event",
		Capabilities: connectors.Capabilities{
			connectors.CapBBoxSearch,
			connectors.CapDateRange,
			connectors.CapCloudCover,
			connectors.CapCollections,
		},
		AuthState: connectors.AuthStateAuthenticated,
	}
}

// Authenticate implements the Connector interface. The archive is public,
// so this always succeeds; it preloads the event index as a side effect and
// tolerates that failing.
func (c *Connector) Authenticate(ctx context.Context, _ connectors.Credentials) error {
	if _, err := c.loadEvents(ctx); err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("connector", c.cfg.ID).
			Msg("Event index preload failed, will retry on demand")
	}
	return nil
}

// Collections implements the Connector interface, listing one collection
// per event with its tile count.
func (c *Connector) Collections(ctx context.Context) ([]catalog.Collection, error) {
	events, err := c.loadEvents(ctx)
	if err != nil {
		return nil, err
	}

	collections := make([]catalog.Collection, 0, len(events))
	for _, ev := range events {
		collections = append(collections, catalog.Collection{
			ID:          ev.Name,
			Title:       ev.Name,
			Description: fmt.Sprintf("%s, %d tiles", c.cfg.Name, ev.Tiles),
			ItemCount:   ev.Tiles,
			ConnectorID: c.cfg.ID,
		})
	}
	return collections, nil
}

// Search implements the Connector interface. The archive has no search
// endpoint, so the event's entire footprint file is fetched once and every
// filter is applied locally. A query without a collection cannot be routed
// to a footprint file and yields no results.
func (c *Connector) Search(ctx context.Context, q catalog.Query) ([]catalog.Item, error) {
	q = q.Normalize()
	_, collectionID := q.SplitCollection()
	if collectionID == "" {
		logging.Ctx(ctx).Warn().
			Str("connector", c.cfg.ID).
			Msg("Search without a collection matches no flat-file event")
		return nil, nil
	}

	ctx = logging.WithCollection(ctx, collectionID)
	fc, err := c.loadFootprints(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	var items []catalog.Item
	for _, f := range fc.Features {
		if len(items) >= q.Limit {
			break
		}
		item, ok := c.match(f, collectionID, q)
		if ok {
			items = append(items, item)
		}
	}

	logging.Ctx(ctx).Info().
		Str("connector", c.cfg.ID).
		Int("candidates", len(fc.Features)).
		Int("matched", len(items)).
		Msg("Flat-file search complete")
	return items, nil
}

// match applies the query filters to one footprint feature and converts it
// on success.
func (c *Connector) match(f feature, collectionID string, q catalog.Query) (catalog.Item, bool) {
	if q.MaxCloudCover != nil {
		if cover, ok := f.cloudCover(); ok && cover > *q.MaxCloudCover {
			return catalog.Item{}, false
		}
	}

	acquired, hasTime := f.acquired()
	if (hasTime || !q.Start.IsZero() || !q.End.IsZero()) && !q.MatchesTime(acquired) {
		return catalog.Item{}, false
	}

	bounds, hasBounds := f.bounds()
	if !q.BBox.IsZero() && hasBounds && !q.BBox.Intersects(bounds) {
		return catalog.Item{}, false
	}

	return catalog.Item{
		ID:          f.ID,
		ConnectorID: c.cfg.ID,
		Collection:  collectionID,
		BBox:        bounds,
		Geometry:    f.Geometry,
		Acquired:    acquired,
		Properties:  f.Properties,
		Assets:      f.assets(),
	}, true
}

// loadEvents fetches and parses the datasets index, caching the result.
func (c *Connector) loadEvents(ctx context.Context) ([]event, error) {
	c.mu.RLock()
	cached := c.events
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	body, err := transport.Retry(ctx, c.cfg.ID, func() ([]byte, error) {
		return c.client.FetchBody(ctx, c.cfg.ID, c.cfg.BaseURL+"/datasets.csv")
	})
	if err != nil {
		return nil, err
	}

	events, err := parseIndex(body)
	if err != nil {
		return nil, errors.WrapParse("csv", c.cfg.ID, err)
	}

	c.mu.Lock()
	c.events = events
	c.mu.Unlock()

	logging.Ctx(ctx).Debug().
		Str("connector", c.cfg.ID).
		Int("events", len(events)).
		Msg("Loaded event index")
	return events, nil
}

// parseIndex reads the name,count CSV. Rows with an unparsable count keep
// the event with a zero count rather than dropping it.
func parseIndex(body []byte) ([]event, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var events []event
	first := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			continue
		}
		if len(record) < 2 || strings.TrimSpace(record[0]) == "" {
			continue
		}

		name := strings.TrimSpace(record[0])
		tiles, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			tiles = 0
		}
		events = append(events, event{Name: name, Tiles: tiles})
	}

	sort.Slice(events, func(i, j int) bool {
		return strings.ToLower(events[i].Name) < strings.ToLower(events[j].Name)
	})
	return events, nil
}

// loadFootprints fetches one event's GeoJSON footprint file, retrying
// transient failures and caching the result for the connector's lifetime.
// The files never change once published.
func (c *Connector) loadFootprints(ctx context.Context, eventName string) (*featureCollection, error) {
	c.mu.RLock()
	fc, ok := c.footprints[eventName]
	c.mu.RUnlock()
	if ok {
		return fc, nil
	}

	url := fmt.Sprintf("%s/datasets/%s.geojson", c.cfg.BaseURL, eventName)
	fc, err := transport.Retry(ctx, c.cfg.ID, func() (*featureCollection, error) {
		var fetched featureCollection
		if err := c.client.FetchJSON(ctx, c.cfg.ID, url, &fetched); err != nil {
			return nil, err
		}
		return &fetched, nil
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.footprints[eventName] = fc
	c.mu.Unlock()

	logging.Ctx(ctx).Debug().
		Str("connector", c.cfg.ID).
		Str("event", eventName).
		Int("footprints", len(fc.Features)).
		Msg("Loaded footprint file")
	return fc, nil
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string          `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// cloudCover reads the footprint's cloud cover percentage. The archives
// publish it as either a number or a numeric string.
func (f feature) cloudCover() (float64, bool) {
	switch v := f.Properties["cloud_cover"].(type) {
	case float64:
		return v, true
	case string:
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

// acquired reads the footprint's acquisition timestamp.
func (f feature) acquired() (time.Time, bool) {
	raw, ok := f.Properties["datetime"].(string)
	if !ok || raw == "" {
		return time.Time{}, false
	}
	ts, err := stac.ParseTime(raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// bounds computes the footprint's bounding box from its polygon geometry.
func (f feature) bounds() (geo.BBox, bool) {
	if len(f.Geometry) == 0 {
		return geo.BBox{}, false
	}

	var geom struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal(f.Geometry, &geom); err != nil {
		return geo.BBox{}, false
	}

	var rings [][][]float64
	switch geom.Type {
	case "Polygon":
		if err := json.Unmarshal(geom.Coordinates, &rings); err != nil {
			return geo.BBox{}, false
		}
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(geom.Coordinates, &polys); err != nil {
			return geo.BBox{}, false
		}
		for _, p := range polys {
			rings = append(rings, p...)
		}
	default:
		return geo.BBox{}, false
	}

	return ringBounds(rings)
}

func ringBounds(rings [][][]float64) (geo.BBox, bool) {
	found := false
	var b geo.BBox
	for _, ring := range rings {
		for _, pt := range ring {
			if len(pt) < 2 {
				continue
			}
			if !found {
				b = geo.BBox{West: pt[0], South: pt[1], East: pt[0], North: pt[1]}
				found = true
				continue
			}
			if pt[0] < b.West {
				b.West = pt[0]
			}
			if pt[0] > b.East {
				b.East = pt[0]
			}
			if pt[1] < b.South {
				b.South = pt[1]
			}
			if pt[1] > b.North {
				b.North = pt[1]
			}
		}
	}
	return b, found
}

// assets maps the footprint's imagery URLs into the fixed asset role
// vocabulary. The visual product is display imagery; the multispectral
// analytic product is the data asset, with panchromatic as fallback when
// no multispectral product exists.
func (f feature) assets() map[catalog.AssetRole]catalog.Asset {
	assets := make(map[catalog.AssetRole]catalog.Asset)

	if href, ok := f.Properties["visual"].(string); ok && href != "" {
		assets[catalog.AssetVisual] = catalog.Asset{Href: href, Type: cogMediaType, Title: "Visual"}
	}
	if href, ok := f.Properties["ms_analytic"].(string); ok && href != "" {
		assets[catalog.AssetData] = catalog.Asset{Href: href, Type: cogMediaType, Title: "Multispectral"}
	} else if href, ok := f.Properties["pan_analytic"].(string); ok && href != "" {
		assets[catalog.AssetData] = catalog.Asset{Href: href, Type: cogMediaType, Title: "Panchromatic"}
	}

	if len(assets) == 0 {
		return nil
	}
	return assets
}
