package staccat

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestar-gis/lodestar/pkg/catalog"
	"github.com/lodestar-gis/lodestar/pkg/connectors"
	"github.com/lodestar-gis/lodestar/pkg/geo"
)

// newTestCatalog serves a two-year date-organized catalog with one item per
// year and returns a connector over it.
func newTestCatalog(t *testing.T) *Connector {
	t.Helper()

	docs := map[string]string{
		"/stac/catalog.json": `{
			"id": "archive",
			"title": "SAR Open Data",
			"links": [
				{"rel": "child", "href": "./2023/catalog.json", "title": "2023"},
				{"rel": "child", "href": "./2024/catalog.json", "title": "2024"}
			]
		}`,
		"/stac/2023/catalog.json": `{
			"id": "2023",
			"links": [{"rel": "item", "href": "./task-a.json"}]
		}`,
		"/stac/2023/task-a.json": itemJSON("task-a", "2023-03-10T08:00:00Z"),
		"/stac/2024/catalog.json": `{
			"id": "2024",
			"links": [{"rel": "item", "href": "./task-b.json"}]
		}`,
		"/stac/2024/task-b.json": itemJSON("task-b", "2024-07-20T16:45:00Z"),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, ok := docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	}))
	t.Cleanup(srv.Close)

	return New(Config{ID: "umbra", Name: "Umbra SAR", CatalogURL: srv.URL + "/stac/catalog.json"}, nil)
}

func itemJSON(id, datetime string) string {
	return fmt.Sprintf(`{
		"type": "Feature",
		"id": %q,
		"bbox": [7.1, 46.0, 7.6, 46.4],
		"geometry": {"type": "Polygon", "coordinates": [[[7.1, 46.0], [7.6, 46.0], [7.6, 46.4], [7.1, 46.4], [7.1, 46.0]]]},
		"properties": {"datetime": %q},
		"assets": {
			"GEC": {"href": "https://cdn.example.com/%s-gec.tif", "type": "image/tiff; application=geotiff", "title": "GEC product"},
			"SICD": {"href": "https://cdn.example.com/%s-sicd.nitf", "type": "application/octet-stream"},
			"thumbnail": {"href": "https://cdn.example.com/%s-thumb.png", "type": "image/png", "roles": ["thumbnail"]}
		}
	}`, id, datetime, id, id, id)
}

func TestDescriptor(t *testing.T) {
	conn := newTestCatalog(t)
	d := conn.Descriptor()
	assert.Equal(t, connectors.ID("umbra"), d.ID)
	assert.True(t, d.Ready())
	assert.False(t, d.Capabilities.Has(connectors.CapCloudCover))
	assert.True(t, d.Capabilities.Has(connectors.CapCollections))
}

func TestAuthenticateIsNoOp(t *testing.T) {
	conn := newTestCatalog(t)
	require.NoError(t, conn.Authenticate(context.Background(), connectors.Credentials{}))
}

func TestCollections(t *testing.T) {
	conn := newTestCatalog(t)

	cols, err := conn.Collections(context.Background())
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "2023", cols[0].ID)
	assert.Equal(t, 1, cols[0].ItemCount)
	assert.Equal(t, "umbra", cols[0].ConnectorID)
}

func TestSearchWholeHierarchy(t *testing.T) {
	conn := newTestCatalog(t)

	items, err := conn.Search(context.Background(), catalog.Query{
		BBox: geo.BBox{West: 7, South: 45.5, East: 8, North: 47},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	ids := []string{items[0].ID, items[1].ID}
	assert.ElementsMatch(t, []string{"task-a", "task-b"}, ids)

	for _, item := range items {
		assert.Equal(t, "umbra", item.ConnectorID)
		assert.False(t, item.Acquired.IsZero())
		assert.InDelta(t, 7.1, item.BBox.West, 1e-9)
	}
}

func TestSearchDateRange(t *testing.T) {
	conn := newTestCatalog(t)

	items, err := conn.Search(context.Background(), catalog.Query{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "task-b", items[0].ID)
}

func TestSearchScopedToCollection(t *testing.T) {
	conn := newTestCatalog(t)

	items, err := conn.Search(context.Background(), catalog.Query{Collection: "umbra::2023"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "task-a", items[0].ID)
}

func TestSearchUnknownCollectionIsEmpty(t *testing.T) {
	conn := newTestCatalog(t)

	items, err := conn.Search(context.Background(), catalog.Query{Collection: "2031"})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAssetRoleMapping(t *testing.T) {
	conn := newTestCatalog(t)

	items, err := conn.Search(context.Background(), catalog.Query{Collection: "2024"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	assets := items[0].Assets
	assert.Equal(t, "https://cdn.example.com/task-b-gec.tif", assets[catalog.AssetVisual].Href)
	assert.Equal(t, "https://cdn.example.com/task-b-sicd.nitf", assets[catalog.AssetData].Href)
	assert.Equal(t, "https://cdn.example.com/task-b-thumb.png", assets[catalog.AssetThumbnail].Href)
	assert.Equal(t, "GEC product", assets[catalog.AssetVisual].Title)
}
