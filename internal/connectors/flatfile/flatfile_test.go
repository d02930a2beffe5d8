package flatfile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestar-gis/lodestar/pkg/catalog"
	"github.com/lodestar-gis/lodestar/pkg/connectors"
	"github.com/lodestar-gis/lodestar/pkg/errors"
	"github.com/lodestar-gis/lodestar/pkg/geo"
)

const testIndex = `name,count
Zulu-flood-Mar24,2
Alpha-earthquake-Jun22,3
no-count-event,notanumber
`

const testFootprints = `{
	"type": "FeatureCollection",
	"features": [
		{
			"id": "tile-in",
			"geometry": {"type": "Polygon", "coordinates": [[[7.2, 46.1], [7.9, 46.1], [7.9, 46.8], [7.2, 46.8], [7.2, 46.1]]]},
			"properties": {
				"datetime": "2024-06-15T10:30:00Z",
				"cloud_cover": 12.5,
				"visual": "https://cdn.example.com/tile-in-visual.tif",
				"ms_analytic": "https://cdn.example.com/tile-in-ms.tif",
				"pan_analytic": "https://cdn.example.com/tile-in-pan.tif"
			}
		},
		{
			"id": "tile-cloudy",
			"geometry": {"type": "Polygon", "coordinates": [[[7.2, 46.1], [7.9, 46.1], [7.9, 46.8], [7.2, 46.8], [7.2, 46.1]]]},
			"properties": {"datetime": "2024-06-15T10:30:00Z", "cloud_cover": 80}
		},
		{
			"id": "tile-elsewhere",
			"geometry": {"type": "Polygon", "coordinates": [[[20, 10], [21, 10], [21, 11], [20, 11], [20, 10]]]},
			"properties": {"datetime": "2024-06-15T10:30:00Z", "cloud_cover": 5}
		},
		{
			"id": "tile-old",
			"geometry": {"type": "Polygon", "coordinates": [[[7.2, 46.1], [7.9, 46.1], [7.9, 46.8], [7.2, 46.8], [7.2, 46.1]]]},
			"properties": {"datetime": "2019-01-01T00:00:00Z", "cloud_cover": 5, "pan_analytic": "https://cdn.example.com/tile-old-pan.tif"}
		}
	]
}`

func newTestArchive(t *testing.T) (*Connector, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/datasets.csv", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(testIndex))
	})
	mux.HandleFunc("/datasets/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/datasets/Alpha-earthquake-Jun22.geojson" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(testFootprints))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return New(Config{ID: "vantor", Name: "Vantor Open Data", BaseURL: srv.URL}, nil), &hits
}

func TestDescriptor(t *testing.T) {
	conn, _ := newTestArchive(t)
	d := conn.Descriptor()
	assert.Equal(t, connectors.ID("vantor"), d.ID)
	assert.False(t, d.RequiresAuth())
	assert.True(t, d.Ready())
	assert.True(t, d.Capabilities.Has(connectors.CapCloudCover))
}

func TestAuthenticateAlwaysSucceeds(t *testing.T) {
	conn, _ := newTestArchive(t)
	require.NoError(t, conn.Authenticate(context.Background(), connectors.Credentials{}))

	// Even with the index unreachable authentication still succeeds.
	broken := New(Config{ID: "vantor", BaseURL: "http://127.0.0.1:1"}, nil)
	require.NoError(t, broken.Authenticate(context.Background(), connectors.Credentials{}))
}

func TestCollectionsSortedWithCounts(t *testing.T) {
	conn, hits := newTestArchive(t)

	cols, err := conn.Collections(context.Background())
	require.NoError(t, err)
	require.Len(t, cols, 3)

	assert.Equal(t, "Alpha-earthquake-Jun22", cols[0].ID)
	assert.Equal(t, 3, cols[0].ItemCount)
	assert.Equal(t, "vantor", cols[0].ConnectorID)
	assert.Equal(t, "vantor::Alpha-earthquake-Jun22", cols[0].Key())
	assert.Equal(t, "Zulu-flood-Mar24", cols[2].ID)

	// Bad tile counts keep the event listed with a zero count.
	assert.Equal(t, "no-count-event", cols[1].ID)
	assert.Zero(t, cols[1].ItemCount)

	// The index is fetched once and reused.
	_, err = conn.Collections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSearchFilters(t *testing.T) {
	conn, _ := newTestArchive(t)

	maxCloud := 50.0
	q := catalog.Query{
		Collection:    "Alpha-earthquake-Jun22",
		BBox:          geo.BBox{West: 7, South: 46, East: 8, North: 47},
		Start:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:           time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		MaxCloudCover: &maxCloud,
	}
	items, err := conn.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "tile-in", item.ID)
	assert.Equal(t, "vantor", item.ConnectorID)
	assert.Equal(t, "Alpha-earthquake-Jun22", item.Collection)
	assert.Equal(t, time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC), item.Acquired)
	assert.InDelta(t, 7.2, item.BBox.West, 1e-9)
	assert.InDelta(t, 46.8, item.BBox.North, 1e-9)
	assert.NotEmpty(t, item.Geometry)
}

func TestSearchAssetRoles(t *testing.T) {
	conn, _ := newTestArchive(t)

	items, err := conn.Search(context.Background(), catalog.Query{Collection: "Alpha-earthquake-Jun22"})
	require.NoError(t, err)
	require.Len(t, items, 4)

	byID := make(map[string]catalog.Item, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	// Multispectral wins the data role when present.
	full := byID["tile-in"]
	assert.Equal(t, "https://cdn.example.com/tile-in-visual.tif", full.Assets[catalog.AssetVisual].Href)
	assert.Equal(t, "https://cdn.example.com/tile-in-ms.tif", full.Assets[catalog.AssetData].Href)

	// Panchromatic fills in when there is no multispectral product.
	panOnly := byID["tile-old"]
	assert.Equal(t, "https://cdn.example.com/tile-old-pan.tif", panOnly.Assets[catalog.AssetData].Href)
	assert.NotContains(t, panOnly.Assets, catalog.AssetVisual)
}

func TestSearchScopedCollectionForm(t *testing.T) {
	conn, _ := newTestArchive(t)

	items, err := conn.Search(context.Background(), catalog.Query{Collection: "vantor::Alpha-earthquake-Jun22", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSearchWithoutCollection(t *testing.T) {
	conn, hits := newTestArchive(t)

	items, err := conn.Search(context.Background(), catalog.Query{})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, hits.Load())
}

func TestSearchUnknownCollection(t *testing.T) {
	conn, _ := newTestArchive(t)

	_, err := conn.Search(context.Background(), catalog.Query{Collection: "no-such-event"})
	require.Error(t, err)
}

func TestSearchRetriesFootprintFetch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/datasets.csv" {
			_, _ = w.Write([]byte(testIndex))
			return
		}
		if hits.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(testFootprints))
	}))
	defer srv.Close()

	conn := New(Config{ID: "vantor", BaseURL: srv.URL}, nil)
	items, err := conn.Search(context.Background(), catalog.Query{Collection: "Alpha-earthquake-Jun22"})
	require.NoError(t, err)
	assert.Len(t, items, 4)
	assert.Equal(t, int32(2), hits.Load())
}

func TestSearchCachesFootprints(t *testing.T) {
	conn, hits := newTestArchive(t)

	for i := 0; i < 3; i++ {
		_, err := conn.Search(context.Background(), catalog.Query{Collection: "Alpha-earthquake-Jun22"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestParseIndexMalformed(t *testing.T) {
	_, err := parseIndex([]byte(`name,count
"unterminated,3`))
	require.Error(t, err)
	assert.True(t, errors.IsMalformedResponse(errors.WrapParse("csv", "vantor", err)))
}
