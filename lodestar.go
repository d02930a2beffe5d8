// Package lodestar aggregates satellite-imagery catalogs behind one search
// API. Connectors adapt heterogeneous sources (flat CSV+GeoJSON archives,
// static STAC hierarchies, OAuth2-protected STAC APIs) into a uniform
// item/collection model; the aggregator fans queries out over them with
// bounded concurrency and caches the merged collection listing.
package lodestar

import (
	"context"
	"fmt"

	"github.com/lodestar-gis/lodestar/internal/config"
	"github.com/lodestar-gis/lodestar/internal/connectors/dataspace"
	"github.com/lodestar-gis/lodestar/internal/connectors/flatfile"
	"github.com/lodestar-gis/lodestar/internal/connectors/staccat"
	"github.com/lodestar-gis/lodestar/internal/transport"
	"github.com/lodestar-gis/lodestar/pkg/aggregator"
	"github.com/lodestar-gis/lodestar/pkg/catalog"
	"github.com/lodestar-gis/lodestar/pkg/connectors"
	"github.com/lodestar-gis/lodestar/pkg/errors"
	"github.com/lodestar-gis/lodestar/pkg/logging"
)

// Lodestar is the aggregate catalog surface.
type Lodestar interface {
	// Register adds a connector, replacing any prior one with the same id.
	Register(c connectors.Connector) error

	// Connectors lists every registered connector's descriptor.
	Connectors() []connectors.Descriptor

	// Authenticate routes credentials to one connector.
	Authenticate(ctx context.Context, id connectors.ID, creds connectors.Credentials) error

	// Deauthenticate drops one connector's credential state.
	Deauthenticate(id connectors.ID) error

	// Search queries exactly one connector.
	Search(ctx context.Context, id connectors.ID, q catalog.Query) ([]catalog.Item, error)

	// SearchAll fans a query out over every ready connector, returning
	// merged partial results plus any per-connector failures joined.
	SearchAll(ctx context.Context, q catalog.Query) ([]catalog.Item, error)

	// Collections returns the merged collection listing, served from a
	// TTL-bounded snapshot when useCache is set.
	Collections(ctx context.Context, useCache bool) ([]catalog.Collection, error)

	// ClearCollectionsCache drops the collections snapshot immediately.
	ClearCollectionsCache()
}

// lodestar is the internal implementation of the Lodestar interface.
type lodestar struct {
	config     *options
	aggregator *aggregator.Aggregator
}

// New creates a Lodestar instance with the given options. Connectors
// declared through definition options are built and registered; more can
// be registered afterwards.
func New(opts ...Option) (Lodestar, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	l := &lodestar{
		config: cfg,
		aggregator: aggregator.New(aggregator.Config{
			Workers:       cfg.workers,
			CallTimeout:   cfg.callTimeout,
			SearchTimeout: cfg.searchTimeout,
			FanOutCeiling: cfg.fanOutCeiling,
			CacheTTL:      cfg.cacheTTL,
		}),
	}

	for _, def := range cfg.definitions {
		c, err := l.build(def)
		if err != nil {
			return nil, err
		}
		if err := l.aggregator.Register(c); err != nil {
			return nil, err
		}
	}
	for _, c := range cfg.connectors {
		if err := l.aggregator.Register(c); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// build constructs one connector from its definition.
func (l *lodestar) build(def config.ConnectorDef) (connectors.Connector, error) {
	switch def.Kind {
	case config.KindFlatFile:
		return flatfile.New(flatfile.Config{
			ID:      def.ID,
			Name:    def.Name,
			BaseURL: def.BaseURL,
		}, l.transportClient()), nil
	case config.KindSTACCatalog:
		return staccat.New(staccat.Config{
			ID:         def.ID,
			Name:       def.Name,
			CatalogURL: def.CatalogURL,
		}, l.transportClient()), nil
	case config.KindOAuth2API:
		return dataspace.New(dataspace.Config{
			ID:                def.ID,
			Name:              def.Name,
			TokenURL:          def.TokenURL,
			APIURL:            def.APIURL,
			Collections:       def.Collections,
			DefaultCollection: def.DefaultCollection,
		}, l.config.httpClient), nil
	default:
		return nil, &errors.ValidationError{
			Field:   "kind",
			Value:   string(def.Kind),
			Message: fmt.Sprintf("unknown connector kind for %q", def.ID),
		}
	}
}

func (l *lodestar) transportClient() *transport.Client {
	var opts []transport.Option
	if l.config.httpClient != nil {
		opts = append(opts, transport.WithHTTPClient(l.config.httpClient))
	}
	if l.config.proxy != nil {
		opts = append(opts, transport.WithProxy(l.config.proxy))
	}
	return transport.New(opts...)
}

// ctx attaches the configured logger so every operation logs through it.
func (l *lodestar) ctx(ctx context.Context) context.Context {
	return logging.WithLogger(ctx, &l.config.logger)
}

// Register implements the Lodestar interface.
func (l *lodestar) Register(c connectors.Connector) error {
	return l.aggregator.Register(c)
}

// Connectors implements the Lodestar interface.
func (l *lodestar) Connectors() []connectors.Descriptor {
	return l.aggregator.Descriptors()
}

// Authenticate implements the Lodestar interface.
func (l *lodestar) Authenticate(ctx context.Context, id connectors.ID, creds connectors.Credentials) error {
	return l.aggregator.Authenticate(l.ctx(ctx), id, creds)
}

// Deauthenticate implements the Lodestar interface.
func (l *lodestar) Deauthenticate(id connectors.ID) error {
	return l.aggregator.Deauthenticate(id)
}

// Search implements the Lodestar interface.
func (l *lodestar) Search(ctx context.Context, id connectors.ID, q catalog.Query) ([]catalog.Item, error) {
	return l.aggregator.Search(l.ctx(ctx), id, q)
}

// SearchAll implements the Lodestar interface.
func (l *lodestar) SearchAll(ctx context.Context, q catalog.Query) ([]catalog.Item, error) {
	return l.aggregator.SearchAll(l.ctx(ctx), q)
}

// Collections implements the Lodestar interface.
func (l *lodestar) Collections(ctx context.Context, useCache bool) ([]catalog.Collection, error) {
	return l.aggregator.Collections(l.ctx(ctx), useCache)
}

// ClearCollectionsCache implements the Lodestar interface.
func (l *lodestar) ClearCollectionsCache() {
	l.aggregator.ClearCollectionsCache()
}
