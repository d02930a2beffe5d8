// Package aggregator provides the connector registry and the aggregate
// search surface over it. One Aggregator owns the set of registered
// connectors, fans queries out over them with bounded concurrency, and
// caches the merged collections listing.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lodestar-gis/lodestar/internal/pool"
	"github.com/lodestar-gis/lodestar/pkg/catalog"
	"github.com/lodestar-gis/lodestar/pkg/connectors"
	"github.com/lodestar-gis/lodestar/pkg/constants"
	"github.com/lodestar-gis/lodestar/pkg/errors"
	"github.com/lodestar-gis/lodestar/pkg/logging"
)

// Config tunes an Aggregator. Zero values take the defaults.
type Config struct {
	// Workers bounds fan-out concurrency.
	Workers int

	// CallTimeout bounds each individual connector call inside a fan-out.
	CallTimeout time.Duration

	// SearchTimeout bounds a direct single-connector search, which is not
	// held to the fan-out's per-call budget.
	SearchTimeout time.Duration

	// FanOutCeiling bounds a whole fan-out; stragglers past it contribute
	// nothing.
	FanOutCeiling time.Duration

	// CacheTTL is the collections snapshot lifetime.
	CacheTTL time.Duration

	// CacheCleanup is how often expired snapshots are swept.
	CacheCleanup time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = constants.MaxConcurrentConnectors
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = constants.ConnectorCallTimeout
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = constants.DirectSearchTimeout
	}
	if c.FanOutCeiling <= 0 {
		c.FanOutCeiling = constants.FanOutCeiling
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = constants.CollectionsCacheTTL
	}
	if c.CacheCleanup <= 0 {
		c.CacheCleanup = constants.CacheCleanupInterval
	}
	return c
}

// Aggregator is the registry of connectors and the aggregate operations
// over them. All methods are safe for concurrent use.
type Aggregator struct {
	cfg        Config
	connectors *connectors.Connectors
	cache      *collectionsCache
}

// New creates an Aggregator with no connectors registered.
func New(cfg Config) *Aggregator {
	cfg = cfg.withDefaults()
	return &Aggregator{
		cfg:        cfg,
		connectors: connectors.NewConnectors(),
		cache:      newCollectionsCache(cfg.CacheTTL, cfg.CacheCleanup),
	}
}

// Register adds a connector under its descriptor ID, replacing any prior
// entry with that ID. Registration invalidates the collections cache.
func (a *Aggregator) Register(c connectors.Connector) error {
	if c == nil {
		return &errors.ValidationError{Field: "connector", Message: "connector is nil"}
	}
	id := c.Descriptor().ID
	if id == "" {
		return &errors.ValidationError{Field: "id", Message: "connector id is empty"}
	}

	a.connectors.Set(id, c)
	a.cache.Clear()
	return nil
}

// Unregister removes a connector and invalidates the collections cache.
// Removing an unknown id is a no-op.
func (a *Aggregator) Unregister(id connectors.ID) {
	a.connectors.Delete(id)
	a.cache.Clear()
}

// Connector returns a registered connector by id.
func (a *Aggregator) Connector(id connectors.ID) (connectors.Connector, error) {
	c, ok := a.connectors.Get(id)
	if !ok {
		return nil, &errors.UnknownConnectorError{ID: string(id)}
	}
	return c, nil
}

// Descriptors lists every registered connector's descriptor, sorted by id.
func (a *Aggregator) Descriptors() []connectors.Descriptor {
	list := a.connectors.List()
	descriptors := make([]connectors.Descriptor, 0, len(list))
	for _, c := range list {
		descriptors = append(descriptors, c.Descriptor())
	}
	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].ID < descriptors[j].ID
	})
	return descriptors
}

// Authenticate routes credentials to one connector. The collections cache
// is invalidated regardless of outcome: a failed exchange can still flip a
// connector out of the authenticated state.
func (a *Aggregator) Authenticate(ctx context.Context, id connectors.ID, creds connectors.Credentials) error {
	c, err := a.Connector(id)
	if err != nil {
		return err
	}
	defer a.cache.Clear()

	authCtx, cancel := context.WithTimeout(ctx, constants.AuthTimeout)
	defer cancel()

	if err := c.Authenticate(authCtx, creds); err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("connector", id.String()).
			Msg("Connector authentication failed")
		return err
	}

	logging.Ctx(ctx).Info().
		Str("connector", id.String()).
		Msg("Connector authenticated")
	return nil
}

// Deauthenticate drops a connector's credential state and invalidates the
// collections cache. Connectors over open data have no state to drop and
// succeed trivially.
func (a *Aggregator) Deauthenticate(id connectors.ID) error {
	c, err := a.Connector(id)
	if err != nil {
		return err
	}
	if d, ok := c.(connectors.Deauthenticator); ok {
		d.Deauthenticate()
	}
	a.cache.Clear()
	return nil
}

// Search runs one query against exactly one connector. Unlike SearchAll,
// connector failures surface directly to the caller, and the call gets the
// larger direct-search budget rather than a fan-out slot.
func (a *Aggregator) Search(ctx context.Context, id connectors.ID, q catalog.Query) ([]catalog.Item, error) {
	c, err := a.Connector(id)
	if err != nil {
		return nil, err
	}
	if !c.Descriptor().Ready() {
		return nil, &errors.NotAuthenticatedError{Connector: id.String()}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.SearchTimeout)
	defer cancel()

	return c.Search(callCtx, q.Normalize())
}

// SearchAll fans one query out over every ready connector and merges the
// results. Individual connector failures contribute zero items and are
// returned joined alongside whatever the rest produced; callers always get
// the partial results. A "connector::collection" query collection scopes
// the fan-out to that single connector.
func (a *Aggregator) SearchAll(ctx context.Context, q catalog.Query) ([]catalog.Item, error) {
	q = q.Normalize()
	ctx = logging.WithOperation(ctx, "search_all")
	ctx = logging.WithRequestID(ctx, uuid.NewString())

	targets := a.readyConnectors()
	if scope, _ := q.SplitCollection(); scope != "" {
		targets = filterByID(targets, connectors.ID(scope))
	}
	if len(targets) == 0 {
		logging.Ctx(ctx).Info().Msg("No ready connectors to search")
		return nil, nil
	}

	fanCtx, cancel := context.WithTimeout(ctx, a.cfg.FanOutCeiling)
	defer cancel()

	logging.Ctx(ctx).Info().
		Int("connectors", len(targets)).
		Int("limit", q.Limit).
		Msg("Fanning out search")

	results := pool.Run(fanCtx, a.cfg.Workers, targets, func(taskCtx context.Context, c connectors.Connector) ([]catalog.Item, error) {
		taskCtx = logging.WithConnector(taskCtx, c.Descriptor().ID.String())
		callCtx, callCancel := context.WithTimeout(taskCtx, a.cfg.CallTimeout)
		defer callCancel()
		return c.Search(callCtx, q)
	})

	var items []catalog.Item
	var failures []error
	for i, r := range results {
		id := targets[i].Descriptor().ID
		if r.Err != nil {
			logging.Ctx(ctx).Warn().
				Err(r.Err).
				Str("connector", id.String()).
				Msg("Connector contributed no results")
			failures = append(failures, fmt.Errorf("%s: %w", id, r.Err))
			continue
		}
		items = append(items, r.Value...)
	}

	logging.Ctx(ctx).Info().
		Int("items", len(items)).
		Int("failed_connectors", len(failures)).
		Msg("Aggregate search complete")
	return items, errors.Join(failures...)
}

// Collections returns the merged collection listing of every ready
// connector. With useCache, a snapshot younger than the TTL is served
// as-is; otherwise the listing is refreshed and the snapshot replaced
// atomically. Like SearchAll, per-connector failures yield partial results
// plus a joined error.
func (a *Aggregator) Collections(ctx context.Context, useCache bool) ([]catalog.Collection, error) {
	if useCache {
		if snap, ok := a.cache.Get(); ok {
			logging.Ctx(ctx).Debug().
				Time("taken_at", snap.TakenAt).
				Int("collections", len(snap.Collections)).
				Msg("Serving cached collections snapshot")
			return snap.Collections, nil
		}
	}

	ctx = logging.WithOperation(ctx, "collections")

	targets := a.readyConnectors()
	if len(targets) == 0 {
		return nil, nil
	}

	fanCtx, cancel := context.WithTimeout(ctx, a.cfg.FanOutCeiling)
	defer cancel()

	results := pool.Run(fanCtx, a.cfg.Workers, targets, func(taskCtx context.Context, c connectors.Connector) ([]catalog.Collection, error) {
		taskCtx = logging.WithConnector(taskCtx, c.Descriptor().ID.String())
		callCtx, callCancel := context.WithTimeout(taskCtx, a.cfg.CallTimeout)
		defer callCancel()
		return c.Collections(callCtx)
	})

	var merged []catalog.Collection
	var failures []error
	for i, r := range results {
		id := targets[i].Descriptor().ID
		if r.Err != nil {
			logging.Ctx(ctx).Warn().
				Err(r.Err).
				Str("connector", id.String()).
				Msg("Connector contributed no collections")
			failures = append(failures, fmt.Errorf("%s: %w", id, r.Err))
			continue
		}
		merged = append(merged, r.Value...)
	}

	// Only a complete listing becomes the cached snapshot; a partial one
	// would hide the missing connectors' collections for a whole TTL.
	if len(failures) == 0 {
		a.cache.Set(&Snapshot{Collections: merged, TakenAt: time.Now()})
	}
	return merged, errors.Join(failures...)
}

// ClearCollectionsCache drops the cached snapshot immediately.
func (a *Aggregator) ClearCollectionsCache() {
	a.cache.Clear()
}

// readyConnectors returns the connectors eligible for fan-outs, sorted by
// id for deterministic fan-out order.
func (a *Aggregator) readyConnectors() []connectors.Connector {
	var ready []connectors.Connector
	for _, c := range a.connectors.List() {
		if c.Descriptor().Ready() {
			ready = append(ready, c)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		return ready[i].Descriptor().ID < ready[j].Descriptor().ID
	})
	return ready
}

func filterByID(list []connectors.Connector, id connectors.ID) []connectors.Connector {
	var out []connectors.Connector
	for _, c := range list {
		if c.Descriptor().ID == id {
			out = append(out, c)
		}
	}
	return out
}
