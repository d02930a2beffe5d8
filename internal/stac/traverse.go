package stac

import (
	"context"

	"github.com/lodestar-gis/lodestar/internal/transport"
	"github.com/lodestar-gis/lodestar/pkg/catalog"
	"github.com/lodestar-gis/lodestar/pkg/errors"
	"github.com/lodestar-gis/lodestar/pkg/logging"
)

// maxDepth bounds descent through child links. Real catalogs nest a
// handful of levels (e.g. year, month, day); anything deeper is a cycle or
// a broken catalog.
const maxDepth = 16

// Engine walks a STAC link hierarchy rooted at a catalog entry point,
// fetching nodes lazily and filtering items against a query. It is
// organization-agnostic: whatever link graph the root exposes is the graph
// it walks.
type Engine struct {
	client    *transport.Client
	connector string
}

// NewEngine creates a traversal engine fetching through the given client.
// The connector id is used for error attribution and diagnostics.
func NewEngine(client *transport.Client, connector string) *Engine {
	return &Engine{client: client, connector: connector}
}

// FetchDocument fetches and decodes one catalog node, retrying transient
// failures with backoff.
func (e *Engine) FetchDocument(ctx context.Context, href string) (*Document, error) {
	return transport.Retry(ctx, e.connector, func() (*Document, error) {
		var doc Document
		if err := e.client.FetchJSON(ctx, e.connector, href, &doc); err != nil {
			return nil, err
		}
		return &doc, nil
	})
}

// Items traverses the hierarchy depth-first and returns items matching the
// query, at most q.Limit of them. Only an unreachable root fails the whole
// traversal; failures below the root log, skip the branch, and continue.
func (e *Engine) Items(ctx context.Context, rootURL string, q catalog.Query) ([]*Document, []string, error) {
	q = q.Normalize()

	root, err := e.FetchDocument(ctx, rootURL)
	if err != nil {
		if errors.IsMalformedResponse(err) {
			return nil, nil, err
		}
		return nil, nil, errors.WrapTransient(e.connector, rootURL, err)
	}

	t := &traversal{
		engine:  e,
		query:   q,
		visited: make(map[string]bool),
	}
	t.walk(ctx, root, rootURL, 0)

	logging.Ctx(ctx).Info().
		Str("connector", e.connector).
		Int("nodes_fetched", t.fetched).
		Int("items_evaluated", t.evaluated).
		Int("items_matched", len(t.matched)).
		Msg("Catalog traversal finished")

	return t.matched, t.hrefs, nil
}

// traversal carries the mutable state of one Items call.
type traversal struct {
	engine    *Engine
	query     catalog.Query
	visited   map[string]bool
	matched   []*Document
	hrefs     []string // self href per matched item, index-aligned
	fetched   int
	evaluated int
}

func (t *traversal) done() bool {
	return len(t.matched) >= t.query.Limit
}

// walk descends the node's child links, then evaluates its item links.
func (t *traversal) walk(ctx context.Context, node *Document, nodeURL string, depth int) {
	if t.done() || depth > maxDepth || ctx.Err() != nil {
		return
	}

	for _, link := range node.ChildLinks() {
		if t.done() {
			return
		}
		href := ResolveHref(nodeURL, link.Href)
		if t.visited[href] {
			continue
		}
		t.visited[href] = true

		child, err := t.engine.FetchDocument(ctx, href)
		if err != nil {
			logging.Ctx(ctx).Warn().
				Err(err).
				Str("connector", t.engine.connector).
				Str("href", href).
				Msg("Skipping unreachable catalog branch")
			continue
		}
		t.fetched++
		t.walk(ctx, child, href, depth+1)
	}

	for _, link := range node.ItemLinks() {
		if t.done() {
			return
		}
		href := ResolveHref(nodeURL, link.Href)
		if t.visited[href] {
			continue
		}
		t.visited[href] = true
		t.evaluate(ctx, href)
	}
}

// evaluate fetches one item and applies the spatial and temporal
// predicates, logging each inclusion/exclusion decision with its reason.
func (t *traversal) evaluate(ctx context.Context, href string) {
	item, err := t.engine.FetchDocument(ctx, href)
	if err != nil {
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("connector", t.engine.connector).
			Str("href", href).
			Msg("Skipping unreachable item")
		return
	}
	t.fetched++
	t.evaluated++

	logger := logging.Ctx(ctx).With().
		Str("connector", t.engine.connector).
		Str("item", item.ID).
		Logger()

	if !t.query.BBox.IsZero() {
		bounds, ok := item.Bounds()
		if !ok {
			logger.Info().Str("decision", "exclude").Str("reason", "no_bbox").Msg("Item filtered")
			return
		}
		if !t.query.BBox.Intersects(bounds) {
			logger.Info().Str("decision", "exclude").Str("reason", "bbox_disjoint").Msg("Item filtered")
			return
		}
	}

	acquired, _ := item.Acquired()
	if !t.query.MatchesTime(acquired) {
		reason := "outside_date_range"
		if acquired.IsZero() {
			reason = "no_timestamp"
		}
		logger.Info().Str("decision", "exclude").Str("reason", reason).Msg("Item filtered")
		return
	}

	logger.Info().Str("decision", "include").Msg("Item matched")
	t.matched = append(t.matched, item)
	t.hrefs = append(t.hrefs, href)
}

// Collections lists the root's direct children as collections. Each child
// is fetched to count its own children, mirroring how date-organized
// catalogs expose month counts per year; an unreachable child still lists
// with a zero count.
func (e *Engine) Collections(ctx context.Context, rootURL string) ([]catalog.Collection, error) {
	root, err := e.FetchDocument(ctx, rootURL)
	if err != nil {
		if errors.IsMalformedResponse(err) {
			return nil, err
		}
		return nil, errors.WrapTransient(e.connector, rootURL, err)
	}

	var collections []catalog.Collection
	for _, link := range root.ChildLinks() {
		href := ResolveHref(rootURL, link.Href)
		id := link.Title
		title := link.Title
		count := 0

		child, err := e.FetchDocument(ctx, href)
		if err != nil {
			logging.Ctx(ctx).Warn().
				Err(err).
				Str("connector", e.connector).
				Str("href", href).
				Msg("Could not fetch child catalog for collection listing")
		} else {
			if child.ID != "" {
				id = child.ID
			}
			if title == "" {
				title = child.Title
			}
			count = len(child.ChildLinks()) + len(child.ItemLinks())
		}
		if id == "" {
			id = link.Href
		}
		if title == "" {
			title = id
		}

		collections = append(collections, catalog.Collection{
			ID:          id,
			Title:       title,
			Description: root.Title,
			ItemCount:   count,
			ConnectorID: e.connector,
		})
	}
	return collections, nil
}
