// Package dataspace implements a connector over OAuth2-protected STAC
// search APIs in the style of the Copernicus Data Space Ecosystem: token
// exchange via the client credentials grant, then authenticated POST
// searches against a /search endpoint.
package dataspace

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/lodestar-gis/lodestar/internal/stac"
	"github.com/lodestar-gis/lodestar/internal/transport"
	"github.com/lodestar-gis/lodestar/pkg/catalog"
	"github.com/lodestar-gis/lodestar/pkg/connectors"
	"github.com/lodestar-gis/lodestar/pkg/constants"
	"github.com/lodestar-gis/lodestar/pkg/errors"
	"github.com/lodestar-gis/lodestar/pkg/logging"
)

// apiPageLimit is the per-request result cap the STAC API enforces.
const apiPageLimit = 1000

// defaultWindow is the acquisition window applied when a query has no
// temporal bounds. The API rejects fully unbounded searches over archives
// this size, so recent imagery is the useful default.
const defaultWindow = 30 * 24 * time.Hour

// CollectionDef declares one searchable collection of the API.
type CollectionDef struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	// Optical marks collections whose items carry an eo:cloud_cover
	// property the API can filter on.
	Optical bool `json:"optical" yaml:"optical"`
}

// Config describes one OAuth2 REST source.
type Config struct {
	// ID is the registry identifier, e.g. "copernicus".
	ID string

	// Name is the human-readable source name.
	Name string

	// TokenURL is the OAuth2 token endpoint for the client credentials
	// grant.
	TokenURL string

	// APIURL is the STAC API root; searches POST to <APIURL>/search.
	APIURL string

	// Collections is the source's static collection catalog. The API has
	// no public listing endpoint, so the set ships with the connector.
	Collections []CollectionDef

	// DefaultCollection is searched when a query names none.
	DefaultCollection string
}

// Connector searches an OAuth2-protected STAC API. Tokens are obtained on
// Authenticate and refreshed transparently by the token source when they
// near expiry; callers never see an expired-token failure for a healthy
// credential.
type Connector struct {
	cfg    Config
	client *transport.Client
	base   *http.Client

	mu    sync.RWMutex
	state connectors.AuthState
}

var _ connectors.Connector = (*Connector)(nil)

// New creates an OAuth2 REST connector. A nil base client gets a default
// one; it is used both for token exchange and API calls.
func New(cfg Config, base *http.Client) *Connector {
	if base == nil {
		base = &http.Client{Timeout: transport.DefaultHTTPTimeout}
	}
	return &Connector{
		cfg:    cfg,
		base:   base,
		client: transport.New(transport.WithHTTPClient(base)),
		state:  connectors.AuthStateUnauthenticated,
	}
}

// Descriptor implements the Connector interface, reporting the live
// authentication state.
func (c *Connector) Descriptor() connectors.Descriptor {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	return connectors.Descriptor{
		ID:          connectors.ID(c.cfg.ID),
		Name:        c.cfg.Name,
		Description: "OAuth2-protected STAC search API",
		Capabilities: connectors.Capabilities{
			connectors.CapBBoxSearch,
			connectors.CapDateRange,
			connectors.CapCloudCover,
			connectors.CapCollections,
			connectors.CapAuthentication,
		},
		AuthState: state,
	}
}

// Authenticate implements the Connector interface. It exchanges the client
// id and secret for a token immediately so bad credentials surface here,
// not on the first search.
func (c *Connector) Authenticate(ctx context.Context, creds connectors.Credentials) error {
	// A pre-issued token skips the exchange entirely. It will not refresh;
	// when it expires the connector must be re-authenticated.
	if creds.Token != "" {
		c.setStaticToken(creds.Token)
		logging.Ctx(ctx).Info().
			Str("connector", c.cfg.ID).
			Msg("Using pre-issued access token")
		return nil
	}

	if creds.ClientID == "" || creds.ClientSecret == "" {
		c.setState(connectors.AuthStateFailed, nil)
		return &errors.AuthenticationError{
			Connector: c.cfg.ID,
			Method:    "client_credentials",
			Message:   "client id and secret are required",
		}
	}

	grant := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     c.cfg.TokenURL,
	}

	// The token source must outlive this call, so it is bound to a
	// background context carrying only the HTTP client. The verification
	// fetch below still honors the caller's deadline through authCtx.
	sourceCtx := context.WithValue(context.Background(), oauth2.HTTPClient, c.base)
	source := grant.TokenSource(sourceCtx)

	authCtx, cancel := context.WithTimeout(ctx, constants.AuthTimeout)
	defer cancel()

	verifyCtx := context.WithValue(authCtx, oauth2.HTTPClient, c.base)
	token, err := grant.Token(verifyCtx)
	if err != nil {
		c.setState(connectors.AuthStateFailed, nil)
		return &errors.AuthenticationError{
			Connector: c.cfg.ID,
			Method:    "client_credentials",
			Message:   "token exchange failed",
			Err:       err,
		}
	}

	c.setState(connectors.AuthStateAuthenticated, source)

	logging.Ctx(ctx).Info().
		Str("connector", c.cfg.ID).
		Time("token_expiry", token.Expiry).
		Msg("OAuth2 token obtained")
	return nil
}

// Deauthenticate drops the token source and returns the connector to the
// unauthenticated state.
func (c *Connector) Deauthenticate() {
	c.setState(connectors.AuthStateUnauthenticated, nil)
}

// setState swaps auth state and the client's token source together.
func (c *Connector) setState(state connectors.AuthState, source oauth2.TokenSource) {
	var auth transport.Authenticator
	if source != nil {
		auth = &transport.TokenSourceAuth{Connector: c.cfg.ID, Source: source}
	}
	c.swapClient(state, auth)
}

// setStaticToken authenticates with a fixed bearer token.
func (c *Connector) setStaticToken(token string) {
	c.swapClient(connectors.AuthStateAuthenticated, &transport.BearerAuth{Token: token})
}

func (c *Connector) swapClient(state connectors.AuthState, auth transport.Authenticator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state

	opts := []transport.Option{transport.WithHTTPClient(c.base)}
	if auth != nil {
		opts = append(opts, transport.WithAuthenticator(auth))
	}
	c.client = transport.New(opts...)
}

func (c *Connector) ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == connectors.AuthStateAuthenticated
}

// Collections implements the Connector interface. The set is static and
// needs no authentication to list.
func (c *Connector) Collections(_ context.Context) ([]catalog.Collection, error) {
	collections := make([]catalog.Collection, 0, len(c.cfg.Collections))
	for _, def := range c.cfg.Collections {
		collections = append(collections, catalog.Collection{
			ID:          def.ID,
			Title:       def.Title,
			Description: def.Description,
			ConnectorID: c.cfg.ID,
		})
	}
	return collections, nil
}

// searchRequest is the STAC API search payload.
type searchRequest struct {
	BBox        []float64      `json:"bbox"`
	Datetime    string         `json:"datetime"`
	Collections []string       `json:"collections"`
	Limit       int            `json:"limit"`
	Query       map[string]any `json:"query,omitempty"`
}

type searchResponse struct {
	Features []stac.Document `json:"features"`
}

// Search implements the Connector interface. A bounding box is required;
// the API refuses unbounded spatial searches. Without temporal bounds the
// last 30 days are searched.
func (c *Connector) Search(ctx context.Context, q catalog.Query) ([]catalog.Item, error) {
	if !c.ready() {
		return nil, &errors.NotAuthenticatedError{Connector: c.cfg.ID}
	}
	q = q.Normalize()

	if q.BBox.IsZero() {
		return nil, &errors.ValidationError{
			Field:   "bbox",
			Message: "a bounding box is required for this source",
		}
	}

	_, collectionID := q.SplitCollection()
	if collectionID == "" {
		collectionID = c.cfg.DefaultCollection
	}

	start, end := q.Start, q.End
	if start.IsZero() && end.IsZero() {
		end = time.Now().UTC()
		start = end.Add(-defaultWindow)
		logging.Ctx(ctx).Info().
			Str("connector", c.cfg.ID).
			Time("start", start).
			Time("end", end).
			Msg("No date range given, searching the last 30 days")
	}

	body := searchRequest{
		BBox:        q.BBox.Slice(),
		Datetime:    datetimeInterval(start, end),
		Collections: []string{collectionID},
		Limit:       min(q.Limit, apiPageLimit),
	}
	if q.MaxCloudCover != nil && c.isOptical(collectionID) {
		body.Query = map[string]any{
			"eo:cloud_cover": map[string]any{"lte": *q.MaxCloudCover},
		}
	}

	var resp searchResponse
	if err := c.postJSON(ctx, c.cfg.APIURL+"/search", body, &resp); err != nil {
		return nil, err
	}

	items := make([]catalog.Item, 0, len(resp.Features))
	for i := range resp.Features {
		items = append(items, c.convert(&resp.Features[i], collectionID))
	}
	if len(items) > q.Limit {
		items = items[:q.Limit]
	}

	logging.Ctx(ctx).Info().
		Str("connector", c.cfg.ID).
		Str("collection", collectionID).
		Int("matched", len(items)).
		Msg("STAC API search complete")
	return items, nil
}

// postJSON sends an authenticated JSON POST and decodes the response with
// the shared transport classification.
func (c *Connector) postJSON(ctx context.Context, url string, payload, target any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return errors.WrapParse("json", c.cfg.ID, err)
	}

	// The search endpoint is read-only, so a transient failure retries the
	// whole POST with a fresh request body.
	_, err = transport.Retry(ctx, c.cfg.ID, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
		if err != nil {
			return struct{}{}, &errors.ValidationError{Field: "url", Value: url, Message: err.Error()}
		}
		req.Header.Set("Content-Type", "application/json")

		c.mu.RLock()
		client := c.client
		c.mu.RUnlock()

		resp, err := client.Do(req)
		if err != nil {
			return struct{}{}, transport.ClassifyNetError(c.cfg.ID, url, err)
		}
		return struct{}{}, transport.DecodeResponse(c.cfg.ID, resp, target)
	})
	return err
}

func (c *Connector) isOptical(collectionID string) bool {
	for _, def := range c.cfg.Collections {
		if def.ID == collectionID {
			return def.Optical
		}
	}
	return false
}

// datetimeInterval renders a STAC interval, leaving open sides as "..".
func datetimeInterval(start, end time.Time) string {
	from, to := "..", ".."
	if !start.IsZero() {
		from = start.UTC().Format(time.RFC3339)
	}
	if !end.IsZero() {
		to = end.UTC().Format(time.RFC3339)
	}
	return from + "/" + to
}

// convert maps one API feature into the uniform item shape.
func (c *Connector) convert(doc *stac.Document, collectionID string) catalog.Item {
	bounds, _ := doc.Bounds()
	acquired, _ := doc.Acquired()

	return catalog.Item{
		ID:          doc.ID,
		ConnectorID: c.cfg.ID,
		Collection:  collectionID,
		BBox:        bounds,
		Geometry:    doc.Geometry,
		Acquired:    acquired,
		Properties:  doc.Properties,
		Assets:      mapAssets(doc.Assets),
	}
}

// mapAssets picks one asset per role. Role annotations win; key heuristics
// cover catalogs that omit them.
func mapAssets(assets map[string]stac.Asset) map[catalog.AssetRole]catalog.Asset {
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
		lower := strings.ToLower(key)
		switch {
		case hasRole(a, "thumbnail") || lower == "thumbnail" || lower == "quicklook" || strings.Contains(lower, "preview"):
			set(catalog.AssetThumbnail, a, key)
		case hasRole(a, "visual") || lower == "visual" || strings.Contains(lower, "true_color") || strings.Contains(lower, "tci"):
			set(catalog.AssetVisual, a, key)
		case hasRole(a, "data") || lower == "product" || lower == "data":
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
