// Package connectors defines the interface and descriptor types for remote
// imagery-catalog adapters. Each connector normalizes one external API shape
// (flat delimited file, STAC hierarchy, OAuth2 REST) into the uniform
// search/collection model of pkg/catalog.
//
// The aggregator dispatches purely through the Connector interface; variant
// behavior is declared through capability flags, never through type
// inspection.
package connectors

import (
	"context"
	"sync"

	"github.com/lodestar-gis/lodestar/pkg/catalog"
)

// ID represents the identifier of a connector.
type ID string

// String returns the string representation of a connector ID.
func (id ID) String() string {
	return string(id)
}

// Capability flags declare which query filters and behaviors a connector
// supports. Filters outside a connector's capabilities are ignored by it,
// not rejected.
type Capability string

const (
	// CapBBoxSearch means the connector can filter spatially.
	CapBBoxSearch Capability = "bbox_search"
	// CapDateRange means the connector can filter by acquisition date.
	CapDateRange Capability = "date_range"
	// CapCloudCover means the connector can filter by cloud cover percentage.
	CapCloudCover Capability = "cloud_cover"
	// CapCollections means the connector exposes a collection listing.
	CapCollections Capability = "collections"
	// CapAuthentication means the connector requires credentials before
	// searching; it is skipped by fan-outs until authenticated.
	CapAuthentication Capability = "authentication"
)

// Capabilities is a set of capability flags.
type Capabilities []Capability

// Has reports whether the set contains the given capability.
func (c Capabilities) Has(cap Capability) bool {
	for _, have := range c {
		if have == cap {
			return true
		}
	}
	return false
}

// AuthState tracks a connector's authentication lifecycle.
type AuthState int

const (
	// AuthStateUnauthenticated is the initial state.
	AuthStateUnauthenticated AuthState = iota
	// AuthStateAuthenticated means the last credential exchange succeeded.
	AuthStateAuthenticated
	// AuthStateFailed means the last credential exchange was rejected.
	AuthStateFailed
)

// String returns a human-readable auth state.
func (s AuthState) String() string {
	switch s {
	case AuthStateAuthenticated:
		return "authenticated"
	case AuthStateFailed:
		return "failed"
	default:
		return "unauthenticated"
	}
}

// Descriptor describes a connector to the registry and to callers.
type Descriptor struct {
	ID           ID
	Name         string
	Description  string
	Capabilities Capabilities
	AuthState    AuthState
}

// RequiresAuth reports whether the connector must authenticate before use.
func (d Descriptor) RequiresAuth() bool {
	return d.Capabilities.Has(CapAuthentication)
}

// Ready reports whether the connector may participate in searches and
// collection listings right now.
func (d Descriptor) Ready() bool {
	return !d.RequiresAuth() || d.AuthState == AuthStateAuthenticated
}

// Credentials carries authentication material into a connector. Open-data
// connectors accept the zero value.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Token        string
}

// IsZero reports whether no credential material was supplied.
func (c Credentials) IsZero() bool {
	return c == Credentials{}
}

// Connector is one adapter over a remote catalog API shape.
//
// Implementations own their authentication state and their HTTP interaction,
// bound every remote call with the context deadline, and convert remote
// payloads into pkg/catalog types. Network and parse failures inside
// Collections and Search are recorded and surfaced as errors here, but the
// aggregator absorbs them into empty contributions rather than aborting a
// fan-out.
type Connector interface {
	// Descriptor returns the connector's current descriptor, including its
	// live authentication state.
	Descriptor() Descriptor

	// Authenticate establishes or refreshes auth state. Open-data
	// connectors succeed with zero credentials. A nil return means
	// authenticated.
	Authenticate(ctx context.Context, creds Credentials) error

	// Collections returns the searchable collections of this source.
	Collections(ctx context.Context) ([]catalog.Collection, error)

	// Search runs one query against this source. Filters outside the
	// connector's capabilities are ignored.
	Search(ctx context.Context, q catalog.Query) ([]catalog.Item, error)
}

// Deauthenticator is implemented by connectors that can drop credential
// state. Connectors over open data have nothing to drop and skip it.
type Deauthenticator interface {
	Deauthenticate()
}

// Connectors is a thread-safe container for registered connectors.
type Connectors struct {
	mu    sync.RWMutex
	items map[ID]Connector
}

// NewConnectors creates a new Connectors instance.
func NewConnectors() *Connectors {
	return &Connectors{
		items: make(map[ID]Connector),
	}
}

// Get returns a connector by ID.
func (c *Connectors) Get(id ID) (Connector, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conn, found := c.items[id]
	return conn, found
}

// Set registers a connector by ID, replacing any prior entry.
func (c *Connectors) Set(id ID, conn Connector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[id] = conn
}

// Delete removes a connector by ID.
func (c *Connectors) Delete(id ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

// Len returns the number of registered connectors.
func (c *Connectors) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// List returns a slice of all registered connectors.
func (c *Connectors) List() []Connector {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := make([]Connector, 0, len(c.items))
	for _, conn := range c.items {
		list = append(list, conn)
	}
	return list
}

// IDs returns a slice of all registered connector IDs.
func (c *Connectors) IDs() []ID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]ID, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	return ids
}
