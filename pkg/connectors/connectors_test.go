package connectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lodestar-gis/lodestar/pkg/catalog"
)

type stubConnector struct {
	desc Descriptor
}

func (s *stubConnector) Descriptor() Descriptor { return s.desc }

func (s *stubConnector) Authenticate(context.Context, Credentials) error { return nil }

func (s *stubConnector) Collections(context.Context) ([]catalog.Collection, error) {
	return nil, nil
}

func (s *stubConnector) Search(context.Context, catalog.Query) ([]catalog.Item, error) {
	return nil, nil
}

func TestCapabilitiesHas(t *testing.T) {
	caps := Capabilities{CapBBoxSearch, CapDateRange}
	assert.True(t, caps.Has(CapBBoxSearch))
	assert.False(t, caps.Has(CapCloudCover))
	assert.False(t, Capabilities(nil).Has(CapBBoxSearch))
}

func TestDescriptorReady(t *testing.T) {
	open := Descriptor{ID: "open-data", Capabilities: Capabilities{CapBBoxSearch}}
	assert.True(t, open.Ready(), "open connectors are always ready")

	gated := Descriptor{ID: "gated", Capabilities: Capabilities{CapAuthentication}}
	assert.False(t, gated.Ready())

	gated.AuthState = AuthStateAuthenticated
	assert.True(t, gated.Ready())

	gated.AuthState = AuthStateFailed
	assert.False(t, gated.Ready())
}

func TestConnectorsContainer(t *testing.T) {
	c := NewConnectors()
	assert.Equal(t, 0, c.Len())

	first := &stubConnector{desc: Descriptor{ID: "a", Name: "First"}}
	c.Set("a", first)

	got, found := c.Get("a")
	assert.True(t, found)
	assert.Same(t, first, got)

	// Re-registering the same id replaces the prior entry.
	second := &stubConnector{desc: Descriptor{ID: "a", Name: "Second"}}
	c.Set("a", second)
	got, _ = c.Get("a")
	assert.Same(t, second, got)
	assert.Equal(t, 1, c.Len())

	c.Delete("a")
	_, found = c.Get("a")
	assert.False(t, found)
}

func TestAuthStateString(t *testing.T) {
	assert.Equal(t, "unauthenticated", AuthStateUnauthenticated.String())
	assert.Equal(t, "authenticated", AuthStateAuthenticated.String())
	assert.Equal(t, "failed", AuthStateFailed.String())
}
