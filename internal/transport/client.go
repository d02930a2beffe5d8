// Package transport provides the shared HTTP layer for connectors: a
// timeout-bounded client with pluggable authentication, JSON decoding, and
// retry of transient failures.
//
// TLS verification uses the process's system certificate pool, so requests
// succeed through TLS-intercepting middleboxes whose CA is installed in the
// host trust store. The package never reads proxy settings from the
// environment itself; callers supply a proxy URL or a pre-configured
// *http.Client.
package transport

import (
	"context"
	"net/http"
	"net/url"

	"github.com/lodestar-gis/lodestar/pkg/constants"
	"github.com/lodestar-gis/lodestar/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// Client provides HTTP client functionality with authentication.
type Client struct {
	http *http.Client
	auth Authenticator
}

// Option configures a transport client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client entirely. The caller
// keeps responsibility for its timeout and proxy configuration.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithProxy routes all requests through the given proxy URL.
func WithProxy(proxy *url.URL) Option {
	return func(c *Client) {
		if proxy == nil {
			return
		}
		transport, ok := c.http.Transport.(*http.Transport)
		if !ok || transport == nil {
			transport = &http.Transport{}
		} else {
			transport = transport.Clone()
		}
		transport.Proxy = http.ProxyURL(proxy)
		c.http.Transport = transport
	}
}

// WithAuthenticator sets the request authenticator.
func WithAuthenticator(auth Authenticator) Option {
	return func(c *Client) {
		if auth != nil {
			c.auth = auth
		}
	}
}

// New creates a new transport client.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: DefaultHTTPTimeout},
		auth: &NoAuth{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs an HTTP request with authentication applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.auth.Apply(req); err != nil {
		return nil, err
	}

	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	return c.http.Do(req)
}

// Get performs a GET request against the given URL.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:   "url",
			Value:   rawURL,
			Message: err.Error(),
		}
	}
	return c.Do(req)
}
