package lodestar

import (
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/lodestar-gis/lodestar/internal/config"
	"github.com/lodestar-gis/lodestar/pkg/connectors"
	"github.com/lodestar-gis/lodestar/pkg/logging"
)

// Option is a function that configures a Lodestar instance.
type Option func(*options) error

// options holds the facade configuration assembled from Option calls.
type options struct {
	logger        zerolog.Logger
	httpClient    *http.Client
	proxy         *url.URL
	workers       int
	callTimeout   time.Duration
	searchTimeout time.Duration
	fanOutCeiling time.Duration
	cacheTTL      time.Duration
	definitions   []config.ConnectorDef
	connectors    []connectors.Connector
}

func defaultOptions() *options {
	return &options{
		logger: logging.Nop,
	}
}

// WithLogger sets the logger every operation logs through. Without it the
// library is silent.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithHTTPClient supplies the HTTP client used by all connectors. The
// caller keeps responsibility for its timeout, proxy, and TLS settings.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) error {
		o.httpClient = hc
		return nil
	}
}

// WithProxy routes connector traffic through the given proxy URL. Ignored
// when WithHTTPClient supplies a fully configured client.
func WithProxy(rawURL string) Option {
	return func(o *options) error {
		proxy, err := url.Parse(rawURL)
		if err != nil {
			return err
		}
		o.proxy = proxy
		return nil
	}
}

// WithWorkers bounds how many connectors a fan-out queries concurrently.
func WithWorkers(n int) Option {
	return func(o *options) error {
		o.workers = n
		return nil
	}
}

// WithCallTimeout bounds each individual connector call inside a fan-out.
func WithCallTimeout(d time.Duration) Option {
	return func(o *options) error {
		o.callTimeout = d
		return nil
	}
}

// WithSearchTimeout bounds a direct single-connector search, which may run
// far longer than one fan-out slot.
func WithSearchTimeout(d time.Duration) Option {
	return func(o *options) error {
		o.searchTimeout = d
		return nil
	}
}

// WithFanOutTimeout bounds a whole fan-out.
func WithFanOutTimeout(d time.Duration) Option {
	return func(o *options) error {
		o.fanOutCeiling = d
		return nil
	}
}

// WithCollectionsCacheTTL sets the collections snapshot lifetime.
func WithCollectionsCacheTTL(d time.Duration) Option {
	return func(o *options) error {
		o.cacheTTL = d
		return nil
	}
}

// WithConnectorDefinitions builds and registers connectors from a YAML
// definitions document.
func WithConnectorDefinitions(data []byte) Option {
	return func(o *options) error {
		f, err := config.Load(data)
		if err != nil {
			return err
		}
		o.definitions = append(o.definitions, f.Connectors...)
		return nil
	}
}

// WithConnectorDefinitionsFile builds and registers connectors from a YAML
// definitions file on disk.
func WithConnectorDefinitionsFile(path string) Option {
	return func(o *options) error {
		f, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.definitions = append(o.definitions, f.Connectors...)
		return nil
	}
}

// WithConnectors registers pre-built connectors.
func WithConnectors(cs ...connectors.Connector) Option {
	return func(o *options) error {
		o.connectors = append(o.connectors, cs...)
		return nil
	}
}
