// Package constants provides shared constants used throughout the lodestar
// codebase. This includes timeouts, limits, and cache settings that should
// be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for HTTP requests to remote catalogs
	DefaultHTTPTimeout = 30 * time.Second

	// ConnectorCallTimeout bounds a single connector operation inside a fan-out
	ConnectorCallTimeout = 10 * time.Second

	// DirectSearchTimeout bounds a single-connector search outside a fan-out,
	// where a deep catalog walk may legitimately take far longer than one
	// fan-out slot
	DirectSearchTimeout = 60 * time.Second

	// FanOutCeiling bounds an entire aggregate fan-out; stragglers past this
	// point are abandoned and partial results returned
	FanOutCeiling = 100 * time.Second

	// AuthTimeout bounds a credential exchange
	AuthTimeout = 20 * time.Second

	// RetryBackoff is the base backoff duration for retries
	RetryBackoff = 1 * time.Second

	// MaxRetryBackoff is the maximum backoff duration for retries
	MaxRetryBackoff = 30 * time.Second
)

// Limit constants define various limits and capacities
const (
	// MaxRetries is the maximum number of attempts for transient failures
	MaxRetries = 3

	// MaxConcurrentConnectors is the fan-out worker pool size
	MaxConcurrentConnectors = 5

	// DefaultSearchLimit is the default number of items a search returns
	DefaultSearchLimit = 100

	// MaxSearchLimit is the hard cap on requested search results
	MaxSearchLimit = 10000
)

// Cache constants define aggregate snapshot cache behavior
const (
	// CollectionsCacheTTL is how long an aggregate collection snapshot stays valid
	CollectionsCacheTTL = 5 * time.Minute

	// CacheCleanupInterval is how often expired cache entries are evicted
	CacheCleanupInterval = 10 * time.Minute
)
