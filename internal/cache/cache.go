// Package cache provides the time-bounded response cache that sits in front
// of every upstream API call.
//
// The cache is unbounded by design: keys are derived from (endpoint, params)
// and the parameter space is a handful of endpoints times a handful of
// cities, so an eviction policy would never fire. Entries expire lazily on
// read; there is no background sweep.
//
// Stores synchronize their own mutation only. The check-then-fetch-then-store
// sequence around a cache miss is a caller-level read-modify-write that can
// race between concurrent callers targeting the same key; see the client
// package for how that window is handled.
package cache

import (
	"context"
	"net/url"
)

// Store is the interface for the response cache.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a cached value. Returns (nil, false) on miss or expiry.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value, overwriting any prior entry and resetting its age.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases any resources held by the store.
	Close() error
}

// Key derives the canonical cache key for an endpoint and its query
// parameters. url.Values.Encode sorts by parameter name, so the key is
// independent of the order the caller inserted parameters in.
func Key(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}
