// Package aareguru mediates every call to the Aareguru API.
//
// The package splits the original client into the pieces that have different
// lifetimes. Shared carries the process-wide state (response cache, request
// gate): one instance is built at startup and injected into every client, so
// the sharing is visible at construction time instead of hiding in a type.
// Client is scoped to one logical unit of work and owns a Session whose
// connection pool is released when the work ends.
//
// Resolution order for a request is cache lookup, then rate-limit wait, then
// fetch, then validate, then cache store. A cache hit touches neither the
// limiter nor the network. A value that fails validation is never stored.
//
// The cache check and the cache store around a miss are separated by the
// fetch, so two concurrent callers missing on the same key both fetch and
// both consume a rate-limiter slot; the second store wins. That stampede is
// harmless for this data and is the default behavior. Setting
// Config.SingleFlight collapses concurrent misses for the same key into one
// fetch instead.
package aareguru

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"aareguru-mcp/config"
	"aareguru-mcp/internal/cache"
	"aareguru-mcp/internal/core"
	"aareguru-mcp/internal/metrics"
	"aareguru-mcp/internal/ratelimit"
)

// API endpoints. The response shape is fixed per endpoint, never sniffed
// from the payload.
const (
	EndpointToday   = "/v2018/today"
	EndpointCurrent = "/v2018/current"
	EndpointCities  = "/v2018/cities"
	EndpointHistory = "/v2018/history"
)

// Shared is the process-wide state behind all clients: the response cache
// and the limiter that serializes real upstream fetches. Construct exactly
// one per process and pass it to every NewClient.
type Shared struct {
	Cache   cache.Store
	Limiter *ratelimit.Limiter

	flight *singleflight.Group
}

// NewShared builds the shared state from configuration.
func NewShared(cfg *config.Config, store cache.Store) *Shared {
	s := &Shared{
		Cache:   store,
		Limiter: ratelimit.New(cfg.MinRequestInterval),
	}
	if cfg.SingleFlight {
		s.flight = new(singleflight.Group)
	}
	return s
}

// Close releases the shared cache backend.
func (s *Shared) Close() error {
	return s.Cache.Close()
}

// Client resolves Aareguru API requests for one unit of work. It is not
// safe to share across invocations; open one, defer Close, use it for the
// calls that belong together so they share a connection pool.
type Client struct {
	cfg     *config.Config
	shared  *Shared
	session *Session
	logger  *slog.Logger
}

// NewClient opens a client with its own session against the shared state.
func NewClient(cfg *config.Config, shared *Shared) *Client {
	return &Client{
		cfg:    cfg,
		shared: shared,
		session: NewSession(SessionConfig{
			BaseURL:         cfg.BaseURL,
			RequestTimeout:  cfg.RequestTimeout,
			MaxIdleConns:    cfg.MaxIdleConns,
			MaxConnsPerHost: cfg.MaxConnsPerHost,
		}),
		logger: slog.Default(),
	}
}

// Close releases the session's connection pool. Idempotent.
func (c *Client) Close() error {
	return c.session.Close()
}

// Today returns the minimal current snapshot for a city.
func (c *Client) Today(ctx context.Context, city string) (*TodayReading, error) {
	body, key, fromCache, err := c.resolve(ctx, EndpointToday, cityParams(city), true)
	if err != nil {
		return nil, err
	}

	var r TodayReading
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, c.validationFailed(EndpointToday, "decode failed", err)
	}
	if reason := r.validate(); reason != "" {
		return nil, c.validationFailed(EndpointToday, reason, nil)
	}

	c.storeIfFresh(ctx, key, body, fromCache)
	return &r, nil
}

// Current returns the complete current conditions for a city.
func (c *Client) Current(ctx context.Context, city string) (*CurrentConditions, error) {
	body, key, fromCache, err := c.resolve(ctx, EndpointCurrent, cityParams(city), true)
	if err != nil {
		return nil, err
	}

	var r CurrentConditions
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, c.validationFailed(EndpointCurrent, "decode failed", err)
	}
	if reason := r.validate(); reason != "" {
		return nil, c.validationFailed(EndpointCurrent, reason, nil)
	}

	c.storeIfFresh(ctx, key, body, fromCache)
	return &r, nil
}

// Cities returns all cities with monitoring stations. The upstream returns
// a bare JSON array, not an envelope.
func (c *Client) Cities(ctx context.Context) ([]City, error) {
	body, key, fromCache, err := c.resolve(ctx, EndpointCities, nil, true)
	if err != nil {
		return nil, err
	}

	var cities []City
	if err := json.Unmarshal(body, &cities); err != nil {
		return nil, c.validationFailed(EndpointCities, "decode failed", err)
	}
	for i := range cities {
		if reason := cities[i].validate(); reason != "" {
			return nil, c.validationFailed(EndpointCities, reason, nil)
		}
	}

	c.storeIfFresh(ctx, key, body, fromCache)
	return cities, nil
}

// History returns the time series between start and end for a city. History
// queries always reflect a fresh fetch: they bypass the cache on both the
// read and the write side, but still queue on the rate limiter.
func (c *Client) History(ctx context.Context, city, start, end string) ([]HistoricalPoint, error) {
	params := cityParams(city)
	params.Set("start", start)
	params.Set("end", end)

	body, _, _, err := c.resolve(ctx, EndpointHistory, params, false)
	if err != nil {
		return nil, err
	}
	return parseHistory(body)
}

// resolve runs the coordination sequence for one request and returns the
// raw validated-later payload, the cache key, and whether the payload came
// out of the cache. Storing is the caller's job once its shape validation
// has passed.
func (c *Client) resolve(ctx context.Context, endpoint string, params url.Values, useCache bool) ([]byte, string, bool, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("app", c.cfg.AppName)
	params.Set("version", c.cfg.AppVersion)

	key := cache.Key(endpoint, params)

	if useCache {
		if body, ok := c.shared.Cache.Get(ctx, key); ok {
			c.logger.Debug("cache_hit", "endpoint", endpoint, "key", key)
			metrics.RecordCacheHit(endpoint)
			return body, key, true, nil
		}
		c.logger.Debug("cache_miss", "endpoint", endpoint, "key", key)
		metrics.RecordCacheMiss(endpoint)
	}

	fetch := func() ([]byte, error) {
		return c.fetch(ctx, endpoint, params)
	}

	var body []byte
	var err error
	if useCache && c.shared.flight != nil {
		var v any
		v, err, _ = c.shared.flight.Do(key, func() (any, error) {
			return fetch()
		})
		if err == nil {
			body = v.([]byte)
		}
	} else {
		body, err = fetch()
	}
	if err != nil {
		return nil, key, false, err
	}
	return body, key, false, nil
}

// fetch performs a real upstream request: rate-limiter wait first, then the
// session GET. Errors are logged with their context before they propagate.
func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	waited, err := c.shared.Limiter.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if waited > 0 {
		c.logger.Debug("rate_limit_wait", "endpoint", endpoint, "waited", waited)
		metrics.AddRateLimitWait(waited)
	}

	start := time.Now()
	body, err := c.session.Fetch(ctx, endpoint, params)
	metrics.ObserveAPIRequest(endpoint, statusLabel(err), time.Since(start))

	if err != nil {
		c.logger.Error("api_error",
			"endpoint", endpoint,
			"error_type", errorLabel(err),
			"error", err,
		)
		metrics.RecordError(errorLabel(err), "client")
		return nil, err
	}
	return body, nil
}

// storeIfFresh writes a freshly fetched, shape-validated payload back to the
// cache. Payloads that were served from the cache are not re-stored; that
// would reset their age.
func (c *Client) storeIfFresh(ctx context.Context, key string, body []byte, fromCache bool) {
	if fromCache {
		return
	}
	if err := c.shared.Cache.Set(ctx, key, body); err != nil {
		c.logger.Warn("cache store failed", "key", key, "error", err)
	}
	if m, ok := c.shared.Cache.(interface{ Len() int }); ok {
		metrics.SetCacheSize(m.Len())
	}
}

func (c *Client) validationFailed(endpoint, reason string, cause error) error {
	err := core.NewValidationError(endpoint, reason, cause)
	c.logger.Error("api_error",
		"endpoint", endpoint,
		"error_type", "validation",
		"error", err,
	)
	metrics.RecordError("validation", "client")
	return err
}

// parseHistory extracts the time series from the loosely shaped history
// payload: an ordered array of per-day records whose field names have
// drifted across API versions.
func parseHistory(body []byte) ([]HistoricalPoint, error) {
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, core.NewValidationError(EndpointHistory, "payload is not an array", nil)
	}

	points := make([]HistoricalPoint, 0, len(root.Array()))
	for _, item := range root.Array() {
		var p HistoricalPoint
		if ts := item.Get("timestamp"); ts.Exists() {
			p.Timestamp = ts.Int()
		} else if ts := item.Get("time"); ts.Exists() {
			p.Timestamp = ts.Int()
		}
		if v := item.Get("temperature"); v.Exists() {
			f := v.Float()
			p.Temperature = &f
		} else if v := item.Get("aare"); v.Exists() {
			f := v.Float()
			p.Temperature = &f
		}
		if v := item.Get("flow"); v.Exists() {
			f := v.Float()
			p.Flow = &f
		}
		points = append(points, p)
	}
	return points, nil
}

func cityParams(city string) url.Values {
	return url.Values{"city": {city}}
}

// errorLabel maps an error onto its taxonomy name for events and metrics.
func errorLabel(err error) string {
	var notInit *core.NotInitializedError
	var network *core.NetworkError
	var status *core.HTTPStatusError
	var validation *core.ValidationError
	switch {
	case errors.As(err, &notInit):
		return "not_initialized"
	case errors.As(err, &network):
		return "network"
	case errors.As(err, &status):
		return "http_status"
	case errors.As(err, &validation):
		return "validation"
	default:
		return "other"
	}
}

// statusLabel is the status_code label for the API request counter.
func statusLabel(err error) string {
	if err == nil {
		return "200"
	}
	var status *core.HTTPStatusError
	if errors.As(err, &status) {
		return strconv.Itoa(status.StatusCode)
	}
	return "error"
}
