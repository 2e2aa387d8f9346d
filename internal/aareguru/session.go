package aareguru

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"aareguru-mcp/internal/core"
)

// SessionConfig holds the knobs for a session's connection pool.
type SessionConfig struct {
	BaseURL         string
	RequestTimeout  time.Duration
	MaxIdleConns    int
	MaxConnsPerHost int
}

// Session is the scoped network resource behind one logical unit of work
// (typically one tool invocation). It owns a pooled transport with a fixed
// request timeout; the pool benefits only the requests made within the
// session's lifetime and is never shared across invocations.
//
// Close releases the pool and is idempotent, so it can sit in a defer on
// every path out of the scope that opened the session. Fetch on a closed or
// zero-value session fails with a NotInitializedError rather than a nil
// dereference.
type Session struct {
	baseURL   string
	transport *http.Transport
	client    *http.Client

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewSession opens a session with its own connection pool.
func NewSession(cfg SessionConfig) *Session {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Session{
		baseURL:   cfg.BaseURL,
		transport: transport,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
	}
}

// Fetch performs a GET against the endpoint with the given query parameters
// and returns the raw response body.
//
// Failures map onto the typed taxonomy: connection and timeout problems
// become a NetworkError, non-2xx statuses become an HTTPStatusError. The
// body is fully read and the response closed on every path so the pooled
// connection can be reused.
func (s *Session) Fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if s == nil || s.client == nil {
		return nil, core.NewNotInitializedError("Fetch")
	}
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, core.NewNotInitializedError("Fetch")
	}

	u := s.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, core.NewNetworkError(endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, core.NewNetworkError(endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewNetworkError(endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.NewHTTPStatusError(endpoint, resp.StatusCode)
	}

	return body, nil
}

// Close releases the connection pool. Safe to call more than once; only the
// first call does anything.
func (s *Session) Close() error {
	if s == nil || s.transport == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.transport.CloseIdleConnections()
	})
	return nil
}
