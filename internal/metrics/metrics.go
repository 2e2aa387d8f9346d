// Package metrics exposes prometheus instrumentation for the MCP server.
//
// Metric families follow the aareguru_mcp_* naming the service has always
// exported: tool calls and durations, upstream API requests and durations,
// errors by type and component, in-flight requests and cache size.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aareguru_mcp_tool_calls_total",
		Help: "Total number of MCP tool calls.",
	}, []string{"tool_name", "status"})

	toolDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aareguru_mcp_tool_duration_seconds",
		Help:    "Duration of tool calls in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	}, []string{"tool_name"})

	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aareguru_mcp_api_requests_total",
		Help: "Total number of Aareguru API requests.",
	}, []string{"endpoint", "status_code"})

	apiRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aareguru_mcp_api_request_duration_seconds",
		Help:    "Duration of Aareguru API requests in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aareguru_mcp_errors_total",
		Help: "Total number of errors.",
	}, []string{"error_type", "component"})

	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aareguru_mcp_cache_hits_total",
		Help: "Cache lookups that were served without an upstream fetch.",
	}, []string{"endpoint"})

	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aareguru_mcp_cache_misses_total",
		Help: "Cache lookups that fell through to an upstream fetch.",
	}, []string{"endpoint"})

	activeRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aareguru_mcp_active_requests",
		Help: "Number of currently active tool requests.",
	})

	cacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aareguru_mcp_cache_size",
		Help: "Number of entries resident in the response cache.",
	})

	rateLimitWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aareguru_mcp_rate_limit_wait_seconds_total",
		Help: "Cumulative time spent waiting on the upstream rate limiter.",
	})
)

// ToolCallStarted marks a tool invocation in flight and returns a done
// function that records status and duration.
func ToolCallStarted(tool string) func(err error) {
	start := time.Now()
	activeRequests.Inc()
	return func(err error) {
		activeRequests.Dec()
		toolDurationSeconds.WithLabelValues(tool).Observe(time.Since(start).Seconds())
		status := "success"
		if err != nil {
			status = "error"
			errorsTotal.WithLabelValues("tool_error", "tool").Inc()
		}
		toolCallsTotal.WithLabelValues(tool, status).Inc()
	}
}

// ObserveAPIRequest records one upstream request.
func ObserveAPIRequest(endpoint, statusCode string, d time.Duration) {
	apiRequestsTotal.WithLabelValues(endpoint, statusCode).Inc()
	apiRequestDurationSeconds.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordError counts an error by type and originating component.
func RecordError(errType, component string) {
	errorsTotal.WithLabelValues(errType, component).Inc()
}

// RecordCacheHit counts a cache hit for an endpoint.
func RecordCacheHit(endpoint string) {
	cacheHitsTotal.WithLabelValues(endpoint).Inc()
}

// RecordCacheMiss counts a cache miss for an endpoint.
func RecordCacheMiss(endpoint string) {
	cacheMissesTotal.WithLabelValues(endpoint).Inc()
}

// SetCacheSize publishes the current number of resident cache entries.
func SetCacheSize(n int) {
	cacheSize.Set(float64(n))
}

// AddRateLimitWait accumulates time spent blocked on the request gate.
func AddRateLimitWait(d time.Duration) {
	rateLimitWaitSeconds.Add(d.Seconds())
}
