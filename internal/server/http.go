package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServer exposes the MCP server over streamable HTTP alongside the
// health and metrics endpoints.
type HTTPServer struct {
	echo *echo.Echo
}

// NewHTTP wraps the MCP server in an HTTP transport. The MCP protocol is
// served under /mcp; /health and /metrics are plain HTTP.
func NewHTTP(mcpServer *server.MCPServer, version string) *HTTPServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("http_request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			)
			return nil
		},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "aareguru-mcp",
			"version": version,
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	streamable := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
	)
	e.Any("/mcp", echo.WrapHandler(streamable))
	e.Any("/mcp/*", echo.WrapHandler(streamable))

	return &HTTPServer{echo: e}
}

// Start serves on addr until Shutdown is called.
func (s *HTTPServer) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements http.Handler so the server can be driven by httptest.
func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
