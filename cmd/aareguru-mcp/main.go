// Package main is the entry point for the Aareguru MCP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"aareguru-mcp/config"
	"aareguru-mcp/internal/aareguru"
	"aareguru-mcp/internal/cache"
	"aareguru-mcp/internal/logging"
	"aareguru-mcp/internal/server"
	"aareguru-mcp/internal/service"
	"aareguru-mcp/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	transport := flag.String("transport", "stdio", "Transport to serve on: stdio or http")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	slog.Info("starting aareguru-mcp",
		"version", version.Version,
		"transport", *transport,
		"base_url", cfg.BaseURL,
	)

	store, err := newStore(cfg)
	if err != nil {
		slog.Error("failed to initialize cache backend", "error", err)
		os.Exit(1)
	}

	shared := aareguru.NewShared(cfg, store)
	defer shared.Close()

	svc := service.NewService(cfg, shared, slog.Default())
	mcpServer := server.NewMCP(svc, version.Version)

	switch *transport {
	case "stdio":
		runStdio(mcpServer)
	case "http":
		runHTTP(mcpServer, cfg)
	default:
		slog.Error("unknown transport", "transport", *transport)
		os.Exit(1)
	}
}

func newStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.CacheBackend {
	case "redis":
		slog.Info("using redis cache backend", "url", cfg.RedisURL)
		return cache.NewRedisStore(cache.RedisConfig{URL: cfg.RedisURL, TTL: cfg.CacheTTL})
	default:
		return cache.NewMemoryStore(cfg.CacheTTL), nil
	}
}

func runStdio(s *mcpserver.MCPServer) {
	if err := mcpserver.ServeStdio(s); err != nil {
		slog.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func runHTTP(s *mcpserver.MCPServer, cfg *config.Config) {
	srv := server.NewHTTP(s, version.Version)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := cfg.HTTPAddr()
	slog.Info("starting http server", "address", addr)

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}
