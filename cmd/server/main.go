// Package main provides the entry point for the MCP server.
// It wires together all components using dependency injection and manages
// the server lifecycle with graceful shutdown.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Epistates/turbomcp-sub009/internal/config"
	"github.com/Epistates/turbomcp-sub009/internal/mcp"
	"github.com/Epistates/turbomcp-sub009/internal/oauth"
	"github.com/Epistates/turbomcp-sub009/internal/router"
	"github.com/Epistates/turbomcp-sub009/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	slog.Info("server configuration loaded",
		"addr", cfg.Addr,
		"base_url", cfg.BaseURL,
		"auth_servers", cfg.AuthorizationServers,
		"transport", cfg.Transport,
	)

	oauthCfg := &oauth.Config{
		BaseURL:              cfg.BaseURL,
		AuthorizationServers: cfg.AuthorizationServers,
		Audience:             cfg.Audience,
		ScopesSupported:      cfg.ScopesSupported,
		JWKSCacheTTL:         cfg.JWKSCacheTTL,
		ClockSkew:            cfg.ClockSkew,
	}

	tokenValidator, metadataService, _, _ := oauth.NewOAuthServices(oauthCfg)

	slog.Info("oauth services initialized",
		"jwks_cache_ttl", cfg.JWKSCacheTTL,
		"clock_skew", cfg.ClockSkew,
	)

	srv := server.Build(cfg, serverInfo(), server.WithLogger(logger))

	slog.Info("mcp services initialized", "transport", cfg.Transport)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- runTransport(ctx, srv, cfg.Transport, tokenValidator, metadataService)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping server gracefully...")
	case err := <-runErrCh:
		if err != nil {
			slog.Error("server error", "error", err)
			stop()
			os.Exit(1)
		}
	}

	slog.Info("server stopped successfully")
}

func serverInfo() router.Info {
	return router.Info{
		Server: mcp.Implementation{
			Name:    "turbomcp-sub009",
			Version: "1.0.0",
		},
		Capabilities: mcp.Capabilities{
			Tools:     &mcp.ToolsCapability{ListChanged: true},
			Resources: &mcp.ResourcesCapability{ListChanged: true, Subscribe: true},
			Prompts:   &mcp.PromptsCapability{ListChanged: true},
			Logging:   &mcp.LoggingCapability{},
		},
	}
}

func runTransport(ctx context.Context, srv *server.Server, transport string, validator oauth.TokenValidator, metadataSvc oauth.MetadataService) error {
	switch transport {
	case "http":
		return srv.RunHTTP(ctx, validator, metadataSvc)
	case "tcp":
		return srv.RunTCP(ctx)
	case "unix":
		return srv.RunUnix(ctx)
	case "websocket":
		return srv.RunWebSocket(ctx)
	default:
		return srv.RunStdio(ctx)
	}
}
