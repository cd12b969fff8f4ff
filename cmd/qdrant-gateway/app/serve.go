// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	coreapp "github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/core/app"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/core/config"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/observability/logging"
	transportmcp "github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/transport/mcp"
)

func newServeCommand() *cobra.Command {
	var transport string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway's MCP transport",
		Long: `Start the gateway, exposing store/bulk_store/find/get_point/update_payload/
delete_points/list_collections/collection_info/model_mappings as MCP tools.

The --transport flag selects stdio (for a locally-spawned MCP client) or
http (streamable HTTP, for a remote client).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveCmdFunc(cmd, transport, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport to serve on: stdio or http")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Address to serve Prometheus metrics on (http transport only)")

	return cmd
}

func serveCmdFunc(cmd *cobra.Command, transport, metricsAddr string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return err
	}
	logFormat, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{Level: logLevel, Format: logFormat})

	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return err
	}

	core, err := coreapp.New(cfg, logger)
	if err != nil {
		logger.Error("failed to build gateway", "error", err)
		return fmt.Errorf("failed to build gateway: %w", err)
	}
	defer func() {
		if cerr := core.Close(); cerr != nil {
			logger.Warn("error closing backend connection", "error", cerr)
		}
	}()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch transport {
	case "stdio":
		logger.Info("starting MCP gateway on stdio")
		return transportmcp.ServeStdio(ctx, core.Engine)
	case "http":
		return serveHTTP(ctx, core, cfg, metricsAddr)
	default:
		return fmt.Errorf("unknown transport %q: want stdio or http", transport)
	}
}

func serveHTTP(ctx context.Context, core *coreapp.App, cfg *config.Config, metricsAddr string) error {
	mcpServer := transportmcp.NewHTTPServer(ctx, core.Engine, transportmcp.HTTPServerConfig{
		Host: cfg.Server.Host,
		Port: fmt.Sprintf("%d", cfg.Server.Port),
	})

	metricsServer := &http.Server{Addr: metricsAddr, Handler: core.Metrics.Handler()}

	errCh := make(chan error, 2)
	go func() {
		core.Logger.Info("serving MCP over streamable HTTP", "addr", mcpServer.Addr)
		if err := mcpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("mcp http server: %w", err)
		}
	}()
	go func() {
		core.Logger.Info("serving metrics", "addr", metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		core.Logger.Info("shutting down")
		_ = mcpServer.Shutdown(context.Background())
		_ = metricsServer.Shutdown(context.Background())
		return nil
	}
}

func loadConfig(path string, logger *logging.Logger) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logger.Warn("config file not found, using built-in defaults", "path", path)
			return config.Default(), nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
