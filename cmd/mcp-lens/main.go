// Command mcp-lens runs the MCP tool server for Temporal workflow
// visibility and history inspection. Uses stdio transport for integration
// with AI assistants; logs go to stderr.
package main

import (
	"context"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/workflow-lens/lens-go/internal/config"
	"github.com/workflow-lens/lens-go/internal/mcpserver"
	"github.com/workflow-lens/lens-go/internal/observability"
	"github.com/workflow-lens/lens-go/internal/querier"
	"github.com/workflow-lens/lens-go/internal/query"
	"github.com/workflow-lens/lens-go/internal/temporalcli"
	"github.com/workflow-lens/lens-go/internal/visibility"
)

const serverVersion = "v1.0.0"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		observability.InitLogger("info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := observability.InitLogger(cfg.LogLevel)

	ctx := context.Background()

	if cfg.EnableTracing {
		shutdown, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: "mcp-lens",
			Version:     serverVersion,
			Namespace:   cfg.Namespace,
			Backend:     string(cfg.Backend),
		})
		if err != nil {
			logger.Error("otel init failed", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		logger.Error("metric init failed", "error", err)
		os.Exit(1)
	}

	registry := query.NewRegistry()
	if err := registry.SetCustomFields(cfg.CustomFields); err != nil {
		logger.Error("invalid custom fields", "error", err)
		os.Exit(1)
	}

	var client visibility.Client
	switch cfg.Backend {
	case config.BackendSDK:
		c, err := querier.Dial(cfg.Address, cfg.Namespace, logger)
		if err != nil {
			logger.Error("unable to create Temporal client", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		client = querier.New(c)
	default:
		runner := temporalcli.NewBinaryRunner(cfg.CLIPath, cfg.CommandTimeout, cfg.CLIRate)
		client = temporalcli.NewClient(runner, temporalcli.CommandBuilder{
			Env:       cfg.CLIEnv,
			Namespace: cfg.Namespace,
		})
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "workflow-lens",
		Version: serverVersion,
	}, nil)
	mcpserver.RegisterTools(server, mcpserver.Deps{
		Client:         client,
		Registry:       registry,
		Metrics:        metrics,
		MaxListLimit:   cfg.MaxListLimit,
		PayloadMaxLen:  cfg.PayloadMaxLen,
		FailureContext: cfg.FailureContext,
	})

	logger.Info("mcp-lens starting", "backend", cfg.Backend, "namespace", cfg.Namespace)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		logger.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
