package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kubewise/kubewise/internal/agent"
	"github.com/kubewise/kubewise/internal/cost"
	"github.com/kubewise/kubewise/internal/diagnose"
	"github.com/kubewise/kubewise/internal/kube"
	"github.com/kubewise/kubewise/internal/kubeconfig"
	"github.com/kubewise/kubewise/internal/llm"
	"github.com/kubewise/kubewise/internal/mcp"
	"github.com/kubewise/kubewise/internal/optimize"
	"github.com/kubewise/kubewise/internal/queryfilter"
	"github.com/kubewise/kubewise/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	manager, err := llm.NewManager(cfg, logger)
	if err != nil {
		return err
	}
	costClient := cost.NewClient(cfg.CostSettings(), logger)

	stopWatch, err := cfg.Watch(logger, func() {
		manager.Reload(cfg)
		costClient.Reload(cfg.CostSettings())
	})
	if err != nil {
		logger.Warning("Config watching disabled: %v", err)
	} else {
		defer stopWatch()
	}

	ctx := cmd.Context()
	loader, err := kubeconfig.NewLoader(cfg.Kubernetes, logger)
	if err != nil {
		return err
	}
	kubeconfigPath, err := loader.Resolve(ctx)
	if err != nil {
		logger.Warning("Kubeconfig resolution failed, trying in-cluster config: %v", err)
	}
	client, err := kube.NewClient(kubeconfigPath, cfg.Kubernetes, logger)
	if err != nil {
		return err
	}

	registry := agent.NewRegistry()
	if err := client.RegisterTools(registry); err != nil {
		return err
	}

	if cfg.MCP.Enabled {
		source := mcp.NewToolSource(cfg.MCP, logger)
		defer source.Close()
		tools, err := source.Tools(ctx)
		if err != nil {
			logger.Warning("MCP tools unavailable: %v", err)
		} else {
			for _, tool := range tools {
				if err := registry.Register(tool); err != nil {
					logger.Warning("Skipping MCP tool %s: %v", tool.Name, err)
				}
			}
		}
	}

	sessions := agent.NewSessionStore(cfg.Agent.SessionHistory)
	ag := agent.New(manager, registry, sessions, cfg.Agent.MaxTurns, logger)

	srv := server.New(cfg, server.Deps{
		Agent:        ag,
		Diagnostics:  diagnose.NewService(client, manager, logger),
		Optimizer:    optimize.NewService(client, manager, logger),
		Filters:      queryfilter.NewService(manager, logger),
		Cost:         costClient,
		Advisor:      cost.NewAdvisor(costClient, manager, logger),
		Providers:    manager.Available,
		ClusterCheck: client.Ping,
	}, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
