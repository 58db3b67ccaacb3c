package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kubewise/kubewise/internal/agent"
	"github.com/kubewise/kubewise/internal/config"
	"github.com/kubewise/kubewise/internal/kube"
	"github.com/kubewise/kubewise/internal/kubeconfig"
	"github.com/kubewise/kubewise/internal/llm"
	"github.com/kubewise/kubewise/internal/logging"
	"github.com/kubewise/kubewise/internal/mcp"
	"github.com/kubewise/kubewise/internal/prompt"
)

// NewReplCommand creates the repl command.
func NewReplCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive cluster assistant",
		Long: `Start an interactive session against the cluster. Questions run through
the same agent loop as the HTTP API. With an MCP server configured the
agent uses its tools instead of the built-in ones.`,
		RunE: runRepl,
	}
	cmd.Flags().StringP("namespace", "n", "default", "Kubernetes namespace to scope questions to")
	return cmd
}

func runRepl(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()
	namespace, _ := cmd.Flags().GetString("namespace")

	manager, err := llm.NewManager(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	registry := agent.NewRegistry()
	if cfg.MCP.Enabled && cfg.MCP.Command != "" {
		source := mcp.NewToolSource(cfg.MCP, logger)
		defer source.Close()
		tools, err := source.Tools(ctx)
		if err != nil {
			return err
		}
		for _, tool := range tools {
			if err := registry.Register(tool); err != nil {
				return err
			}
		}
	} else {
		client, err := replKubeClient(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if err := client.RegisterTools(registry); err != nil {
			return err
		}
	}

	sessions := agent.NewSessionStore(cfg.Agent.SessionHistory)
	ag := agent.New(manager, registry, sessions, cfg.Agent.MaxTurns, logger).
		WithSystemPrompt(func(string) string { return prompt.REPLSystem() })
	sessionID := sessions.Resolve("")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s interactive session. Type 'exit' to quit.\n", cfg.App.Name, cfg.App.Version)
	fmt.Fprintf(out, "Tools: %s\n\n", strings.Join(registry.Names(), ", "))

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		queryCtx, cancel := context.WithTimeout(ctx, cfg.Agent.QueryTimeout)
		result, err := ag.Query(queryCtx, agent.Request{
			Query:     line,
			Namespace: namespace,
			SessionID: sessionID,
		})
		cancel()
		if err != nil {
			fmt.Fprintf(out, "error: %v\n\n", err)
			continue
		}
		fmt.Fprintf(out, "%s\n\n", result.Response)
	}
	return scanner.Err()
}

func replKubeClient(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*kube.Client, error) {
	loader, err := kubeconfig.NewLoader(cfg.Kubernetes, logger)
	if err != nil {
		return nil, err
	}
	path, err := loader.Resolve(ctx)
	if err != nil {
		logger.Warning("Kubeconfig resolution failed, trying in-cluster config: %v", err)
	}
	return kube.NewClient(path, cfg.Kubernetes, logger)
}
