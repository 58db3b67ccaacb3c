// Package cmd holds the CLI commands.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kubewise/kubewise/internal/config"
	"github.com/kubewise/kubewise/internal/logging"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "kubewise",
		Short:   "AI-powered Kubernetes troubleshooting assistant",
		Long: `Kubewise answers natural language questions about a Kubernetes cluster,
diagnoses pod failures, recommends resource tuning and analyzes spend. It
drives an LLM agent over read-only cluster tools and exposes the whole
thing over HTTP and an interactive REPL.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "config.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewReplCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// setup loads configuration and builds the logger shared by subcommands.
func setup(cmd *cobra.Command) (*config.Config, *logging.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.App.LogLevel
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	}
	logger := logging.NewLoggerWithOptions(level, logging.Options{
		FilePath: cfg.App.LogFile,
	})
	return cfg, logger, nil
}
