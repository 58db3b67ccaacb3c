package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubewise/kubewise/internal/config"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", config.DefaultAppName, config.Version)
		},
	}
}
