package main

import (
	"os"

	"github.com/kubewise/kubewise/internal/cmd"
	"github.com/kubewise/kubewise/internal/config"
)

func main() {
	if err := cmd.NewRootCommand(config.Version).Execute(); err != nil {
		os.Exit(1)
	}
}
