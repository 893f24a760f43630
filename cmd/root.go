package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/studio-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:               "studio-cli",
	Short:             "Multi-agent video planning pipeline",
	Long:              "Plans faceless-channel videos via competing strategist agents, and runs PR article outreach from fit analysis through human review to CRM handoff.",
	SilenceUsage:      true,
	PersistentPreRunE: initRuntime,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// initRuntime loads config and installs the global logger before any
// subcommand runs.
func initRuntime(cmd *cobra.Command, args []string) error {
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c

	if err := config.InitLogger(cfg.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
