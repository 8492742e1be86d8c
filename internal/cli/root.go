// Package cli implements the agentward command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// configPath is the --config flag shared by all commands.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "agentward",
	Short: "Safety core for autonomous agents with file-system access",
	Long:  "Gates agent capabilities behind trust tiers, snapshots risky writes for bounded rollback, and degrades deterministically when the inference or memory backend goes down.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default: <data dir>/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
