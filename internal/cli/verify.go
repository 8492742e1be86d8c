package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentward/agentward/internal/audit"
	"github.com/agentward/agentward/internal/config"
)

func init() {
	rootCmd.AddCommand(verifyLogCmd)
}

var verifyLogCmd = &cobra.Command{
	Use:   "verify-log",
	Short: "Verify the decision and transition log hash chains",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		broken := false
		for _, name := range []string{"decisions.jsonl", "transitions.jsonl"} {
			path := filepath.Join(cfg.DataDir, name)
			res := audit.Verify(path)
			if res.Valid {
				fmt.Printf("%s: chain intact (%d entries)\n", name, res.Lines)
				continue
			}
			broken = true
			if res.ErrorLine > 0 {
				fmt.Printf("%s: BROKEN at line %d: %s\n", name, res.ErrorLine, res.Error)
			} else {
				fmt.Printf("%s: %s\n", name, res.Error)
			}
		}
		if broken {
			return fmt.Errorf("log verification failed")
		}
		return nil
	},
}
