package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var trustReason string

func init() {
	rootCmd.AddCommand(trustCmd)
	trustCmd.AddCommand(trustSetCmd)
	trustSetCmd.Flags().StringVar(&trustReason, "reason", "manual adjustment", "Reason recorded with the trust update")
}

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Show the current trust score and tier",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGuard()
		if err != nil {
			return err
		}
		defer g.Close()

		fmt.Printf("score: %.2f\ntier:  %s\n", g.Gate().Score(), g.Gate().Tier())
		return nil
	},
}

var trustSetCmd = &cobra.Command{
	Use:   "set <score>",
	Short: "Set the trust score (clamped to [0,1])",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid score %q: %w", args[0], err)
		}

		g, err := openGuard()
		if err != nil {
			return err
		}
		defer g.Close()

		g.UpdateTrust(score, trustReason)
		fmt.Printf("score: %.2f\ntier:  %s\n", g.Gate().Score(), g.Gate().Tier())
		return nil
	},
}
