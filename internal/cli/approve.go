package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var approveDuration time.Duration

func init() {
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(denyCmd)
	rootCmd.AddCommand(pendingCmd)
	approveCmd.Flags().DurationVar(&approveDuration, "duration", 0, "Validity period (e.g., 5m, 1h). Default: one-time use")
}

var approveCmd = &cobra.Command{
	Use:   "approve <capability>",
	Short: "Grant a pending capability approval",
	Long:  "Approves a pending capability request. Without --duration, approval is one-time (consumed on first use).\nWith --duration, approval is valid for the specified period.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGuard()
		if err != nil {
			return err
		}
		defer g.Close()

		if err := g.Approvals().Approve(args[0], approveDuration); err != nil {
			return err
		}
		if approveDuration > 0 {
			fmt.Printf("Approved %q for %s\n", args[0], approveDuration)
		} else {
			fmt.Printf("Approved %q (one-time use)\n", args[0])
		}
		return nil
	},
}

var denyCmd = &cobra.Command{
	Use:   "deny <capability>",
	Short: "Refuse a pending capability approval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGuard()
		if err != nil {
			return err
		}
		defer g.Close()

		if err := g.Approvals().Deny(args[0]); err != nil {
			return err
		}
		fmt.Printf("Denied %q\n", args[0])
		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List capability approval requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGuard()
		if err != nil {
			return err
		}
		defer g.Close()

		approvals, err := g.Approvals().List()
		if err != nil {
			return err
		}
		if len(approvals) == 0 {
			fmt.Println("no approval requests")
			return nil
		}
		for _, a := range approvals {
			fmt.Printf("%-10s %-25s %s\n", a.Status, a.Key, a.Detail)
		}
		return nil
	},
}
