package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(diffCmd)
}

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "List rollback-eligible commits, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGuard()
		if err != nil {
			return err
		}
		defer g.Close()

		window, err := g.ListUndoWindow()
		if err != nil {
			return err
		}
		if len(window) == 0 {
			fmt.Println("undo window is empty")
			return nil
		}
		for _, c := range window {
			fmt.Printf("%s  %s  expires %s  %s\n",
				c.ID, c.CreatedAt.Format("15:04:05"), c.ExpiresAt.Format("15:04:05"), c.Description)
			for _, p := range c.Paths {
				fmt.Printf("    %s\n", p)
			}
		}
		return nil
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <commit-id>",
	Short: "Revert a commit's snapshot in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGuard()
		if err != nil {
			return err
		}
		defer g.Close()

		rb := g.Rollback(args[0])
		if !rb.OK {
			return fmt.Errorf("rollback failed: %s", rb.Reason)
		}
		if rb.NoOp {
			fmt.Println("already rolled back")
			return nil
		}
		fmt.Printf("restored %d path(s)\n", len(rb.Restored))
		for _, p := range rb.Restored {
			fmt.Printf("    %s\n", p)
		}
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <commit-id>",
	Short: "Show changes since a commit's snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openGuard()
		if err != nil {
			return err
		}
		defer g.Close()

		out, err := g.Diff(args[0])
		if err != nil {
			return err
		}
		if len(out.ChangedPaths) == 0 {
			fmt.Println("no changes since snapshot")
			return nil
		}
		fmt.Print(out.DiffText)
		return nil
	},
}
