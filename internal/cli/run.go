package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentward/agentward/internal/config"
	"github.com/agentward/agentward/internal/guard"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the health monitor loop",
	Long:  "Starts the degradation monitor and the config hot-reloader.\nQueued writes and interactions are replayed automatically on recovery.\nStops on SIGINT/SIGTERM.",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	g, err := guard.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to build guard: %w", err)
	}
	defer g.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "shutting down")
		cancel()
	}()

	reloader, err := guard.NewReloader(g, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config hot-reload disabled: %v\n", err)
	} else {
		go reloader.Run(ctx)
	}

	fmt.Fprintf(os.Stderr, "agentward running (data dir %s, probe interval %s)\n",
		cfg.DataDir, cfg.Health.ProbeInterval.Std())
	return g.Run(ctx)
}
