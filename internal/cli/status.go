package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentward/agentward/internal/config"
	"github.com/agentward/agentward/internal/guard"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show health state, trust tier, and recent transitions",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	g, err := openGuard()
	if err != nil {
		return err
	}
	defer g.Close()

	state := g.Monitor().Check(context.Background())
	_, last := g.GetHealth()

	out := map[string]any{
		"health":      state.String(),
		"trust_score": g.Gate().Score(),
		"trust_tier":  g.Gate().Tier().String(),
	}
	if last != nil {
		out["last_transition"] = map[string]any{
			"from":  last.From.String(),
			"to":    last.To.String(),
			"cause": last.Cause,
			"at":    last.At,
		}
	}
	if trs := g.Monitor().Transitions(); len(trs) > 0 {
		out["transition_count"] = len(trs)
	}

	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
	return nil
}

// openGuard builds a Guard from the configured paths for one-shot
// commands.
func openGuard() (*guard.Guard, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	g, err := guard.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build guard: %w", err)
	}
	return g, nil
}
