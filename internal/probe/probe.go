// Package probe supplies the reachability checks the degradation
// monitor runs against the inference backend, the vector-memory
// backend, and local storage.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/agentward/agentward/internal/health"
)

// HTTP returns a prober that issues a GET against url and treats any
// response below 500 as reachable. The deadline comes from the
// monitor's per-probe context; the client itself carries no timeout.
func HTTP(url string, client *http.Client) health.Prober {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("probe: build request for %s: %w", url, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("probe: %s unreachable: %w", url, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("probe: %s returned %d", url, resp.StatusCode)
		}
		return nil
	}
}

// Disk returns a prober that verifies dir is writable by creating,
// reading back, and removing a marker file.
func Disk(dir string) health.Prober {
	return func(ctx context.Context) error {
		marker := filepath.Join(dir, ".diskprobe")
		if err := os.WriteFile(marker, []byte("ok"), 0600); err != nil {
			return fmt.Errorf("probe: %s unwritable: %w", dir, err)
		}
		data, err := os.ReadFile(marker)
		if err != nil {
			return fmt.Errorf("probe: %s readback failed: %w", dir, err)
		}
		if string(data) != "ok" {
			return fmt.Errorf("probe: %s readback mismatch", dir)
		}
		if err := os.Remove(marker); err != nil {
			return fmt.Errorf("probe: %s marker cleanup failed: %w", dir, err)
		}
		return nil
	}
}
