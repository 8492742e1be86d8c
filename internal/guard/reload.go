package guard

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agentward/agentward/internal/config"
)

// Reloader watches the config file for changes and applies them to the
// running Guard.
type Reloader struct {
	watcher *fsnotify.Watcher
	guard   *Guard
	path    string
}

// NewReloader creates a file watcher for the config path. A missing
// file is not an error; the reloader simply has nothing to watch.
func NewReloader(g *Guard, path string) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := watcher.Add(path); err != nil {
				watcher.Close()
				return nil, fmt.Errorf("failed to watch %q: %w", path, err)
			}
		}
	}

	return &Reloader{watcher: watcher, guard: g, path: path}, nil
}

// Run watches for config changes and reloads. Blocks until ctx is
// cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Debounce: wait 500ms after the last write before reloading.
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					cfg, err := config.Load(r.path)
					if err != nil {
						fmt.Fprintf(os.Stderr, "hot-reload failed: %v\n", err)
						return
					}
					if err := r.guard.ApplyConfig(cfg); err != nil {
						fmt.Fprintf(os.Stderr, "hot-reload rejected: %v\n", err)
						return
					}
					fmt.Fprintf(os.Stderr, "hot-reload: configuration applied\n")
				})
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "file watcher error: %v\n", err)
		}
	}
}
