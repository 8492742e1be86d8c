// Package safetynet makes risky writes reversible: a versioned
// snapshot before every gated mutation, post-write verification with
// automatic rollback, and a bounded undo window of recent commits.
package safetynet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Backend is the version-control collaborator the net snapshots
// through: snapshot-create, revert, and content retrieval for diffs.
type Backend interface {
	// Snapshot captures the current content of the given paths under
	// the commit id. A path that does not exist yet is recorded as
	// absent so a restore can delete it.
	Snapshot(id string, paths []string) error

	// Restore reverts the given paths to their snapshotted content.
	// An empty paths slice restores the whole snapshot.
	Restore(id string, paths []string) error

	// Content returns the snapshotted bytes for one path and whether
	// the path existed at snapshot time.
	Content(id, path string) ([]byte, bool, error)
}

// manifestEntry maps one snapshotted path to its stored blob.
type manifestEntry struct {
	Path   string `json:"path"`
	Absent bool   `json:"absent"`
	Blob   string `json:"blob,omitempty"`
}

// DirBackend implements Backend by copying files into a per-commit
// snapshot directory with an atomically written JSON manifest.
type DirBackend struct {
	dir string
}

// NewDirBackend creates a snapshot store rooted at dir.
func NewDirBackend(dir string) (*DirBackend, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("safetynet: create snapshot directory: %w", err)
	}
	return &DirBackend{dir: dir}, nil
}

func (b *DirBackend) snapDir(id string) string {
	return filepath.Join(b.dir, id)
}

// Snapshot captures the given paths under the commit id.
func (b *DirBackend) Snapshot(id string, paths []string) error {
	snap := b.snapDir(id)
	if err := os.MkdirAll(snap, 0700); err != nil {
		return fmt.Errorf("safetynet: create snapshot %s: %w", id, err)
	}

	manifest := make([]manifestEntry, 0, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				manifest = append(manifest, manifestEntry{Path: p, Absent: true})
				continue
			}
			return fmt.Errorf("safetynet: snapshot read %s: %w", p, err)
		}
		blob := fmt.Sprintf("%d", i)
		if err := os.WriteFile(filepath.Join(snap, blob), data, 0600); err != nil {
			return fmt.Errorf("safetynet: snapshot write %s: %w", p, err)
		}
		manifest = append(manifest, manifestEntry{Path: p, Blob: blob})
	}

	return writeJSONAtomic(filepath.Join(snap, "manifest.json"), manifest)
}

// Restore reverts paths to their snapshotted content. Paths recorded
// as absent at snapshot time are removed.
func (b *DirBackend) Restore(id string, paths []string) error {
	manifest, err := b.manifest(id)
	if err != nil {
		return err
	}

	scoped := make(map[string]bool, len(paths))
	for _, p := range paths {
		scoped[p] = true
	}

	for _, e := range manifest {
		if len(scoped) > 0 && !scoped[e.Path] {
			continue
		}
		if e.Absent {
			if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("safetynet: restore remove %s: %w", e.Path, err)
			}
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.snapDir(id), e.Blob))
		if err != nil {
			return fmt.Errorf("safetynet: restore read blob for %s: %w", e.Path, err)
		}
		if err := os.MkdirAll(filepath.Dir(e.Path), 0755); err != nil {
			return fmt.Errorf("safetynet: restore mkdir for %s: %w", e.Path, err)
		}
		if err := os.WriteFile(e.Path, data, 0644); err != nil {
			return fmt.Errorf("safetynet: restore write %s: %w", e.Path, err)
		}
	}
	return nil
}

// Content returns the snapshotted bytes for one path.
func (b *DirBackend) Content(id, path string) ([]byte, bool, error) {
	manifest, err := b.manifest(id)
	if err != nil {
		return nil, false, err
	}
	for _, e := range manifest {
		if e.Path != path {
			continue
		}
		if e.Absent {
			return nil, false, nil
		}
		data, err := os.ReadFile(filepath.Join(b.snapDir(id), e.Blob))
		if err != nil {
			return nil, false, fmt.Errorf("safetynet: read blob for %s: %w", path, err)
		}
		return data, true, nil
	}
	return nil, false, fmt.Errorf("safetynet: path %s not in snapshot %s", path, id)
}

func (b *DirBackend) manifest(id string) ([]manifestEntry, error) {
	data, err := os.ReadFile(filepath.Join(b.snapDir(id), "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("safetynet: snapshot %s not found: %w", id, err)
	}
	var manifest []manifestEntry
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("safetynet: snapshot %s manifest corrupt: %w", id, err)
	}
	return manifest, nil
}

// writeJSONAtomic marshals v and writes it via tmp+rename so readers
// never observe a partial file.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
