package safetynet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentward/agentward/internal/trust"
)

// DefaultUndoWindow is how long a commit stays rollback-eligible.
const DefaultUndoWindow = time.Hour

// Commit is one snapshot record. The net exclusively owns the commit
// log; callers only ever hold the opaque ID.
type Commit struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `json:"description"`
	Paths       []string  `json:"paths"`
	ExpiresAt   time.Time `json:"expires_at"`
	// Eligible marks the commit as rollback-eligible. Expiry and
	// consumption clear the flag; the snapshot itself is never deleted.
	Eligible   bool `json:"eligible"`
	RolledBack bool `json:"rolled_back"`
}

// CommitResult is the outcome of a pre-action commit.
type CommitResult struct {
	OK       bool
	CommitID string // empty when no commit was required (tier < partner)
	Reason   string
}

// WriteResult is the outcome of a guarded write.
type WriteResult struct {
	OK         bool
	CommitID   string
	Committed  bool // a snapshot was created before the write
	Verified   bool // readback matched the intended content
	RolledBack bool
	Reason     string
}

// RollbackResult is the outcome of a rollback.
type RollbackResult struct {
	OK       bool
	NoOp     bool // commit was already rolled back
	Restored []string
	Reason   string
}

// DiffOutput holds the textual diff between a snapshot and the
// current file content.
type DiffOutput struct {
	DiffText     string
	ChangedPaths []string
}

// Net is the transactional safety net around file mutations.
type Net struct {
	mu      sync.Mutex
	dir     string // commit metadata directory
	backend Backend
	window  time.Duration

	// now and readFile are injectable for tests (simulated clock,
	// forced verification mismatch).
	now      func() time.Time
	readFile func(string) ([]byte, error)
}

// Option configures a Net.
type Option func(*Net)

// WithUndoWindow overrides the rollback-eligibility duration.
func WithUndoWindow(d time.Duration) Option {
	return func(n *Net) {
		if d > 0 {
			n.window = d
		}
	}
}

// WithClock injects a time source.
func WithClock(now func() time.Time) Option {
	return func(n *Net) { n.now = now }
}

// New creates a safety net storing commit metadata under dir and
// snapshots through the given backend.
func New(dir string, backend Backend, opts ...Option) (*Net, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("safetynet: create commit directory: %w", err)
	}
	n := &Net{
		dir:      dir,
		backend:  backend,
		window:   DefaultUndoWindow,
		now:      time.Now,
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// SetUndoWindow changes the eligibility duration for future commits
// (hot reload). Existing commits keep their original expiry.
func (n *Net) SetUndoWindow(d time.Duration) {
	if d <= 0 {
		return
	}
	n.mu.Lock()
	n.window = d
	n.mu.Unlock()
}

// PreActionCommit snapshots the given paths before a risky mutation.
// Below partner tier this is a successful no-op: transactional safety
// is only paid for once the gate requires it. A snapshot failure means
// the caller must not proceed with the write.
func (n *Net) PreActionCommit(paths []string, description string, tier trust.Tier) CommitResult {
	if tier < trust.TierPartner {
		return CommitResult{OK: true}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.commitLocked(paths, description)
}

func (n *Net) commitLocked(paths []string, description string) CommitResult {
	id := uuid.NewString()
	if err := n.backend.Snapshot(id, paths); err != nil {
		return CommitResult{Reason: fmt.Sprintf("snapshot failed: %v", err)}
	}

	now := n.now().UTC()
	c := Commit{
		ID:          id,
		CreatedAt:   now,
		Description: description,
		Paths:       append([]string(nil), paths...),
		ExpiresAt:   now.Add(n.window),
		Eligible:    true,
	}
	if err := n.writeCommit(c); err != nil {
		return CommitResult{Reason: fmt.Sprintf("commit record failed: %v", err)}
	}
	return CommitResult{OK: true, CommitID: id}
}

// SafeWrite performs the full guarded sequence: pre-action commit,
// write, readback verification, and automatic scoped rollback on
// mismatch. If the commit fails the target file is never touched.
func (n *Net) SafeWrite(path string, content []byte, description string, tier trust.Tier) WriteResult {
	cr := n.PreActionCommit([]string{path}, description, tier)
	if !cr.OK {
		return WriteResult{
			Reason: fmt.Sprintf("pre-action commit failed, file untouched: %s", cr.Reason),
		}
	}
	committed := cr.CommitID != ""

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return WriteResult{
			CommitID:  cr.CommitID,
			Committed: committed,
			Reason:    fmt.Sprintf("create parent directory: %v", err),
		}
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		res := WriteResult{
			CommitID:  cr.CommitID,
			Committed: committed,
			Reason:    fmt.Sprintf("write failed: %v", err),
		}
		if committed {
			rb := n.RollbackTo(cr.CommitID, path)
			res.RolledBack = rb.OK
			res.Reason += "; " + rollbackOutcome(rb)
		}
		return res
	}

	readback, err := n.readFile(path)
	if err != nil || !bytes.Equal(readback, content) {
		res := WriteResult{
			CommitID:  cr.CommitID,
			Committed: committed,
		}
		if err != nil {
			res.Reason = fmt.Sprintf("verification readback failed: %v", err)
		} else {
			res.Reason = fmt.Sprintf("verification mismatch: wrote %d bytes, read back %d different bytes",
				len(content), len(readback))
		}
		if committed {
			rb := n.RollbackTo(cr.CommitID, path)
			res.RolledBack = rb.OK
			res.Reason += "; " + rollbackOutcome(rb)
		} else {
			res.Reason += "; no snapshot to roll back at this tier"
		}
		return res
	}

	return WriteResult{
		OK:        true,
		CommitID:  cr.CommitID,
		Committed: committed,
		Verified:  true,
		Reason:    "write verified",
	}
}

func rollbackOutcome(rb RollbackResult) string {
	if rb.OK {
		return "rolled back to pre-write state"
	}
	return fmt.Sprintf("rollback failed: %s", rb.Reason)
}

// RollbackTo restores paths from the given commit. With no paths the
// whole snapshot is reverted as one unit and the commit is consumed.
// Idempotent: rolling back an already-rolled-back commit is a no-op
// success.
func (n *Net) RollbackTo(commitID string, paths ...string) RollbackResult {
	n.mu.Lock()
	defer n.mu.Unlock()

	c, err := n.readCommit(commitID)
	if err != nil {
		return RollbackResult{Reason: fmt.Sprintf("unknown commit %s: %v", commitID, err)}
	}

	full := len(paths) == 0
	if full && c.RolledBack {
		return RollbackResult{OK: true, NoOp: true, Restored: c.Paths, Reason: "commit already rolled back"}
	}

	if err := n.backend.Restore(commitID, paths); err != nil {
		return RollbackResult{Reason: fmt.Sprintf("restore failed: %v", err)}
	}

	restored := paths
	if full {
		restored = c.Paths
		c.RolledBack = true
		c.Eligible = false // consumed
		if err := n.writeCommit(*c); err != nil {
			return RollbackResult{Reason: fmt.Sprintf("commit record update failed: %v", err)}
		}
	}
	return RollbackResult{OK: true, Restored: restored, Reason: "restored"}
}

// UndoWindow returns the unexpired, rollback-eligible commits, newest
// first. Expired commits are pruned lazily here: only their
// eligibility flag is cleared, the snapshot history stays on disk.
func (n *Net) UndoWindow() ([]Commit, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	all, err := n.listCommits()
	if err != nil {
		return nil, err
	}

	now := n.now().UTC()
	var window []Commit
	for _, c := range all {
		if c.Eligible && now.After(c.ExpiresAt) {
			c.Eligible = false
			if err := n.writeCommit(c); err != nil {
				return nil, fmt.Errorf("safetynet: prune commit %s: %w", c.ID, err)
			}
		}
		if c.Eligible {
			window = append(window, c)
		}
	}

	sort.Slice(window, func(i, j int) bool {
		return window[i].CreatedAt.After(window[j].CreatedAt)
	})
	return window, nil
}

// Get returns one commit record by id.
func (n *Net) Get(commitID string) (Commit, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	c, err := n.readCommit(commitID)
	if err != nil {
		return Commit{}, err
	}
	return *c, nil
}

// Diff compares a commit's snapshot against current file content.
func (n *Net) Diff(commitID string) (DiffOutput, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	c, err := n.readCommit(commitID)
	if err != nil {
		return DiffOutput{}, fmt.Errorf("safetynet: unknown commit %s: %w", commitID, err)
	}

	var out DiffOutput
	var b strings.Builder
	for _, p := range c.Paths {
		old, existed, err := n.backend.Content(commitID, p)
		if err != nil {
			return DiffOutput{}, err
		}
		cur, curErr := os.ReadFile(p)
		curExists := curErr == nil
		if !existed && !curExists {
			continue
		}
		if existed && curExists && bytes.Equal(old, cur) {
			continue
		}
		out.ChangedPaths = append(out.ChangedPaths, p)
		writeFileDiff(&b, p, old, existed, cur, curExists)
	}
	out.DiffText = b.String()
	return out, nil
}

func (n *Net) commitPath(id string) string {
	return filepath.Join(n.dir, id+".json")
}

func (n *Net) writeCommit(c Commit) error {
	return writeJSONAtomic(n.commitPath(c.ID), c)
}

func (n *Net) readCommit(id string) (*Commit, error) {
	data, err := os.ReadFile(n.commitPath(id))
	if err != nil {
		return nil, err
	}
	var c Commit
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("commit record corrupt: %w", err)
	}
	return &c, nil
}

func (n *Net) listCommits() ([]Commit, error) {
	entries, err := os.ReadDir(n.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("safetynet: read commit directory: %w", err)
	}

	var commits []Commit
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		c, err := n.readCommit(id)
		if err != nil {
			continue
		}
		commits = append(commits, *c)
	}
	return commits, nil
}
