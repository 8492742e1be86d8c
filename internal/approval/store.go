// Package approval holds pending human approvals for capabilities
// whose tier constraints carry an "approval required" obligation. One
// JSON file per capability key, written atomically so a crash never
// leaves a half-resolved approval.
package approval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// validKey matches alphanumeric, dash, underscore, and dot only; keys
// become file names so anything else risks path traversal.
var validKey = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("key must not contain '..'")
	}
	if !validKey.MatchString(key) {
		return fmt.Errorf("key contains invalid characters: only alphanumeric, dash, underscore, and dot are allowed")
	}
	return nil
}

// Status is the state of an approval request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusConsumed Status = "consumed"
	StatusExpired  Status = "expired"
)

// Approval is one capability approval request and its state.
type Approval struct {
	Key        string     `json:"key"`
	Status     Status     `json:"status"`
	Capability string     `json:"capability"`
	Detail     string     `json:"detail"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Store manages approval files on disk.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a Store backed by the given directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create approval directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Request files a pending approval for a capability. No-op if a
// request for the key already exists.
func (s *Store) Request(key, capability, detail string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	if _, err := os.Stat(path); err == nil {
		return nil // already requested
	}

	return s.writeAtomic(path, Approval{
		Key:        key,
		Status:     StatusPending,
		Capability: capability,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	})
}

// Approve marks an approval as granted. duration > 0 sets an expiry;
// duration == 0 makes it one-time (consumed on first use).
func (s *Store) Approve(key string, duration time.Duration) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.read(key)
	if err != nil {
		return fmt.Errorf("approval %q not found: %w", key, err)
	}

	a.Status = StatusApproved
	now := time.Now().UTC()
	a.ResolvedAt = &now
	if duration > 0 {
		exp := now.Add(duration)
		a.ExpiresAt = &exp
	}
	return s.writeAtomic(s.path(key), *a)
}

// Deny marks an approval as refused.
func (s *Store) Deny(key string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.read(key)
	if err != nil {
		return fmt.Errorf("approval %q not found: %w", key, err)
	}

	a.Status = StatusDenied
	now := time.Now().UTC()
	a.ResolvedAt = &now
	return s.writeAtomic(s.path(key), *a)
}

// Check returns the current status, flipping to expired when a
// granted approval has passed its deadline.
func (s *Store) Check(key string) (Status, error) {
	if err := validateKey(key); err != nil {
		return "", fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.read(key)
	if err != nil {
		return "", fmt.Errorf("approval %q not found", key)
	}

	if a.Status == StatusApproved && a.ExpiresAt != nil && time.Now().UTC().After(*a.ExpiresAt) {
		a.Status = StatusExpired
		s.writeAtomic(s.path(key), *a)
		return StatusExpired, nil
	}
	return a.Status, nil
}

// Get returns one approval record.
func (s *Store) Get(key string) (Approval, error) {
	if err := validateKey(key); err != nil {
		return Approval{}, fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.read(key)
	if err != nil {
		return Approval{}, fmt.Errorf("approval %q not found: %w", key, err)
	}
	return *a, nil
}

// Consume marks a one-time approval as used up.
func (s *Store) Consume(key string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.read(key)
	if err != nil {
		return fmt.Errorf("approval %q not found: %w", key, err)
	}
	if a.Status == StatusConsumed {
		return fmt.Errorf("approval %q already consumed", key)
	}

	a.Status = StatusConsumed
	now := time.Now().UTC()
	a.ResolvedAt = &now
	return s.writeAtomic(s.path(key), *a)
}

// List returns all approvals in the store.
func (s *Store) List() ([]Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var approvals []Approval
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		a, err := s.read(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		approvals = append(approvals, *a)
	}
	return approvals, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *Store) read(key string) (*Approval, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, err
	}
	var a Approval
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) writeAtomic(path string, a Approval) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
