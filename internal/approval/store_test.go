package approval

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestRequestAndCheck(t *testing.T) {
	s := newTestStore(t)
	if err := s.Request("execute_shell", "execute_shell", "rm -rf /tmp/scratch"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	status, err := s.Check("execute_shell")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if status != StatusPending {
		t.Errorf("expected pending, got %s", status)
	}
}

func TestRequestIdempotent(t *testing.T) {
	s := newTestStore(t)
	s.Request("k", "cap", "first")
	s.Request("k", "cap", "second") // must not overwrite

	a, _ := s.read("k")
	if a.Detail != "first" {
		t.Errorf("expected original detail, got %s", a.Detail)
	}
}

func TestApproveAndConsumeOneTime(t *testing.T) {
	s := newTestStore(t)
	s.Request("k", "cap", "x")
	if err := s.Approve("k", 0); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if status, _ := s.Check("k"); status != StatusApproved {
		t.Fatalf("expected approved, got %s", status)
	}
	if err := s.Consume("k"); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if err := s.Consume("k"); err == nil {
		t.Error("double consume must fail")
	}
}

func TestGet(t *testing.T) {
	s := newTestStore(t)
	s.Request("k", "cap", "x")
	s.Approve("k", time.Hour)

	a, err := s.Get("k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if a.Status != StatusApproved || a.ExpiresAt == nil {
		t.Errorf("expected approved record with expiry, got %+v", a)
	}

	if _, err := s.Get("missing"); err == nil {
		t.Error("Get of an unknown key must fail")
	}
}

func TestApproveWithExpiry(t *testing.T) {
	s := newTestStore(t)
	s.Request("k", "cap", "x")
	s.Approve("k", time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	status, err := s.Check("k")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if status != StatusExpired {
		t.Errorf("expected expired, got %s", status)
	}
}

func TestDeny(t *testing.T) {
	s := newTestStore(t)
	s.Request("k", "cap", "x")
	if err := s.Deny("k"); err != nil {
		t.Fatalf("Deny failed: %v", err)
	}
	if status, _ := s.Check("k"); status != StatusDenied {
		t.Errorf("expected denied, got %s", status)
	}
}

func TestKeyValidation(t *testing.T) {
	s := newTestStore(t)
	bad := []string{"", "../escape", "a/b", "k?"}
	for _, key := range bad {
		if err := s.Request(key, "cap", "x"); err == nil {
			t.Errorf("key %q should be rejected", key)
		}
	}
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	s.Request("a", "cap_a", "x")
	s.Request("b", "cap_b", "y")

	approvals, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(approvals) != 2 {
		t.Errorf("expected 2 approvals, got %d", len(approvals))
	}
}
