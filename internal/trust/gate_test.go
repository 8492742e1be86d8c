package trust

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentward/agentward/internal/audit"
	"github.com/agentward/agentward/internal/capability"
	"github.com/agentward/agentward/internal/health"
)

func TestUnknownCapabilityDeniedAtEveryScore(t *testing.T) {
	g := NewGate(capability.Builtin(), 0, DefaultThresholds())

	for _, score := range []float64{0, 0.5, 0.79, 0.85, 1.0} {
		allowed, reason := g.CanExecute("nonexistent_capability", score)
		if allowed {
			t.Errorf("score %v: unknown capability must be denied", score)
		}
		if !strings.Contains(reason, "unknown") {
			t.Errorf("score %v: reason %q must mention unknown", score, reason)
		}
	}
}

func TestTierGrantEnforced(t *testing.T) {
	g := NewGate(capability.Builtin(), 0.3, DefaultThresholds())

	if allowed, _ := g.CanExecute("file_write"); allowed {
		t.Error("observer must not write files")
	}
	g.UpdateTrust(0.85, "test promotion")
	if allowed, reason := g.CanExecute("file_write"); !allowed {
		t.Errorf("partner should write files, denied: %s", reason)
	}
	if allowed, _ := g.CanExecute("self_modify"); allowed {
		t.Error("self_modify must stay surrogate-only")
	}
}

func TestConstraintMarkers(t *testing.T) {
	g := NewGate(capability.Builtin(), 0.85, DefaultThresholds())

	e := g.Enforce("execute_shell", "")
	if !e.Allowed {
		t.Fatalf("execute_shell should be allowed at partner: %s", e.Reason)
	}
	if !e.NeedsApproval {
		t.Error("execute_shell at partner carries an approval constraint")
	}

	e = g.Enforce("file_write", "", 0.65)
	if !e.Allowed {
		t.Fatalf("file_write should be allowed at assistant: %s", e.Reason)
	}
	if !e.NeedsPreview {
		t.Error("assistant file_write carries a preview constraint")
	}
	if e.NeedsApproval {
		t.Error("assistant file_write has no approval constraint")
	}
}

func TestMarkerMatchingIsCaseInsensitiveSubstring(t *testing.T) {
	r := capability.NewRegistry()
	r.Register(capability.Contract{
		Name: "custom",
		Grants: [4]capability.Grant{
			{}, {}, {}, {Allowed: true, Constraints: []string{"Approval REQUIRED by operator", "show a PREVIEW first"}},
		},
	})
	g := NewGate(r, 0.95, DefaultThresholds())

	e := g.Enforce("custom", "")
	if !e.NeedsApproval || !e.NeedsPreview {
		t.Errorf("markers must match case-insensitively: %+v", e)
	}
}

func TestHealthRestrictionOverridesTier(t *testing.T) {
	state := health.StateFull
	g := NewGate(capability.Builtin(), 0.95, DefaultThresholds(),
		WithHealth(func() health.State { return state }))

	if allowed, _ := g.CanExecute("memory_recall"); !allowed {
		t.Fatal("memory_recall should pass in full health")
	}

	state = health.StateAmnesia
	if allowed, reason := g.CanExecute("memory_recall"); allowed {
		t.Error("memory_recall must be denied in amnesia")
	} else if !strings.Contains(reason, "amnesia") {
		t.Errorf("reason %q must name the state", reason)
	}
	// Inference-dependent capabilities stay usable in amnesia.
	if allowed, _ := g.CanExecute("inference"); !allowed {
		t.Error("inference should still pass in amnesia")
	}

	state = health.StateDead
	for _, name := range []string{"file_read", "file_write", "inference", "memory_recall"} {
		if allowed, reason := g.CanExecute(name); allowed {
			t.Errorf("%s must be denied in dead state", name)
		} else if !strings.Contains(reason, "dead") {
			t.Errorf("%s: reason %q must name the dead state", name, reason)
		}
	}
}

func TestTierChangeEmittedOnCrossingOnly(t *testing.T) {
	var events []string
	g := NewGate(capability.Builtin(), 0.5, DefaultThresholds(),
		WithTierChange(func(from, to Tier, reason string) {
			events = append(events, from.String()+"->"+to.String())
		}))

	g.UpdateTrust(0.55, "churn within observer") // no crossing
	g.UpdateTrust(0.7, "promoted")               // observer -> assistant
	g.UpdateTrust(0.75, "churn")                 // no crossing
	g.UpdateTrust(0.3, "demoted")                // assistant -> observer

	want := []string{"observer->assistant", "assistant->observer"}
	if len(events) != len(want) {
		t.Fatalf("expected %d tier events, got %d: %v", len(want), len(events), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, events[i], want[i])
		}
	}
}

func TestUpdateTrustClampsOutOfRange(t *testing.T) {
	g := NewGate(capability.Builtin(), 0.5, DefaultThresholds())
	g.UpdateTrust(1.7, "overshoot")
	if got := g.Score(); got != 1.0 {
		t.Errorf("expected clamp to 1.0, got %v", got)
	}
	g.UpdateTrust(-2, "undershoot")
	if got := g.Score(); got != 0.0 {
		t.Errorf("expected clamp to 0.0, got %v", got)
	}
}

func TestDecisionsAppendedToLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	log, err := audit.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer log.Close()

	g := NewGate(capability.Builtin(), 0.85, DefaultThresholds(), WithDecisionLog(log))
	g.Enforce("file_write", "write a.txt")
	g.Enforce("nonexistent_capability", "")

	entries, err := audit.Read(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(entries))
	}
	if entries[0].Decision != "allow" || entries[0].Capability != "file_write" {
		t.Errorf("first entry wrong: %+v", entries[0])
	}
	if entries[1].Decision != "deny" {
		t.Errorf("second entry should be a denial: %+v", entries[1])
	}
	if res := audit.Verify(path); !res.Valid {
		t.Errorf("decision log chain broken: %s", res.Error)
	}
}
