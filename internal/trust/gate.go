package trust

import (
	"fmt"
	"strings"
	"sync"

	"github.com/agentward/agentward/internal/audit"
	"github.com/agentward/agentward/internal/capability"
	"github.com/agentward/agentward/internal/health"
)

// Constraint marker phrases. NeedsApproval and NeedsPreview are derived
// by case-insensitive substring matching against these literals — an
// intentionally simple heuristic, not free-text parsing. Callers depend
// on the exact trigger phrases.
const (
	markerApproval = "approval required"
	markerPreview  = "preview"
)

// Enforcement is the structured outcome of a gate decision.
type Enforcement struct {
	Allowed       bool
	Tier          Tier
	Constraints   []string
	NeedsApproval bool
	NeedsPreview  bool
	Reason        string
}

// Gate answers "can capability X run now, and under what constraints".
// It combines the trust tier with the degradation state: a capability
// permitted at the current tier is still denied when the health state
// disables one of its dependencies.
type Gate struct {
	mu         sync.Mutex
	score      float64
	thresholds Thresholds
	registry   *capability.Registry

	// healthState returns the monitor's cached state. Nil means no
	// monitor attached (treated as full health, used in tests).
	healthState func() health.State

	// decisions is the append-only decision log. It explains past
	// decisions and is never read back to grant permissions.
	decisions *audit.Log

	// onTierChange fires whenever the score crosses a tier boundary,
	// distinctly from same-tier score churn.
	onTierChange func(from, to Tier, reason string)
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithHealth attaches a health state source.
func WithHealth(fn func() health.State) GateOption {
	return func(g *Gate) { g.healthState = fn }
}

// WithDecisionLog attaches the append-only decision log.
func WithDecisionLog(l *audit.Log) GateOption {
	return func(g *Gate) { g.decisions = l }
}

// WithTierChange registers a tier crossing callback.
func WithTierChange(fn func(from, to Tier, reason string)) GateOption {
	return func(g *Gate) { g.onTierChange = fn }
}

// NewGate creates a gate with the given initial score (clamped) and
// thresholds. Invalid thresholds fall back to the defaults.
func NewGate(registry *capability.Registry, initialScore float64, th Thresholds, opts ...GateOption) *Gate {
	if !th.Valid() {
		th = DefaultThresholds()
	}
	g := &Gate{
		score:      ClampScore(initialScore),
		thresholds: th,
		registry:   registry,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Score returns the current trust score.
func (g *Gate) Score() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.score
}

// Tier returns the current trust tier.
func (g *Gate) Tier() Tier {
	g.mu.Lock()
	defer g.mu.Unlock()
	return TierFromScore(g.score, g.thresholds)
}

// UpdateTrust sets a new trust score (clamped to [0,1]) and records the
// reason. A tier crossing is logged and emitted distinctly from score
// churn within the same tier.
func (g *Gate) UpdateTrust(newScore float64, reason string) {
	g.mu.Lock()
	oldTier := TierFromScore(g.score, g.thresholds)
	g.score = ClampScore(newScore)
	newTier := TierFromScore(g.score, g.thresholds)
	score := g.score
	cb := g.onTierChange
	log := g.decisions
	g.mu.Unlock()

	if oldTier == newTier {
		return
	}
	if log != nil {
		log.Record(audit.Entry{
			Type:       audit.TypeTierChange,
			Tier:       newTier.String(),
			TrustScore: score,
			Reason:     fmt.Sprintf("tier %s -> %s: %s", oldTier, newTier, reason),
		})
	}
	if cb != nil {
		cb(oldTier, newTier, reason)
	}
}

// SetThresholds replaces the tier cutoffs (hot reload). Invalid
// thresholds are ignored.
func (g *Gate) SetThresholds(th Thresholds) {
	if !th.Valid() {
		return
	}
	g.mu.Lock()
	g.thresholds = th
	g.mu.Unlock()
}

// CanExecute reports whether the capability may run now, with a
// human-readable reason. An unknown capability is always a denial.
func (g *Gate) CanExecute(name string, override ...float64) (bool, string) {
	e := g.Enforce(name, "", override...)
	return e.Allowed, e.Reason
}

// Enforce evaluates a capability request and returns the full
// enforcement decision. details is free text recorded alongside the
// decision for audit. An optional trust override score is evaluated in
// place of the stored score without mutating it.
func (g *Gate) Enforce(name, details string, override ...float64) Enforcement {
	g.mu.Lock()
	score := g.score
	if len(override) > 0 {
		score = ClampScore(override[0])
	}
	tier := TierFromScore(score, g.thresholds)
	g.mu.Unlock()

	e := g.evaluate(name, tier)

	if g.decisions != nil {
		decision := "deny"
		if e.Allowed {
			decision = "allow"
		}
		reason := e.Reason
		if details != "" {
			reason = reason + " (" + details + ")"
		}
		g.decisions.Record(audit.Entry{
			Type:       audit.TypeDecision,
			Capability: name,
			Tier:       tier.String(),
			TrustScore: score,
			Decision:   decision,
			Reason:     reason,
		})
	}
	return e
}

// evaluate applies the deny-precedence chain: unknown capability, then
// health restriction, then tier grant.
func (g *Gate) evaluate(name string, tier Tier) Enforcement {
	contract, ok := g.registry.Lookup(name)
	if !ok {
		// Never default-allow something we have no contract for.
		return Enforcement{
			Tier:   tier,
			Reason: fmt.Sprintf("unknown capability %q: not in registry, denied", name),
		}
	}

	state := health.StateFull
	if g.healthState != nil {
		state = g.healthState()
	}
	for _, dep := range contract.Needs {
		if state.Disables(dep) {
			return Enforcement{
				Tier: tier,
				Reason: fmt.Sprintf("capability %q requires %s, unavailable in %s state",
					name, dep, state),
			}
		}
	}

	grant := contract.Grants[tier]
	if !grant.Allowed {
		return Enforcement{
			Tier:   tier,
			Reason: fmt.Sprintf("capability %q not permitted at tier %s", name, tier),
		}
	}

	constraints := make([]string, len(grant.Constraints))
	copy(constraints, grant.Constraints)

	return Enforcement{
		Allowed:       true,
		Tier:          tier,
		Constraints:   constraints,
		NeedsApproval: hasMarker(constraints, markerApproval),
		NeedsPreview:  hasMarker(constraints, markerPreview),
		Reason:        fmt.Sprintf("capability %q permitted at tier %s", name, tier),
	}
}

func hasMarker(constraints []string, marker string) bool {
	for _, c := range constraints {
		if strings.Contains(strings.ToLower(c), marker) {
			return true
		}
	}
	return false
}
