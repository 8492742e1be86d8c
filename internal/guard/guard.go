// Package guard assembles the safety core: the capability registry,
// the trust tier gate, the safety net, and the degradation monitor,
// behind the narrow boundary the agent's collaborators call. The
// Guard is constructed explicitly at startup and torn down with
// Close; there are no process-global instances.
package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/agentward/agentward/internal/approval"
	"github.com/agentward/agentward/internal/audit"
	"github.com/agentward/agentward/internal/capability"
	"github.com/agentward/agentward/internal/config"
	"github.com/agentward/agentward/internal/health"
	"github.com/agentward/agentward/internal/probe"
	"github.com/agentward/agentward/internal/queue"
	"github.com/agentward/agentward/internal/safetynet"
	"github.com/agentward/agentward/internal/trust"
)

// Decision is the outcome of a capability request.
type Decision struct {
	Allowed       bool
	Tier          trust.Tier
	State         health.State
	Constraints   []string
	NeedsApproval bool
	NeedsPreview  bool
	Reason        string
}

// WriteOutcome is the outcome of a guarded write.
type WriteOutcome struct {
	OK         bool
	Queued     bool // parked for replay, not yet on disk
	CommitID   string
	Verified   bool
	RolledBack bool
	Reason     string
}

// queuedWrite is the durable payload for writes parked while the
// memory backend is down.
type queuedWrite struct {
	Path        string `json:"path"`
	Content     []byte `json:"content"`
	Description string `json:"description"`
}

// Guard is the assembled safety core.
type Guard struct {
	cfg       *config.Config
	registry  *capability.Registry
	gate      *trust.Gate
	net       *safetynet.Net
	monitor   *health.Monitor
	approvals *approval.Store

	decisions   *audit.Log
	transitions *audit.Log
	queueDB     *queue.DB

	// OnInteraction receives interactions drained after an inference
	// outage. Replaceable before Run; the default logs to stderr.
	OnInteraction func(payload []byte) error
}

// New builds a Guard with real reachability probes derived from the
// configuration.
func New(cfg *config.Config) (*Guard, error) {
	probes := health.Probes{
		Inference: probe.HTTP(cfg.Health.InferenceURL, http.DefaultClient),
		Memory:    probe.HTTP(cfg.Health.MemoryURL, http.DefaultClient),
		Disk:      probe.Disk(cfg.DataDir),
	}
	return NewWithProbes(cfg, probes)
}

// NewWithProbes builds a Guard with caller-supplied probes (tests,
// embedded deployments).
func NewWithProbes(cfg *config.Config, probes health.Probes) (*Guard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("guard: create data directory: %w", err)
	}

	decisions, err := audit.Open(filepath.Join(cfg.DataDir, "decisions.jsonl"))
	if err != nil {
		return nil, err
	}
	transitions, err := audit.Open(filepath.Join(cfg.DataDir, "transitions.jsonl"))
	if err != nil {
		decisions.Close()
		return nil, err
	}

	queueDB, err := queue.OpenDB(filepath.Join(cfg.DataDir, "queues.db"))
	if err != nil {
		decisions.Close()
		transitions.Close()
		return nil, err
	}
	fail := func(err error) (*Guard, error) {
		queueDB.Close()
		transitions.Close()
		decisions.Close()
		return nil, err
	}

	writes, err := queueDB.New("writes")
	if err != nil {
		return fail(err)
	}
	interactions, err := queueDB.New("interactions")
	if err != nil {
		return fail(err)
	}

	backend, err := safetynet.NewDirBackend(filepath.Join(cfg.DataDir, "snapshots"))
	if err != nil {
		return fail(err)
	}
	net, err := safetynet.New(filepath.Join(cfg.DataDir, "commits"), backend,
		safetynet.WithUndoWindow(cfg.Safety.UndoWindow.Std()))
	if err != nil {
		return fail(err)
	}

	approvals, err := approval.NewStore(filepath.Join(cfg.DataDir, "pending"))
	if err != nil {
		return fail(err)
	}

	g := &Guard{
		cfg:         cfg,
		registry:    capability.Builtin(),
		net:         net,
		approvals:   approvals,
		decisions:   decisions,
		transitions: transitions,
		queueDB:     queueDB,
		OnInteraction: func(payload []byte) error {
			fmt.Fprintf(os.Stderr, "agentward: replaying queued interaction (%d bytes)\n", len(payload))
			return nil
		},
	}

	g.monitor = health.NewMonitor(health.Config{
		Interval:         cfg.Health.ProbeInterval.Std(),
		Timeout:          cfg.Health.ProbeTimeout.Std(),
		FailureThreshold: cfg.Health.FailureThreshold,
	}, probes,
		health.WithQueues(writes, interactions),
		health.WithTransitionLog(transitions),
		health.WithWriteSink(g.replayWrite),
		health.WithInteractionSink(g.replayInteraction),
	)

	g.gate = trust.NewGate(g.registry, cfg.Trust.InitialScore,
		trust.Thresholds{
			Assistant: cfg.Trust.AssistantMin,
			Partner:   cfg.Trust.PartnerMin,
			Surrogate: cfg.Trust.SurrogateMin,
		},
		trust.WithHealth(g.monitor.State),
		trust.WithDecisionLog(decisions),
		trust.WithTierChange(func(from, to trust.Tier, reason string) {
			fmt.Fprintf(os.Stderr, "agentward: trust tier %s -> %s (%s)\n", from, to, reason)
		}),
	)

	return g, nil
}

// Run drives the health monitor loop until ctx is cancelled.
func (g *Guard) Run(ctx context.Context) error {
	return g.monitor.Run(ctx)
}

// Close tears the Guard down.
func (g *Guard) Close() error {
	var firstErr error
	for _, c := range []func() error{g.decisions.Close, g.transitions.Close, g.queueDB.Close} {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RequestCapability evaluates one capability request against the trust
// tier, the health state, and — where the tier constraints require
// it — the approval store.
func (g *Guard) RequestCapability(name, detail string) Decision {
	state := g.monitor.State()
	e := g.gate.Enforce(name, detail)

	d := Decision{
		Allowed:       e.Allowed,
		Tier:          e.Tier,
		State:         state,
		Constraints:   e.Constraints,
		NeedsApproval: e.NeedsApproval,
		NeedsPreview:  e.NeedsPreview,
		Reason:        e.Reason,
	}
	if !e.Allowed || !e.NeedsApproval {
		return d
	}

	// Approval-gated capability: permitted by tier, but only runs once
	// a human has resolved the pending request.
	status, err := g.approvals.Check(name)
	if err != nil || status == approval.StatusConsumed || status == approval.StatusExpired {
		g.approvals.Request(name, name, detail)
		d.Allowed = false
		d.Reason = fmt.Sprintf("capability %q requires approval: request filed, pending", name)
		return d
	}
	switch status {
	case approval.StatusApproved:
		// Time-boxed approvals stay valid for their whole window;
		// Check flips them to expired once the deadline passes. Only
		// one-time approvals are consumed on use.
		if a, err := g.approvals.Get(name); err == nil && a.ExpiresAt != nil {
			d.Reason = fmt.Sprintf("capability %q approved until %s", name, a.ExpiresAt.UTC().Format(time.RFC3339))
			return d
		}
		g.approvals.Consume(name)
		d.Reason = fmt.Sprintf("capability %q pre-approved, approval consumed", name)
		return d
	case approval.StatusDenied:
		d.Allowed = false
		d.Reason = fmt.Sprintf("capability %q approval was denied", name)
		return d
	default: // pending
		d.Allowed = false
		d.Reason = fmt.Sprintf("capability %q approval still pending", name)
		return d
	}
}

// PerformGuardedWrite routes a file mutation through the gate and the
// safety net. In AMNESIA the write is queued for replay instead of
// rejected; in DEAD every mutation is refused outright.
func (g *Guard) PerformGuardedWrite(path string, content []byte, description string) WriteOutcome {
	state := g.monitor.State()

	// The gate denies in DEAD through the dependency check, so this
	// refusal is recorded in the decision log like every other.
	e := g.gate.Enforce("file_write", fmt.Sprintf("write %s", path))
	if !e.Allowed {
		return WriteOutcome{Reason: e.Reason}
	}

	if state == health.StateAmnesia {
		payload, err := json.Marshal(queuedWrite{Path: path, Content: content, Description: description})
		if err != nil {
			return WriteOutcome{Reason: fmt.Sprintf("encode queued write: %v", err)}
		}
		if err := g.monitor.QueueWrite(payload); err != nil {
			return WriteOutcome{Reason: fmt.Sprintf("queue write: %v", err)}
		}
		return WriteOutcome{
			OK:     true,
			Queued: true,
			Reason: "memory backend down: write queued for replay on recovery",
		}
	}

	res := g.net.SafeWrite(path, content, description, e.Tier)
	return WriteOutcome{
		OK:         res.OK,
		CommitID:   res.CommitID,
		Verified:   res.Verified,
		RolledBack: res.RolledBack,
		Reason:     res.Reason,
	}
}

// replayWrite is the drain sink for queued writes. Rewriting the same
// content is idempotent, so redelivery after a crash is harmless.
func (g *Guard) replayWrite(it queue.Item) error {
	var w queuedWrite
	if err := json.Unmarshal(it.Payload, &w); err != nil {
		// A corrupt payload would wedge the queue forever; drop it
		// loudly instead.
		fmt.Fprintf(os.Stderr, "agentward: dropping corrupt queued write %d: %v\n", it.ID, err)
		return nil
	}
	res := g.net.SafeWrite(w.Path, w.Content, w.Description, g.gate.Tier())
	if !res.OK {
		return fmt.Errorf("replay write %s: %s", w.Path, res.Reason)
	}
	return nil
}

// replayInteraction hands a drained interaction to the registered
// handler.
func (g *Guard) replayInteraction(it queue.Item) error {
	if g.OnInteraction == nil {
		return nil
	}
	return g.OnInteraction(it.Payload)
}

// QueueInteraction parks an interaction while inference is down.
func (g *Guard) QueueInteraction(payload []byte) error {
	return g.monitor.QueueInteraction(payload)
}

// GetHealth returns the cached degradation state and the most recent
// transition.
func (g *Guard) GetHealth() (health.State, *health.Transition) {
	return g.monitor.Status()
}

// ListUndoWindow returns the rollback-eligible commits, newest first.
func (g *Guard) ListUndoWindow() ([]safetynet.Commit, error) {
	return g.net.UndoWindow()
}

// Rollback reverts the given commit in full.
func (g *Guard) Rollback(commitID string) safetynet.RollbackResult {
	return g.net.RollbackTo(commitID)
}

// Diff shows what changed since the given commit's snapshot.
func (g *Guard) Diff(commitID string) (safetynet.DiffOutput, error) {
	return g.net.Diff(commitID)
}

// UpdateTrust adjusts the trust score.
func (g *Guard) UpdateTrust(score float64, reason string) {
	g.gate.UpdateTrust(score, reason)
}

// Gate exposes the trust gate for status reporting.
func (g *Guard) Gate() *trust.Gate {
	return g.gate
}

// Monitor exposes the health monitor for status reporting.
func (g *Guard) Monitor() *health.Monitor {
	return g.monitor
}

// Approvals exposes the approval store for the CLI.
func (g *Guard) Approvals() *approval.Store {
	return g.approvals
}

// ApplyConfig applies a reloaded configuration to the running Guard:
// tier thresholds, undo window, and probe endpoints. The data
// directory is fixed at startup.
func (g *Guard) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.gate.SetThresholds(trust.Thresholds{
		Assistant: cfg.Trust.AssistantMin,
		Partner:   cfg.Trust.PartnerMin,
		Surrogate: cfg.Trust.SurrogateMin,
	})
	g.net.SetUndoWindow(cfg.Safety.UndoWindow.Std())
	g.monitor.SetProbes(health.Probes{
		Inference: probe.HTTP(cfg.Health.InferenceURL, http.DefaultClient),
		Memory:    probe.HTTP(cfg.Health.MemoryURL, http.DefaultClient),
		Disk:      probe.Disk(g.cfg.DataDir),
	})
	return nil
}
