package health

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/agentward/agentward/internal/audit"
	"github.com/agentward/agentward/internal/queue"
)

// Prober checks one dependency. A nil error means reachable. The
// monitor enforces the timeout through the context; a probe that does
// not return in time counts as a failure for that cycle.
type Prober func(ctx context.Context) error

// Probes bundles the three dependency checks.
type Probes struct {
	Inference Prober
	Memory    Prober
	Disk      Prober
}

// Config holds monitor tuning.
type Config struct {
	Interval         time.Duration // probe cycle interval, default 30s
	Timeout          time.Duration // per-probe timeout, default 5s
	FailureThreshold int           // consecutive failures before "down", default 3
	MaxTransitions   int           // retained transition history, default 32
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.MaxTransitions <= 0 {
		c.MaxTransitions = 32
	}
}

// Monitor probes the dependencies on a fixed cycle, derives the
// degradation state, queues work while degraded, and drains each queue
// exactly once when its required dependency is healthy again.
type Monitor struct {
	cfg    Config
	probes Probes

	mu          sync.Mutex
	state       State
	infFails    int
	memFails    int
	diskFails   int
	transitions []Transition
	lastCycle   time.Time
	now         func() time.Time

	// Queues are owned exclusively by the monitor; callers enqueue
	// through QueueWrite/QueueInteraction and receive drained items
	// through the sinks.
	writes          *queue.Queue
	interactions    *queue.Queue
	writeSink       func(queue.Item) error
	interactionSink func(queue.Item) error

	log *audit.Log
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithQueues attaches the durable write and interaction queues.
func WithQueues(writes, interactions *queue.Queue) MonitorOption {
	return func(m *Monitor) {
		m.writes = writes
		m.interactions = interactions
	}
}

// WithWriteSink sets the callback that receives drained writes. The
// sink must be idempotent: after a crash mid-drain, undelivered items
// are redelivered on the next recovery.
func WithWriteSink(sink func(queue.Item) error) MonitorOption {
	return func(m *Monitor) { m.writeSink = sink }
}

// WithInteractionSink sets the callback that receives drained
// interactions.
func WithInteractionSink(sink func(queue.Item) error) MonitorOption {
	return func(m *Monitor) { m.interactionSink = sink }
}

// WithTransitionLog attaches the append-only transition log.
func WithTransitionLog(l *audit.Log) MonitorOption {
	return func(m *Monitor) { m.log = l }
}

// WithMonitorClock injects a time source.
func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates a monitor in the FULL state.
func NewMonitor(cfg Config, probes Probes, opts ...MonitorOption) *Monitor {
	cfg.applyDefaults()
	m := &Monitor{
		cfg:    cfg,
		probes: probes,
		state:  StateFull,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run drives the probe cycle until ctx is cancelled. One cycle runs
// immediately so the process does not sit on a stale FULL assumption
// for a whole interval after startup.
func (m *Monitor) Run(ctx context.Context) error {
	m.cycle(ctx)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.cycle(ctx)
		}
	}
}

// Status returns the cached state and the most recent transition.
// It never probes: between cycles callers see the last computed state.
func (m *Monitor) Status() (State, *Transition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.transitions) == 0 {
		return m.state, nil
	}
	last := m.transitions[len(m.transitions)-1]
	return m.state, &last
}

// State returns the cached degradation state.
func (m *Monitor) State() State {
	s, _ := m.Status()
	return s
}

// Check runs a probe cycle if the probe interval has elapsed since the
// last one, otherwise returns the cached state. Used by callers that
// run without the Run loop.
func (m *Monitor) Check(ctx context.Context) State {
	m.mu.Lock()
	stale := m.lastCycle.IsZero() || m.now().Sub(m.lastCycle) >= m.cfg.Interval
	m.mu.Unlock()

	if stale {
		m.cycle(ctx)
	}
	return m.State()
}

// CheckNow runs a probe cycle unconditionally and returns the
// resulting state.
func (m *Monitor) CheckNow(ctx context.Context) State {
	m.cycle(ctx)
	return m.State()
}

// Transitions returns a copy of the retained transition history,
// oldest first.
func (m *Monitor) Transitions() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, len(m.transitions))
	copy(out, m.transitions)
	return out
}

// SetProbes replaces the dependency probes (hot reload of endpoints).
func (m *Monitor) SetProbes(p Probes) {
	m.mu.Lock()
	m.probes = p
	m.mu.Unlock()
}

// QueueWrite parks a write payload while the system is degraded. In
// the DEAD state nothing is queued: there is nowhere safe to persist.
func (m *Monitor) QueueWrite(payload []byte) error {
	if m.State() == StateDead {
		return fmt.Errorf("health: dead state, refusing to queue write")
	}
	if m.writes == nil {
		return fmt.Errorf("health: no write queue attached")
	}
	return m.writes.Enqueue(payload)
}

// QueueInteraction parks an interaction payload while inference is
// down.
func (m *Monitor) QueueInteraction(payload []byte) error {
	if m.State() == StateDead {
		return fmt.Errorf("health: dead state, refusing to queue interaction")
	}
	if m.interactions == nil {
		return fmt.Errorf("health: no interaction queue attached")
	}
	return m.interactions.Enqueue(payload)
}

// cycle probes all three dependencies, recomputes the state from
// scratch, and handles the transition if it changed.
func (m *Monitor) cycle(ctx context.Context) {
	m.mu.Lock()
	probes := m.probes
	timeout := m.cfg.Timeout
	m.mu.Unlock()

	// Probes run concurrently, each under its own timeout, off every
	// caller's critical path: no lock is held while probing, so a
	// stuck probe cannot block gate or safety-net calls.
	var wg sync.WaitGroup
	var infErr, memErr, diskErr error
	runProbe := func(p Prober, dst *error) {
		defer wg.Done()
		if p == nil {
			*dst = nil
			return
		}
		pctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- p(pctx) }()
		select {
		case err := <-done:
			*dst = err
		case <-pctx.Done():
			*dst = fmt.Errorf("probe timed out after %s", timeout)
		}
	}
	wg.Add(3)
	go runProbe(probes.Inference, &infErr)
	go runProbe(probes.Memory, &memErr)
	go runProbe(probes.Disk, &diskErr)
	wg.Wait()

	m.mu.Lock()
	m.lastCycle = m.now()
	m.infFails = bump(m.infFails, infErr)
	m.memFails = bump(m.memFails, memErr)
	m.diskFails = bump(m.diskFails, diskErr)

	th := m.cfg.FailureThreshold
	next := NextState(m.infFails < th, m.memFails < th, m.diskFails < th)
	prev := m.state
	changed := next != prev
	if changed {
		m.state = next
		tr := Transition{From: prev, To: next, Cause: causeFor(next), At: m.now().UTC()}
		m.transitions = append(m.transitions, tr)
		if len(m.transitions) > m.cfg.MaxTransitions {
			m.transitions = m.transitions[len(m.transitions)-m.cfg.MaxTransitions:]
		}
	}
	m.mu.Unlock()

	if changed {
		if m.log != nil {
			m.log.Record(audit.Entry{
				Type:      audit.TypeTransition,
				FromState: prev.String(),
				ToState:   next.String(),
				Cause:     causeFor(next),
			})
		}
		if next == StateDead {
			fmt.Fprintf(os.Stderr, "CRITICAL: local storage unwritable, all mutating operations refused (was %s)\n", prev)
		}
	}

	// Drains follow the computed state, not the transition edge: work
	// queued before a restart replays on the first cycle whose state
	// permits it, even though the restarted monitor boots in FULL and
	// never observes a recovery transition. The queues delete delivered
	// items transactionally and the sinks are idempotent, so repeated
	// drains cannot duplicate or drop work. Writes need every
	// dependency; interactions only need inference, which is back by
	// AMNESIA.
	if next == StateFull && m.writes != nil && m.writeSink != nil {
		if _, err := m.writes.Drain(m.writeSink); err != nil {
			fmt.Fprintf(os.Stderr, "health: write drain interrupted: %v\n", err)
		}
	}
	if next <= StateAmnesia && m.interactions != nil && m.interactionSink != nil {
		if _, err := m.interactions.Drain(m.interactionSink); err != nil {
			fmt.Fprintf(os.Stderr, "health: interaction drain interrupted: %v\n", err)
		}
	}
}

// bump implements consecutive-failure counting: any success resets to
// zero, no fractional credit.
func bump(count int, err error) int {
	if err != nil {
		return count + 1
	}
	return 0
}

func causeFor(s State) string {
	switch s {
	case StateFull:
		return "all services recovered"
	case StateAmnesia:
		return "memory unreachable"
	case StateOffline:
		return "inference unreachable"
	case StateDead:
		return "local storage unwritable"
	default:
		return "unknown"
	}
}
