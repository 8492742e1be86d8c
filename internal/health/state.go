// Package health tracks the availability of the system's three
// dependencies — the inference backend, the vector-memory backend, and
// local storage — and derives a single degradation state that the gate
// consults before permitting any capability.
package health

import (
	"fmt"
	"time"

	"github.com/agentward/agentward/internal/capability"
)

// State is the system degradation state. Higher ordinal = worse.
type State int

const (
	StateFull    State = iota // all dependencies healthy
	StateAmnesia              // memory unreachable; inference and disk fine
	StateOffline              // inference unreachable (memory state irrelevant)
	StateDead                 // local storage unwritable; overrides all else
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateFull:
		return "full"
	case StateAmnesia:
		return "amnesia"
	case StateOffline:
		return "offline"
	case StateDead:
		return "dead"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// WorseThan reports whether s is more degraded than other.
func (s State) WorseThan(other State) bool {
	return s > other
}

// Disables reports whether the given dependency is unusable in this
// state. The per-state profile is fixed: AMNESIA loses memory, OFFLINE
// loses inference, DEAD loses everything including disk.
func (s State) Disables(dep capability.Dependency) bool {
	switch s {
	case StateFull:
		return false
	case StateAmnesia:
		return dep == capability.DepMemory
	case StateOffline:
		return dep == capability.DepInference
	case StateDead:
		return true
	default:
		return true
	}
}

// NextState recomputes the state from the three boolean health checks.
// Precedence is absolute and independent of history: disk outranks
// inference outranks memory.
func NextState(inferenceOK, memoryOK, diskOK bool) State {
	switch {
	case !diskOK:
		return StateDead
	case !inferenceOK:
		return StateOffline
	case !memoryOK:
		return StateAmnesia
	default:
		return StateFull
	}
}

// Transition records one state change observed by the monitor.
type Transition struct {
	From  State     `json:"from"`
	To    State     `json:"to"`
	Cause string    `json:"cause"`
	At    time.Time `json:"at"`
}
