// Package capability defines the static capability registry: for every
// capability the agent may request, which trust tiers are permitted to
// run it and under which safety constraints.
package capability

import (
	"fmt"
	"sort"
	"sync"
)

// Dependency names an external service a capability cannot run without.
type Dependency string

const (
	DepInference Dependency = "inference"
	DepMemory    Dependency = "memory"
	DepDisk      Dependency = "disk"
)

// Grant is the per-tier permission for one capability.
type Grant struct {
	Allowed bool
	// Constraints are human-readable obligations the caller must honor,
	// e.g. "preview diff before write". Order matters: they are shown
	// to the operator in registration order.
	Constraints []string
}

// Contract describes one capability across all four trust tiers.
// Contracts are immutable after registration; the registry hands out
// copies, never internal references.
type Contract struct {
	Name string
	// Grants is indexed by tier ordinal (0=observer .. 3=surrogate).
	Grants [4]Grant
	// Needs lists the dependencies this capability requires. The health
	// monitor's state profile disables capabilities whose dependency is
	// down regardless of tier.
	Needs []Dependency
}

// Registry is a static table of capability contracts. Registration
// happens at startup; lookups are concurrent-safe afterwards.
type Registry struct {
	mu        sync.RWMutex
	contracts map[string]Contract
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{contracts: make(map[string]Contract)}
}

// Register adds a contract. Re-registering an existing name is an
// error: contracts are immutable for the process lifetime.
func (r *Registry) Register(c Contract) error {
	if c.Name == "" {
		return fmt.Errorf("capability name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.contracts[c.Name]; exists {
		return fmt.Errorf("capability %q already registered", c.Name)
	}
	r.contracts[c.Name] = c
	return nil
}

// Lookup returns the contract for a capability name.
func (r *Registry) Lookup(name string) (Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[name]
	return c, ok
}

// Names returns all registered capability names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.contracts))
	for n := range r.contracts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
