package session

import "sync"

// Registry maps interaction IDs (typically a browser session cookie) to
// their managers. It is the only shared session structure in the process;
// the managers themselves are single-user.
type Registry struct {
	mu       sync.Mutex
	managers map[string]*Manager
	factory  func() *Manager
}

// NewRegistry creates a registry that uses factory to build a manager for
// each new interaction.
func NewRegistry(factory func() *Manager) *Registry {
	return &Registry{
		managers: map[string]*Manager{},
		factory:  factory,
	}
}

// Manager returns the manager for the given interaction, creating one on
// first use.
func (r *Registry) Manager(id string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.managers[id]
	if !ok {
		m = r.factory()
		r.managers[id] = m
	}
	return m
}

// Remove drops the manager for an interaction, destroying its session state.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.managers, id)
}

// Len reports the number of tracked interactions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}
