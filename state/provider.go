// state/provider.go
package state

import (
	"sync"
)

// Provider hands out one live machine per session. The registry is the
// only owner of machine lifetimes: created on first access, discarded on
// Release when the session ends.
type Provider struct {
	graph     *TransitionGraph
	behaviors map[Phase]Behavior
	machines  map[string]*Machine
	mutex     sync.Mutex
}

func NewProvider(graph *TransitionGraph, behaviors map[Phase]Behavior) *Provider {
	return &Provider{
		graph:     graph,
		behaviors: behaviors,
		machines:  make(map[string]*Machine),
	}
}

// GetOrCreate returns the session's machine, creating one bound to
// NotStarted on first access. Concurrent calls for the same session id
// observe the same instance.
func (p *Provider) GetOrCreate(sessionID string) *Machine {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if m, exists := p.machines[sessionID]; exists {
		return m
	}
	m := NewMachine(sessionID, p.graph, p.behaviors)
	p.machines[sessionID] = m
	return m
}

// Get returns the machine without creating one.
func (p *Provider) Get(sessionID string) (*Machine, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	m, exists := p.machines[sessionID]
	return m, exists
}

// Release discards a session's machine.
func (p *Provider) Release(sessionID string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	delete(p.machines, sessionID)
}

// Count reports live machines, for monitoring.
func (p *Provider) Count() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.machines)
}
