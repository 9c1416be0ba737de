// Package presence tracks which users currently hold a live connection.
//
// The registry is an explicitly owned component injected into the services
// that consult it, never a package-level singleton: tests reset their own
// instance, and the interface surface is small enough to shard behind a
// shared store later without touching callers.
package presence

import "sync"

// Registry maps user IDs to their open connection IDs. A user is online
// while at least one connection is registered. All methods are safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[string]struct{})}
}

// Connect records a connection for userID. Registering the same connID
// twice is a no-op.
func (r *Registry) Connect(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		r.conns[userID] = set
	}
	set[connID] = struct{}{}
}

// Disconnect drops a connection for userID. The user goes offline when the
// last connection is dropped.
func (r *Registry) Disconnect(userID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.conns[userID]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.conns, userID)
	}
}

// IsOnline reports whether userID has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// Online returns the IDs of all currently connected users.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}

// Reset drops all tracked connections.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns = make(map[string]map[string]struct{})
}
