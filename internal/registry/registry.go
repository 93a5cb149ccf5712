// Package registry holds the process-wide mapping from project ID to the
// handle of its managed OS process. It is the sole source of truth for
// "is this project currently running, from this supervisor's perspective";
// callers must still re-verify liveness via Handle.Alive before acting.
package registry

import (
	"errors"
	"sync"
)

// ErrAlreadyRunning is returned by Register when a live entry exists.
var ErrAlreadyRunning = errors.New("project is already running")

type Registry struct {
	mu      sync.Mutex
	entries map[string]*Handle
}

func New() *Registry {
	return &Registry{entries: make(map[string]*Handle)}
}

// Register inserts h. It fails with ErrAlreadyRunning when an entry for the
// same project exists and its process is still alive; a stale entry (child
// exited without the supervisor noticing) is silently replaced. The check
// and the insert form one critical section so concurrent starts cannot both
// register.
func (r *Registry) Register(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.entries[h.ProjectID]; ok && cur.Alive() {
		return ErrAlreadyRunning
	}
	r.entries[h.ProjectID] = h
	return nil
}

// Lookup returns the current entry for projectID, if any.
func (r *Registry) Lookup(projectID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.entries[projectID]
	return h, ok
}

// Remove deletes and returns the entry for projectID. Removing first and
// signaling after keeps concurrent stops from double-acting on one handle.
func (r *Registry) Remove(projectID string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.entries[projectID]
	if ok {
		delete(r.entries, projectID)
	}
	return h, ok
}

// Snapshot returns the current entries. The map is a copy; the handles are
// shared.
func (r *Registry) Snapshot() map[string]*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*Handle, len(r.entries))
	for id, h := range r.entries {
		out[id] = h
	}
	return out
}

// Len returns the number of registered entries, live or stale.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
