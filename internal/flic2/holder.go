package flic2

import "sync"

// Holder owns the process-wide Manager. Keep one Holder in the program's
// composition root and pass the Manager it returns to whoever needs it.
type Holder struct {
	mu sync.Mutex
	m  *Manager
}

// Get returns the Manager, constructing it over t on the first call. Later
// calls ignore t and opts, apply the non-nil slots of h to the existing
// Manager and return it.
func (h *Holder) Get(t Transport, handlers Handlers, opts ...Option) *Manager {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m == nil {
		h.m = New(t, opts...)
	}
	h.m.Apply(handlers)
	return h.m
}
