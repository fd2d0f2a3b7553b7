package timeline

import "sync"

// Listener is told about loads (with the new Root) and unloads (with nil).
type Listener func(root *Root)

// ListenerID identifies a registration so it can be removed later.
type ListenerID uint64

type registration struct {
	id ListenerID
	fn Listener
}

// Registry keeps load/unload listeners in registration order. It belongs
// to the application context and is passed to Load and Unload. Adding the
// same function twice registers it twice.
type Registry struct {
	mu        sync.Mutex
	nextID    ListenerID
	listeners []registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers l and returns its id.
func (r *Registry) Add(l Listener) ListenerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.listeners = append(r.listeners, registration{id: r.nextID, fn: l})
	return r.nextID
}

// Remove unregisters id. It reports whether the id was registered.
func (r *Registry) Remove(id ListenerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, reg := range r.listeners {
		if reg.id == id {
			r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Notify calls every listener in order with root. The list is copied
// first so a listener may add or remove registrations. Load and Unload
// call it; owners that build or free a Root under their own lock call it
// once the lock is released. A nil Registry notifies nobody.
func (r *Registry) Notify(root *Root) {
	if r == nil {
		return
	}
	r.mu.Lock()
	snapshot := make([]registration, len(r.listeners))
	copy(snapshot, r.listeners)
	r.mu.Unlock()

	for _, reg := range snapshot {
		reg.fn(root)
	}
}
