package board

import "sync"

// Registry hands out one Store per organization. Warm serverless
// invocations share the process, so sessions survive between requests.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]*Store)}
}

// Get returns the organization's store, or nil when none was loaded yet
func (r *Registry) Get(orgID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stores[orgID]
}

// GetOrCreate returns the organization's store, creating an empty one on
// first use
func (r *Registry) GetOrCreate(orgID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	store, ok := r.stores[orgID]
	if !ok {
		store = NewStore(orgID)
		r.stores[orgID] = store
	}
	return store
}

// Drop removes an organization's store
func (r *Registry) Drop(orgID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, orgID)
}
