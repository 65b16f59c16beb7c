package adapter

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrRegistryNil indicates registration was attempted on a nil registry.
	ErrRegistryNil = errors.New("adapter registry is nil")
	// ErrAdapterRequired indicates a nil adapter was provided for registration.
	ErrAdapterRequired = errors.New("adapter is required")
	// ErrAdapterIDRequired indicates an adapter reported a blank id.
	ErrAdapterIDRequired = errors.New("adapter id is required")
	// ErrAdapterAlreadyRegistered indicates two adapters share an id.
	ErrAdapterAlreadyRegistered = errors.New("adapter already registered")
)

// Registry holds adapters in registration order.
type Registry struct {
	mu       sync.RWMutex
	adapters []Adapter
}

// NewRegistry creates a registry with the given adapters.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	registry := &Registry{}
	for _, a := range adapters {
		if err := registry.Register(a); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register appends an adapter.
func (r *Registry) Register(a Adapter) error {
	if r == nil {
		return ErrRegistryNil
	}
	if a == nil {
		return ErrAdapterRequired
	}
	id := strings.TrimSpace(a.ID())
	if id == "" {
		return ErrAdapterIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.adapters {
		if existing.ID() == id {
			return fmt.Errorf("%w: %s", ErrAdapterAlreadyRegistered, id)
		}
	}
	r.adapters = append(r.adapters, a)
	return nil
}

// Active returns the first adapter active for systemID, or nil.
func (r *Registry) Active(systemID string) Adapter {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.adapters {
		if a.IsActive(systemID) {
			return a
		}
	}
	return nil
}

// All returns the registered adapters in registration order.
func (r *Registry) All() []Adapter {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Adapter(nil), r.adapters...)
}
