package enhanceprovider

import (
	"fmt"
	"sync"

	"github.com/uniedit/enhancer/internal/model"
	"github.com/uniedit/enhancer/internal/port/outbound"
)

// Registry manages provider adapters by provider family.
type Registry struct {
	mu       sync.RWMutex
	adapters map[model.ProviderKind]outbound.ProviderAdapterPort
}

// NewRegistry creates a registry holding adapters.
func NewRegistry(adapters ...outbound.ProviderAdapterPort) *Registry {
	r := &Registry{
		adapters: make(map[model.ProviderKind]outbound.ProviderAdapterPort),
	}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register registers an adapter, replacing any adapter of the same kind.
func (r *Registry) Register(adapter outbound.ProviderAdapterPort) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Kind()] = adapter
}

// Get returns the adapter for kind.
func (r *Registry) Get(kind model.ProviderKind) (outbound.ProviderAdapterPort, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for provider %s", ErrBindingNotConfigured, kind)
	}
	return a, nil
}

var _ outbound.ProviderRegistryPort = (*Registry)(nil)
