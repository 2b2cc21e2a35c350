package outbound

import (
	"context"
	"errors"

	"github.com/uniedit/enhancer/internal/model"
)

// InferenceBindingPort executes a model synchronously. The return value is
// provider-shaped and must go through output normalization.
type InferenceBindingPort interface {
	Run(ctx context.Context, modelID string, payload map[string]any) (any, error)
}

// ProviderAdapterPort runs one enhancement attempt against a provider family.
type ProviderAdapterPort interface {
	// Kind returns the provider family served by the adapter.
	Kind() model.ProviderKind

	// Run executes the model and returns the normalized image.
	Run(ctx context.Context, m *model.ModelDescriptor, input *model.ProviderInput) (*model.ImageOutput, error)
}

// ProviderRegistryPort resolves adapters by provider family.
type ProviderRegistryPort interface {
	Get(kind model.ProviderKind) (ProviderAdapterPort, error)
}

// ModelCatalogPort looks up model descriptors by slug.
type ModelCatalogPort interface {
	Get(slug string) (*model.ModelDescriptor, bool)
	All() []*model.ModelDescriptor
}

// ErrObjectNotFound is returned by ObjectStorePort.Get for unknown keys.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorePort persists uploads and generated results.
type ObjectStorePort interface {
	// Put stores data under key.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get returns the stored bytes and their content type, or ErrObjectNotFound.
	Get(ctx context.Context, key string) ([]byte, string, error)
}
