package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/uniedit/enhancer/internal/model"
	"github.com/uniedit/enhancer/internal/port/outbound"
)

//go:embed models.yaml
var defaultCatalog []byte

type catalogFile struct {
	Models []*model.ModelDescriptor `yaml:"models"`
}

// Catalog is a read-only set of model descriptors keyed by slug.
type Catalog struct {
	models map[string]*model.ModelDescriptor
	order  []string
}

// Default returns the catalog shipped with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog at path, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{models: make(map[string]*model.ModelDescriptor, len(f.Models))}
	for i, m := range f.Models {
		if m == nil || m.Slug == "" {
			return nil, fmt.Errorf("catalog entry %d: slug is required", i)
		}
		if _, dup := c.models[m.Slug]; dup {
			return nil, fmt.Errorf("catalog entry %q: duplicate slug", m.Slug)
		}
		switch m.Provider {
		case model.ProviderKindInProcess, model.ProviderKindRemoteJob:
		default:
			return nil, fmt.Errorf("catalog entry %q: unknown provider %q", m.Slug, m.Provider)
		}
		if m.MaxScale == 0 && m.SupportsScale {
			m.MaxScale = 4
		}
		if m.Pricing.Base < 0 || m.Pricing.Scale4 < 0 || m.Pricing.FaceEnhance < 0 {
			return nil, fmt.Errorf("catalog entry %q: negative price", m.Slug)
		}
		c.models[m.Slug] = m
		c.order = append(c.order, m.Slug)
	}
	sort.Strings(c.order)
	return c, nil
}

// Get returns the descriptor for slug.
func (c *Catalog) Get(slug string) (*model.ModelDescriptor, bool) {
	m, ok := c.models[slug]
	return m, ok
}

// All returns every descriptor ordered by slug.
func (c *Catalog) All() []*model.ModelDescriptor {
	out := make([]*model.ModelDescriptor, 0, len(c.order))
	for _, slug := range c.order {
		out = append(out, c.models[slug])
	}
	return out
}

var _ outbound.ModelCatalogPort = (*Catalog)(nil)
