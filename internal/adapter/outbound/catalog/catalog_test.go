package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/enhancer/internal/model"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	m, ok := c.Get("real-esrgan")
	require.True(t, ok)
	assert.Equal(t, model.ProviderKindRemoteJob, m.Provider)
	assert.Equal(t, "nightmareai/real-esrgan", m.Identifier())
	assert.True(t, m.SupportsScale)
	assert.Equal(t, 4, m.MaxScale)
	assert.Equal(t, 1.0, m.Pricing.Base)

	sd, ok := c.Get("sd-img2img")
	require.True(t, ok)
	assert.Equal(t, model.ProviderKindInProcess, sd.Provider)
	assert.True(t, sd.SupportsPrompt)
	assert.Equal(t, 20, sd.DefaultParams["num_steps"])

	slugs := make([]string, 0)
	for _, m := range c.All() {
		slugs = append(slugs, m.Slug)
	}
	assert.Equal(t, []string{"codeformer", "gfpgan", "real-esrgan", "sd-img2img"}, slugs)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing slug", "models:\n  - provider: in-process\n"},
		{"duplicate slug", "models:\n  - slug: a\n    provider: in-process\n  - slug: a\n    provider: in-process\n"},
		{"unknown provider", "models:\n  - slug: a\n    provider: grpc\n"},
		{"negative price", "models:\n  - slug: a\n    provider: in-process\n    pricing:\n      base: -1\n"},
		{"bad yaml", "models: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models:\n  - slug: x4\n    provider: in-process\n    supports_scale: true\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	m, ok := c.Get("x4")
	require.True(t, ok)
	assert.Equal(t, 4, m.MaxScale)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
