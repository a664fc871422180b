package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placement-optimizer/internal/model"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "defaults:\n  min_credit: 2\n")

	c, err := Load(path)
	require.NoError(t, err)
	require.Len(t, c.Layers, 3)
	assert.Equal(t, 30*time.Second, c.SolverOptions().Timeout)
	assert.Equal(t, 100, c.Frontier.Points)
	assert.True(t, c.DegeneracyGuard())

	req := c.Defaults.Request()
	assert.Equal(t, 3.0, req.PremiumWeight)
	assert.Equal(t, 3.0, req.CoverageWeight)
	assert.Equal(t, 2, req.MinCredit)

	cat, err := c.LoadCatalog()
	require.NoError(t, err)
	assert.Equal(t, 30, cat.Len())
}

func TestLoad_ResolvesCatalogRelativeToConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "quotes.json", `{"quotes": [
		{"carrier": "A", "layer": "L1", "premium": 10, "capacity": 6, "coverage_score": 0.8, "credit_rating_value": 3}
	]}`)
	path := writeFile(t, dir, "config.yaml", `
catalog_file: quotes.json
layers:
  - name: L1
    required_capacity: 5
solver:
  timeout_seconds: 2.5
  degeneracy_guard: false
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "quotes.json"), c.CatalogFile)
	assert.Equal(t, 2500*time.Millisecond, c.SolverOptions().Timeout)
	assert.False(t, c.DegeneracyGuard())

	cat, err := c.LoadCatalog()
	require.NoError(t, err)
	assert.Equal(t, []model.Layer{{Name: "L1", RequiredCapacity: 5}}, cat.Layers())
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"duplicate layer", "layers:\n  - {name: L1, required_capacity: 1}\n  - {name: L1, required_capacity: 2}\n"},
		{"zero capacity", "layers:\n  - {name: L1, required_capacity: 0}\n"},
		{"negative nodes", "solver:\n  max_nodes: -1\n"},
		{"bad weight mode", "defaults:\n  weight_mode: squared\n"},
		{"bad yaml", "layers: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tt.body)
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestMergeDefaults(t *testing.T) {
	base := RequestDefaults{PremiumWeight: 3, CoverageWeight: 3, MinCredit: 2, DiversificationFactor: model.Float(0.5)}
	out := MergeDefaults(base, RequestDefaults{CoverageWeight: 7, Diversify: true, MaxCapacityPerPair: model.Float(4)})

	assert.Equal(t, 3.0, out.PremiumWeight)
	assert.Equal(t, 7.0, out.CoverageWeight)
	assert.Equal(t, 2, out.MinCredit)
	assert.True(t, out.Diversify)
	require.NotNil(t, out.MaxCapacityPerPair)
	assert.Equal(t, 4.0, *out.MaxCapacityPerPair)
	assert.Equal(t, 0.5, *out.DiversificationFactor)
}
