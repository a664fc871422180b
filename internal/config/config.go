package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"placement-optimizer/internal/data"
	"placement-optimizer/internal/model"
	"placement-optimizer/internal/solver"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: JSON quote file (see data.CatalogFile). Empty means the
	// built-in sample market.
	CatalogFile string          `yaml:"catalog_file"`
	Layers      []LayerConfig   `yaml:"layers"`
	Solver      SolverConfig    `yaml:"solver"`
	Frontier    FrontierConfig  `yaml:"frontier"`
	Defaults    RequestDefaults `yaml:"defaults"`
}

type LayerConfig struct {
	Name             string  `yaml:"name"`
	RequiredCapacity float64 `yaml:"required_capacity"`
}

type SolverConfig struct {
	TimeoutSeconds float64 `yaml:"timeout_seconds"`
	MaxNodes       int     `yaml:"max_nodes"`
	Tolerance      float64 `yaml:"tolerance"`
	// DegeneracyGuard defaults to on; set false to skip the per-layer
	// "at least one quote" indicators.
	DegeneracyGuard *bool `yaml:"degeneracy_guard"`
}

type FrontierConfig struct {
	Points  int `yaml:"points"`
	Workers int `yaml:"workers"`
}

// RequestDefaults are applied to requests that leave a field unset.
type RequestDefaults struct {
	PremiumWeight         float64  `yaml:"premium_weight"`
	CoverageWeight        float64  `yaml:"coverage_weight"`
	WeightMode            string   `yaml:"weight_mode"`
	MinCredit             int      `yaml:"min_credit"`
	RequiredCarriers      []string `yaml:"required_carriers"`
	Diversify             bool     `yaml:"diversify"`
	MaxCapacityPerPair    *float64 `yaml:"max_capacity_per_pair"`
	MinCapacityPerPair    *float64 `yaml:"min_capacity_per_pair"`
	DiversificationFactor *float64 `yaml:"diversification_factor"`
}

const (
	defaultTimeoutSeconds = 30
	defaultFrontierPoints = 100
	defaultWeight         = 3
)

// Default is the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads config, but does not apply defaults or validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	if c.CatalogFile != "" && !filepath.IsAbs(c.CatalogFile) {
		// Prefer paths relative to the config file, falling back to cwd.
		cand := filepath.Join(filepath.Dir(path), c.CatalogFile)
		if _, err := os.Stat(cand); err == nil {
			c.CatalogFile = cand
		}
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if len(c.Layers) == 0 {
		for _, l := range data.SampleLayers() {
			c.Layers = append(c.Layers, LayerConfig{Name: l.Name, RequiredCapacity: l.RequiredCapacity})
		}
	}
	if c.Solver.TimeoutSeconds == 0 {
		c.Solver.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Frontier.Points == 0 {
		c.Frontier.Points = defaultFrontierPoints
	}
	if c.Defaults.PremiumWeight == 0 && c.Defaults.CoverageWeight == 0 {
		c.Defaults.PremiumWeight = defaultWeight
		c.Defaults.CoverageWeight = defaultWeight
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	seen := map[string]bool{}
	for i, l := range c.Layers {
		if l.Name == "" {
			return fmt.Errorf("layers[%d].name is required", i)
		}
		if seen[l.Name] {
			return fmt.Errorf("layer %q listed twice", l.Name)
		}
		seen[l.Name] = true
		if l.RequiredCapacity <= 0 {
			return fmt.Errorf("layer %q: required_capacity must be > 0", l.Name)
		}
	}
	if c.Solver.TimeoutSeconds < 0 {
		return errors.New("solver.timeout_seconds must be >= 0")
	}
	if c.Solver.MaxNodes < 0 {
		return errors.New("solver.max_nodes must be >= 0")
	}
	if c.Frontier.Points < 0 || c.Frontier.Workers < 0 {
		return errors.New("frontier.points and frontier.workers must be >= 0")
	}
	if err := c.Defaults.Request().Validate(); err != nil {
		return fmt.Errorf("defaults invalid: %w", err)
	}
	return nil
}

func (c *Config) ModelLayers() []model.Layer {
	out := make([]model.Layer, 0, len(c.Layers))
	for _, l := range c.Layers {
		out = append(out, model.Layer{Name: l.Name, RequiredCapacity: l.RequiredCapacity})
	}
	return out
}

// LoadCatalog reads CatalogFile against the configured layers, or returns the
// sample market when no file is set.
func (c *Config) LoadCatalog() (*model.Catalog, error) {
	if c.CatalogFile == "" {
		return data.SampleCatalog()
	}
	return data.LoadCatalogJSON(c.CatalogFile, c.ModelLayers())
}

func (c *Config) SolverOptions() solver.Options {
	return solver.Options{
		Timeout:   time.Duration(c.Solver.TimeoutSeconds * float64(time.Second)),
		MaxNodes:  c.Solver.MaxNodes,
		Tolerance: c.Solver.Tolerance,
	}
}

func (c *Config) DegeneracyGuard() bool {
	return c.Solver.DegeneracyGuard == nil || *c.Solver.DegeneracyGuard
}

func (d RequestDefaults) Request() model.AllocationRequest {
	return model.AllocationRequest{
		PremiumWeight:         d.PremiumWeight,
		CoverageWeight:        d.CoverageWeight,
		WeightMode:            model.WeightMode(d.WeightMode),
		RequiredCarriers:      d.RequiredCarriers,
		MinCredit:             d.MinCredit,
		Diversify:             d.Diversify,
		MaxCapacityPerPair:    d.MaxCapacityPerPair,
		MinCapacityPerPair:    d.MinCapacityPerPair,
		DiversificationFactor: d.DiversificationFactor,
	}
}

// MergeDefaults overlays non-zero fields from override onto base.
// This is used to apply request fields on top of the configured defaults.
func MergeDefaults(base, override RequestDefaults) RequestDefaults {
	out := base
	if override.PremiumWeight != 0 {
		out.PremiumWeight = override.PremiumWeight
	}
	if override.CoverageWeight != 0 {
		out.CoverageWeight = override.CoverageWeight
	}
	if override.WeightMode != "" {
		out.WeightMode = override.WeightMode
	}
	if override.MinCredit != 0 {
		out.MinCredit = override.MinCredit
	}
	if len(override.RequiredCarriers) > 0 {
		out.RequiredCarriers = override.RequiredCarriers
	}
	if override.Diversify {
		out.Diversify = true
	}
	if override.MaxCapacityPerPair != nil {
		out.MaxCapacityPerPair = override.MaxCapacityPerPair
	}
	if override.MinCapacityPerPair != nil {
		out.MinCapacityPerPair = override.MinCapacityPerPair
	}
	if override.DiversificationFactor != nil {
		out.DiversificationFactor = override.DiversificationFactor
	}
	return out
}
