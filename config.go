package brickyard

import (
	"errors"
	"fmt"
	"os"

	"github.com/gekko3d/brickyard/brickrt/lattice"
	"github.com/gekko3d/brickyard/brickrt/placement"
	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable Load falls back to.
const ConfigEnv = "BRICKYARD_CONFIG"

type Config struct {
	Lattice   LatticeConfig   `yaml:"lattice"`
	Placement PlacementConfig `yaml:"placement"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type LatticeConfig struct {
	UnitSize      float64 `yaml:"unit_size"`
	UnitHeight    float64 `yaml:"unit_height"`
	BaseplateSize int     `yaml:"baseplate_size"`
	SurfaceY      float64 `yaml:"surface_y"`
}

type PlacementConfig struct {
	MaxStackLayers int  `yaml:"max_stack_layers"`
	Strict         bool `yaml:"strict"`
}

type LoggingConfig struct {
	Prefix string `yaml:"prefix"`
	Debug  bool   `yaml:"debug"`
}

type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables the endpoint.
	Addr string `yaml:"addr"`
}

func DefaultConfig() Config {
	g := lattice.DefaultGeometry()
	return Config{
		Lattice: LatticeConfig{
			UnitSize:      g.UnitSize,
			UnitHeight:    g.UnitHeight,
			BaseplateSize: g.BaseplateSize,
			SurfaceY:      g.SurfaceY,
		},
		Placement: PlacementConfig{MaxStackLayers: placement.DefaultMaxStackLayers},
		Logging:   LoggingConfig{Prefix: "brickyard"},
	}
}

// Load reads a YAML config. An empty path falls back to $BRICKYARD_CONFIG,
// and when that is unset too the defaults are returned. Fields left at zero
// take their default value.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(ConfigEnv)
		if path == "" {
			return DefaultConfig(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.Lattice.UnitSize == 0 {
		c.Lattice.UnitSize = d.Lattice.UnitSize
	}
	if c.Lattice.UnitHeight == 0 {
		c.Lattice.UnitHeight = d.Lattice.UnitHeight
	}
	if c.Lattice.BaseplateSize == 0 {
		c.Lattice.BaseplateSize = d.Lattice.BaseplateSize
	}
	if c.Placement.MaxStackLayers == 0 {
		c.Placement.MaxStackLayers = d.Placement.MaxStackLayers
	}
	if c.Logging.Prefix == "" {
		c.Logging.Prefix = d.Logging.Prefix
	}
}

func (c Config) Validate() error {
	if err := c.Geometry().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Placement.MaxStackLayers <= 0 {
		return errors.New("config: placement.max_stack_layers must be positive")
	}
	return nil
}

func (c Config) Geometry() lattice.Geometry {
	return lattice.Geometry{
		UnitSize:      c.Lattice.UnitSize,
		UnitHeight:    c.Lattice.UnitHeight,
		BaseplateSize: c.Lattice.BaseplateSize,
		SurfaceY:      c.Lattice.SurfaceY,
	}
}

func (c Config) Resolver() (placement.Resolver, error) {
	return placement.NewResolver(c.Geometry(), c.Placement.MaxStackLayers)
}
