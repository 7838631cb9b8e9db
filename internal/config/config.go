package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable that overrides DefaultPath.
const (
	EnvPath     = "ECSWORLD_CONFIG"
	DefaultPath = "config/world.toml"
)

type Config struct {
	World     WorldConfig     `toml:"world"`
	Loop      LoopConfig      `toml:"loop"`
	Logging   LoggingConfig   `toml:"logging"`
	Scripting ScriptingConfig `toml:"scripting"`
	Schema    SchemaConfig    `toml:"schema"`
	Demo      DemoConfig      `toml:"demo"`
}

type WorldConfig struct {
	MaxEntities       int `toml:"max_entities"`
	ComponentCapacity int `toml:"component_capacity"` // 0 = max_entities
}

type LoopConfig struct {
	TickRate time.Duration `toml:"tick_rate"`
	MaxTicks int           `toml:"max_ticks"` // 0 = run until interrupted
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type ScriptingConfig struct {
	Enabled    bool   `toml:"enabled"`
	ScriptsDir string `toml:"scripts_dir"`
}

type SchemaConfig struct {
	Path string `toml:"path"` // YAML component declarations
}

type DemoConfig struct {
	EntityCount int `toml:"entity_count"`
	Materials   int `toml:"materials"`
	// StaticEvery marks every Nth demo entity Static; 0 disables.
	StaticEvery int     `toml:"static_every"`
	Lifetime    float64 `toml:"lifetime_seconds"`
}

// Path returns the config path from the environment, or DefaultPath.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config { return defaults() }

func (c *Config) validate() error {
	if c.World.MaxEntities <= 0 {
		return fmt.Errorf("world.max_entities must be positive, got %d", c.World.MaxEntities)
	}
	if c.World.ComponentCapacity < 0 {
		return fmt.Errorf("world.component_capacity must not be negative, got %d", c.World.ComponentCapacity)
	}
	if c.Loop.TickRate <= 0 {
		return fmt.Errorf("loop.tick_rate must be positive, got %s", c.Loop.TickRate)
	}
	if c.Demo.EntityCount > c.World.MaxEntities {
		return fmt.Errorf("demo.entity_count %d exceeds world.max_entities %d", c.Demo.EntityCount, c.World.MaxEntities)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		World: WorldConfig{
			MaxEntities: 500000,
		},
		Loop: LoopConfig{
			TickRate: 50 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Scripting: ScriptingConfig{
			Enabled:    true,
			ScriptsDir: "scripts",
		},
		Schema: SchemaConfig{
			Path: "data/schema/components.yaml",
		},
		Demo: DemoConfig{
			EntityCount: 1000,
			Materials:   4,
			StaticEvery: 10,
			Lifetime:    5,
		},
	}
}
