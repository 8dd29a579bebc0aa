package types

import (
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// MaxMemoryPages is the largest number of 64KiB pages a 32-bit linear memory can hold.
const MaxMemoryPages = 65536

const (
	CompilerInterpreter = "interpreter"
	CompilerNative      = "compiler"
)

// VMConfig is the engine configuration. It can be built in code starting from
// DefaultVMConfig or read from a TOML file with LoadVMConfig.
type VMConfig struct {
	Engine  EngineConfig  `toml:"engine"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
	Store   StoreConfig   `toml:"store"`
}

// EngineConfig holds sandbox limits.
type EngineConfig struct {
	MemoryInitialPages uint32 `toml:"memory_initial_pages"`
	MemoryMaximumPages uint32 `toml:"memory_maximum_pages"`
	MaxFrames          int    `toml:"max_frames"`
	// FuelLimit, when non-zero, caps the fuel limit passed with each call.
	FuelLimit uint64 `toml:"fuel_limit"`
	Compiler  string `toml:"compiler"`
}

// LogConfig selects the logger built by the VM.
type LogConfig struct {
	Mode string `toml:"mode"`
}

// MetricsConfig controls the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
}

// StoreConfig places the on-disk code store. An empty Dir keeps the VM
// without one.
type StoreConfig struct {
	Dir       string `toml:"dir"`
	CacheSize int    `toml:"cache_size"`
}

// DefaultVMConfig returns the configuration the node uses when nothing is set:
// two initial pages, sixteen maximum, 64 frames.
func DefaultVMConfig() *VMConfig {
	return &VMConfig{
		Engine: EngineConfig{
			MemoryInitialPages: 2,
			MemoryMaximumPages: 16,
			MaxFrames:          64,
			Compiler:           CompilerInterpreter,
		},
		Log: LogConfig{
			Mode: "nop",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "wevm",
		},
		Store: StoreConfig{
			CacheSize: 64,
		},
	}
}

// Validate checks config for invalid values.
func (c *VMConfig) Validate() error {
	if c.Engine.MemoryMaximumPages > MaxMemoryPages {
		return errors.Errorf("config: engine.memory_maximum_pages must be <= %d", MaxMemoryPages)
	}
	if c.Engine.MemoryInitialPages > c.Engine.MemoryMaximumPages {
		return errors.New("config: engine.memory_initial_pages must be <= engine.memory_maximum_pages")
	}
	if c.Engine.MaxFrames <= 0 || c.Engine.MaxFrames > 1024 {
		return errors.New("config: engine.max_frames must be in (0, 1024]")
	}
	switch c.Engine.Compiler {
	case CompilerInterpreter, CompilerNative:
	default:
		return errors.Errorf("config: engine.compiler must be %q or %q, got %q",
			CompilerInterpreter, CompilerNative, c.Engine.Compiler)
	}
	switch c.Log.Mode {
	case "development", "dev", "production", "prod", "nop":
	default:
		return errors.Errorf("config: log.mode %q is not supported", c.Log.Mode)
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return errors.New("config: metrics.namespace must not be empty when metrics are enabled")
	}
	if c.Store.CacheSize <= 0 {
		return errors.New("config: store.cache_size must be positive")
	}
	return nil
}

// LoadVMConfig reads a TOML file on top of the defaults, applies WEVM_*
// environment overrides and validates the result.
func LoadVMConfig(path string) (*VMConfig, error) {
	cfg := DefaultVMConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read file")
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse TOML")
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies WEVM_<SECTION>_<FIELD> overrides.
func applyEnvOverrides(cfg *VMConfig) {
	if v := os.Getenv("WEVM_ENGINE_MEMORY_INITIAL_PAGES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Engine.MemoryInitialPages = uint32(n)
		}
	}
	if v := os.Getenv("WEVM_ENGINE_MEMORY_MAXIMUM_PAGES"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Engine.MemoryMaximumPages = uint32(n)
		}
	}
	if v := os.Getenv("WEVM_ENGINE_MAX_FRAMES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.MaxFrames = n
		}
	}
	if v := os.Getenv("WEVM_ENGINE_FUEL_LIMIT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Engine.FuelLimit = n
		}
	}
	if v := os.Getenv("WEVM_ENGINE_COMPILER"); v != "" {
		cfg.Engine.Compiler = v
	}

	if v := os.Getenv("WEVM_LOG_MODE"); v != "" {
		cfg.Log.Mode = v
	}

	if v := os.Getenv("WEVM_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("WEVM_METRICS_NAMESPACE"); v != "" {
		cfg.Metrics.Namespace = v
	}

	if v := os.Getenv("WEVM_STORE_DIR"); v != "" {
		cfg.Store.Dir = v
	}
	if v := os.Getenv("WEVM_STORE_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.CacheSize = n
		}
	}
}
