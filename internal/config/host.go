package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CANVASHOST_WASM_DEBUG.
const EnvPrefix = "CANVASHOST"

// HostConfig holds the host configuration.
type HostConfig struct {
	Site     string        `mapstructure:"site"`
	LogLevel string        `mapstructure:"log_level"`
	LogFile  string        `mapstructure:"log_file"`
	FPS      int           `mapstructure:"fps"`
	Frames   int           `mapstructure:"frames"`
	Wasm     WasmConfig    `mapstructure:"wasm"`
	Preload  PreloadConfig `mapstructure:"preload"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
	Serve    ServeConfig   `mapstructure:"serve"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Enable debug logging.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory. Empty disables the on-disk cache.
	CacheDir string `mapstructure:"cache_dir"`
}

// PreloadConfig controls the asset preload.
type PreloadConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// MetricsConfig controls the metrics endpoint. An empty address disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ServeConfig controls the static site server.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("site", ".")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "canvashost.log")
	v.SetDefault("fps", 60)
	v.SetDefault("frames", 1)

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 1024) // 64MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")

	v.SetDefault("preload.concurrency", 8)
	v.SetDefault("preload.timeout", 30*time.Second)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("serve.addr", ":8080")
}

// New returns a viper instance with defaults and environment overrides set.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file into v and decodes the result.
func Load(v *viper.Viper, configPath string) (*HostConfig, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg HostConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadHostConfig loads the configuration from a fresh viper instance.
func LoadHostConfig(configPath string) (*HostConfig, error) {
	return Load(New(), configPath)
}

// Validate checks value ranges.
func (c *HostConfig) Validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.Frames < 0 {
		return fmt.Errorf("frames must not be negative, got %d", c.Frames)
	}
	if c.Wasm.MemoryPages == 0 || c.Wasm.MemoryPages > 65536 {
		return fmt.Errorf("wasm.memory_pages must be in [1, 65536], got %d", c.Wasm.MemoryPages)
	}
	if c.Preload.Concurrency <= 0 {
		return fmt.Errorf("preload.concurrency must be positive, got %d", c.Preload.Concurrency)
	}
	return nil
}

// FrameInterval is the time between two frames at the configured rate.
func (c *HostConfig) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}
