package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. KEEL_STORAGE_DRIVER.
const EnvPrefix = "KEEL"

// Config holds application configuration.
type Config struct {
	Dev         bool              `mapstructure:"dev"`
	Platform    string            `mapstructure:"platform"`
	Log         LogConfig         `mapstructure:"log"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Debug       DebugConfig       `mapstructure:"debug"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig selects and locates the storage backend.
type StorageConfig struct {
	// Driver is one of memory, fs, sqlite or s3.
	Driver       string        `mapstructure:"driver"`
	Path         string        `mapstructure:"path"`
	Bucket       string        `mapstructure:"bucket"`
	Prefix       string        `mapstructure:"prefix"`
	Region       string        `mapstructure:"region"`
	Endpoint     string        `mapstructure:"endpoint"`
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`
}

// PersistenceConfig tunes the write-through.
type PersistenceConfig struct {
	Exclude      []string      `mapstructure:"exclude"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DebugConfig enables the debug HTTP server when Addr is set.
type DebugConfig struct {
	Addr string `mapstructure:"addr"`
}

// MetricsConfig configures the dispatch collectors. An empty namespace
// disables them.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

// TracingConfig toggles the dispatch tracing middleware.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Storage: StorageConfig{
			Driver:       "fs",
			Path:         filepath.Join(".keel", "state"),
			ReadyTimeout: 10 * time.Second,
		},
		Persistence: PersistenceConfig{WriteTimeout: 2 * time.Second},
		Metrics:     MetricsConfig{Namespace: "keel"},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("dev", d.Dev)
	v.SetDefault("platform", d.Platform)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.region", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.ready_timeout", d.Storage.ReadyTimeout)
	v.SetDefault("persistence.exclude", []string{})
	v.SetDefault("persistence.write_timeout", d.Persistence.WriteTimeout)
	v.SetDefault("debug.addr", "")
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("tracing.enabled", false)
}

// Load reads configuration from file and env. Env var overrides use prefix KEEL_.
// An explicit configFile must exist; otherwise keel.yaml is looked up from the
// project root containing the working directory, and its absence is not an error.
// Relative storage paths are resolved against the directory of the file.
func Load(configFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configFile == "" {
		configFile = discover()
	}

	baseDir := ""
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
		baseDir = filepath.Dir(configFile)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	if baseDir != "" && c.Storage.Path != "" && !filepath.IsAbs(c.Storage.Path) &&
		(c.Storage.Driver == "fs" || c.Storage.Driver == "sqlite") {
		c.Storage.Path = filepath.Join(baseDir, c.Storage.Path)
	}
	return c, nil
}

func discover() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	root, err := FindRoot(wd)
	if err != nil {
		return ""
	}
	if !hasFile(root, ConfigName) {
		return ""
	}
	return filepath.Join(root, ConfigName)
}

// Validate checks the values Load cannot default.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "fs", "sqlite":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if (c.Storage.Driver == "fs" || c.Storage.Driver == "sqlite") && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the %s driver", c.Storage.Driver)
	}
	if c.Storage.ReadyTimeout < 0 || c.Persistence.WriteTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}
