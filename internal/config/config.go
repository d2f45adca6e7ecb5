package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the Trestle configuration
type Config struct {
	ProjectName string         `mapstructure:"project_name"`
	Schema      SchemaConfig   `mapstructure:"schema"`
	Cache       CacheConfig    `mapstructure:"cache"`
	Database    DatabaseConfig `mapstructure:"database"`
	Logging     LoggingConfig  `mapstructure:"logging"`
}

// SchemaConfig locates the metadata definitions on disk
type SchemaConfig struct {
	Dir        string `mapstructure:"dir"`
	Watch      bool   `mapstructure:"watch"`
	DebounceMS int    `mapstructure:"debounce_ms"`
}

// Debounce returns the watch debounce window as a duration.
func (s SchemaConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// CacheConfig selects the snapshot cache backend
type CacheConfig struct {
	Backend string      `mapstructure:"backend"`
	File    string      `mapstructure:"file"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig represents redis cache settings
type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	Key        string `mapstructure:"key"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// TTL returns the configured expiry as a duration, zero meaning no expiry.
func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLSeconds) * time.Second
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

// LoggingConfig represents logger configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads the configuration from trestle.yml or trestle.yaml
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("schema.dir", "schema")
	v.SetDefault("schema.watch", false)
	v.SetDefault("schema.debounce_ms", 250)
	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.file", ".trestle/metadata.cache")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.key", "trestle:metadata")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Set config name and paths
	v.SetConfigName("trestle")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Enable environment variable support
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// GetDatabaseURL returns the database URL from config or environment
func GetDatabaseURL() string {
	// First check environment variable
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	// Then check config file
	cfg, err := Load()
	if err != nil {
		return ""
	}

	return cfg.Database.URL
}

// InProject checks if the current directory is a Trestle project
func InProject() bool {
	cfg, err := Load()
	if err != nil {
		return false
	}

	// Check if the schema directory exists
	if _, err := os.Stat(cfg.Schema.Dir); err != nil {
		return false
	}

	// Check if trestle.yml or trestle.yaml exists
	if _, err := os.Stat("trestle.yml"); err == nil {
		return true
	}
	if _, err := os.Stat("trestle.yaml"); err == nil {
		return true
	}

	return false
}

// GetProjectRoot tries to find the project root by looking for trestle.yml
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		// Check for trestle.yml or trestle.yaml
		if _, err := os.Stat(filepath.Join(dir, "trestle.yml")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "trestle.yaml")); err == nil {
			return dir, nil
		}

		// Check for a schema directory as fallback
		if _, err := os.Stat(filepath.Join(dir, "schema", "entities")); err == nil {
			return dir, nil
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return "", fmt.Errorf("not in a Trestle project (no trestle.yml found)")
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Cache.Backend {
	case "", "none", "file", "redis":
	default:
		return fmt.Errorf("cache.backend must be one of none, file, redis, got: %s", cfg.Cache.Backend)
	}
	switch cfg.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got: %s", cfg.Logging.Format)
	}
	switch cfg.Database.Driver {
	case "", "postgres", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite3, got: %s", cfg.Database.Driver)
	}
	if cfg.Schema.DebounceMS < 0 {
		return fmt.Errorf("schema.debounce_ms must not be negative, got: %d", cfg.Schema.DebounceMS)
	}
	return nil
}
