// Package config provides unified configuration for the Faceton coordinator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the full coordinator configuration.
type Config struct {
	// DataDir is the base directory for local data (archive files, sqlite).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// HTTP configuration
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Merge engine configuration
	Merge MergeConfig `json:"merge" yaml:"merge"`

	// Archive configuration
	Archive ArchiveConfig `json:"archive" yaml:"archive"`

	// Stats configuration
	Stats StatsConfig `json:"stats" yaml:"stats"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the coordinator HTTP listen address
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// MergeConfig holds merge engine configuration.
type MergeConfig struct {
	// PoolStripes is the number of lock stripes in the scratch recycler
	PoolStripes int `json:"pool_stripes" yaml:"pool_stripes"`

	// PoolMaxPerStripe bounds the free accumulators kept per stripe
	PoolMaxPerStripe int `json:"pool_max_per_stripe" yaml:"pool_max_per_stripe"`

	// MaxPartialsPerRequest caps the shard payloads accepted in one request
	MaxPartialsPerRequest int `json:"max_partials_per_request" yaml:"max_partials_per_request"`
}

// ArchiveConfig holds result archive configuration.
type ArchiveConfig struct {
	// Enabled controls whether merged results can be archived
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Backend selects the archive store: sqlite, local, s3
	Backend string `json:"backend" yaml:"backend"`

	// Path is the sqlite file or local object directory (under DataDir if relative)
	Path string `json:"path" yaml:"path"`

	// S3 configuration, used when Backend is "s3"
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 archive backend configuration.
type S3Config struct {
	Bucket       string `json:"bucket" yaml:"bucket"`
	Region       string `json:"region" yaml:"region"`
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
	UsePathStyle bool   `json:"use_path_style" yaml:"use_path_style"`
}

// StatsConfig holds merge statistics tracking configuration.
type StatsConfig struct {
	// Window is how long per-facet stats are retained without activity
	Window time.Duration `json:"window" yaml:"window"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		HTTP: HTTPConfig{
			Addr:         ":8090",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Merge: MergeConfig{
			PoolStripes:           8,
			PoolMaxPerStripe:      16,
			MaxPartialsPerRequest: 1024,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Backend: "sqlite",
			Path:    "archive",
		},
		Stats: StatsConfig{
			Window: time.Hour,
		},
	}
}

// LoadFromFile loads configuration from a YAML file, filling unset fields
// with defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv overlays environment variables onto the configuration. A
// .env file in the working directory is loaded first when present.
func LoadFromEnv(cfg *Config) {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	if v := os.Getenv("FACETON_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("FACETON_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("FACETON_ARCHIVE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Archive.Enabled = b
		}
	}
	if v := os.Getenv("FACETON_ARCHIVE_BACKEND"); v != "" {
		cfg.Archive.Backend = v
	}
	if v := os.Getenv("FACETON_ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.S3.Bucket = v
	}
	if v := os.Getenv("FACETON_ARCHIVE_S3_REGION"); v != "" {
		cfg.Archive.S3.Region = v
	}
	if v := os.Getenv("FACETON_ARCHIVE_S3_ENDPOINT"); v != "" {
		cfg.Archive.S3.Endpoint = v
	}
}

// Resolve normalizes relative paths against DataDir.
func (c *Config) Resolve() {
	if c.Archive.Path != "" && !filepath.IsAbs(c.Archive.Path) {
		c.Archive.Path = filepath.Join(c.DataDir, c.Archive.Path)
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("config: http.addr is required")
	}
	if c.Merge.MaxPartialsPerRequest <= 0 {
		return fmt.Errorf("config: merge.max_partials_per_request must be positive")
	}
	if c.Archive.Enabled {
		switch c.Archive.Backend {
		case "sqlite", "local":
			if c.Archive.Path == "" {
				return fmt.Errorf("config: archive.path is required for %s backend", c.Archive.Backend)
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return fmt.Errorf("config: archive.s3.bucket is required for s3 backend")
			}
		default:
			return fmt.Errorf("config: unsupported archive backend: %s", c.Archive.Backend)
		}
	}
	return nil
}

// EnsureDirectories creates the directories the configuration points at.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir}
	if c.Archive.Enabled {
		switch c.Archive.Backend {
		case "sqlite":
			dirs = append(dirs, filepath.Dir(c.Archive.Path))
		case "local":
			dirs = append(dirs, c.Archive.Path)
		}
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("config: failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
