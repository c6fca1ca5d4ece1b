// Package config provides configuration for the framekit CLI and HTTP service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Mode represents how the binary runs.
type Mode string

const (
	// ModeQuery loads a source, applies one pipeline and prints the result.
	ModeQuery Mode = "query"
	// ModeServe runs the HTTP API.
	ModeServe Mode = "serve"
)

// Config holds the configuration for framekit.
type Config struct {
	// Mode specifies how to run: query or serve
	Mode Mode `json:"mode" yaml:"mode"`

	// DataDir is the base directory for local sources
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// HTTP configuration
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Ingest configuration
	Ingest IngestConfig `json:"ingest" yaml:"ingest"`

	// Storage configuration
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the listen address of the API
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`

	// MaxFrames caps the number of frames held by the API (0 = unlimited)
	MaxFrames int `json:"max_frames" yaml:"max_frames"`
}

// IngestConfig holds ingestion configuration.
type IngestConfig struct {
	// Delimiter is the single-character field separator of CSV sources
	Delimiter string `json:"delimiter" yaml:"delimiter"`

	// Concurrency is the number of objects read in parallel by LoadAll
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Kinds is the default comma-separated kind list, e.g. "1,4,3"
	Kinds string `json:"kinds" yaml:"kinds"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage root (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration for local use.
func DefaultConfig() *Config {
	return &Config{
		Mode:    ModeQuery,
		DataDir: ".",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxFrames:       1000,
		},
		Ingest: IngestConfig{
			Delimiter:   ",",
			Concurrency: 4,
		},
		Storage: StorageConfig{
			Type: "local",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
	}
}

// Resolve fills in paths derived from DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.Storage.Path == "" {
		c.Storage.Path = c.DataDir
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeQuery, ModeServe:
	default:
		return fmt.Errorf("invalid mode: %s (must be query or serve)", c.Mode)
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	if utf8.RuneCountInString(c.Ingest.Delimiter) != 1 {
		return fmt.Errorf("ingest.delimiter must be a single character, got %q", c.Ingest.Delimiter)
	}
	if d := c.Delimiter(); d == '"' || d == '\r' || d == '\n' || d == utf8.RuneError {
		return fmt.Errorf("ingest.delimiter %q is not allowed", c.Ingest.Delimiter)
	}

	if c.Ingest.Concurrency < 1 {
		return fmt.Errorf("ingest.concurrency must be at least 1, got %d", c.Ingest.Concurrency)
	}

	if c.HTTP.MaxFrames < 0 {
		return fmt.Errorf("http.max_frames must not be negative, got %d", c.HTTP.MaxFrames)
	}

	return nil
}

// Delimiter returns the CSV field separator as a rune.
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.Ingest.Delimiter)
	return r
}

// ShouldServe returns true if the HTTP API should run.
func (c *Config) ShouldServe() bool {
	return c.Mode == ModeServe
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Variables already set are not overridden and missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the FRAMEKIT_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("FRAMEKIT_MODE"); v != "" {
		cfg.Mode = Mode(v)
	}
	if v := os.Getenv("FRAMEKIT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// HTTP configuration
	if v := os.Getenv("FRAMEKIT_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("FRAMEKIT_HTTP_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("FRAMEKIT_HTTP_MAX_FRAMES"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.HTTP.MaxFrames)
	}

	// Ingest configuration
	if v := os.Getenv("FRAMEKIT_INGEST_DELIMITER"); v != "" {
		cfg.Ingest.Delimiter = v
	}
	if v := os.Getenv("FRAMEKIT_INGEST_CONCURRENCY"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Ingest.Concurrency)
	}
	if v := os.Getenv("FRAMEKIT_INGEST_KINDS"); v != "" {
		cfg.Ingest.Kinds = v
	}

	// Storage configuration
	if v := os.Getenv("FRAMEKIT_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("FRAMEKIT_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("FRAMEKIT_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("FRAMEKIT_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("FRAMEKIT_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("FRAMEKIT_S3_USE_PATH_STYLE"); v != "" {
		cfg.Storage.S3.UsePathStyle = v == "true" || v == "1"
	}
}
