package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, ',', cfg.Delimiter())
	assert.Equal(t, cfg.DataDir, cfg.Storage.Path)
	assert.False(t, cfg.ShouldServe())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "compact" }},
		{"bad storage", func(c *Config) { c.Storage.Type = "gcs" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }},
		{"long delimiter", func(c *Config) { c.Ingest.Delimiter = ";;" }},
		{"empty delimiter", func(c *Config) { c.Ingest.Delimiter = "" }},
		{"quote delimiter", func(c *Config) { c.Ingest.Delimiter = `"` }},
		{"zero concurrency", func(c *Config) { c.Ingest.Concurrency = 0 }},
		{"negative max frames", func(c *Config) { c.HTTP.MaxFrames = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framekit.yaml")
	data := `
mode: serve
http:
  addr: ":9000"
  read_timeout: 5s
ingest:
  delimiter: ";"
  concurrency: 8
storage:
  type: s3
  s3:
    bucket: stats
    endpoint: http://localhost:9000
    use_path_style: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ModeServe, cfg.Mode)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.HTTP.WriteTimeout, "unset fields keep defaults")
	assert.Equal(t, ';', cfg.Delimiter())
	assert.Equal(t, 8, cfg.Ingest.Concurrency)
	assert.Equal(t, "stats", cfg.Storage.S3.Bucket)
	assert.Equal(t, "us-east-1", cfg.Storage.S3.Region)
	assert.True(t, cfg.Storage.S3.UsePathStyle)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framekit.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mode":"query","ingest":{"kinds":"1,4"}}`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ModeQuery, cfg.Mode)
	assert.Equal(t, "1,4", cfg.Ingest.Kinds)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "framekit.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = 'serve'"), 0644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FRAMEKIT_MODE", "serve")
	t.Setenv("FRAMEKIT_HTTP_ADDR", ":7070")
	t.Setenv("FRAMEKIT_HTTP_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("FRAMEKIT_INGEST_CONCURRENCY", "2")
	t.Setenv("FRAMEKIT_INGEST_DELIMITER", "|")
	t.Setenv("FRAMEKIT_STORAGE_TYPE", "s3")
	t.Setenv("FRAMEKIT_S3_BUCKET", "frames")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	assert.True(t, cfg.ShouldServe())
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 2, cfg.Ingest.Concurrency)
	assert.Equal(t, '|', cfg.Delimiter())
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "frames", cfg.Storage.S3.Bucket)
	assert.NoError(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FRAMEKIT_TEST_DOTENV_ADDR=:6060\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("FRAMEKIT_TEST_DOTENV_ADDR") })

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, ":6060", os.Getenv("FRAMEKIT_TEST_DOTENV_ADDR"))
}
