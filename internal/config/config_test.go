package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Sessions.Driver)
	assert.Equal(t, "san", cfg.Tools.OCRLanguage)
	assert.Equal(t, 500, cfg.Tools.TargetChunkKB)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
tools:
  ocr_language: hin
  target_chunk_kb: 250
sessions:
  driver: redis
  redis:
    addr: redis.internal:6379
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "hin", cfg.Tools.OCRLanguage)
	assert.Equal(t, 250, cfg.Tools.TargetChunkKB)
	assert.Equal(t, "redis", cfg.Sessions.Driver)
	assert.Equal(t, "redis.internal:6379", cfg.Sessions.Redis.Addr)
	// Unset fields keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("OCR_LANGUAGE", "eng")
	t.Setenv("REDIS_URL", "redis://cache:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "eng", cfg.Tools.OCRLanguage)
	assert.Equal(t, "redis", cfg.Sessions.Driver)
	assert.Equal(t, "cache:6379", cfg.Sessions.Redis.Addr)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"bad driver", func(c *Config) { c.Sessions.Driver = "etcd" }, "invalid sessions driver"},
		{"bad chunk size", func(c *Config) { c.Tools.TargetChunkKB = 0 }, "target_chunk_kb"},
		{"empty language", func(c *Config) { c.Tools.OCRLanguage = "" }, "ocr_language"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTempDirFallback(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, os.TempDir(), cfg.TempDir())

	cfg.Storage.TempDir = "/srv/ocr/tmp"
	assert.Equal(t, "/srv/ocr/tmp", cfg.TempDir())
}
