package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, validateConfig(GetDefaults()))
}

func TestLoad(t *testing.T) {
	t.Run("FileOverridesDefaults", func(t *testing.T) {
		path := writeConfig(t, `
server:
  port: 9090
rules:
  backend: file
  file_path: /tmp/rules.json
audit:
  sources: [content, metadata, comment]
rewrite:
  meta_keys: ["_wp_*", "custom_field_with_urls"]
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "file", cfg.Rules.Backend)
		assert.Equal(t, []string{"content", "metadata", "comment"}, cfg.Audit.Sources)
		assert.Equal(t, []string{"post", "page"}, cfg.Audit.PublicPostTypes)
		assert.Equal(t, "linksentinel", cfg.Rules.KeyPrefix)
		assert.Equal(t, []string{"_wp_*", "custom_field_with_urls"}, cfg.Rewrite.MetaKeys)
	})

	t.Run("EnvironmentOverridesFile", func(t *testing.T) {
		path := writeConfig(t, "server:\n  port: 9090\n")
		t.Setenv("SENTINEL_SERVER_PORT", "7070")
		t.Setenv("SENTINEL_RULES_BACKEND", "memory")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, "memory", cfg.Rules.Backend)
	})

	t.Run("InvalidFileIsRejected", func(t *testing.T) {
		path := writeConfig(t, "logging:\n  level: verbose\n")
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Port", func(c *Config) { c.Server.Port = 0 }},
		{"LogFormat", func(c *Config) { c.Logging.Format = "xml" }},
		{"FileLoggingWithoutPath", func(c *Config) { c.Logging.File.Enabled = true }},
		{"Backend", func(c *Config) { c.Rules.Backend = "etcd" }},
		{"RedisWithoutURL", func(c *Config) { c.Rules.RedisURL = "" }},
		{"FileWithoutPath", func(c *Config) { c.Rules.Backend = "file"; c.Rules.FilePath = "" }},
		{"NoSources", func(c *Config) { c.Audit.Sources = nil }},
		{"UnknownSource", func(c *Config) { c.Audit.Sources = []string{"content", "widgets"} }},
		{"NoPostTypes", func(c *Config) { c.Audit.PublicPostTypes = nil }},
		{"BadGlob", func(c *Config) { c.Rewrite.MetaKeys = []string{"[unclosed"} }},
		{"RateLimit", func(c *Config) { c.RateLimit.Burst = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaults()
			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}
