package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMatchConfig(), cfg.Match)
	assert.Equal(t, 5*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  addr: ":9000"
match:
  scanThreshold: 70
embedding:
  timeout: 8s
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("HOBBYCHAT_MATCH__SCAN_THRESHOLD", "72")
	t.Setenv("HOBBYCHAT_REDIS__ADDR", "127.0.0.1:6380")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 72, cfg.Match.ScanThreshold)
	assert.Equal(t, 8*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, "127.0.0.1:6380", cfg.Redis.Addr)
	assert.Equal(t, 80, cfg.Match.IndexThreshold)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults_ok", mutate: func(*Config) {}},
		{name: "missing_secret", mutate: func(c *Config) { c.JWT.Secret = " " }, wantErr: true},
		{name: "threshold_out_of_range", mutate: func(c *Config) { c.Match.IndexThreshold = 120 }, wantErr: true},
		{name: "bad_crypto_key", mutate: func(c *Config) { c.Crypto.Key = "abc" }, wantErr: true},
		{name: "unknown_provider", mutate: func(c *Config) { c.Embedding.Provider = "openai" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
