package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultHTTPPort, cfg.Server.Port)
	assert.Equal(t, int64(DefaultMaxRequestSize), cfg.Gateway.MaxRequestSize)
}

func TestLoadFile_LayersOverDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"port": 9000, "read_timeout": "90s"},
		"gateway": {"max_request_size": 1048576, "rate_limit": 10.5, "rate_burst": 20},
		"spill": {"memory_threshold": 128}
	}`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Server.ReadTimeout.Std())
	// Unset fields keep defaults
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout.Std())
	assert.Equal(t, int64(1048576), cfg.Gateway.MaxRequestSize)
	assert.Equal(t, 10.5, cfg.Gateway.RateLimit)
	assert.Equal(t, 128, cfg.Spill.MemoryThreshold)
	assert.Equal(t, DefaultMetricsPort, cfg.Metrics.Port)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := NewLoader().LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadFile_SchemaRejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{{{`},
		{"port wrong type", `{"server": {"port": "eighty"}}`},
		{"unknown section", `{"databases": {}}`},
		{"unknown server key", `{"server": {"listen": 80}}`},
		{"cors origins wrong type", `{"gateway": {"cors_origins": "example.com"}}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := writeConfig(t, test.content)
			_, err := NewLoader().LoadFile(path)
			require.Error(t, err)
		})
	}
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"server": {"port": 9000}}`)

	t.Setenv("NAMESTREAM_HTTP_PORT", "9100")
	t.Setenv("NAMESTREAM_MAX_REQUEST_SIZE", "4096")
	t.Setenv("NAMESTREAM_SPILL_DIR", "/tmp")

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, int64(4096), cfg.Gateway.MaxRequestSize)
	assert.Equal(t, "/tmp", cfg.Spill.Dir)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults ok", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"metrics collides", func(c *Config) { c.Metrics.Port = c.Server.Port }, true},
		{"metrics disabled", func(c *Config) { c.Metrics.Port = 0 }, false},
		{"no max size", func(c *Config) { c.Gateway.MaxRequestSize = 0 }, true},
		{"negative rate", func(c *Config) { c.Gateway.RateLimit = -1 }, true},
		{"rate without burst", func(c *Config) { c.Gateway.RateLimit = 5 }, true},
		{"rate with burst", func(c *Config) { c.Gateway.RateLimit = 5; c.Gateway.RateBurst = 10 }, false},
		{"cors without origins", func(c *Config) { c.Gateway.EnableCORS = true }, true},
		{"cors with origins", func(c *Config) {
			c.Gateway.EnableCORS = true
			c.Gateway.CORSOrigins = []string{"*"}
		}, false},
		{"negative threshold", func(c *Config) { c.Spill.MemoryThreshold = -1 }, true},
		{"missing spill dir", func(c *Config) { c.Spill.Dir = "/does/not/exist" }, true},
		{"negative timeout", func(c *Config) { c.Server.ReadTimeout = Duration(-time.Second) }, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			err := cfg.Validate()
			if test.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1m30s"`), &d))
	assert.Equal(t, 90*time.Second, d.Std())

	require.NoError(t, json.Unmarshal([]byte(`1000000000`), &d))
	assert.Equal(t, time.Second, d.Std())

	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	out, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))
}
