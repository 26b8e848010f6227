package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ajitpratap0/glidetables/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "glide.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults with token", func(c *Config) {}, true},
		{"missing token", func(c *Config) { c.Token = "" }, false},
		{"missing rest endpoint", func(c *Config) { c.EndpointREST = "" }, false},
		{"zero max mutations", func(c *Config) { c.Mutations.MaxMutations = 0 }, false},
		{"negative concurrency", func(c *Config) { c.Mutations.MaxConcurrency = -1 }, false},
		{"negative rate", func(c *Config) { c.Reliability.RateLimitPerSec = -1 }, false},
		{"rate without burst", func(c *Config) {
			c.Reliability.RateLimitPerSec = 5
			c.Reliability.RateBurst = 0
		}, false},
		{"rate with burst", func(c *Config) { c.Reliability.RateLimitPerSec = 5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Token = "secret"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_GLIDE_TOKEN", "from-env")
	path := writeFile(t, `
token: ${TEST_GLIDE_TOKEN}
client_id: cli
mutations:
  max_mutations: 100
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, "cli", cfg.ClientID)
	assert.Equal(t, 100, cfg.Mutations.MaxMutations)
	// untouched keys keep their defaults
	assert.Equal(t, 1, cfg.Mutations.MaxConcurrency)
	assert.Equal(t, DefaultEndpointREST, cfg.EndpointREST)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Token = "secret"
	cfg.Mutations.MaxConcurrency = 4

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestFromViperEnvOverrides(t *testing.T) {
	t.Setenv("GLIDE_TOKEN", "env-token")
	t.Setenv("GLIDE_MUTATIONS_MAX_MUTATIONS", "250")
	t.Setenv("GLIDE_TIMEOUTS_REQUEST", "5s")

	path := writeFile(t, `
endpoint_rest: http://localhost:9999
mutations:
  max_concurrency: 3
`)
	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := FromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Token)
	assert.Equal(t, "http://localhost:9999", cfg.EndpointREST)
	assert.Equal(t, 250, cfg.Mutations.MaxMutations)
	assert.Equal(t, 3, cfg.Mutations.MaxConcurrency)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Request)
	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := NewDefaultConfig()
	cp := cfg.Clone()
	cp.Mutations.MaxMutations = 1
	assert.Equal(t, DefaultMaxMutations, cfg.Mutations.MaxMutations)
}
