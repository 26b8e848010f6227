package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. GLIDE_TOKEN
const EnvPrefix = "GLIDE"

// Load reads a YAML file on top of the defaults. ${VAR} references are expanded first.
func Load(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := NewDefaultConfig()
	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return cfg, nil
}

// Save writes cfg as YAML
func Save(filePath string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// NewViper returns a viper instance seeded with the defaults and bound to GLIDE_* env vars.
// If filePath is non-empty it is read as the config file.
func NewViper(filePath string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v, NewDefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filePath != "" {
		v.SetConfigFile(filePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// FromViper decodes a Config out of v
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during Unmarshal
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("endpoint_rest", d.EndpointREST)
	v.SetDefault("token", d.Token)
	v.SetDefault("client_id", d.ClientID)

	v.SetDefault("mutations.max_mutations", d.Mutations.MaxMutations)
	v.SetDefault("mutations.max_concurrency", d.Mutations.MaxConcurrency)

	v.SetDefault("timeouts.request", d.Timeouts.Request)
	v.SetDefault("timeouts.dial", d.Timeouts.Dial)
	v.SetDefault("timeouts.tls_handshake", d.Timeouts.TLSHandshake)
	v.SetDefault("timeouts.response_header", d.Timeouts.ResponseHeader)
	v.SetDefault("timeouts.idle_conn", d.Timeouts.IdleConn)
	v.SetDefault("timeouts.keep_alive", d.Timeouts.KeepAlive)

	v.SetDefault("reliability.rate_limit_per_sec", d.Reliability.RateLimitPerSec)
	v.SetDefault("reliability.rate_burst", d.Reliability.RateBurst)
	v.SetDefault("reliability.circuit_breaker", d.Reliability.CircuitBreaker)
	v.SetDefault("reliability.failure_threshold", d.Reliability.FailureThreshold)
	v.SetDefault("reliability.success_threshold", d.Reliability.SuccessThreshold)
	v.SetDefault("reliability.open_timeout", d.Reliability.OpenTimeout)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.encoding", d.Logging.Encoding)
	v.SetDefault("logging.development", d.Logging.Development)
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
