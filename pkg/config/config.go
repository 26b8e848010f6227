// Package config provides the configuration for glidetables clients.
//
// The configuration is organized into logical sections:
//   - Endpoints and credentials: where requests go and how they authenticate
//   - Mutations: rows per request and how many requests may be in flight
//   - Timeouts: connection and request timeouts for the HTTP transport
//   - Reliability: client side rate limiting and the circuit breaker
//   - Logging: zap logger settings
//
// Example usage:
//
//	cfg := config.NewDefaultConfig()
//	cfg.Token = os.Getenv("GLIDE_TOKEN")
//	cfg.Mutations.MaxMutations = 250
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"time"

	"github.com/ajitpratap0/glidetables/pkg/errors"
)

const (
	// DefaultEndpoint serves the function style calls (/mutateTables, /queryTables)
	DefaultEndpoint = "https://api.glideapp.io/api/function"
	// DefaultEndpointREST serves every other call
	DefaultEndpointREST = "https://api.glideapps.com"
	// DefaultMaxMutations is the service's documented row limit per mutation request
	DefaultMaxMutations = 500
)

// Config is the full client configuration.
type Config struct {
	// Endpoint is the base URL for function style calls
	Endpoint string `yaml:"endpoint" json:"endpoint" mapstructure:"endpoint"`
	// EndpointREST is the base URL for REST calls
	EndpointREST string `yaml:"endpoint_rest" json:"endpoint_rest" mapstructure:"endpoint_rest"`
	// Token is the bearer token sent on every request
	Token string `yaml:"token" json:"-" mapstructure:"token"`
	// ClientID is sent as X-Glide-Client-ID when set
	ClientID string `yaml:"client_id" json:"client_id" mapstructure:"client_id"`

	Mutations   MutationConfig    `yaml:"mutations" json:"mutations" mapstructure:"mutations"`
	Timeouts    TimeoutConfig     `yaml:"timeouts" json:"timeouts" mapstructure:"timeouts"`
	Reliability ReliabilityConfig `yaml:"reliability" json:"reliability" mapstructure:"reliability"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging" mapstructure:"logging"`
}

// MutationConfig controls how row mutations are chunked.
type MutationConfig struct {
	// MaxMutations is the maximum number of rows sent in one request
	MaxMutations int `yaml:"max_mutations" json:"max_mutations" mapstructure:"max_mutations"`
	// MaxConcurrency is the number of chunk requests allowed in flight (1 = sequential)
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" mapstructure:"max_concurrency"`
}

// TimeoutConfig contains the transport timeouts.
type TimeoutConfig struct {
	Request        time.Duration `yaml:"request" json:"request" mapstructure:"request"`
	Dial           time.Duration `yaml:"dial" json:"dial" mapstructure:"dial"`
	TLSHandshake   time.Duration `yaml:"tls_handshake" json:"tls_handshake" mapstructure:"tls_handshake"`
	ResponseHeader time.Duration `yaml:"response_header" json:"response_header" mapstructure:"response_header"`
	IdleConn       time.Duration `yaml:"idle_conn" json:"idle_conn" mapstructure:"idle_conn"`
	KeepAlive      time.Duration `yaml:"keep_alive" json:"keep_alive" mapstructure:"keep_alive"`
}

// ReliabilityConfig configures failure isolation. None of these settings retry a request.
type ReliabilityConfig struct {
	// RateLimitPerSec limits requests per second (0 = unlimited)
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
	// RateBurst is the token bucket capacity
	RateBurst int `yaml:"rate_burst" json:"rate_burst" mapstructure:"rate_burst"`
	// CircuitBreaker enables the circuit breaker
	CircuitBreaker bool `yaml:"circuit_breaker" json:"circuit_breaker" mapstructure:"circuit_breaker"`
	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold int `yaml:"failure_threshold" json:"failure_threshold" mapstructure:"failure_threshold"`
	// SuccessThreshold is the number of half-open successes that closes it again
	SuccessThreshold int `yaml:"success_threshold" json:"success_threshold" mapstructure:"success_threshold"`
	// OpenTimeout is how long the circuit stays open before probing
	OpenTimeout time.Duration `yaml:"open_timeout" json:"open_timeout" mapstructure:"open_timeout"`
}

// LoggingConfig mirrors logger.Config.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level" mapstructure:"level"`
	Encoding    string `yaml:"encoding" json:"encoding" mapstructure:"encoding"`
	Development bool   `yaml:"development" json:"development" mapstructure:"development"`
}

// NewDefaultConfig returns a Config with production defaults. Token is left empty.
func NewDefaultConfig() *Config {
	return &Config{
		Endpoint:     DefaultEndpoint,
		EndpointREST: DefaultEndpointREST,
		Mutations: MutationConfig{
			MaxMutations:   DefaultMaxMutations,
			MaxConcurrency: 1,
		},
		Timeouts: TimeoutConfig{
			Request:        60 * time.Second,
			Dial:           10 * time.Second,
			TLSHandshake:   10 * time.Second,
			ResponseHeader: 30 * time.Second,
			IdleConn:       90 * time.Second,
			KeepAlive:      30 * time.Second,
		},
		Reliability: ReliabilityConfig{
			RateLimitPerSec:  0,
			RateBurst:        10,
			CircuitBreaker:   false,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			OpenTimeout:      30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New(errors.ErrorTypeConfig, "token is required")
	}
	if c.EndpointREST == "" {
		return errors.New(errors.ErrorTypeConfig, "endpoint_rest is required")
	}
	if c.Mutations.MaxMutations < 1 {
		return errors.New(errors.ErrorTypeConfig, "max_mutations must be positive").
			WithDetail("max_mutations", c.Mutations.MaxMutations)
	}
	if c.Mutations.MaxConcurrency < 0 {
		return errors.New(errors.ErrorTypeConfig, "max_concurrency cannot be negative").
			WithDetail("max_concurrency", c.Mutations.MaxConcurrency)
	}
	if c.Reliability.RateLimitPerSec < 0 {
		return errors.New(errors.ErrorTypeConfig, "rate_limit_per_sec cannot be negative")
	}
	if c.Reliability.RateLimitPerSec > 0 && c.Reliability.RateBurst < 1 {
		return errors.New(errors.ErrorTypeConfig, "rate_burst must be positive when rate limiting")
	}
	return nil
}

// Clone returns a copy that can be modified independently.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// IsRateLimited returns true if rate limiting is enabled
func (r *ReliabilityConfig) IsRateLimited() bool {
	return r.RateLimitPerSec > 0
}
