// Package clients provides the HTTP transport used to talk to the Glide API
package clients

import (
	"bytes"
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ajitpratap0/glidetables/pkg/config"
	"github.com/ajitpratap0/glidetables/pkg/errors"
	"github.com/ajitpratap0/glidetables/pkg/json"
	"github.com/ajitpratap0/glidetables/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/oauth2"
)

// ClientIDHeader carries the optional client identifier
const ClientIDHeader = "X-Glide-Client-ID"

// functionPaths are served by Endpoint. Every other path goes to EndpointREST.
var functionPaths = map[string]bool{
	"/mutateTables": true,
	"/queryTables":  true,
}

// HTTPClient sends JSON requests to the Glide API.
// It never retries: the rate limiter only delays a request and the
// circuit breaker only rejects one.
type HTTPClient struct {
	config     *HTTPConfig
	logger     *zap.Logger
	httpClient *http.Client
	transport  *http.Transport

	totalRequests  int64
	failedRequests int64

	// Circuit breaker
	circuitBreaker *CircuitBreaker

	// Rate limiting
	rateLimiter RateLimiter
}

// HTTPConfig configures the HTTP client
type HTTPConfig struct {
	// Endpoints
	Endpoint     string `json:"endpoint"`
	EndpointREST string `json:"endpoint_rest"`

	// Credentials
	Token    string `json:"-"`
	ClientID string `json:"client_id"`

	UserAgent string `json:"user_agent"`

	// Connection settings
	MaxIdleConns        int           `json:"max_idle_conns"`
	MaxIdleConnsPerHost int           `json:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `json:"idle_conn_timeout"`

	// HTTP/2 settings
	EnableHTTP2 bool `json:"enable_http2"`

	// Timeouts
	DialTimeout           time.Duration `json:"dial_timeout"`
	TLSHandshakeTimeout   time.Duration `json:"tls_handshake_timeout"`
	ResponseHeaderTimeout time.Duration `json:"response_header_timeout"`
	RequestTimeout        time.Duration `json:"request_timeout"`
	KeepAlive             time.Duration `json:"keep_alive"`

	// Rate limiting
	RateLimit float64 `json:"rate_limit"`
	RateBurst int     `json:"rate_burst"`

	// Circuit breaker
	CircuitBreakerEnabled bool          `json:"circuit_breaker_enabled"`
	FailureThreshold      int           `json:"failure_threshold"`
	SuccessThreshold      int           `json:"success_threshold"`
	Timeout               time.Duration `json:"timeout"`
}

// DefaultHTTPConfig returns the transport defaults without credentials
func DefaultHTTPConfig() *HTTPConfig {
	return HTTPConfigFrom(config.NewDefaultConfig())
}

// HTTPConfigFrom maps the client configuration onto transport settings
func HTTPConfigFrom(cfg *config.Config) *HTTPConfig {
	return &HTTPConfig{
		Endpoint:              cfg.Endpoint,
		EndpointREST:          cfg.EndpointREST,
		Token:                 cfg.Token,
		ClientID:              cfg.ClientID,
		UserAgent:             "glidetables/1.0",
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.Mutations.MaxConcurrency + 2,
		IdleConnTimeout:       cfg.Timeouts.IdleConn,
		EnableHTTP2:           true,
		DialTimeout:           cfg.Timeouts.Dial,
		TLSHandshakeTimeout:   cfg.Timeouts.TLSHandshake,
		ResponseHeaderTimeout: cfg.Timeouts.ResponseHeader,
		RequestTimeout:        cfg.Timeouts.Request,
		KeepAlive:             cfg.Timeouts.KeepAlive,
		RateLimit:             cfg.Reliability.RateLimitPerSec,
		RateBurst:             cfg.Reliability.RateBurst,
		CircuitBreakerEnabled: cfg.Reliability.CircuitBreaker,
		FailureThreshold:      cfg.Reliability.FailureThreshold,
		SuccessThreshold:      cfg.Reliability.SuccessThreshold,
		Timeout:               cfg.Reliability.OpenTimeout,
	}
}

// NewHTTPClient creates a new HTTP client
func NewHTTPClient(config *HTTPConfig, logger *zap.Logger) *HTTPClient {
	if config == nil {
		config = DefaultHTTPConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := &HTTPClient{
		config: config,
		logger: logger.With(zap.String("component", "http_client")),
	}

	client.transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	if config.EnableHTTP2 {
		if err := http2.ConfigureTransport(client.transport); err != nil {
			client.logger.Warn("failed to configure HTTP/2", zap.Error(err))
		}
	}

	var rt http.RoundTripper = client.transport
	if config.Token != "" {
		// oauth2.Transport sets "Authorization: Bearer <token>" on every request
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.Token, TokenType: "Bearer"}),
			Base:   rt,
		}
	}

	client.httpClient = &http.Client{
		Transport: rt,
		Timeout:   config.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	if config.RateLimit > 0 {
		client.rateLimiter = NewTokenBucket(config.RateLimit, config.RateBurst)
	}

	if config.CircuitBreakerEnabled {
		client.circuitBreaker = NewCircuitBreaker(CircuitBreakerConfig{
			FailureThreshold: config.FailureThreshold,
			SuccessThreshold: config.SuccessThreshold,
			Timeout:          config.Timeout,
		}, logger)
	}

	return client
}

// Get performs an HTTP GET request against path
func (c *HTTPClient) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post performs an HTTP POST request with body encoded as JSON
func (c *HTTPClient) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put performs an HTTP PUT request with body encoded as JSON
func (c *HTTPClient) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Do sends one request and reads the whole response body.
// A non-2xx status is not an error here; callers check the Response.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	if c.rateLimiter != nil {
		delay, err := c.rateLimiter.Wait(ctx)
		if err != nil {
			atomic.AddInt64(&c.failedRequests, 1)
			return nil, errors.Wrap(err, errors.ErrorTypeRateLimit, "rate limit wait aborted").
				WithDetail("path", path)
		}
		metrics.RateLimitDelay.Observe(delay.Seconds())
		if delay > 0 {
			c.logger.Debug("request delayed by rate limiter",
				zap.String("path", path),
				zap.Duration("delay", delay))
		}
	}

	if c.circuitBreaker != nil && !c.circuitBreaker.Allow() {
		atomic.AddInt64(&c.failedRequests, 1)
		return nil, errors.Wrap(ErrCircuitOpen, errors.ErrorTypeConnection, "request rejected").
			WithDetail("path", path)
	}

	atomic.AddInt64(&c.totalRequests, 1)
	timer := metrics.NewTimer()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveRequest(method, 0, timer.Stop())
		atomic.AddInt64(&c.failedRequests, 1)
		if c.circuitBreaker != nil {
			c.circuitBreaker.RecordFailure()
		}
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return nil, classifyTransportError(err).WithDetail("method", method).WithDetail("path", path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	metrics.ObserveRequest(method, resp.StatusCode, timer.Stop())
	if err != nil {
		atomic.AddInt64(&c.failedRequests, 1)
		if c.circuitBreaker != nil {
			c.circuitBreaker.RecordFailure()
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read response body").
			WithDetail("status", resp.StatusCode).
			WithDetail("path", path)
	}

	if c.circuitBreaker != nil {
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			c.circuitBreaker.RecordFailure()
		} else {
			c.circuitBreaker.RecordSuccess()
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		atomic.AddInt64(&c.failedRequests, 1)
		c.logger.Warn("unexpected status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
	} else {
		c.logger.Debug("request completed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// URL returns the absolute URL a path resolves to
func (c *HTTPClient) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	base := c.config.EndpointREST
	if functionPaths[path] {
		base = c.config.Endpoint
	}
	return normalizeBase(base) + path
}

// newRequest builds the request with JSON headers
func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode request body").
				WithDetail("path", path)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to build request").
			WithDetail("path", path)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.ClientID != "" {
		req.Header.Set(ClientIDHeader, c.config.ClientID)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	return req, nil
}

// GetStats returns current client statistics
func (c *HTTPClient) GetStats() HTTPStats {
	total := atomic.LoadInt64(&c.totalRequests)
	failed := atomic.LoadInt64(&c.failedRequests)

	stats := HTTPStats{
		TotalRequests:  total,
		FailedRequests: failed,
	}
	if total > 0 {
		stats.SuccessRate = float64(total-failed) / float64(total) * 100
	}
	if c.circuitBreaker != nil {
		stats.CircuitState = c.circuitBreaker.State().String()
	}
	return stats
}

// Close releases idle connections
func (c *HTTPClient) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

// HTTPStats represents HTTP client statistics
type HTTPStats struct {
	TotalRequests  int64   `json:"total_requests"`
	FailedRequests int64   `json:"failed_requests"`
	SuccessRate    float64 `json:"success_rate"`
	CircuitState   string  `json:"circuit_state,omitempty"`
}

// normalizeBase trims the trailing slash and adds https:// when the scheme is missing
func normalizeBase(base string) string {
	base = strings.TrimRight(base, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return base
}

func classifyTransportError(err error) *errors.Error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.ErrorTypeTimeout, "request timed out")
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(err, errors.ErrorTypeTimeout, "request timed out")
	}
	return errors.Wrap(err, errors.ErrorTypeConnection, "request failed")
}
