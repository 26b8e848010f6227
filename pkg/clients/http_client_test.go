package clients

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ajitpratap0/glidetables/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*HTTPConfig)) *HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultHTTPConfig()
	cfg.Endpoint = server.URL
	cfg.EndpointREST = server.URL
	cfg.Token = "secret-token"
	if mutate != nil {
		mutate(cfg)
	}
	client := NewHTTPClient(cfg, zap.NewNop())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestHTTPClientSendsHeaders(t *testing.T) {
	var got http.Header
	var body string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{}}`))
	}, func(cfg *HTTPConfig) {
		cfg.ClientID = "client-1"
	})

	resp, err := client.Post(context.Background(), "/tables/t1/rows", []map[string]interface{}{{"a": "b"}})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	assert.Equal(t, "Bearer secret-token", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "client-1", got.Get(ClientIDHeader))
	assert.JSONEq(t, `[{"a":"b"}]`, body)
}

func TestHTTPClientOmitsClientIDWhenUnset(t *testing.T) {
	var got http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}, nil)

	_, err := client.Get(context.Background(), "/tables")
	require.NoError(t, err)
	assert.Empty(t, got.Get(ClientIDHeader))
	assert.Empty(t, got.Get("Content-Type"))
}

func TestHTTPClientReturnsNonSuccessResponses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}, nil)

	resp, err := client.Put(context.Background(), "/tables/t1/", []int{1})
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "boom", resp.Text())

	stats := client.GetStats()
	assert.Equal(t, int64(1), stats.TotalRequests)
	assert.Equal(t, int64(1), stats.FailedRequests)
}

func TestHTTPClientURL(t *testing.T) {
	client := NewHTTPClient(&HTTPConfig{
		Endpoint:     "api.glideapp.io/api/function/",
		EndpointREST: "https://api.glideapps.com",
	}, nil)

	tests := []struct {
		path string
		want string
	}{
		{"/mutateTables", "https://api.glideapp.io/api/function/mutateTables"},
		{"/queryTables", "https://api.glideapp.io/api/function/queryTables"},
		{"/tables", "https://api.glideapps.com/tables"},
		{"tables/abc/rows", "https://api.glideapps.com/tables/abc/rows"},
		{"http://localhost:9000/x", "http://localhost:9000/x"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, client.URL(tt.path))
		})
	}
}

func TestHTTPClientConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	cfg := DefaultHTTPConfig()
	cfg.EndpointREST = url
	client := NewHTTPClient(cfg, nil)

	_, err := client.Get(context.Background(), "/tables")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}

func TestHTTPClientCircuitBreakerRejects(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}, func(cfg *HTTPConfig) {
		cfg.CircuitBreakerEnabled = true
		cfg.FailureThreshold = 2
		cfg.Timeout = time.Hour
	})

	for i := 0; i < 2; i++ {
		resp, err := client.Get(context.Background(), "/tables")
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	}

	_, err := client.Get(context.Background(), "/tables")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.Equal(t, 2, calls)
	assert.Equal(t, "open", client.GetStats().CircuitState)
}

func TestHTTPClientRateLimitHonoursContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, func(cfg *HTTPConfig) {
		cfg.RateLimit = 0.001
		cfg.RateBurst = 1
	})

	_, err := client.Get(context.Background(), "/tables")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Get(ctx, "/tables")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRateLimit))
}
