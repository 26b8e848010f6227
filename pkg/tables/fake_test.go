package tables

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ajitpratap0/glidetables/pkg/clients"
	"github.com/ajitpratap0/glidetables/pkg/json"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeGlide answers mutation requests with fresh row IDs
type fakeGlide struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	nextID   int
	// failOn maps a 1-based request number to the status it should get
	failOn map[int]int
	// idFromName derives each row ID from its first_name instead of a counter
	idFromName bool
}

func newFakeGlide(t *testing.T) *fakeGlide {
	f := &fakeGlide{t: t, failOn: map[int]int{}}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGlide) handle(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(data)})
	n := len(f.requests)
	status, fail := f.failOn[n]
	f.mu.Unlock()

	if fail {
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error":"request %d rejected"}`, n)
		return
	}

	if strings.HasPrefix(r.URL.Path, "/stashes/") {
		w.WriteHeader(http.StatusOK)
		return
	}

	count := 3
	var rows []map[string]interface{}
	if json.Unmarshal(data, &rows) == nil {
		count = len(rows)
	}

	f.mu.Lock()
	ids := make([]string, count)
	for i := range ids {
		if f.idFromName && i < len(rows) {
			ids[i] = fmt.Sprintf("id-%v", rows[i]["first_name"])
			continue
		}
		ids[i] = fmt.Sprintf("row-%d", f.nextID)
		f.nextID++
	}
	f.mu.Unlock()

	body, _ := json.Marshal(map[string]interface{}{"data": map[string]interface{}{"rowIDs": ids}})
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (f *fakeGlide) client() *clients.HTTPClient {
	cfg := clients.DefaultHTTPConfig()
	cfg.Endpoint = f.server.URL
	cfg.EndpointREST = f.server.URL
	cfg.Token = "test-token"
	return clients.NewHTTPClient(cfg, zap.NewNop())
}

func (f *fakeGlide) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// decodeRows decodes a recorded JSON array body
func decodeRows(t *testing.T, body string) []map[string]interface{} {
	t.Helper()
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &rows))
	return rows
}
