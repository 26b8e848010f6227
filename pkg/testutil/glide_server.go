package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ajitpratap0/glidetables/pkg/config"
	"github.com/ajitpratap0/glidetables/pkg/json"
)

// Request is one call seen by GlideServer
type Request struct {
	Method   string
	Path     string
	Auth     string
	ClientID string
	Body     string
}

// Table is a GET /tables entry
type Table struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GlideServer is an in-process stand-in for the Big Tables REST API.
// Mutations answer with one fresh row ID per row in the body, stash
// appends answer 200, and POST /tables answers with CreatedID.
type GlideServer struct {
	*httptest.Server

	// Tables is served by GET /tables
	Tables []Table
	// CreatedID is the tableId returned by POST /tables
	CreatedID string
	// CommitRows is the number of row IDs a stash commit answers with
	CommitRows int

	mu       sync.Mutex
	requests []Request
	failOn   map[int]int
	nextID   int
}

// NewGlideServer starts a server that is closed when the test completes
func NewGlideServer(t *testing.T) *GlideServer {
	s := &GlideServer{
		CreatedID:  "new-table",
		CommitRows: 2,
		failOn:     map[int]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Config returns a client configuration pointed at the server
func (s *GlideServer) Config() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Token = "test-token"
	cfg.Endpoint = s.URL
	cfg.EndpointREST = s.URL
	return cfg
}

// FailRequest makes the nth request (1-based) answer with status
func (s *GlideServer) FailRequest(n, status int) {
	s.mu.Lock()
	s.failOn[n] = status
	s.mu.Unlock()
}

// Requests returns a copy of every request seen so far
func (s *GlideServer) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *GlideServer) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:   r.Method,
		Path:     r.URL.Path,
		Auth:     r.Header.Get("Authorization"),
		ClientID: r.Header.Get("X-Glide-Client-ID"),
		Body:     string(body),
	})
	n := len(s.requests)
	status, fail := s.failOn[n]
	s.mu.Unlock()

	if fail {
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error":"request %d rejected"}`, n)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/tables":
		tables := s.Tables
		if tables == nil {
			tables = []Table{}
		}
		s.write(w, map[string]interface{}{"data": tables})
	case r.Method == http.MethodPost && r.URL.Path == "/tables":
		var req struct {
			Rows json.RawMessage `json:"rows"`
		}
		_ = json.Unmarshal(body, &req)
		s.write(w, map[string]interface{}{"data": map[string]interface{}{
			"tableId": s.CreatedID,
			"rowIDs":  s.ids(s.rowCount(req.Rows)),
		}})
	case strings.HasPrefix(r.URL.Path, "/stashes/"):
		w.WriteHeader(http.StatusOK)
	default:
		s.write(w, map[string]interface{}{"data": map[string]interface{}{
			"rowIDs": s.ids(s.rowCount(body)),
		}})
	}
}

// rowCount is the length of a JSON array body, or CommitRows for a stash reference
func (s *GlideServer) rowCount(body []byte) int {
	var rows []json.RawMessage
	if json.Unmarshal(body, &rows) == nil {
		return len(rows)
	}
	return s.CommitRows
}

func (s *GlideServer) ids(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("row-%d", s.nextID)
		s.nextID++
	}
	return out
}

func (s *GlideServer) write(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(data)
}
