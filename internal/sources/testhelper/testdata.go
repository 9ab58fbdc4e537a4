// Package testhelper provides utilities for source adapter tests: loading
// recorded upstream payloads from testdata and serving them from a counting
// httptest server.
package testhelper

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/agentstation/upcmap/pkg/budget"
)

// LoadTestdata loads a testdata file from the caller's testdata directory.
func LoadTestdata(t *testing.T, filename string) []byte {
	t.Helper()

	testdataPath := filepath.Join("testdata", filename)

	data, err := os.ReadFile(testdataPath) //nolint:gosec // Test file paths are controlled
	if err != nil {
		t.Fatalf("Failed to load testdata file %s: %v", testdataPath, err)
	}

	return data
}

// LoadJSON loads and unmarshals JSON from a testdata file.
func LoadJSON(t *testing.T, filename string, v any) {
	t.Helper()

	data := LoadTestdata(t, filename)

	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("Failed to unmarshal JSON from testdata file %s: %v", filename, err)
	}
}

// Server is an httptest server that answers request paths with testdata
// files and records every request it sees.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]string
	requests []*http.Request
}

// NewServer starts a server. routes maps a request path (without query) to
// a testdata filename; unknown paths get a 404 with a JSON error body.
func NewServer(t *testing.T, routes map[string]string) *Server {
	t.Helper()

	s := &Server{routes: routes}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Clone(r.Context()))
		file, ok := s.routes[r.URL.Path]
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":"failure"}`))
			return
		}
		data, err := os.ReadFile(filepath.Join("testdata", file)) //nolint:gosec // Test file paths are controlled
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(s.Close)
	return s
}

// Host returns the server's host:port.
func (s *Server) Host() string {
	return strings.TrimPrefix(s.URL, "http://")
}

// Hits returns the number of requests served.
func (s *Server) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Requests returns the requests served so far.
func (s *Server) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*http.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// ClientOptions returns budget client options that point a source at s.
func (s *Server) ClientOptions() []budget.ClientOption {
	return []budget.ClientOption{budget.WithScheme("http")}
}
