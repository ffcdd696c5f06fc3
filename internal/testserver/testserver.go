// Package testserver provides a fake tile server for tests.
package testserver

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RespondFunc decides the response for a request path. Attempt counts requests
// to the same path, starting from 1.
type RespondFunc func(path string, attempt int) (status int, body []byte)

// AlwaysOK serves the request path as tile data.
func AlwaysOK(path string, _ int) (int, []byte) {
	return http.StatusOK, TileData(path)
}

// AlwaysStatus fails every request with the given status.
func AlwaysStatus(status int) RespondFunc {
	return func(string, int) (int, []byte) {
		return status, nil
	}
}

// TileData returns the body AlwaysOK serves for path.
func TileData(path string) []byte {
	return []byte("tile:" + path)
}

type Server struct {
	*httptest.Server

	mu         sync.Mutex
	requests   map[string]int
	userAgents map[string]bool
	respond    RespondFunc
}

// New starts a server that is closed at the end of the test.
func New(t testing.TB, respond RespondFunc) *Server {
	t.Helper()

	s := &Server{
		requests:   make(map[string]int),
		userAgents: make(map[string]bool),
		respond:    respond,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests[r.URL.Path]++
	attempt := s.requests[r.URL.Path]
	s.userAgents[r.UserAgent()] = true
	s.mu.Unlock()

	status, body := s.respond(r.URL.Path, attempt)
	w.WriteHeader(status)
	w.Write(body)
}

// Template returns the URL template of the server in "{z}/{x}/{y}" order.
func (s *Server) Template() string {
	return s.URL + "/{z}/{x}/{y}.png"
}

// Requests returns the number of requests made for path.
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// TotalRequests returns the number of requests made for all paths.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.requests {
		total += n
	}
	return total
}

// Paths returns the number of distinct paths requested.
func (s *Server) Paths() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// SawUserAgent reports whether any request carried the given User-Agent.
func (s *Server) SawUserAgent(userAgent string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userAgents[userAgent]
}
