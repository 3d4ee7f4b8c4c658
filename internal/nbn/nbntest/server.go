// Package nbntest serves canned NBN places API responses from a directory of fixtures.
package nbntest

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// Server answers /v1/autocomplete from query.<slug>.json and /v2/details/<id> from
// details.<id>.json, where slug is the lower-case query with spaces replaced by hyphens.
// Unknown queries return an empty suggestion list; unknown ids return 404.
type Server struct {
	*httptest.Server

	dir string

	mu       sync.Mutex
	searches map[string]int
	details  map[string]int
	failures map[string]int
}

func NewServer(t testing.TB, dir string) *Server {
	t.Helper()
	s := &Server{
		dir:      dir,
		searches: map[string]int{},
		details:  map[string]int{},
		failures: map[string]int{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/autocomplete", s.autocomplete)
	mux.HandleFunc("/v2/details/", s.detail)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Slug converts a query into its fixture name.
func Slug(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), "-"))
}

// FailNext makes the next n requests whose search slug or detail id equals key answer 503.
func (s *Server) FailNext(key string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[key] = n
}

// Searches returns how many autocomplete requests were received for query.
func (s *Server) Searches(query string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches[Slug(query)]
}

// TotalSearches returns the number of autocomplete requests received.
func (s *Server) TotalSearches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.searches {
		total += n
	}
	return total
}

// Details returns how many detail requests were received for id.
func (s *Server) Details(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.details[id]
}

func (s *Server) shouldFail(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures[key] > 0 {
		s.failures[key]--
		return true
	}
	return false
}

func (s *Server) autocomplete(w http.ResponseWriter, r *http.Request) {
	slug := Slug(r.URL.Query().Get("query"))
	s.mu.Lock()
	s.searches[slug]++
	s.mu.Unlock()
	if s.shouldFail(slug) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	body, err := os.ReadFile(filepath.Join(s.dir, "query."+slug+".json"))
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"suggestions":[]}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) detail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v2/details/")
	s.mu.Lock()
	s.details[id]++
	s.mu.Unlock()
	if s.shouldFail(id) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	body, err := os.ReadFile(filepath.Join(s.dir, "details."+id+".json"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
