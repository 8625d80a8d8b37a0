package test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Reply is one scripted response from an APIServer.
type Reply struct {
	Status int
	Body   string
	Header http.Header
}

// RecordedRequest is what an APIServer saw for a single request.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// APIServer is an httptest server standing in for the finance API. Replies are
// scripted per "METHOD path" route and served in order; once a route's script
// is used up its last reply repeats. Unscripted routes answer 404.
type APIServer struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string][]Reply
	requests []RecordedRequest
}

func NewAPIServer(t testing.TB) *APIServer {
	t.Helper()

	s := &APIServer{routes: make(map[string][]Reply)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)

	return s
}

// On appends replies to the script for method and path.
func (s *APIServer) On(method, path string, replies ...Reply) *APIServer {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := method + " " + path
	s.routes[key] = append(s.routes[key], replies...)
	return s
}

// Requests returns a copy of every request received so far.
func (s *APIServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]RecordedRequest(nil), s.requests...)
}

// Count returns how many requests were made to method and path.
func (s *APIServer) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *APIServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	key := r.Method + " " + r.URL.Path
	script := s.routes[key]
	var reply Reply
	switch len(script) {
	case 0:
		reply = Reply{Status: http.StatusNotFound, Body: `{"detail":"Not Found"}`}
	case 1:
		reply = script[0]
	default:
		reply = script[0]
		s.routes[key] = script[1:]
	}
	s.mu.Unlock()

	for k, vs := range reply.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, reply.Body)
}
