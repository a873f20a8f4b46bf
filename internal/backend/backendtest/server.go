// Package backendtest provides an in-process stand-in for the
// question-answering service. It serves the four endpoints from canned
// state, records every request, and can hold requests open so tests can
// observe in-flight behavior.
package backendtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/pdfqa-dev/pdfqa/internal/backend"
)

// Request is one recorded call.
type Request struct {
	Method    string
	Path      string
	APIKey    string
	RequestID string
	Question  string // POST /ask
	KeyTested string // POST /test-api-key
	Filename  string // POST /upload
	FileSize  int64  // POST /upload
}

// Server is a fake backend. Zero-valued handler fields fall back to a
// well-behaved default; set them to script failures.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	status   backend.StatusResponse

	// ValidKey is the only key /test-api-key accepts. Empty accepts any
	// non-empty key.
	ValidKey string

	// AskFunc, when set, produces the /ask response. A non-zero status
	// writes that status with body as JSON.
	AskFunc func(question string) (status int, body any)

	// UploadFunc, when set, produces the /upload response.
	UploadFunc func(filename string, size int64) (status int, body any)

	// KeyFunc, when set, answers /test-api-key in place of the ValidKey
	// check. A zero status means 200.
	KeyFunc func(key string) (int, any)

	// StatusCode, when non-zero, makes /status fail with that code.
	StatusCode int

	// Hold, when non-nil, blocks /ask and /upload until it is closed or
	// receives a value. Entered is signalled when a held request arrives.
	Hold    chan struct{}
	Entered chan struct{}
}

// New starts a fake backend and closes it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{}
	mux := http.NewServeMux()
	mux.HandleFunc(backend.PathStatus, s.handleStatus)
	mux.HandleFunc(backend.PathUpload, s.handleUpload)
	mux.HandleFunc(backend.PathAsk, s.handleAsk)
	mux.HandleFunc(backend.PathTestAPIKey, s.handleTestAPIKey)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Client returns a backend client bound to this server.
func (s *Server) Client() *backend.Client {
	return backend.NewClient(s.URL, backend.WithHTTPClient(s.Server.Client()))
}

// SetDocument makes /status report a loaded document.
func (s *Server) SetDocument(filename string, chunks, vectors int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = backend.StatusResponse{Loaded: true, Filename: filename, Chunks: chunks, Vectors: vectors}
}

// Requests returns a copy of every recorded request.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests hit path.
func (s *Server) Count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) record(r *http.Request, req Request) {
	req.Method = r.Method
	req.Path = r.URL.Path
	req.APIKey = r.Header.Get(backend.HeaderAPIKey)
	req.RequestID = r.Header.Get(backend.HeaderRequestID)

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
}

func (s *Server) hold() {
	if s.Hold == nil {
		return
	}
	if s.Entered != nil {
		s.Entered <- struct{}{}
	}
	<-s.Hold
}

// --- Handlers ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.record(r, Request{})
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.StatusCode != 0 {
		writeJSONStatus(w, s.StatusCode, map[string]string{"error": "status unavailable"})
		return
	}

	s.mu.Lock()
	status := s.status
	s.mu.Unlock()
	writeJSON(w, status)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.record(r, Request{})
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile(backend.UploadField)
	if err != nil {
		s.record(r, Request{})
		writeJSONStatus(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}
	size, _ := io.Copy(io.Discard, file)
	_ = file.Close()
	s.record(r, Request{Filename: header.Filename, FileSize: size})

	s.hold()

	if s.UploadFunc != nil {
		if status, body := s.UploadFunc(header.Filename, size); status != 0 {
			writeJSONStatus(w, status, body)
			return
		}
	}

	// One chunk per started KiB is close enough for a fake.
	chunks := int(size/1024) + 1
	s.SetDocument(header.Filename, chunks, chunks)
	writeJSON(w, backend.UploadResponse{Filename: header.Filename, Chunks: chunks, Vectors: chunks})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req backend.AskRequest
	if !readJSON(w, r, &req) {
		s.record(r, Request{})
		return
	}
	s.record(r, Request{Question: req.Question})

	s.hold()

	if s.AskFunc != nil {
		status, body := s.AskFunc(req.Question)
		if status == 0 {
			status = http.StatusOK
		}
		writeJSONStatus(w, status, body)
		return
	}

	writeJSON(w, backend.AskResponse{Answer: fmt.Sprintf("You asked: %s", req.Question)})
}

func (s *Server) handleTestAPIKey(w http.ResponseWriter, r *http.Request) {
	var req backend.TestAPIKeyRequest
	if !readJSON(w, r, &req) {
		s.record(r, Request{})
		return
	}
	s.record(r, Request{KeyTested: req.APIKey})

	if s.KeyFunc != nil {
		status, body := s.KeyFunc(req.APIKey)
		if status == 0 {
			status = http.StatusOK
		}
		writeJSONStatus(w, status, body)
		return
	}

	valid := req.APIKey != "" && (s.ValidKey == "" || req.APIKey == s.ValidKey)
	if !valid {
		writeJSONStatus(w, http.StatusUnauthorized, map[string]string{"error": "Invalid API key"})
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, fmt.Sprintf("invalid JSON: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
