// Package backend is the HTTP client for the question-answering service.
// The service ingests one PDF at a time and answers questions about it;
// this package only speaks its four endpoints.
package backend

// Endpoint paths.
const (
	PathStatus     = "/status"
	PathUpload     = "/upload"
	PathAsk        = "/ask"
	PathTestAPIKey = "/test-api-key"
)

// HeaderAPIKey carries the stored credential on protected requests.
const HeaderAPIKey = "X-API-Key"

// HeaderRequestID tags each request so client and server logs line up.
const HeaderRequestID = "X-Request-ID"

// UploadField is the multipart form field holding the document.
const UploadField = "file"

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Loaded   bool   `json:"loaded"`
	Filename string `json:"filename,omitempty"`
	Chunks   int    `json:"chunks,omitempty"`
	Vectors  int    `json:"vectors,omitempty"`
}

// UploadResponse is returned by POST /upload on success.
type UploadResponse struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks"`
	Vectors  int    `json:"vectors"`
}

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is returned by POST /ask.
type AskResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources,omitempty"`
}

// Source is a retrieved passage cited alongside an answer.
// Distance is the vector distance to the question; lower is closer.
type Source struct {
	Text     string   `json:"text"`
	Source   string   `json:"source,omitempty"`
	Distance *float64 `json:"distance,omitempty"`
}

// TestAPIKeyRequest is the body of POST /test-api-key.
type TestAPIKeyRequest struct {
	APIKey string `json:"api_key"`
}

// errorBody is the shape of error payloads from any endpoint.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
