package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 64 * 1024

// Client talks to one question-answering service.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. Zero, the default, waits indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root this client was built for.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Status reports whether the service already holds an ingested document.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, PathStatus, nil, "", "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload streams a document to the service as multipart field "file".
// apiKey is sent in X-API-Key when non-empty.
func (c *Client) Upload(ctx context.Context, filename string, body io.Reader, apiKey string) (*UploadResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile(UploadField, filename)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, body); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	var out UploadResponse
	if err := c.do(ctx, http.MethodPost, PathUpload, pr, mw.FormDataContentType(), apiKey, &out); err != nil {
		// Unblock the writer goroutine if the request never drained the pipe.
		_ = pr.Close()
		return nil, err
	}
	return &out, nil
}

// Ask sends a question about the loaded document.
func (c *Client) Ask(ctx context.Context, question, apiKey string) (*AskResponse, error) {
	body, err := json.Marshal(AskRequest{Question: question})
	if err != nil {
		return nil, fmt.Errorf("marshal ask request: %w", err)
	}

	var out AskResponse
	if err := c.do(ctx, http.MethodPost, PathAsk, bytes.NewReader(body), "application/json", apiKey, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TestAPIKey asks the service whether key is accepted. A nil error means
// the key is valid.
func (c *Client) TestAPIKey(ctx context.Context, key string) error {
	body, err := json.Marshal(TestAPIKeyRequest{APIKey: key})
	if err != nil {
		return fmt.Errorf("marshal api key request: %w", err)
	}
	return c.do(ctx, http.MethodPost, PathTestAPIKey, bytes.NewReader(body), "application/json", "", nil)
}

// do performs one request. A nil out skips decoding the success body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType, apiKey string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if apiKey != "" {
		req.Header.Set(HeaderAPIKey, apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: "decode " + path + " response", Err: err}
	}
	return nil
}

// decodeAPIError builds an APIError, pulling the message from a JSON
// {"error": ...} body when present.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var eb errorBody
	if json.Unmarshal(data, &eb) == nil {
		switch {
		case eb.Error != "":
			apiErr.Message = eb.Error
		case eb.Message != "":
			apiErr.Message = eb.Message
		}
	}
	return apiErr
}
