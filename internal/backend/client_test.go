package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfqa-dev/pdfqa/internal/backend"
	"github.com/pdfqa-dev/pdfqa/internal/backend/backendtest"
)

func TestStatus(t *testing.T) {
	srv := backendtest.New(t)
	c := srv.Client()

	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Loaded)

	srv.SetDocument("manual.pdf", 40, 40)
	st, err = c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Loaded)
	assert.Equal(t, "manual.pdf", st.Filename)
	assert.Equal(t, 40, st.Chunks)
	assert.Equal(t, 40, st.Vectors)
}

func TestUploadSendsMultipartAndKey(t *testing.T) {
	srv := backendtest.New(t)
	srv.UploadFunc = func(filename string, size int64) (int, any) {
		return http.StatusOK, backend.UploadResponse{Filename: filename, Chunks: 12, Vectors: 12}
	}

	resp, err := srv.Client().Upload(context.Background(), "report.pdf", strings.NewReader("%PDF-1.4 body"), "sk-123")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", resp.Filename)
	assert.Equal(t, 12, resp.Chunks)
	assert.Equal(t, 12, resp.Vectors)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, backend.PathUpload, reqs[0].Path)
	assert.Equal(t, "report.pdf", reqs[0].Filename)
	assert.Equal(t, int64(len("%PDF-1.4 body")), reqs[0].FileSize)
	assert.Equal(t, "sk-123", reqs[0].APIKey)
	assert.NotEmpty(t, reqs[0].RequestID)
}

func TestUploadBackendError(t *testing.T) {
	srv := backendtest.New(t)
	srv.UploadFunc = func(string, int64) (int, any) {
		return http.StatusBadRequest, map[string]string{"error": "PDF has no extractable text"}
	}

	_, err := srv.Client().Upload(context.Background(), "scan.pdf", strings.NewReader("x"), "")
	require.Error(t, err)

	var apiErr *backend.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "PDF has no extractable text", backend.ErrorMessage(err))
}

func TestAskDecodesSources(t *testing.T) {
	srv := backendtest.New(t)
	d := 0.42
	srv.AskFunc = func(q string) (int, any) {
		return 0, backend.AskResponse{
			Answer: "Forty-two.",
			Sources: []backend.Source{
				{Text: "The answer is 42.", Source: "guide.pdf", Distance: &d},
				{Text: "No origin."},
			},
		}
	}

	resp, err := srv.Client().Ask(context.Background(), "What is the answer?", "key")
	require.NoError(t, err)
	assert.Equal(t, "Forty-two.", resp.Answer)
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, "guide.pdf", resp.Sources[0].Source)
	require.NotNil(t, resp.Sources[0].Distance)
	assert.InDelta(t, 0.42, *resp.Sources[0].Distance, 1e-9)
	assert.Empty(t, resp.Sources[1].Source)
	assert.Nil(t, resp.Sources[1].Distance)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "What is the answer?", reqs[0].Question)
	assert.Equal(t, "key", reqs[0].APIKey)
}

func TestAskNon2xxWithoutBody(t *testing.T) {
	srv := backendtest.New(t)
	srv.AskFunc = func(string) (int, any) { return http.StatusBadGateway, nil }

	_, err := srv.Client().Ask(context.Background(), "q", "")
	require.Error(t, err)
	assert.Equal(t, "Server error: 502", err.Error())
	assert.Equal(t, http.StatusBadGateway, backend.StatusCode(err))
	assert.Empty(t, backend.ErrorMessage(err))
}

func TestTestAPIKey(t *testing.T) {
	srv := backendtest.New(t)
	srv.ValidKey = "good"
	c := srv.Client()

	require.NoError(t, c.TestAPIKey(context.Background(), "good"))

	err := c.TestAPIKey(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, backend.IsUnauthorized(err))
	assert.Equal(t, "Invalid API key", backend.ErrorMessage(err))

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "good", reqs[0].KeyTested)
	assert.Empty(t, reqs[0].APIKey, "test-api-key sends the key in the body, not the header")
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := backend.NewClient(url).Status(context.Background())
	require.Error(t, err)

	var te *backend.TransportError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, 0, backend.StatusCode(err))
}

func TestMalformedResponseIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
	}))
	t.Cleanup(srv.Close)

	_, err := backend.NewClient(srv.URL).Ask(context.Background(), "q", "")
	var te *backend.TransportError
	require.True(t, errors.As(err, &te))
	assert.Contains(t, te.Op, "decode")
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := backend.NewClient(srv.URL, backend.WithTimeout(50*time.Millisecond))
	_, err := c.Status(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestBaseURLTrimsSlash(t *testing.T) {
	c := backend.NewClient("http://localhost:5000/")
	assert.Equal(t, "http://localhost:5000", c.BaseURL())
}
