package cli

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfqa-dev/pdfqa/internal/backend"
	"github.com/pdfqa-dev/pdfqa/internal/backend/backendtest"
	"github.com/pdfqa-dev/pdfqa/internal/config"
	"github.com/pdfqa-dev/pdfqa/internal/credential"
	"github.com/pdfqa-dev/pdfqa/internal/log"
	"github.com/pdfqa-dev/pdfqa/internal/session"
	"github.com/pdfqa-dev/pdfqa/internal/testutil"
	"github.com/pdfqa-dev/pdfqa/internal/watch"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// isolate points config and credential lookups at a fresh directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvBackendURL, "")
	return dir
}

// run executes the root command with args. Flag variables are reset first
// because cobra keeps them between executions.
func run(t *testing.T, in io.Reader, args ...string) result {
	t.Helper()
	backendFlag, configFlag, verbose = "", "", false
	askUpload = ""
	watchExisting, watchSettle = false, watch.DefaultSettle
	configForce = false
	logLimit, logSession = 20, ""

	if in == nil {
		in = strings.NewReader("")
	}
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(in)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func TestAskPrintsAnswer(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	srv.SetDocument("report.pdf", 12, 12)

	res := run(t, nil, "ask", "--backend", srv.URL, "what", "is", "it?")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "You asked: what is it?")
	assert.Contains(t, res.stderr, "report.pdf loaded: 12 chunks, 12 vectors")
	assert.Equal(t, 1, srv.Count(backend.PathAsk))
}

func TestAskWithoutDocument(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)

	res := run(t, nil, "ask", "--backend", srv.URL, "anything")
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, errReported)
	assert.ErrorIs(t, res.err, session.ErrNoDocument)
	assert.Contains(t, res.stderr, session.MsgNoDocument)
	assert.Zero(t, srv.Count(backend.PathAsk))
}

func TestAskServerError(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	srv.SetDocument("report.pdf", 1, 1)
	srv.AskFunc = func(string) (int, any) { return http.StatusInternalServerError, nil }

	res := run(t, nil, "ask", "--backend", srv.URL, "q")
	assert.ErrorIs(t, res.err, errReported)
	assert.Contains(t, res.stderr, "Error contacting server: Server error: 500")
}

func TestAskUploadsFirst(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	path := testutil.WriteDoc(t, "manual.pdf", testutil.MinimalPDF(1))

	res := run(t, nil, "ask", "--backend", srv.URL, "--upload", path, "how?")
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, 1, srv.Count(backend.PathUpload))
	assert.Contains(t, res.stdout, "You asked: how?")
}

func TestUploadRejectsText(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	path := testutil.WriteDoc(t, "notes.txt", []byte("hello"))

	res := run(t, nil, "upload", "--backend", srv.URL, path)
	assert.ErrorIs(t, res.err, session.ErrInvalidFileType)
	assert.Contains(t, res.stderr, session.MsgInvalidFile)
	assert.Zero(t, srv.Count(backend.PathUpload))
}

func TestStatus(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	srv.SetDocument("report.pdf", 3, 4)

	res := run(t, nil, "status", "--backend", srv.URL)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Backend: "+srv.URL)
	assert.Contains(t, res.stdout, "API key: (none)")
	assert.Contains(t, res.stderr, "report.pdf loaded: 3 chunks, 4 vectors")
}

func TestStatusUnreachable(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	srv.StatusCode = http.StatusServiceUnavailable

	res := run(t, nil, "status", "--backend", srv.URL)
	require.Error(t, res.err)
	assert.NotErrorIs(t, res.err, errReported)
}

func TestKeyLifecycle(t *testing.T) {
	dir := isolate(t)
	srv := backendtest.New(t)
	srv.ValidKey = "sk-live-1234"

	res := run(t, nil, "key", "set", "sk-live-1234")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stderr, session.MsgCredentialSaved)

	data, err := os.ReadFile(filepath.Join(dir, "api_key"))
	require.NoError(t, err)
	assert.Equal(t, "sk-live-1234", strings.TrimSpace(string(data)))

	res = run(t, nil, "key", "show")
	require.NoError(t, res.err)
	assert.Equal(t, credential.Mask("sk-live-1234")+"\n", res.stdout)
	assert.Contains(t, res.stderr, "(stored in "+filepath.Join(dir, "api_key")+")")

	res = run(t, nil, "key", "test", "--backend", srv.URL)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stderr, session.MsgCredentialValid)

	res = run(t, nil, "key", "clear")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, session.MsgCredentialGone)

	res = run(t, nil, "key", "show")
	assert.Error(t, res.err)
}

func TestKeySetFromStdin(t *testing.T) {
	isolate(t)

	res := run(t, strings.NewReader("  sk-piped  \n"), "key", "set")
	require.NoError(t, res.err, res.stderr)

	res = run(t, nil, "key", "show")
	require.NoError(t, res.err)
	assert.Equal(t, credential.Mask("sk-piped")+"\n", res.stdout)
}

func TestKeySetEmpty(t *testing.T) {
	isolate(t)
	res := run(t, strings.NewReader("\n"), "key", "set")
	assert.ErrorIs(t, res.err, session.ErrEmptyCredential)
	assert.Contains(t, res.stderr, session.MsgEmptyCredential)
}

func TestKeyTestRejected(t *testing.T) {
	isolate(t)
	srv := backendtest.New(t)
	srv.ValidKey = "sk-good"

	res := run(t, nil, "key", "test", "--backend", srv.URL, "sk-bad")
	assert.ErrorIs(t, res.err, errReported)
	assert.Contains(t, res.stderr, "Invalid API key")
}

func TestEnvKeyOverridesStored(t *testing.T) {
	isolate(t)
	require.NoError(t, run(t, nil, "key", "set", "sk-stored").err)

	t.Setenv(config.EnvAPIKey, "sk-from-env")
	res := run(t, nil, "key", "show")
	require.NoError(t, res.err)
	assert.Equal(t, credential.Mask("sk-from-env")+"\n", res.stdout)
	assert.Contains(t, res.stderr, "(from "+config.EnvAPIKey+")")
}

func TestConfigInitAndShow(t *testing.T) {
	dir := isolate(t)

	res := run(t, nil, "config", "init", "--backend", "http://qa.internal:8080")
	require.NoError(t, res.err)
	path := filepath.Join(dir, "config.yaml")
	assert.FileExists(t, path)

	res = run(t, nil, "config", "init")
	assert.Error(t, res.err, "existing config is not overwritten")

	res = run(t, nil, "config", "show")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "http://qa.internal:8080")
	assert.Contains(t, res.stderr, path)
}

func TestBadBackendFlag(t *testing.T) {
	isolate(t)
	res := run(t, nil, "status", "--backend", "localhost:5000")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "must start with http://")
}

func TestWatchRejectsFile(t *testing.T) {
	isolate(t)
	path := testutil.WriteDoc(t, "a.pdf", testutil.MinimalPDF(1))

	res := run(t, nil, "watch", path)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "is not a directory")
}

// withEventLog writes a config.yaml into dir that enables the event log and
// returns the log path.
func withEventLog(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "events.jsonl")
	cfg := config.DefaultConfig()
	cfg.Log.File = path
	require.NoError(t, config.WriteConfig(filepath.Join(dir, "config.yaml"), cfg))
	return path
}

func TestLogShowsSessionEvents(t *testing.T) {
	dir := isolate(t)
	logPath := withEventLog(t, dir)
	srv := backendtest.New(t)
	doc := testutil.WriteDoc(t, "manual.pdf", testutil.MinimalPDF(1))

	require.NoError(t, run(t, nil, "ask", "--backend", srv.URL, "--upload", doc, "how?").err)
	require.FileExists(t, logPath)

	res := run(t, nil, "log")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "upload_completed")
	assert.Contains(t, res.stdout, "manual.pdf")
	assert.Contains(t, res.stdout, `"how?"`)
	assert.Contains(t, res.stdout, "answer_received")

	res = run(t, nil, "log", "--limit", "1")
	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "answer_received")
}

func TestLogFiltersBySession(t *testing.T) {
	dir := isolate(t)
	withEventLog(t, dir)
	srv := backendtest.New(t)
	srv.SetDocument("report.pdf", 1, 1)

	require.NoError(t, run(t, nil, "ask", "--backend", srv.URL, "first").err)
	require.NoError(t, run(t, nil, "ask", "--backend", srv.URL, "second").err)

	events, err := log.ReadAll(filepath.Join(dir, "events.jsonl"))
	require.NoError(t, err)
	require.NotEmpty(t, events)
	last := events[len(events)-1].Session
	require.NotEmpty(t, last)

	res := run(t, nil, "log", "--session", last, "--limit", "0")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"second"`)
	assert.NotContains(t, res.stdout, `"first"`)
}

func TestLogDisabled(t *testing.T) {
	isolate(t)
	res := run(t, nil, "log")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "event log is disabled")
}

func TestLogEmpty(t *testing.T) {
	withEventLog(t, isolate(t))
	res := run(t, nil, "log")
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, "No events recorded.")
}
