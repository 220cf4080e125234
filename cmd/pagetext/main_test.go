package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fwojciec/pagetext"
	main "github.com/fwojciec/pagetext/cmd/pagetext"
	pthttp "github.com/fwojciec/pagetext/http"
	"github.com/fwojciec/pagetext/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var article = strings.Repeat("The command line prints the readable text of a page. ", 4)

func articleServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>CLI Page</title>
			<meta name="description" content="About the CLI"></head>
			<body><nav>Skip me</nav><article>` + article + `</article></body></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newMain returns a Main whose browser fetcher is a mock that records
// calls and closes.
func newMain(fetches, closes *atomic.Int32) *main.Main {
	m := main.NewMain()
	m.Dynamic = &mock.Fetcher{
		FetchFn: func(ctx context.Context, url string, opts pagetext.ExtractionOptions) (*pagetext.ExtractionResult, error) {
			fetches.Add(1)
			return nil, pagetext.Errorf(pagetext.ELAUNCH, "no browser in tests")
		},
		CloseFn: func() error {
			closes.Add(1)
			return nil
		},
	}
	return m
}

func TestMain_Run_Help(t *testing.T) {
	t.Parallel()

	m := main.NewMain()
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{"--help"}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "pagetext")
	assert.Contains(t, stdout.String(), "--force-browser")
}

func TestMain_Run_NoArgs(t *testing.T) {
	t.Parallel()

	m := main.NewMain()
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{}, &stdout, &stderr)

	require.Error(t, err)
	assert.Contains(t, stdout.String(), "pagetext")
}

func TestMain_Run_RejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	var fetches, closes atomic.Int32
	m := newMain(&fetches, &closes)
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{"--format", "xml", "https://example.com"}, &stdout, &stderr)

	require.Error(t, err)
	assert.Equal(t, int32(0), fetches.Load())
}

func TestMain_Run_ExtractsStaticPage(t *testing.T) {
	t.Parallel()

	srv := articleServer(t)
	var fetches, closes atomic.Int32
	m := newMain(&fetches, &closes)
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{srv.URL}, &stdout, &stderr)

	require.NoError(t, err)
	out := stdout.String()
	assert.Contains(t, out, "# CLI Page")
	assert.Contains(t, out, "About the CLI")
	assert.Contains(t, out, "The command line prints")
	assert.NotContains(t, out, "Skip me")
	assert.Equal(t, int32(0), fetches.Load(), "plain pages never reach the browser")
	assert.Equal(t, int32(1), closes.Load(), "engine is closed before returning")
}

func TestMain_Run_JSONOutput(t *testing.T) {
	t.Parallel()

	srv := articleServer(t)
	var fetches, closes atomic.Int32
	m := newMain(&fetches, &closes)
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{"--format", "json", srv.URL}, &stdout, &stderr)
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, "CLI Page", got["title"])
	assert.Equal(t, srv.URL, got["url"])
	assert.Equal(t, "static", got["source"])
	assert.Equal(t, strings.TrimSpace(article), got["content"])
}

func TestMain_Run_JSFallsBackToStatic(t *testing.T) {
	t.Parallel()

	srv := articleServer(t)
	var fetches, closes atomic.Int32
	m := newMain(&fetches, &closes)
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{"--js", srv.URL}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Equal(t, int32(1), fetches.Load())
	assert.Contains(t, stdout.String(), "The command line prints")
}

func TestMain_Run_ForceBrowserReportsFailure(t *testing.T) {
	t.Parallel()

	srv := articleServer(t)
	var fetches, closes atomic.Int32
	m := newMain(&fetches, &closes)
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{"--force-browser", srv.URL}, &stdout, &stderr)

	require.Error(t, err)
	assert.Equal(t, pagetext.ELAUNCH, pagetext.ErrorCode(err))
	assert.Equal(t, int32(1), closes.Load(), "engine is closed on failure too")
	assert.Empty(t, stdout.String())
}

func TestMain_Run_PolicyFile(t *testing.T) {
	t.Parallel()

	srv := articleServer(t)
	policy := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(policy, []byte("hosts: [127.0.0.1]\n"), 0o600))

	var fetches, closes atomic.Int32
	m := newMain(&fetches, &closes)
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{"--policy", policy, srv.URL}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Equal(t, int32(1), fetches.Load(), "listed host goes to the browser first")
}

func TestMain_Run_CachesResults(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`<html><body><main>` + article + `</main></body></html>`))
	}))
	defer srv.Close()

	cache := filepath.Join(t.TempDir(), "cache.db")
	for range 2 {
		var fetches, closes atomic.Int32
		m := newMain(&fetches, &closes)
		m.Static = pthttp.NewFetcher()
		var stdout, stderr bytes.Buffer

		err := m.Run(context.Background(), []string{"--cache", cache, srv.URL}, &stdout, &stderr)
		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "The command line prints")
	}

	assert.Equal(t, int32(1), hits.Load(), "second run is served from the cache")
}

func TestMain_Run_ReportsHTTPErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	var fetches, closes atomic.Int32
	m := newMain(&fetches, &closes)
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{srv.URL}, &stdout, &stderr)

	require.Error(t, err)
	assert.Equal(t, pagetext.ENOTFOUND, pagetext.ErrorCode(err))
}
