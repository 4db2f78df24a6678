package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHTTPFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{Timeout: 5 * time.Second, MaxRetries: 3})
}

func TestHTTPFetcher_Download(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hs,qty\n690721,1000\n")) //nolint:errcheck
	}))
	defer srv.Close()

	body, err := testHTTPFetcher().Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "690721")
}

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer srv.Close()

	body, err := testHTTPFetcher().Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, 3, attempts)
}

func TestHTTPFetcher_DownloadToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload")) //nolint:errcheck
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "release.csv")
	n, err := testHTTPFetcher().DownloadToFile(context.Background(), srv.URL, path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestHTTPFetcher_DownloadIfChanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("fresh")) //nolint:errcheck
	}))
	defer srv.Close()

	f := testHTTPFetcher()

	body, etag, changed, err := f.DownloadIfChanged(context.Background(), srv.URL, "")
	require.NoError(t, err)
	require.True(t, changed)
	body.Close()
	assert.Equal(t, `"v1"`, etag)

	body, etag, changed, err = f.DownloadIfChanged(context.Background(), srv.URL, `"v1"`)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Nil(t, body)
	assert.Equal(t, `"v1"`, etag)
}

func TestAdaptiveLimiter_TunesWithinBounds(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)

	for n := 0; n < 20; n++ {
		lim.OnSuccess()
	}
	assert.InDelta(t, 20, float64(lim.Limit()), 1e-9, "caps at 2x initial")

	for n := 0; n < 20; n++ {
		lim.OnRateLimit()
	}
	assert.InDelta(t, 2.5, float64(lim.Limit()), 1e-9, "floors at initial/4")
}

func TestHTTPFetcher_AdaptiveForConcurrent(t *testing.T) {
	f := testHTTPFetcher()

	// Concurrent downloads hit the lazy per-host map; every goroutine must
	// see the same limiter for a host and none may race the insert.
	urls := []string{
		"https://comtradeapi.un.org/v1/a",
		"https://comtradeapi.un.org/v1/b",
		"https://balanca.economia.gov.br/x",
	}
	results := make(chan *AdaptiveLimiter, 40)
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			results <- f.adaptiveFor(u)
		}(urls[i%len(urls)])
	}
	wg.Wait()
	close(results)

	for lim := range results {
		require.NotNil(t, lim)
	}
	assert.Len(t, f.adaptiveLimiters, 2)
	assert.Same(t,
		f.adaptiveFor("https://comtradeapi.un.org/v1/a"),
		f.adaptiveFor("https://comtradeapi.un.org/v1/b"))
}

func TestForURL(t *testing.T) {
	httpF := testHTTPFetcher()
	ftpF := NewFTPFetcher(FTPOptions{})

	src, err := ForURL("https://example.org/exports.zip", httpF, ftpF)
	require.NoError(t, err)
	assert.Equal(t, Source(httpF), src)

	src, err = ForURL("ftp://drop.example.org/exports.zip", httpF, ftpF)
	require.NoError(t, err)
	assert.Equal(t, Source(ftpF), src)

	_, err = ForURL("gopher://example.org/x", httpF, ftpF)
	assert.Error(t, err)
}

func TestParseFTPURL(t *testing.T) {
	host, path, err := parseFTPURL("ftp://drop.example.org/pub/exports.zip")
	require.NoError(t, err)
	assert.Equal(t, "drop.example.org:21", host)
	assert.Equal(t, "/pub/exports.zip", path)

	_, _, err = parseFTPURL("https://example.org/x")
	assert.Error(t, err)

	_, _, err = parseFTPURL("ftp://example.org")
	assert.Error(t, err)
}
