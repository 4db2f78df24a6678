// Package fetcher downloads customs data releases from national trade
// portals over HTTP and FTP, and reads the CSV, XLSX and ZIP formats they
// publish in.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Source downloads remote customs releases.
type Source interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path.
	// Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// ForURL picks a source by URL scheme. Portals publish either plain HTTPS
// downloads or anonymous FTP drops; both are supported.
func ForURL(rawURL string, http *HTTPFetcher, ftp *FTPFetcher) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %q", rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return http, nil
	case "ftp":
		return ftp, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}
