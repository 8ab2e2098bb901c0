package preload

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// Fetcher retrieves a static asset by its site-relative path.
type Fetcher interface {
	Fetch(ctx context.Context, relPath string) ([]byte, error)
}

// FetchError reports a non-success HTTP response.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// HTTPFetcher fetches assets relative to a base URL with plain GET requests.
type HTTPFetcher struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPFetcher creates a fetcher rooted at baseURL. A nil client uses
// http.DefaultClient.
func NewHTTPFetcher(baseURL string, client *http.Client) (*HTTPFetcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL '%s': %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL '%s': scheme must be http or https", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{base: u, client: client}, nil
}

// URL resolves relPath against the base URL.
func (f *HTTPFetcher) URL(relPath string) string {
	ref := &url.URL{Path: strings.TrimPrefix(relPath, "/")}
	return f.base.ResolveReference(ref).String()
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, relPath string) ([]byte, error) {
	target := f.URL(relPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}

// DirFetcher reads assets from a file system, normally the site directory.
type DirFetcher struct {
	fsys fs.FS
}

// NewDirFetcher creates a fetcher over fsys.
func NewDirFetcher(fsys fs.FS) *DirFetcher {
	return &DirFetcher{fsys: fsys}
}

// Fetch implements Fetcher.
func (f *DirFetcher) Fetch(ctx context.Context, relPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := path.Clean(strings.TrimPrefix(relPath, "/"))
	return fs.ReadFile(f.fsys, name)
}
