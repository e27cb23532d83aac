package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultUserAgent imitates a desktop browser. Several of the configured
// sites refuse requests with obvious bot agents.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/85.0.4183.102 Safari/537.36"

// Fetcher retrieves raw listing markup for a source URL. Retry, if any, is
// the pipeline's policy, not the fetcher's.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is the standard Fetcher backed by net/http.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher returns a fetcher with a 10 second timeout and the default
// User-Agent.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:    &http.Client{Timeout: 10 * time.Second},
		UserAgent: defaultUserAgent,
	}
}

// Fetch performs a GET against the URL and returns the response body. A
// non-200 status is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.UserAgent)

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
