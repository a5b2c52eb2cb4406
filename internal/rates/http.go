package rates

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// NewHTTPClient creates an HTTP client with the given timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
	}
}

// DefaultHTTPClient returns a standard HTTP client with 30s timeout.
func DefaultHTTPClient() *http.Client {
	return NewHTTPClient(30 * time.Second)
}

// fetched is one GET exchange with the body fully read.
type fetched struct {
	StatusCode   int
	LastModified string
	Body         []byte
}

func fetch(ctx context.Context, client *http.Client, url string) (*fetched, error) {
	if client == nil {
		client = DefaultHTTPClient()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	out := &fetched{
		StatusCode:   resp.StatusCode,
		LastModified: resp.Header.Get("Last-Modified"),
	}
	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return out, nil
	}
	out.Body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return out, nil
}
