package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pithecene-io/typings/iox"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultMaxBytes bounds a single response body (16 MiB).
const DefaultMaxBytes = 16 << 20

// HTTPConfig configures the HTTP fetcher.
type HTTPConfig struct {
	// Origin is prepended to every address, e.g. "https://unpkg.com".
	// Leave empty when addresses already carry scheme and host.
	Origin string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is the number of transport-level retry attempts (default 0).
	Retries int
	// MaxBytes bounds a response body (default 16 MiB).
	MaxBytes int64
	// Client overrides the HTTP client (tests).
	Client *http.Client
}

// HTTPFetcher retrieves resources with HTTP GET.
type HTTPFetcher struct {
	config HTTPConfig
	client *http.Client
}

// NewHTTP creates an HTTP fetcher from the given config.
func NewHTTP(cfg HTTPConfig) (*HTTPFetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	cfg.Origin = strings.TrimRight(cfg.Origin, "/")

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPFetcher{config: cfg, client: client}, nil
}

// URL returns the request URL for address.
func (f *HTTPFetcher) URL(address string) string {
	if f.config.Origin == "" {
		return address
	}
	if !strings.HasPrefix(address, "/") {
		address = "/" + address
	}
	return f.config.Origin + address
}

// Fetch implements Fetcher.
// 404 maps to ErrNotFound and is never retried; 5xx, 429 and network
// errors are retried with exponential backoff up to Retries times.
func (f *HTTPFetcher) Fetch(ctx context.Context, address string) ([]byte, error) {
	url := f.URL(address)

	var lastErr error
	attempts := 1 + f.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch %s: context canceled: %w", url, err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 250 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch %s: context canceled during backoff: %w", url, ctx.Err())
			case <-time.After(backoff):
			}
		}

		data, err := f.doRequest(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if errors.Is(err, ErrNotFound) || errors.Is(err, iox.ErrTooLarge) {
			return nil, err
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retriable() {
			return nil, err
		}
	}

	if attempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("fetch %s: failed after %d attempts: %w", url, attempts, lastErr)
}

func (f *HTTPFetcher) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range f.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer iox.DiscardClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", url, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &StatusError{Code: resp.StatusCode, Address: url}
	}

	data, err := iox.ReadAllLimit(resp.Body, f.config.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", url, err)
	}
	return data, nil
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Verify HTTPFetcher implements Fetcher.
var _ Fetcher = (*HTTPFetcher)(nil)
