// Package fetch defines the transport boundary used by the resolver.
//
// A Fetcher maps an absolute resource address (a normalized POSIX path such
// as "/node_modules/foo/index.d.ts", optionally carrying a scheme and host)
// to the raw bytes of that resource. Implementations own any retry policy;
// the resolver itself never retries beyond its dist/types fallback.
package fetch

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound indicates the resource does not exist (HTTP 404, missing file).
var ErrNotFound = errors.New("resource not found")

// Fetcher retrieves resource content by address.
type Fetcher interface {
	// Fetch returns the content at address.
	// Must respect context cancellation and deadlines.
	Fetch(ctx context.Context, address string) ([]byte, error)
}

// Func adapts a function to the Fetcher interface.
type Func func(ctx context.Context, address string) ([]byte, error)

// Fetch implements Fetcher.
func (f Func) Fetch(ctx context.Context, address string) ([]byte, error) {
	return f(ctx, address)
}

// StatusError is returned for non-2xx HTTP responses other than 404.
// Wrapping the status code allows callers to distinguish retriable (5xx)
// from non-retriable (4xx) failures.
type StatusError struct {
	Code    int
	Address string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.Address, e.Code)
}

// Retriable reports whether the status warrants another attempt.
func (e *StatusError) Retriable() bool {
	return e.Code >= 500 || e.Code == 429
}
