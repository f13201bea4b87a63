package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
)

// AFSFetcher reads resources through an abstract file storage service.
// Addresses are joined under Root, so "/node_modules/foo/package.json"
// with Root "file:///srv/project" reads
// "file:///srv/project/node_modules/foo/package.json". Any scheme the
// afs registry knows (file, mem, s3 when registered) works.
type AFSFetcher struct {
	fs   afs.Service
	root string
}

// NewAFS creates an AFS-backed fetcher rooted at root.
// A nil service uses afs.New().
func NewAFS(fs afs.Service, root string) *AFSFetcher {
	if fs == nil {
		fs = afs.New()
	}
	return &AFSFetcher{fs: fs, root: strings.TrimRight(root, "/")}
}

// URL returns the storage URL for address.
func (f *AFSFetcher) URL(address string) string {
	rel := strings.TrimLeft(address, "/")
	if f.root == "" {
		return "/" + rel
	}
	return url.Join(f.root, rel)
}

// Fetch implements Fetcher. Missing resources map to ErrNotFound.
func (f *AFSFetcher) Fetch(ctx context.Context, address string) ([]byte, error) {
	URL := f.URL(address)
	data, err := f.fs.DownloadWithURL(ctx, URL)
	if err == nil {
		return data, nil
	}
	if exists, existsErr := f.fs.Exists(ctx, URL); existsErr == nil && !exists {
		return nil, fmt.Errorf("fetch %s: %w", URL, ErrNotFound)
	}
	return nil, fmt.Errorf("fetch %s: %w", URL, err)
}

// Verify AFSFetcher implements Fetcher.
var _ Fetcher = (*AFSFetcher)(nil)
