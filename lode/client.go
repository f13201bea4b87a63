// Package lode archives resolution results in a Lode dataset.
//
// Each resolve is written as one snapshot: a resolution header record
// followed by one record per artifact, Hive-partitioned by package and day.
package lode

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/typings/types"
)

// DefaultDataset is the default archive dataset ID.
const DefaultDataset = "typings"

// ErrEmptyPackage is returned when an entry has no package name.
var ErrEmptyPackage = errors.New("archive entry requires a package name")

// Config holds archive configuration.
type Config struct {
	// Dataset is the Lode dataset ID (default: typings).
	Dataset string
}

// Client abstracts the archive writer.
type Client interface {
	// WriteEntry archives one resolution.
	WriteEntry(ctx context.Context, e Entry) error

	// Close releases client resources.
	Close() error
}

// LodeClient is a Lode-backed Client.
type LodeClient struct {
	dataset lode.Dataset
	config  Config
}

// NewLodeClient creates an archive client with filesystem storage rooted
// at root.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates an archive client over a custom store
// factory. Tests share a lode.NewMemory() store through a factory.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	ds, err := NewReadDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &LodeClient{dataset: ds, config: cfg}, nil
}

// WriteEntry implements Client.
func (c *LodeClient) WriteEntry(ctx context.Context, e Entry) error {
	if e.Package == "" {
		return ErrEmptyPackage
	}
	if _, err := c.dataset.Write(ctx, toRecordMaps(e), lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.config.Dataset+"/package_key="+PackageKey(e.Package))
	}
	return nil
}

// WriteRecord archives rec for pkg, resolved at resolvedAt.
func (c *LodeClient) WriteRecord(ctx context.Context, pkg string, rec types.Record, resolvedAt time.Time) error {
	return c.WriteEntry(ctx, Entry{Package: pkg, Record: rec, ResolvedAt: resolvedAt})
}

// Dataset returns the underlying dataset for reads.
func (c *LodeClient) Dataset() lode.Dataset { return c.dataset }

// Close releases client resources.
func (c *LodeClient) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

// Verify LodeClient implements Client.
var _ Client = (*LodeClient)(nil)

// StubClient records entries without persisting. Safe for concurrent use.
type StubClient struct {
	mu      sync.Mutex
	Entries []Entry
	Err     error
	Closed  bool
}

// NewStubClient creates a new stub client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// WriteEntry implements Client. Returns Err when set.
func (c *StubClient) WriteEntry(_ context.Context, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.Entries = append(c.Entries, e)
	return nil
}

// Close implements Client.
func (c *StubClient) Close() error {
	c.mu.Lock()
	c.Closed = true
	c.mu.Unlock()
	return nil
}

// Verify StubClient implements Client.
var _ Client = (*StubClient)(nil)
