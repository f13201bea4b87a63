package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pithecene-io/typings/types"
)

// DefaultSize is the default capacity of a Bounded store.
const DefaultSize = 1024

// Bounded is an in-process store that evicts the least recently used record
// once size records are held. Use it for long-lived hosts; Memory remains
// the default.
type Bounded struct {
	lru *lru.Cache[string, types.Record]
}

// NewBounded creates a Bounded store holding at most size records.
// A size <= 0 uses DefaultSize.
func NewBounded(size int) (*Bounded, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, types.Record](size)
	if err != nil {
		return nil, fmt.Errorf("cache: create lru: %w", err)
	}
	return &Bounded{lru: c}, nil
}

// Get implements Store.
func (b *Bounded) Get(_ context.Context, id string) (types.Record, bool) {
	r, ok := b.lru.Get(Key(id))
	if !ok {
		return types.Record{}, false
	}
	return cloneRecord(r), true
}

// Set implements Store.
func (b *Bounded) Set(_ context.Context, id string, artifacts []types.Artifact, mainEntryPath string) {
	b.lru.Add(Key(id), newRecord(artifacts, mainEntryPath))
}

// Clear implements Store.
func (b *Bounded) Clear(_ context.Context) {
	b.lru.Purge()
}

// Len returns the number of stored records.
func (b *Bounded) Len() int { return b.lru.Len() }

// Verify Bounded implements Store.
var _ Store = (*Bounded)(nil)
