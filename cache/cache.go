// Package cache stores resolution records keyed by package identity.
//
// Stores never fail from the caller's point of view: Get reports a miss on
// any backend error and Set drops the write. A record written through Set is
// always marked complete and is served verbatim until Clear.
package cache

import (
	"context"
	"sync"

	"github.com/pithecene-io/typings/types"
)

// KeyPrefix namespaces every stored key.
const KeyPrefix = "typing-cache:"

// Key returns the storage key for a package identity.
func Key(id string) string { return KeyPrefix + id }

// Store is a resolution record store.
type Store interface {
	// Get returns the record for id. ok is false on a miss or backend error.
	Get(ctx context.Context, id string) (types.Record, bool)
	// Set stores artifacts for id and marks the record complete.
	Set(ctx context.Context, id string, artifacts []types.Artifact, mainEntryPath string)
	// Clear removes every record owned by the store.
	Clear(ctx context.Context)
}

func newRecord(artifacts []types.Artifact, mainEntryPath string) types.Record {
	return types.Record{
		Artifacts:     types.CloneArtifacts(artifacts),
		MainEntryPath: mainEntryPath,
		Complete:      true,
	}
}

func cloneRecord(r types.Record) types.Record {
	r.Artifacts = types.CloneArtifacts(r.Artifacts)
	return r
}

// Memory is an unbounded in-process store. Records live for the process
// lifetime unless Clear is called.
type Memory struct {
	mu      sync.RWMutex
	records map[string]types.Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]types.Record)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, id string) (types.Record, bool) {
	m.mu.RLock()
	r, ok := m.records[Key(id)]
	m.mu.RUnlock()
	if !ok {
		return types.Record{}, false
	}
	return cloneRecord(r), true
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, id string, artifacts []types.Artifact, mainEntryPath string) {
	r := newRecord(artifacts, mainEntryPath)
	m.mu.Lock()
	m.records[Key(id)] = r
	m.mu.Unlock()
}

// Clear implements Store.
func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	m.records = make(map[string]types.Record)
	m.mu.Unlock()
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Keys returns every stored identity (without prefix), unordered.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.records))
	for k := range m.records {
		out = append(out, k[len(KeyPrefix):])
	}
	return out
}

// Verify Memory implements Store.
var _ Store = (*Memory)(nil)
