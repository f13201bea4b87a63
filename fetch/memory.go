package fetch

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MapFetcher serves resources from an in-memory address map and counts
// every request, hit or miss. Safe for concurrent use.
type MapFetcher struct {
	mu     sync.Mutex
	files  map[string][]byte
	counts map[string]int
	total  int
}

// NewMapFetcher creates a fetcher over files (address → content).
func NewMapFetcher(files map[string]string) *MapFetcher {
	m := &MapFetcher{
		files:  make(map[string][]byte, len(files)),
		counts: make(map[string]int),
	}
	for addr, content := range files {
		m.files[addr] = []byte(content)
	}
	return m
}

// Put adds or replaces a resource.
func (m *MapFetcher) Put(address, content string) {
	m.mu.Lock()
	m.files[address] = []byte(content)
	m.mu.Unlock()
}

// Fetch implements Fetcher.
func (m *MapFetcher) Fetch(ctx context.Context, address string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counts[address]++
	m.total++
	data, ok := m.files[address]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", address, ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Count returns how many times address was requested.
func (m *MapFetcher) Count(address string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[address]
}

// Total returns the number of requests served, hits and misses.
func (m *MapFetcher) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// Requested returns every requested address in sorted order.
func (m *MapFetcher) Requested() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.counts))
	for addr := range m.counts {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Reset clears request counters.
func (m *MapFetcher) Reset() {
	m.mu.Lock()
	m.counts = make(map[string]int)
	m.total = 0
	m.mu.Unlock()
}

// Verify MapFetcher implements Fetcher.
var _ Fetcher = (*MapFetcher)(nil)
