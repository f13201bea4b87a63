// Package metrics provides resolution metrics collection.
//
// The Collector accumulates counters across resolve calls. It is a leaf
// package with no internal dependencies; provenance tags are recorded as
// plain strings.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Resolve lifecycle
	ResolvesStarted  int64
	StubsSynthesized int64
	DedupeShared     int64

	// Cache
	CacheHits   int64
	CacheMisses int64
	AliasHits   int64

	// Fetch
	ManifestFetchSuccess int64
	ManifestFetchFailure int64
	FileFetchSuccess     int64
	FileFetchFailure     int64

	// Archive
	ArchiveWriteSuccess int64
	ArchiveWriteFailure int64

	// Output
	ArtifactsByProvenance map[string]int64

	// Dimensions (informational, set at construction)
	Fetcher        string
	CacheBackend   string
	ArchiveBackend string
}

// Collector accumulates resolution metrics.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	resolvesStarted  int64
	stubsSynthesized int64
	dedupeShared     int64

	cacheHits   int64
	cacheMisses int64
	aliasHits   int64

	manifestFetchSuccess int64
	manifestFetchFailure int64
	fileFetchSuccess     int64
	fileFetchFailure     int64

	archiveWriteSuccess int64
	archiveWriteFailure int64

	artifactsByProvenance map[string]int64

	fetcher        string
	cacheBackend   string
	archiveBackend string
}

// NewCollector creates a Collector with dimension labels.
// archiveBackend is empty when no archive is configured.
func NewCollector(fetcher, cacheBackend, archiveBackend string) *Collector {
	return &Collector{
		artifactsByProvenance: make(map[string]int64),
		fetcher:               fetcher,
		cacheBackend:          cacheBackend,
		archiveBackend:        archiveBackend,
	}
}

func (c *Collector) inc(field *int64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// --- Resolve lifecycle ---

// IncResolveStarted records a top-level resolve call.
func (c *Collector) IncResolveStarted() {
	if c == nil {
		return
	}
	c.inc(&c.resolvesStarted)
}

// IncStubSynthesized records a result that degraded to the default stub.
func (c *Collector) IncStubSynthesized() {
	if c == nil {
		return
	}
	c.inc(&c.stubsSynthesized)
}

// IncDedupeShared records a call that joined an in-flight resolution.
func (c *Collector) IncDedupeShared() {
	if c == nil {
		return
	}
	c.inc(&c.dedupeShared)
}

// --- Cache ---

// IncCacheHit records a complete record served for the requested name.
func (c *Collector) IncCacheHit() {
	if c == nil {
		return
	}
	c.inc(&c.cacheHits)
}

// IncCacheMiss records a lookup that fell through to fetching.
func (c *Collector) IncCacheMiss() {
	if c == nil {
		return
	}
	c.inc(&c.cacheMisses)
}

// IncAliasHit records a record served from the declarations-package alias.
func (c *Collector) IncAliasHit() {
	if c == nil {
		return
	}
	c.inc(&c.aliasHits)
}

// --- Fetch ---
// Manifest and file fetches are counted separately: a manifest failure
// changes the fallback path, a file failure only prunes one branch.

// IncManifestFetchSuccess records a fetched and parsed package.json.
func (c *Collector) IncManifestFetchSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.manifestFetchSuccess)
}

// IncManifestFetchFailure records an unreachable or unparsable package.json.
func (c *Collector) IncManifestFetchFailure() {
	if c == nil {
		return
	}
	c.inc(&c.manifestFetchFailure)
}

// IncFileFetchSuccess records a fetched declaration file.
func (c *Collector) IncFileFetchSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.fileFetchSuccess)
}

// IncFileFetchFailure records a declaration file that could not be fetched.
func (c *Collector) IncFileFetchFailure() {
	if c == nil {
		return
	}
	c.inc(&c.fileFetchFailure)
}

// --- Archive ---

// IncArchiveWriteSuccess records a successful Lode write (per call).
func (c *Collector) IncArchiveWriteSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.archiveWriteSuccess)
}

// IncArchiveWriteFailure records a failed Lode write (per call).
func (c *Collector) IncArchiveWriteFailure() {
	if c == nil {
		return
	}
	c.inc(&c.archiveWriteFailure)
}

// --- Output ---

// AddArtifacts tallies returned artifacts by provenance tag.
func (c *Collector) AddArtifacts(provenances ...string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	for _, p := range provenances {
		c.artifactsByProvenance[p]++
	}
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byProv := make(map[string]int64, len(c.artifactsByProvenance))
	for k, v := range c.artifactsByProvenance {
		byProv[k] = v
	}

	return Snapshot{
		ResolvesStarted:  c.resolvesStarted,
		StubsSynthesized: c.stubsSynthesized,
		DedupeShared:     c.dedupeShared,

		CacheHits:   c.cacheHits,
		CacheMisses: c.cacheMisses,
		AliasHits:   c.aliasHits,

		ManifestFetchSuccess: c.manifestFetchSuccess,
		ManifestFetchFailure: c.manifestFetchFailure,
		FileFetchSuccess:     c.fileFetchSuccess,
		FileFetchFailure:     c.fileFetchFailure,

		ArchiveWriteSuccess: c.archiveWriteSuccess,
		ArchiveWriteFailure: c.archiveWriteFailure,

		ArtifactsByProvenance: byProv,

		Fetcher:        c.fetcher,
		CacheBackend:   c.cacheBackend,
		ArchiveBackend: c.archiveBackend,
	}
}
