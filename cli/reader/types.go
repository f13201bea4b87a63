// Package reader provides the read-side data access layer for the typings
// CLI.
//
// Read-only commands (inspect, stats) go through a Reader, which serves
// views either from a live resolve or from the Lode archive. The same
// payloads feed table/json/yaml rendering and the TUI.
package reader

// View sources.
const (
	SourceLive    = "live"
	SourceArchive = "archive"
)

// FileItem is one artifact in an inspect view. Content is omitted unless
// requested.
type FileItem struct {
	Path    string `json:"path"`
	Source  string `json:"source"`
	Bytes   int    `json:"bytes"`
	Content string `json:"content,omitempty"`
}

// InspectResolutionResponse describes one package resolution.
type InspectResolutionResponse struct {
	Package       string     `json:"package"`
	ResolvedFrom  string     `json:"resolved_from"`
	Source        string     `json:"source"` // live or archive
	MainEntryPath string     `json:"main_entry_path"`
	Stub          bool       `json:"stub"`
	FromCache     bool       `json:"from_cache"`
	ResolvedAt    string     `json:"resolved_at,omitempty"`
	SessionID     string     `json:"session_id,omitempty"`
	Files         []FileItem `json:"files"`
}

// ResolutionStats summarizes one package resolution.
type ResolutionStats struct {
	Package      string         `json:"package"`
	ResolvedFrom string         `json:"resolved_from"`
	Files        int            `json:"files"`
	TotalBytes   int            `json:"total_bytes"`
	Stub         bool           `json:"stub"`
	ByProvenance map[string]int `json:"by_provenance"`
}

// CandidateItem is one derived declaration path in debug output.
type CandidateItem struct {
	Path      string `json:"path"`
	Origin    string `json:"origin"`
	Condition string `json:"condition"`
	Address   string `json:"address"`
}

// MetricsView is the rendered form of a metrics snapshot.
type MetricsView struct {
	ResolvesStarted       int64            `json:"resolves_started_total"`
	StubsSynthesized      int64            `json:"stubs_synthesized_total"`
	DedupeShared          int64            `json:"dedupe_shared_total"`
	CacheHits             int64            `json:"cache_hits_total"`
	CacheMisses           int64            `json:"cache_misses_total"`
	AliasHits             int64            `json:"alias_hits_total"`
	ManifestFetchSuccess  int64            `json:"manifest_fetch_success_total"`
	ManifestFetchFailure  int64            `json:"manifest_fetch_failure_total"`
	FileFetchSuccess      int64            `json:"file_fetch_success_total"`
	FileFetchFailure      int64            `json:"file_fetch_failure_total"`
	ArchiveWriteSuccess   int64            `json:"archive_write_success_total"`
	ArchiveWriteFailure   int64            `json:"archive_write_failure_total"`
	ArtifactsByProvenance map[string]int64 `json:"artifacts_by_provenance"`
	Fetcher               string           `json:"fetcher"`
	CacheBackend          string           `json:"cache_backend"`
	ArchiveBackend        string           `json:"archive_backend,omitempty"`
}
