package lode

import (
	"strings"
	"time"

	"github.com/pithecene-io/typings/types"
)

// Record kind discriminators.
const (
	// RecordKindResolution is the per-resolve header record.
	RecordKindResolution = "resolution"
	// RecordKindArtifact is one resolved file.
	RecordKindArtifact = "artifact"
)

// PartitionKeys is the Hive layout of the archive dataset.
var PartitionKeys = []string{"package_key", "day"}

// DeriveDay computes the partition day from the resolution time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

var packageKeyReplacer = strings.NewReplacer("@", "", "/", "__")

// PackageKey flattens a package name into one partition path segment:
// "@types/node" → "types__node". Distinct names may share a key; the
// package field of each record is authoritative.
func PackageKey(pkg string) string {
	return packageKeyReplacer.Replace(pkg)
}

// Entry is one archived resolution.
type Entry struct {
	// Package is the requested package name.
	Package string
	// ResolvedFrom is the package whose manifest produced the record.
	ResolvedFrom string
	// SessionID correlates the entry with resolver logs (optional).
	SessionID string
	// Record is the resolution result.
	Record types.Record
	// ResolvedAt is when resolution finished.
	ResolvedAt time.Time
}

// toResolutionRecordMap converts an entry header to a storage map.
func toResolutionRecordMap(e Entry) map[string]any {
	counts := types.CountByProvenance(e.Record.Artifacts)
	byProv := make(map[string]any, len(counts))
	for p, n := range counts {
		byProv[string(p)] = int64(n)
	}

	m := map[string]any{
		"record_kind":     RecordKindResolution,
		"format_version":  types.RecordFormatVersion,
		"package":         e.Package,
		"package_key":     PackageKey(e.Package), // partition key
		"day":             DeriveDay(e.ResolvedAt),
		"resolved_at":     e.ResolvedAt.UTC().Format(time.RFC3339Nano),
		"resolved_from":   e.ResolvedFrom,
		"main_entry_path": e.Record.MainEntryPath,
		"complete":        e.Record.Complete,
		"stub":            types.IsStub(e.Record.Artifacts),
		"artifact_count":  int64(len(e.Record.Artifacts)),
		"by_provenance":   byProv,
	}
	if e.SessionID != "" {
		m["session_id"] = e.SessionID
	}
	return m
}

// toArtifactRecordMap converts one artifact to a storage map. seq is the
// artifact's position in discovery order.
func toArtifactRecordMap(e Entry, seq int, a types.Artifact) map[string]any {
	return map[string]any{
		"record_kind": RecordKindArtifact,
		"package":     e.Package,
		"package_key": PackageKey(e.Package),
		"day":         DeriveDay(e.ResolvedAt),
		"seq":         int64(seq),
		"source":      string(a.Source),
		"file_path":   a.FilePath,
		"content":     a.Content,
	}
}

// toRecordMaps converts an entry to its header followed by its artifacts.
func toRecordMaps(e Entry) []any {
	records := make([]any, 0, 1+len(e.Record.Artifacts))
	records = append(records, toResolutionRecordMap(e))
	for i, a := range e.Record.Artifacts {
		records = append(records, toArtifactRecordMap(e, i, a))
	}
	return records
}
