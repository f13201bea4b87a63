package lode

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/typings/types"
)

// ErrNoRecordFound is returned when no archived resolution matches.
var ErrNoRecordFound = errors.New("no archived resolution found")

// Archived is a resolution read back from the archive.
type Archived struct {
	Package      string
	ResolvedFrom string
	ResolvedAt   string
	Day          string
	SessionID    string
	Record       types.Record
}

// QueryLatestRecord finds the most recent archived resolution of pkg.
// An empty pkg matches any package.
func QueryLatestRecord(ctx context.Context, ds lode.Dataset, pkg string) (*Archived, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, string(ds.ID())+"/snapshots")
	}

	key := ""
	if pkg != "" {
		key = PackageKey(pkg)
	}

	// Iterate in reverse (latest first); snapshots are ordered by creation time
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatchesFilter(snap, "package_key", key) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}

		// Manifest paths are a coarse pre-filter; record fields are
		// authoritative.
		if a, ok := decodeEntry(data, pkg); ok {
			return a, nil
		}
	}
	return nil, ErrNoRecordFound
}

// decodeEntry rebuilds an archived resolution from one snapshot's records.
func decodeEntry(data []any, pkg string) (*Archived, bool) {
	var header map[string]any
	type seqArtifact struct {
		seq int64
		a   types.Artifact
	}
	var artifacts []seqArtifact

	for _, item := range data {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if pkg != "" && toString(record["package"]) != pkg {
			continue
		}
		switch record["record_kind"] {
		case RecordKindResolution:
			if header == nil {
				header = record
			}
		case RecordKindArtifact:
			artifacts = append(artifacts, seqArtifact{
				seq: toInt64(record["seq"]),
				a: types.Artifact{
					Content:  toString(record["content"]),
					FilePath: toString(record["file_path"]),
					Source:   types.Provenance(toString(record["source"])),
				},
			})
		}
	}
	if header == nil {
		return nil, false
	}

	sort.SliceStable(artifacts, func(i, j int) bool { return artifacts[i].seq < artifacts[j].seq })
	out := &Archived{
		Package:      toString(header["package"]),
		ResolvedFrom: toString(header["resolved_from"]),
		ResolvedAt:   toString(header["resolved_at"]),
		Day:          toString(header["day"]),
		SessionID:    toString(header["session_id"]),
		Record: types.Record{
			MainEntryPath: toString(header["main_entry_path"]),
			Complete:      header["complete"] == true,
		},
	}
	for _, sa := range artifacts {
		out.Record.Artifacts = append(out.Record.Artifacts, sa.a)
	}
	return out, true
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toInt64 converts a decoded JSON number to int64.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}
