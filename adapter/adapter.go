// Package adapter defines the notification boundary for finished
// resolutions.
//
// Adapters publish one event per resolved package to a downstream system.
// The CLI owns adapter lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"time"

	"github.com/pithecene-io/typings/types"
)

// EventTypeResolved is the event_type of every ResolvedEvent.
const EventTypeResolved = "package_resolved"

// ResolvedEvent is the payload published when a package resolves.
type ResolvedEvent struct {
	FormatVersion string         `json:"format_version" msgpack:"format_version"`
	EventType     string         `json:"event_type" msgpack:"event_type"` // always "package_resolved"
	Package       string         `json:"package" msgpack:"package"`
	ResolvedFrom  string         `json:"resolved_from" msgpack:"resolved_from"`
	MainEntryPath string         `json:"main_entry_path,omitempty" msgpack:"main_entry_path,omitempty"`
	Stub          bool           `json:"stub" msgpack:"stub"`
	FromCache     bool           `json:"from_cache" msgpack:"from_cache"`
	ArtifactCount int            `json:"artifact_count" msgpack:"artifact_count"`
	ByProvenance  map[string]int `json:"by_provenance" msgpack:"by_provenance"`
	StoragePath   string         `json:"storage_path,omitempty" msgpack:"storage_path,omitempty"`
	SessionID     string         `json:"session_id,omitempty" msgpack:"session_id,omitempty"`
	Timestamp     string         `json:"timestamp" msgpack:"timestamp"` // RFC 3339
}

// NewResolvedEvent builds the event for pkg from its artifacts.
func NewResolvedEvent(pkg, resolvedFrom string, artifacts []types.Artifact, at time.Time) *ResolvedEvent {
	counts := types.CountByProvenance(artifacts)
	byProv := make(map[string]int, len(counts))
	for p, n := range counts {
		byProv[string(p)] = n
	}
	return &ResolvedEvent{
		FormatVersion: types.RecordFormatVersion,
		EventType:     EventTypeResolved,
		Package:       pkg,
		ResolvedFrom:  resolvedFrom,
		Stub:          types.IsStub(artifacts),
		ArtifactCount: len(artifacts),
		ByProvenance:  byProv,
		Timestamp:     at.UTC().Format(time.RFC3339),
	}
}

// Adapter publishes resolution events to a downstream system.
type Adapter interface {
	// Publish sends a resolution event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *ResolvedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Backoff returns the wait before retry attempt i (1-based):
// 500ms, 1s, 2s, ...
func Backoff(i int) time.Duration {
	if i < 1 {
		return 0
	}
	return time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
