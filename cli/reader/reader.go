package reader

import (
	"context"
	"fmt"

	"github.com/justapithecus/lode/lode"

	archive "github.com/pithecene-io/typings/lode"
	"github.com/pithecene-io/typings/metrics"
	"github.com/pithecene-io/typings/resolver"
	"github.com/pithecene-io/typings/types"
)

// Reader serves read-only views of package resolutions.
type Reader interface {
	// Inspect returns the resolution of pkg. withContent includes file text.
	Inspect(ctx context.Context, pkg string, withContent bool) (*InspectResolutionResponse, error)
}

// LiveReader resolves packages on demand.
type LiveReader struct {
	r *resolver.Resolver
}

// NewLiveReader creates a reader over a resolver.
func NewLiveReader(r *resolver.Resolver) *LiveReader {
	return &LiveReader{r: r}
}

// Inspect implements Reader. Resolution never fails; an unresolvable
// package yields the stub view.
func (l *LiveReader) Inspect(ctx context.Context, pkg string, withContent bool) (*InspectResolutionResponse, error) {
	return FromResult(l.r.ResolveResult(ctx, pkg), withContent), nil
}

// Candidates returns the derived declaration paths of pkg with their
// fetch addresses.
func (l *LiveReader) Candidates(ctx context.Context, pkg string) ([]CandidateItem, error) {
	cands, err := l.r.Candidates(ctx, pkg)
	if err != nil {
		return nil, err
	}
	items := make([]CandidateItem, 0, len(cands))
	for _, c := range cands {
		items = append(items, CandidateItem{
			Path:      c.Path,
			Origin:    string(c.Origin),
			Condition: c.Condition,
			Address:   l.r.Address(pkg, c.Path),
		})
	}
	return items, nil
}

// ArchiveReader reads the newest archived resolution from a Lode dataset.
type ArchiveReader struct {
	ds lode.Dataset
}

// NewArchiveReader creates a reader over an archive dataset.
func NewArchiveReader(ds lode.Dataset) *ArchiveReader {
	return &ArchiveReader{ds: ds}
}

// Inspect implements Reader.
func (a *ArchiveReader) Inspect(ctx context.Context, pkg string, withContent bool) (*InspectResolutionResponse, error) {
	rec, err := archive.QueryLatestRecord(ctx, a.ds, pkg)
	if err != nil {
		return nil, fmt.Errorf("read archive for %s: %w", pkg, err)
	}
	return FromArchived(rec, withContent), nil
}

// FromResult builds an inspect view from a live resolve.
func FromResult(res resolver.Result, withContent bool) *InspectResolutionResponse {
	return &InspectResolutionResponse{
		Package:       res.Package,
		ResolvedFrom:  res.ResolvedFrom,
		Source:        SourceLive,
		MainEntryPath: res.MainEntryPath,
		Stub:          res.Stub(),
		FromCache:     res.FromCache,
		Files:         fileItems(res.Artifacts, withContent),
	}
}

// FromArchived builds an inspect view from an archived record.
func FromArchived(a *archive.Archived, withContent bool) *InspectResolutionResponse {
	return &InspectResolutionResponse{
		Package:       a.Package,
		ResolvedFrom:  a.ResolvedFrom,
		Source:        SourceArchive,
		MainEntryPath: a.Record.MainEntryPath,
		Stub:          types.IsStub(a.Record.Artifacts),
		ResolvedAt:    a.ResolvedAt,
		SessionID:     a.SessionID,
		Files:         fileItems(a.Record.Artifacts, withContent),
	}
}

func fileItems(artifacts []types.Artifact, withContent bool) []FileItem {
	items := make([]FileItem, 0, len(artifacts))
	for _, a := range artifacts {
		item := FileItem{Path: a.FilePath, Source: string(a.Source), Bytes: len(a.Content)}
		if withContent {
			item.Content = a.Content
		}
		items = append(items, item)
	}
	return items
}

// Stats summarizes an inspect view.
func Stats(v *InspectResolutionResponse) *ResolutionStats {
	s := &ResolutionStats{
		Package:      v.Package,
		ResolvedFrom: v.ResolvedFrom,
		Files:        len(v.Files),
		Stub:         v.Stub,
		ByProvenance: make(map[string]int),
	}
	for _, f := range v.Files {
		s.TotalBytes += f.Bytes
		s.ByProvenance[f.Source]++
	}
	return s
}

// Metrics converts a collector snapshot for rendering.
func Metrics(s metrics.Snapshot) *MetricsView {
	return &MetricsView{
		ResolvesStarted:       s.ResolvesStarted,
		StubsSynthesized:      s.StubsSynthesized,
		DedupeShared:          s.DedupeShared,
		CacheHits:             s.CacheHits,
		CacheMisses:           s.CacheMisses,
		AliasHits:             s.AliasHits,
		ManifestFetchSuccess:  s.ManifestFetchSuccess,
		ManifestFetchFailure:  s.ManifestFetchFailure,
		FileFetchSuccess:      s.FileFetchSuccess,
		FileFetchFailure:      s.FileFetchFailure,
		ArchiveWriteSuccess:   s.ArchiveWriteSuccess,
		ArchiveWriteFailure:   s.ArchiveWriteFailure,
		ArtifactsByProvenance: s.ArtifactsByProvenance,
		Fetcher:               s.Fetcher,
		CacheBackend:          s.CacheBackend,
		ArchiveBackend:        s.ArchiveBackend,
	}
}

// Verify readers implement Reader.
var (
	_ Reader = (*LiveReader)(nil)
	_ Reader = (*ArchiveReader)(nil)
)
