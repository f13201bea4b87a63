package reader

import (
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/typings/fetch"
	archive "github.com/pithecene-io/typings/lode"
	"github.com/pithecene-io/typings/metrics"
	"github.com/pithecene-io/typings/resolver"
	"github.com/pithecene-io/typings/types"
)

func newLiveReader(t *testing.T) *LiveReader {
	t.Helper()
	f := fetch.NewMapFetcher(map[string]string{
		"/node_modules/foo/package.json": `{"name":"foo","types":"lib/index.d.ts"}`,
		"/node_modules/foo/lib/index.d.ts": `export * from "./util";`,
		"/node_modules/foo/lib/util.d.ts":  `export declare const n: number;`,
	})
	r, err := resolver.New(resolver.Options{Fetcher: f})
	if err != nil {
		t.Fatalf("resolver.New: %v", err)
	}
	return NewLiveReader(r)
}

func TestLiveReader_Inspect(t *testing.T) {
	lr := newLiveReader(t)

	v, err := lr.Inspect(t.Context(), "foo", false)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if v.Source != SourceLive {
		t.Errorf("Source = %q, want %q", v.Source, SourceLive)
	}
	if v.ResolvedFrom != "foo" {
		t.Errorf("ResolvedFrom = %q, want foo", v.ResolvedFrom)
	}
	if v.Stub {
		t.Error("Stub = true, want false")
	}
	want := []FileItem{
		{Path: "foo/package.json", Source: "package.json"},
		{Path: "foo/lib/index.d.ts", Source: "backend"},
		{Path: "foo/lib/util.d.ts", Source: "import"},
	}
	if len(v.Files) != len(want) {
		t.Fatalf("Files = %+v, want %d entries", v.Files, len(want))
	}
	for i, w := range want {
		if v.Files[i].Path != w.Path || v.Files[i].Source != w.Source {
			t.Errorf("Files[%d] = %+v, want path %q source %q", i, v.Files[i], w.Path, w.Source)
		}
		if v.Files[i].Content != "" {
			t.Errorf("Files[%d] content should be omitted", i)
		}
	}

	again, _ := lr.Inspect(t.Context(), "foo", true)
	if !again.FromCache {
		t.Error("second inspect should be served from cache")
	}
	if again.Files[2].Content != "export declare const n: number;" {
		t.Errorf("content = %q", again.Files[2].Content)
	}
}

func TestLiveReader_InspectUnresolvable(t *testing.T) {
	lr := newLiveReader(t)
	v, err := lr.Inspect(t.Context(), "nope", false)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if !v.Stub {
		t.Error("Stub = false, want true")
	}
	if len(v.Files) != 1 || v.Files[0].Path != "nope/index.d.ts" {
		t.Errorf("Files = %+v", v.Files)
	}
}

func TestLiveReader_Candidates(t *testing.T) {
	lr := newLiveReader(t)
	items, err := lr.Candidates(t.Context(), "foo")
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected candidates")
	}
	first := items[0]
	if first.Path != "lib/index.d.ts" || first.Origin != "types" {
		t.Errorf("first candidate = %+v", first)
	}
	if first.Address != "/node_modules/foo/lib/index.d.ts" {
		t.Errorf("Address = %q", first.Address)
	}

	if _, err := lr.Candidates(t.Context(), "missing"); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestArchiveReader_Inspect(t *testing.T) {
	store := lode.NewMemory()
	factory := func() (lode.Store, error) { return store, nil }

	client, err := archive.NewLodeClientWithFactory(archive.Config{}, factory)
	if err != nil {
		t.Fatalf("NewLodeClientWithFactory: %v", err)
	}
	rec := types.Record{
		Artifacts: []types.Artifact{
			{Content: "{}", FilePath: "foo/package.json", Source: types.ProvenanceManifest},
			{Content: "declare module 'foo';", FilePath: "foo/index.d.ts", Source: types.ProvenanceDefault},
		},
		Complete: true,
	}
	err = client.WriteEntry(t.Context(), archive.Entry{
		Package:      "foo",
		ResolvedFrom: "foo",
		SessionID:    "s-1",
		Record:       rec,
		ResolvedAt:   time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}

	ds, err := archive.NewReadDataset(archive.DefaultDataset, factory)
	if err != nil {
		t.Fatalf("NewReadDataset: %v", err)
	}
	ar := NewArchiveReader(ds)

	v, err := ar.Inspect(t.Context(), "foo", false)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if v.Source != SourceArchive {
		t.Errorf("Source = %q", v.Source)
	}
	if !v.Stub {
		t.Error("Stub = false, want true")
	}
	if v.SessionID != "s-1" {
		t.Errorf("SessionID = %q", v.SessionID)
	}
	if v.ResolvedAt == "" {
		t.Error("ResolvedAt should be set")
	}

	if _, err := ar.Inspect(t.Context(), "bar", false); !errors.Is(err, archive.ErrNoRecordFound) {
		t.Errorf("err = %v, want ErrNoRecordFound", err)
	}
}

func TestStats(t *testing.T) {
	v := &InspectResolutionResponse{
		Package:      "foo",
		ResolvedFrom: "@types/foo",
		Files: []FileItem{
			{Path: "@types/foo/package.json", Source: "package.json", Bytes: 10},
			{Path: "@types/foo/index.d.ts", Source: "backend", Bytes: 20},
			{Path: "@types/foo/a.d.ts", Source: "import", Bytes: 5},
			{Path: "@types/foo/b.d.ts", Source: "import", Bytes: 5},
		},
	}
	s := Stats(v)
	if s.Files != 4 {
		t.Errorf("Files = %d, want 4", s.Files)
	}
	if s.TotalBytes != 40 {
		t.Errorf("TotalBytes = %d, want 40", s.TotalBytes)
	}
	if s.ByProvenance["import"] != 2 {
		t.Errorf("ByProvenance = %v", s.ByProvenance)
	}
}

func TestMetrics(t *testing.T) {
	c := metrics.NewCollector("map", "memory", "")
	c.IncResolveStarted()
	c.IncCacheMiss()
	c.AddArtifacts("package.json", "backend")

	v := Metrics(c.Snapshot())
	if v.ResolvesStarted != 1 || v.CacheMisses != 1 {
		t.Errorf("counters = %+v", v)
	}
	if v.ArtifactsByProvenance["backend"] != 1 {
		t.Errorf("ArtifactsByProvenance = %v", v.ArtifactsByProvenance)
	}
	if v.Fetcher != "map" || v.CacheBackend != "memory" {
		t.Errorf("dimensions = %q/%q", v.Fetcher, v.CacheBackend)
	}
}
