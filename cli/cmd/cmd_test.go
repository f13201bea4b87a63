package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/viant/afs"

	"github.com/pithecene-io/typings/cli/config"
	"github.com/pithecene-io/typings/cli/reader"
	"github.com/pithecene-io/typings/resolver"
	"github.com/pithecene-io/typings/types"
)

// registry serves a small node_modules tree over HTTP. The declarations
// package of foo is absent, so foo resolves from its own manifest.
func registry(t *testing.T) *httptest.Server {
	t.Helper()
	files := map[string]string{
		"/node_modules/foo/package.json": `{"name": "foo", "types": "index.d.ts"}`,
		"/node_modules/foo/index.d.ts":   "import { a } from './util';\nexport declare const x: typeof a;",
		"/node_modules/foo/util.d.ts":    "export declare const a: number;",
		"/node_modules/bar/package.json": `{"name": "bar", "typings": "bar.d.ts"}`,
		"/node_modules/bar/bar.d.ts":     "export {};",
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, ok := files[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(content))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:           "typings",
		Writer:         out,
		ErrWriter:      io.Discard,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands:       Commands("test"),
	}
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newTestApp(&out).RunContext(t.Context(), append([]string{"typings"}, args...))
	return out.String(), err
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}

func TestResolveCommand_Summary(t *testing.T) {
	ts := registry(t)

	out, err := runApp(t, "resolve", "--origin", ts.URL, "--format", "json", "foo", "bar")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	var items []ResolveItem
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Package != "foo" || items[1].Package != "bar" {
		t.Errorf("order = %s, %s; want foo, bar", items[0].Package, items[1].Package)
	}
	if items[0].Files != 3 {
		t.Errorf("foo files = %d, want 3 (manifest, index, util)", items[0].Files)
	}
	if items[0].ResolvedFrom != "foo" {
		t.Errorf("foo resolved from %q", items[0].ResolvedFrom)
	}
	if items[0].Stub || items[1].Stub {
		t.Error("neither package should degrade to the stub")
	}
	if items[0].Archived || items[0].Notified {
		t.Error("no sinks configured, nothing should be archived or notified")
	}
}

func TestResolveCommand_UnknownPackageIsStub(t *testing.T) {
	ts := registry(t)

	out, err := runApp(t, "resolve", "--origin", ts.URL, "--format", "json", "missing")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var items []ResolveItem
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !items[0].Stub || items[0].ResolvedFrom != "" {
		t.Errorf("item = %+v, want stub with no resolved_from", items[0])
	}
}

func TestResolveCommand_Artifacts(t *testing.T) {
	ts := registry(t)

	out, err := runApp(t, "resolve", "--origin", ts.URL, "--format", "json", "--emit", "artifacts", "--path-prefix", "/types/", "bar")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.Contains(out, `"/types/bar/bar.d.ts"`) {
		t.Errorf("artifacts output missing prefixed path:\n%s", out)
	}
}

func TestResolveCommand_WritesOutDir(t *testing.T) {
	ts := registry(t)
	dir := t.TempDir()

	if _, err := runApp(t, "resolve", "--origin", ts.URL, "--format", "json", "--out", dir, "foo"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "foo", "util.d.ts"))
	if err != nil {
		t.Fatalf("read written file: %v", err)
	}
	if string(data) != "export declare const a: number;" {
		t.Errorf("content = %q", data)
	}
}

func TestWriteArtifacts_RejectsEscapingPaths(t *testing.T) {
	tests := []struct {
		name     string
		filePath string
	}{
		{"parent", "../escape.d.ts"},
		{"nested parent", "evil/../../escape.d.ts"},
		{"rooted parent", "/../escape.d.ts"},
		{"dest itself", "evil/.."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := t.TempDir()
			dest := filepath.Join(parent, "dest")
			results := []resolver.Result{{
				Package: "evil",
				Artifacts: []types.Artifact{
					{FilePath: "evil/index.d.ts", Content: "export {};"},
					{FilePath: tt.filePath, Content: "pwned"},
				},
			}}

			if err := writeArtifacts(t.Context(), afs.New(), dest, results); err == nil {
				t.Fatal("expected error for path outside dest")
			}
			if _, err := os.Stat(filepath.Join(parent, "escape.d.ts")); !os.IsNotExist(err) {
				t.Errorf("file written outside dest (stat err: %v)", err)
			}
			if _, err := os.Stat(filepath.Join(dest, "evil", "index.d.ts")); !os.IsNotExist(err) {
				t.Errorf("nothing should be written when a path escapes (stat err: %v)", err)
			}
		})
	}
}

func TestResolveCommand_ArchiveThenInspect(t *testing.T) {
	ts := registry(t)
	archiveDir := t.TempDir()

	out, err := runApp(t, "resolve", "--origin", ts.URL, "--format", "json",
		"--archive", "fs", "--archive-path", archiveDir, "foo")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var items []ResolveItem
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !items[0].Archived {
		t.Fatal("expected foo to be archived")
	}

	out, err = runApp(t, "inspect", "--from-archive", "--archive-path", archiveDir, "--format", "json", "foo")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var view reader.InspectResolutionResponse
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode inspect: %v", err)
	}
	if view.Source != reader.SourceArchive {
		t.Errorf("source = %q, want archive", view.Source)
	}
	if len(view.Files) != 3 {
		t.Errorf("files = %d, want 3", len(view.Files))
	}
}

func TestResolveCommand_AdapterFailureExitCode(t *testing.T) {
	ts := registry(t)
	var hits atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer hook.Close()

	out, err := runApp(t, "resolve", "--origin", ts.URL, "--format", "json",
		"--adapter", "webhook", "--adapter-url", hook.URL, "--adapter-retries", "0", "bar")

	if got := exitCode(err); got != exitSinkFailure {
		t.Fatalf("exit code = %d, want %d (err: %v)", got, exitSinkFailure, err)
	}
	if hits.Load() != 1 {
		t.Errorf("webhook hits = %d, want 1", hits.Load())
	}
	if !strings.Contains(out, `"package": "bar"`) && !strings.Contains(out, `"package":"bar"`) {
		t.Errorf("summary should still be rendered:\n%s", out)
	}
}

func TestResolveCommand_AdapterPublishes(t *testing.T) {
	ts := registry(t)
	var body atomic.Value
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body.Store(string(data))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	if _, err := runApp(t, "resolve", "--origin", ts.URL, "--format", "json",
		"--adapter", "webhook", "--adapter-url", hook.URL, "foo"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	got, _ := body.Load().(string)
	if !strings.Contains(got, `"event_type":"package_resolved"`) {
		t.Errorf("event body = %s", got)
	}
}

func TestResolveCommand_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no packages", []string{"resolve"}},
		{"bad emit", []string{"resolve", "--emit", "xml", "foo"}},
		{"tui rejected", []string{"resolve", "--tui", "foo"}},
		{"bad format", []string{"resolve", "--format", "csv", "foo"}},
		{"bad cache backend", []string{"resolve", "--cache", "disk", "foo"}},
		{"bad log level", []string{"resolve", "--log-level", "loud", "foo"}},
		{"archive without path", []string{"resolve", "--archive", "fs", "foo"}},
		{"bad adapter", []string{"resolve", "--adapter", "carrier-pigeon", "foo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, tt.args...)
			if got := exitCode(err); got != exitConfigError {
				t.Errorf("exit code = %d, want %d (err: %v)", got, exitConfigError, err)
			}
		})
	}
}

func TestInspectCommand_Live(t *testing.T) {
	ts := registry(t)

	out, err := runApp(t, "inspect", "--origin", ts.URL, "--format", "json", "--content", "bar")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var view reader.InspectResolutionResponse
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Source != reader.SourceLive {
		t.Errorf("source = %q", view.Source)
	}
	if len(view.Files) != 2 || view.Files[1].Content != "export {};" {
		t.Errorf("files = %+v", view.Files)
	}
}

func TestStatsCommand(t *testing.T) {
	ts := registry(t)

	out, err := runApp(t, "stats", "--origin", ts.URL, "--format", "json", "foo")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var stats reader.ResolutionStats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Files != 3 || stats.ByProvenance["package.json"] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestStatsCommand_Metrics(t *testing.T) {
	ts := registry(t)

	out, err := runApp(t, "stats", "--metrics", "--origin", ts.URL, "--format", "json", "foo", "bar")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	var m reader.MetricsView
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.ResolvesStarted != 2 {
		t.Errorf("resolves started = %d, want 2", m.ResolvesStarted)
	}
	if m.Fetcher != "http" || m.CacheBackend != "memory" {
		t.Errorf("dimensions = %s/%s", m.Fetcher, m.CacheBackend)
	}
}

func TestDebugCandidates(t *testing.T) {
	ts := registry(t)

	out, err := runApp(t, "debug", "candidates", "--origin", ts.URL, "--format", "json", "bar")
	if err != nil {
		t.Fatalf("debug candidates: %v", err)
	}
	var items []reader.CandidateItem
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	found := false
	for _, it := range items {
		if it.Path == "bar.d.ts" {
			found = true
			if it.Address != "/node_modules/bar/bar.d.ts" {
				t.Errorf("address = %q", it.Address)
			}
		}
	}
	if !found {
		t.Errorf("candidates missing bar.d.ts: %+v", items)
	}
}

func TestCacheClear_Memory(t *testing.T) {
	out, err := runApp(t, "cache", "clear", "--format", "json")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	var resp CacheClearResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Backend != "memory" || resp.Cleared != 0 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runApp(t, "version", "--format", "json")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, `"commit": "test"`) && !strings.Contains(out, `"commit":"test"`) {
		t.Errorf("version output = %s", out)
	}
}

// newFlagContext parses args against real flag definitions so IsSet
// reflects only explicitly passed flags.
func newFlagContext(t *testing.T, flags []cli.Flag, args ...string) *cli.Context {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range flags {
		if err := f.Apply(fs); err != nil {
			t.Fatalf("apply flag: %v", err)
		}
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return cli.NewContext(cli.NewApp(), fs, nil)
}

func TestResolveString_Precedence(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		fromConfig string
		want       string
	}{
		{"default when config empty", nil, "", "memory"},
		{"config over default", nil, "redis", "redis"},
		{"flag over config", []string{"--cache", "lru"}, "redis", "lru"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newFlagContext(t, ResolverFlags(), tt.args...)
			if got := resolveString(c, "cache", tt.fromConfig); got != tt.want {
				t.Errorf("resolveString = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveInt_Precedence(t *testing.T) {
	five := 5

	c := newFlagContext(t, ResolverFlags())
	if got := resolveInt(c, "fetch-retries", nil); got != 0 {
		t.Errorf("unset = %d, want 0", got)
	}
	if got := resolveInt(c, "fetch-retries", &five); got != 5 {
		t.Errorf("config = %d, want 5", got)
	}

	c = newFlagContext(t, ResolverFlags(), "--fetch-retries", "0")
	if got := resolveInt(c, "fetch-retries", &five); got != 0 {
		t.Errorf("explicit zero flag = %d, want 0", got)
	}
}

func TestResolveBool_Precedence(t *testing.T) {
	c := newFlagContext(t, ResolverFlags())
	if resolveBool(c, "dedupe", false) {
		t.Error("unset flag and config should be false")
	}
	if !resolveBool(c, "dedupe", true) {
		t.Error("config should turn dedupe on")
	}

	c = newFlagContext(t, ResolverFlags(), "--dedupe=false")
	if resolveBool(c, "dedupe", true) {
		t.Error("explicit flag should win over config")
	}
}

func TestResolveDuration_Precedence(t *testing.T) {
	c := newFlagContext(t, ResolverFlags())
	if got := resolveDuration(c, "fetch-timeout", 3*time.Second); got != 3*time.Second {
		t.Errorf("config = %v", got)
	}
	c = newFlagContext(t, ResolverFlags(), "--fetch-timeout", "1s")
	if got := resolveDuration(c, "fetch-timeout", 3*time.Second); got != time.Second {
		t.Errorf("flag = %v", got)
	}
}

func TestBuildAdapter_Unset(t *testing.T) {
	c := newFlagContext(t, AdapterFlags())
	a, err := buildAdapter(c, &config.Config{})
	if err != nil {
		t.Fatalf("buildAdapter: %v", err)
	}
	if a != nil {
		t.Errorf("adapter = %T, want nil", a)
	}
}

func TestBuildFetcher_AFSRequiresRoot(t *testing.T) {
	c := newFlagContext(t, ResolverFlags())
	if _, err := buildFetcher(c, &config.Config{}, "afs"); err == nil {
		t.Fatal("expected error without --root")
	}
	if _, err := buildFetcher(c, &config.Config{}, "ftp"); err == nil {
		t.Fatal("expected error for unknown fetcher")
	}
}

func TestArchiveS3Config(t *testing.T) {
	c := newFlagContext(t, ArchiveFlags(), "--archive-region", "eu-west-1")
	cfg := &config.Config{Archive: config.ArchiveConfig{Endpoint: "http://minio:9000", S3PathStyle: true}}

	got := archiveS3Config(c, cfg, "my-bucket/typings/prod")
	if got.Bucket != "my-bucket" || got.Prefix != "typings/prod" {
		t.Errorf("bucket/prefix = %q/%q", got.Bucket, got.Prefix)
	}
	if got.Region != "eu-west-1" || got.Endpoint != "http://minio:9000" || !got.UsePathStyle {
		t.Errorf("s3 config = %+v", got)
	}
}
