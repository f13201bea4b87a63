// Package resolver assembles the closure of TypeScript declaration files
// that describe a package.
//
// Resolution tries the dedicated declarations package first
// ("@types/<name>"), then the package's own manifest. Candidate paths from
// the manifest are fetched and expanded through reference directives and
// import specifiers. When nothing can be found a stub declaring the package
// as any is returned, so Resolve never fails.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"runtime/debug"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pithecene-io/typings/cache"
	"github.com/pithecene-io/typings/fetch"
	"github.com/pithecene-io/typings/log"
	"github.com/pithecene-io/typings/metrics"
	"github.com/pithecene-io/typings/types"
)

// DefaultBaseURL is prefixed to every fetch address by default.
const DefaultBaseURL = "/node_modules"

// ManifestFile is the package manifest name.
const ManifestFile = "package.json"

// Options configures a Resolver.
type Options struct {
	// CacheEnabled toggles the result cache (nil means enabled).
	CacheEnabled *bool
	// BaseURL is prefixed to fetch addresses: a POSIX root such as
	// "/node_modules" or an absolute URL such as "https://unpkg.com".
	BaseURL string
	// PathPrefix is prefixed to the file paths reported in artifacts. It
	// does not affect fetching.
	PathPrefix string
	// Dedupe joins concurrent resolves of the same name into one.
	Dedupe bool

	// Fetcher retrieves resources (required).
	Fetcher fetch.Fetcher
	// Store holds results (default: cache.NewMemory()).
	Store cache.Store
	// Logger receives diagnostics (default: no-op).
	Logger *log.Logger
	// Metrics is optional.
	Metrics *metrics.Collector
}

// Bool returns a pointer to b, for Options.CacheEnabled.
func Bool(b bool) *bool { return &b }

// Result is a resolve outcome with bookkeeping for callers that need more
// than the artifact list.
type Result struct {
	Package   string           `json:"package"`
	Artifacts []types.Artifact `json:"artifacts"`
	// MainEntryPath is the first index declaration candidate that
	// produced content.
	MainEntryPath string `json:"mainEntryPath,omitempty"`
	// ResolvedFrom is the package whose manifest produced the result:
	// the declarations alias or the package itself. Empty on total failure.
	ResolvedFrom string `json:"resolvedFrom,omitempty"`
	// FromCache is true when the result was served from the store.
	FromCache bool `json:"fromCache"`
}

// Stub reports whether the result degraded to the default declaration.
func (r Result) Stub() bool { return types.IsStub(r.Artifacts) }

// Resolver resolves declaration closures. Safe for concurrent use; calls
// share only the Store.
type Resolver struct {
	opts    Options
	cache   bool
	origin  string
	root    string
	fetcher fetch.Fetcher
	store   cache.Store
	logger  *log.Logger
	metrics *metrics.Collector
	group   singleflight.Group
}

// New creates a Resolver. Returns an error if no Fetcher is configured.
func New(opts Options) (*Resolver, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("resolver requires a fetcher")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Store == nil {
		opts.Store = cache.NewMemory()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}

	r := &Resolver{
		opts:    opts,
		cache:   opts.CacheEnabled == nil || *opts.CacheEnabled,
		fetcher: opts.Fetcher,
		store:   opts.Store,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	r.origin, r.root = splitBase(opts.BaseURL)
	return r, nil
}

// splitBase separates scheme and host, which are kept verbatim, from the
// path root, which takes part in path normalization.
func splitBase(base string) (origin, root string) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" {
		return "", base
	}
	root = u.Path
	if root == "" {
		root = "/"
	}
	return u.Scheme + "://" + u.Host, root
}

// CacheEnabled reports whether results are cached.
func (r *Resolver) CacheEnabled() bool { return r.cache }

// Store returns the result store.
func (r *Resolver) Store() cache.Store { return r.store }

// Address returns the fetch address of a package-relative path.
func (r *Resolver) Address(pkg, rel string) string {
	return r.address(pkg, rel)
}

func (r *Resolver) address(pkg, rel string) string {
	return r.origin + path.Join(r.root, pkg, rel)
}

func (r *Resolver) logicalPath(pkg, rel string) string {
	return r.opts.PathPrefix + path.Join(pkg, rel)
}

// ClearCache empties the result store.
func (r *Resolver) ClearCache(ctx context.Context) {
	r.store.Clear(ctx)
}

// Resolve returns the declaration artifacts for name in discovery order:
// the manifest first, then each declaration file. The result is never
// empty; on total failure it holds a single default stub.
func (r *Resolver) Resolve(ctx context.Context, name string) []types.Artifact {
	return r.ResolveResult(ctx, name).Artifacts
}

// ResolveResult is Resolve with resolution bookkeeping.
// With Dedupe set, concurrent calls for the same name share the first
// caller's resolution (and its context).
func (r *Resolver) ResolveResult(ctx context.Context, name string) Result {
	if !r.opts.Dedupe {
		return r.resolve(ctx, name)
	}

	v, _, shared := r.group.Do(name, func() (any, error) {
		return r.resolve(ctx, name), nil
	})
	res := v.(Result)
	if shared {
		r.metrics.IncDedupeShared()
	}
	res.Artifacts = types.CloneArtifacts(res.Artifacts)
	return res
}

func (r *Resolver) resolve(ctx context.Context, name string) (res Result) {
	logger := r.logger.With(map[string]any{
		"session_id": uuid.NewString(),
		"package":    name,
	})
	r.metrics.IncResolveStarted()

	defer func() {
		if p := recover(); p != nil {
			logger.Error("resolve panicked, returning default declaration", map[string]any{
				"panic": fmt.Sprint(p),
				"stack": string(debug.Stack()),
			})
			res = r.stubResult(name)
		}
		r.metrics.AddArtifacts(provenances(res.Artifacts)...)
	}()

	return r.attempt(ctx, r.newSession(logger), name)
}

func (r *Resolver) attempt(ctx context.Context, s *session, name string) Result {
	if r.cache {
		if rec, ok := r.store.Get(ctx, name); ok && rec.Complete {
			r.metrics.IncCacheHit()
			s.logger.Debug("cache hit", nil)
			return Result{
				Package:       name,
				Artifacts:     rec.Artifacts,
				MainEntryPath: rec.MainEntryPath,
				ResolvedFrom:  name,
				FromCache:     true,
			}
		}
	}

	alias := AliasName(name)
	if alias != name {
		if r.cache {
			if rec, ok := r.store.Get(ctx, alias); ok && rec.Complete {
				r.metrics.IncAliasHit()
				s.logger.Debug("alias cache hit", map[string]any{"alias": alias})
				return Result{
					Package:       name,
					Artifacts:     rec.Artifacts,
					MainEntryPath: rec.MainEntryPath,
					ResolvedFrom:  alias,
					FromCache:     true,
				}
			}
			r.metrics.IncCacheMiss()
		}

		if artifacts, main, ok := r.expandPackage(ctx, s, alias); ok && len(artifacts) > 1 {
			r.remember(ctx, artifacts, main, name, alias)
			s.logger.Debug("resolved via declarations package", map[string]any{
				"alias":     alias,
				"artifacts": len(artifacts),
			})
			return Result{
				Package:       name,
				Artifacts:     artifacts,
				MainEntryPath: main,
				ResolvedFrom:  alias,
			}
		}
		s.logger.Debug("no declarations package, trying package itself", map[string]any{"alias": alias})
	} else if r.cache {
		r.metrics.IncCacheMiss()
	}

	artifacts, main, ok := r.expandPackage(ctx, s, name)
	if !ok {
		s.logger.Warn("no manifest reachable, returning default declaration", nil)
		return r.stubResult(name)
	}
	if len(artifacts) == 1 {
		r.metrics.IncStubSynthesized()
		artifacts = append(artifacts, StubArtifact(r.opts.PathPrefix, name))
	}
	r.remember(ctx, artifacts, main, name)
	return Result{
		Package:       name,
		Artifacts:     artifacts,
		MainEntryPath: main,
		ResolvedFrom:  name,
	}
}

// remember stores artifacts under each id. A canceled call may have cut
// traversal short, so its result is not stored.
func (r *Resolver) remember(ctx context.Context, artifacts []types.Artifact, mainEntry string, ids ...string) {
	if !r.cache || ctx.Err() != nil {
		return
	}
	for _, id := range ids {
		r.store.Set(ctx, id, artifacts, mainEntry)
	}
}

// expandPackage fetches pkg's manifest and traverses every candidate.
// The returned artifacts start with the manifest. ok is false when the
// manifest could not be fetched or parsed.
func (r *Resolver) expandPackage(ctx context.Context, s *session, pkg string) (artifacts []types.Artifact, mainEntry string, ok bool) {
	manifest, raw, err := r.fetchManifest(ctx, pkg)
	if err != nil {
		r.metrics.IncManifestFetchFailure()
		s.logger.Debug("manifest unavailable", map[string]any{
			"manifest": pkg,
			"error":    err.Error(),
		})
		return nil, "", false
	}
	r.metrics.IncManifestFetchSuccess()

	s.reset()
	s.out = append(s.out, types.Artifact{
		Content:  raw,
		FilePath: r.logicalPath(pkg, ManifestFile),
		Source:   types.ProvenanceManifest,
	})

	for _, c := range deriveCandidates(manifest, s.logger) {
		if err := ctx.Err(); err != nil {
			s.logger.Debug("context done, stopping traversal", map[string]any{"error": err.Error()})
			break
		}
		n := s.expandCandidate(ctx, pkg, c.Path)
		// Exact base name: "myindex.d.ts" is not an index entry.
		if n > 0 && mainEntry == "" && path.Base(c.Path) == StubFile {
			mainEntry = c.Path
		}
	}
	return s.out, mainEntry, true
}

// fetchManifest returns the parsed manifest and its compacted JSON text.
func (r *Resolver) fetchManifest(ctx context.Context, pkg string) (*types.Manifest, string, error) {
	data, err := r.fetcher.Fetch(ctx, r.address(pkg, ManifestFile))
	if err != nil {
		return nil, "", err
	}
	m, err := types.ParseManifest(data)
	if err != nil {
		return nil, "", err
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, "", fmt.Errorf("compact manifest: %w", err)
	}
	return m, compact.String(), nil
}

// Candidates fetches pkg's manifest and returns its derived candidate
// paths without traversing them.
func (r *Resolver) Candidates(ctx context.Context, pkg string) ([]Candidate, error) {
	m, _, err := r.fetchManifest(ctx, pkg)
	if err != nil {
		return nil, fmt.Errorf("manifest for %s: %w", pkg, err)
	}
	return deriveCandidates(m, r.logger), nil
}

func (r *Resolver) stubResult(name string) Result {
	r.metrics.IncStubSynthesized()
	return Result{
		Package:   name,
		Artifacts: []types.Artifact{StubArtifact(r.opts.PathPrefix, name)},
	}
}

func provenances(artifacts []types.Artifact) []string {
	out := make([]string, len(artifacts))
	for i, a := range artifacts {
		out[i] = string(a.Source)
	}
	return out
}
