package resolver

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/pithecene-io/typings/fetch"
	"github.com/pithecene-io/typings/log"
	"github.com/pithecene-io/typings/types"
)

// visitStatus is the outcome of visiting one resource.
type visitStatus int

const (
	visitSkipped visitStatus = iota // already visited, or outside the package
	visitFailed                     // fetch failed
	visitFetched
)

// session is the state of one top-level resolve call. It is owned by
// that call and never shared.
type session struct {
	r       *Resolver
	logger  *log.Logger
	visited map[string]struct{}
	out     []types.Artifact
}

func (r *Resolver) newSession(logger *log.Logger) *session {
	return &session{
		r:       r,
		logger:  logger,
		visited: make(map[string]struct{}),
	}
}

// reset starts a fresh artifact list. The visited set is kept.
func (s *session) reset() { s.out = nil }

// mark records address as visited. It reports false if it already was.
func (s *session) mark(address string) bool {
	if _, ok := s.visited[address]; ok {
		return false
	}
	s.visited[address] = struct{}{}
	return true
}

// expandCandidate traverses the declaration graph rooted at rel and
// reports how many artifacts it appended.
func (s *session) expandCandidate(ctx context.Context, pkg, rel string) int {
	before := len(s.out)
	s.visit(ctx, pkg, rel, types.ProvenanceDeclaration)
	return len(s.out) - before
}

// visit fetches pkg/rel once per session, appends it tagged src, then
// follows its reference edges and import edges depth-first.
func (s *session) visit(ctx context.Context, pkg, rel string, src types.Provenance) visitStatus {
	rel = path.Clean(rel)
	if escapesRoot(rel) {
		s.logger.Debug("target outside package, skipped", map[string]any{
			"path":   rel,
			"source": string(src),
		})
		return visitSkipped
	}
	address := s.r.address(pkg, rel)
	if !s.mark(address) {
		return visitSkipped
	}

	data, err := s.r.fetcher.Fetch(ctx, address)
	if err != nil {
		s.r.metrics.IncFileFetchFailure()
		fields := map[string]any{
			"address": address,
			"source":  string(src),
		}
		if !errors.Is(err, fetch.ErrNotFound) {
			fields["error"] = err.Error()
		}
		s.logger.Debug("declaration fetch failed", fields)
		return visitFailed
	}
	s.r.metrics.IncFileFetchSuccess()

	content := string(data)
	s.out = append(s.out, types.Artifact{
		Content:  content,
		FilePath: s.r.logicalPath(pkg, rel),
		Source:   src,
	})

	dir := path.Dir(rel)
	for _, ref := range ScanReferences(content) {
		s.visit(ctx, pkg, path.Join(dir, ref), types.ProvenanceReference)
	}
	for _, specifier := range ScanImports(content) {
		target, ok := importTarget(pkg, dir, specifier)
		if !ok {
			continue
		}
		if s.visit(ctx, pkg, target, types.ProvenanceImport) == visitFailed {
			s.visit(ctx, pkg, path.Join("dist/types", target), types.ProvenanceImport)
		}
	}
	return visitFetched
}

// escapesRoot reports whether a cleaned relative path leaves its root.
func escapesRoot(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, "../")
}
