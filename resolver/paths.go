package resolver

import (
	"path"
	"strconv"
	"strings"

	"github.com/pithecene-io/typings/log"
	"github.com/pithecene-io/typings/types"
)

// Origin names the manifest field a candidate path came from.
type Origin string

// Candidate origins, in derivation order.
const (
	OriginTypesVersions Origin = "typesVersions"
	OriginExports       Origin = "exports"
	OriginTypes         Origin = "types"
	OriginTypings       Origin = "typings"
	OriginDefault       Origin = "default"
)

// KnownSubmodules are probed under every wildcard typesVersions entry.
// Some packages ship one declaration subtree per submodule without
// listing them.
var KnownSubmodules = []string{"internal", "ajax", "operators", "testing", "webSocket", "fetch"}

// DefaultCandidates are probed for every manifest.
var DefaultCandidates = []string{"index.d.ts", "dist/index.d.ts", "dist/types/index.d.ts"}

// maxExportsDepth bounds the exports walk. Real manifests nest a handful
// of levels; deeper trees are truncated.
const maxExportsDepth = 32

// Candidate is a package-relative declaration path derived from a manifest.
type Candidate struct {
	Path   string `json:"path"`
	Origin Origin `json:"origin"`
	// Condition is the typesVersions range, or the exports condition keys
	// joined with "/", that led to Path. Empty for other origins.
	Condition string `json:"condition,omitempty"`
}

// DeriveCandidates returns the deduplicated candidate declaration paths of
// m in priority order. Paths are package-relative and normalized.
func DeriveCandidates(m *types.Manifest) []Candidate {
	return deriveCandidates(m, log.NewNop())
}

type candidateSet struct {
	seen   map[string]struct{}
	out    []Candidate
	logger *log.Logger
}

func (s *candidateSet) add(p string, origin Origin, condition string) {
	if strings.TrimSpace(p) == "" {
		return
	}
	p = cleanRel(p)
	if _, dup := s.seen[p]; dup {
		return
	}
	s.seen[p] = struct{}{}
	s.out = append(s.out, Candidate{Path: p, Origin: origin, Condition: condition})
}

func deriveCandidates(m *types.Manifest, logger *log.Logger) []Candidate {
	s := &candidateSet{seen: make(map[string]struct{}), logger: logger}
	if m == nil {
		for _, p := range DefaultCandidates {
			s.add(p, OriginDefault, "")
		}
		return s.out
	}

	s.typesVersions(m.TypesVersions)
	s.exports(m.Exports, "", 0)

	if m.Types != "" {
		s.add(m.Types, OriginTypes, "")
	}
	if m.Typings != "" {
		s.add(m.Typings, OriginTypings, "")
	}
	for _, p := range DefaultCandidates {
		s.add(p, OriginDefault, "")
	}
	return s.out
}

// typesVersions walks {range: [paths]} and {range: {pattern: [paths]}}.
func (s *candidateSet) typesVersions(tv types.Value) {
	if tv.Kind != types.KindObject {
		return
	}
	for _, rng := range tv.Keys {
		entry, _ := tv.Field(rng)
		switch entry.Kind {
		case types.KindString:
			s.versionPath(entry.Str, rng)
		case types.KindArray:
			s.versionPaths(entry, rng)
		case types.KindObject:
			for _, pattern := range entry.Keys {
				mapped, _ := entry.Field(pattern)
				switch mapped.Kind {
				case types.KindString:
					s.versionPath(mapped.Str, rng)
				case types.KindArray:
					s.versionPaths(mapped, rng)
				}
			}
		}
	}
}

func (s *candidateSet) versionPaths(list types.Value, rng string) {
	for _, item := range list.Items {
		if item.Kind == types.KindString {
			s.versionPath(item.Str, rng)
		}
	}
}

// versionPath adds p, expanding "dist/*" to dist/index.d.ts plus
// dist/<sub>/index.d.ts for each known submodule.
func (s *candidateSet) versionPath(p, rng string) {
	prefix, _, wildcard := strings.Cut(p, "*")
	if !wildcard {
		s.add(p, OriginTypesVersions, rng)
		return
	}
	s.add(path.Join(prefix, "index.d.ts"), OriginTypesVersions, rng)
	for _, sub := range KnownSubmodules {
		s.add(path.Join(prefix, sub, "index.d.ts"), OriginTypesVersions, rng)
	}
}

// exports walks the conditional-exports tree. Keys starting with "." are
// subpaths; any other key is a condition and extends the prefix.
func (s *candidateSet) exports(v types.Value, prefix string, depth int) {
	if depth > maxExportsDepth {
		s.logger.Warn("exports tree too deep, truncating", map[string]any{
			"depth":     depth,
			"condition": prefix,
		})
		return
	}

	var keys []string
	var child func(i int) types.Value
	switch v.Kind {
	case types.KindObject:
		keys = v.Keys
		child = func(i int) types.Value {
			c, _ := v.Field(keys[i])
			return c
		}
	case types.KindArray:
		keys = make([]string, len(v.Items))
		for i := range v.Items {
			keys[i] = strconv.Itoa(i)
		}
		child = func(i int) types.Value { return v.Items[i] }
	default:
		return
	}

	for i, key := range keys {
		value := child(i)
		switch value.Kind {
		case types.KindObject, types.KindArray:
			next := prefix
			if !strings.HasPrefix(key, ".") {
				next = prefix + key + "/"
			}
			if t, ok := value.StringField("types"); ok {
				s.add(t, OriginExports, strings.TrimSuffix(next, "/"))
			}
			s.exports(value, next, depth+1)
		case types.KindString:
			if key == "types" {
				s.add(value.Str, OriginExports, strings.TrimSuffix(prefix, "/"))
			}
		}
	}
}
