package resolver

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/pithecene-io/typings/types"
)

func mustManifest(t *testing.T, src string) *types.Manifest {
	t.Helper()
	m, err := types.ParseManifest([]byte(src))
	if err != nil {
		t.Fatalf("parse manifest: %v", err)
	}
	return m
}

func candidatePaths(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Path
	}
	return out
}

func TestDeriveCandidates_WildcardExpansion(t *testing.T) {
	m := mustManifest(t, `{"typesVersions": {">=4.2": {"*": ["dist/*"]}}}`)
	got := candidatePaths(DeriveCandidates(m))

	want := []string{"dist/index.d.ts"}
	for _, sub := range KnownSubmodules {
		want = append(want, "dist/"+sub+"/index.d.ts")
	}
	for _, p := range want {
		if !slices.Contains(got, p) {
			t.Errorf("missing candidate %q in %v", p, got)
		}
	}
	if got[0] != "dist/index.d.ts" {
		t.Errorf("first candidate = %q, want dist/index.d.ts", got[0])
	}
}

func TestDeriveCandidates_VersionKeyArray(t *testing.T) {
	m := mustManifest(t, `{"typeVersions": {"*": ["ts4/*", "extra.d.ts"]}}`)
	cs := DeriveCandidates(m)

	if cs[0].Path != "ts4/index.d.ts" || cs[0].Origin != OriginTypesVersions || cs[0].Condition != "*" {
		t.Errorf("first candidate = %+v", cs[0])
	}
	if !slices.Contains(candidatePaths(cs), "extra.d.ts") {
		t.Errorf("literal entry missing: %v", candidatePaths(cs))
	}
	if !slices.Contains(candidatePaths(cs), "ts4/operators/index.d.ts") {
		t.Errorf("submodule entry missing: %v", candidatePaths(cs))
	}
}

func TestDeriveCandidates_Order(t *testing.T) {
	m := mustManifest(t, `{
		"types": "./lib/index.d.ts",
		"typings": "lib/typings.d.ts",
		"exports": {
			".": {
				"import": {"types": "./esm/index.d.ts", "default": "./esm/index.js"},
				"require": {"types": "./cjs/index.d.ts"}
			},
			"./feature": {"types": "./feature.d.ts"}
		},
		"typesVersions": {"<4.0": {"*": ["legacy/types.d.ts"]}}
	}`)

	got := DeriveCandidates(m)
	want := []Candidate{
		{Path: "legacy/types.d.ts", Origin: OriginTypesVersions, Condition: "<4.0"},
		{Path: "esm/index.d.ts", Origin: OriginExports, Condition: "import"},
		{Path: "cjs/index.d.ts", Origin: OriginExports, Condition: "require"},
		{Path: "feature.d.ts", Origin: OriginExports},
		{Path: "lib/index.d.ts", Origin: OriginTypes},
		{Path: "lib/typings.d.ts", Origin: OriginTypings},
		{Path: "index.d.ts", Origin: OriginDefault},
		{Path: "dist/index.d.ts", Origin: OriginDefault},
		{Path: "dist/types/index.d.ts", Origin: OriginDefault},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("candidates:\n got  %+v\n want %+v", got, want)
	}
}

func TestDeriveCandidates_Deduplicates(t *testing.T) {
	m := mustManifest(t, `{"types": "./index.d.ts", "typings": "index.d.ts", "exports": {"types": "index.d.ts"}}`)
	got := candidatePaths(DeriveCandidates(m))

	want := []string{"index.d.ts", "dist/index.d.ts", "dist/types/index.d.ts"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDeriveCandidates_ConditionPrefix(t *testing.T) {
	m := mustManifest(t, `{"exports": {"node": {"import": {"types": "node-esm.d.ts"}}, "./sub": {"browser": {"types": "b.d.ts"}}}}`)
	cs := DeriveCandidates(m)

	if cs[0].Path != "node-esm.d.ts" || cs[0].Condition != "node/import" {
		t.Errorf("first = %+v, want node-esm.d.ts under node/import", cs[0])
	}
	if cs[1].Path != "b.d.ts" || cs[1].Condition != "browser" {
		t.Errorf("second = %+v, want b.d.ts under browser", cs[1])
	}
}

func TestDeriveCandidates_ExportsArrays(t *testing.T) {
	m := mustManifest(t, `{"exports": {".": [{"types": "first.d.ts"}, {"import": {"types": "second.d.ts"}}]}}`)
	cs := DeriveCandidates(m)

	if cs[0].Path != "first.d.ts" || cs[0].Condition != "0" {
		t.Errorf("first = %+v", cs[0])
	}
	if cs[1].Path != "second.d.ts" || cs[1].Condition != "1/import" {
		t.Errorf("second = %+v", cs[1])
	}
}

func TestDeriveCandidates_DepthBound(t *testing.T) {
	depth := maxExportsDepth + 5
	src := `{"exports": ` + strings.Repeat(`{"c": `, depth) + `{"types": "deep.d.ts"}` + strings.Repeat("}", depth) + `}`
	m := mustManifest(t, src)

	got := candidatePaths(DeriveCandidates(m))
	if slices.Contains(got, "deep.d.ts") {
		t.Error("candidate beyond the depth bound should be dropped")
	}
	if len(got) != len(DefaultCandidates) {
		t.Errorf("got %v, want only defaults", got)
	}
}

func TestDeriveCandidates_NilManifest(t *testing.T) {
	got := candidatePaths(DeriveCandidates(nil))
	if !reflect.DeepEqual(got, DefaultCandidates) {
		t.Errorf("got %v, want %v", got, DefaultCandidates)
	}
}

func TestDeriveCandidates_IgnoresNonStringTypes(t *testing.T) {
	m := mustManifest(t, `{"types": 42, "exports": {"types": ["a.d.ts"], "x": null}, "typesVersions": "bogus"}`)
	got := candidatePaths(DeriveCandidates(m))
	if !reflect.DeepEqual(got, DefaultCandidates) {
		t.Errorf("got %v, want only defaults", got)
	}
}
