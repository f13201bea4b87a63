//nolint:revive // types is a common Go package naming convention
package types

import "fmt"

// Provenance classifies how an artifact was discovered.
type Provenance string

// Provenance values. The string forms are part of the output contract.
const (
	// ProvenanceManifest marks the package.json of the resolved package.
	ProvenanceManifest Provenance = "package.json"
	// ProvenanceDeclaration marks a file reached from a derived candidate path.
	ProvenanceDeclaration Provenance = "backend"
	// ProvenanceDefault marks the synthesized fallback declaration.
	ProvenanceDefault Provenance = "default"
	// ProvenanceReference marks a file reached via a triple-slash reference directive.
	ProvenanceReference Provenance = "reference"
	// ProvenanceImport marks a file reached via an import/export specifier.
	ProvenanceImport Provenance = "import"
)

// AllProvenances lists every provenance in discovery-precedence order.
func AllProvenances() []Provenance {
	return []Provenance{
		ProvenanceManifest,
		ProvenanceDeclaration,
		ProvenanceReference,
		ProvenanceImport,
		ProvenanceDefault,
	}
}

// ParseProvenance converts a string to a Provenance.
func ParseProvenance(s string) (Provenance, error) {
	for _, p := range AllProvenances() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provenance %q", s)
}

// Artifact is one resolved file. Values are immutable once created;
// callers receive copies.
type Artifact struct {
	// Content is the raw file text.
	Content string `json:"content" msgpack:"content"`
	// FilePath is the logical path: path prefix + package name + relative path.
	FilePath string `json:"filePath" msgpack:"file_path"`
	// Source is the provenance tag.
	Source Provenance `json:"source" msgpack:"source"`
}

// Record is a stored resolution result.
type Record struct {
	Artifacts []Artifact `json:"artifacts" msgpack:"artifacts"`
	// MainEntryPath is the first index declaration candidate that produced
	// content, relative to the package root. Empty when none did.
	MainEntryPath string `json:"mainEntryPath,omitempty" msgpack:"main_entry_path,omitempty"`
	// Complete marks the record as a definitive answer.
	Complete bool `json:"complete" msgpack:"complete"`
}

// CloneArtifacts returns a copy of the slice so callers cannot mutate
// cached state.
func CloneArtifacts(in []Artifact) []Artifact {
	if in == nil {
		return nil
	}
	out := make([]Artifact, len(in))
	copy(out, in)
	return out
}

// CountByProvenance tallies artifacts per provenance tag.
func CountByProvenance(artifacts []Artifact) map[Provenance]int {
	counts := make(map[Provenance]int, len(artifacts))
	for _, a := range artifacts {
		counts[a.Source]++
	}
	return counts
}

// IsStub reports whether the result degraded to the synthesized default.
func IsStub(artifacts []Artifact) bool {
	for _, a := range artifacts {
		if a.Source != ProvenanceDefault {
			return false
		}
	}
	return len(artifacts) > 0
}
