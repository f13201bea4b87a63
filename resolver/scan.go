package resolver

import (
	"path"
	"regexp"
	"strings"
)

// The scan is textual on purpose: it finds directive and specifier
// shapes without parsing TypeScript, so unusual syntax may be missed.
var (
	referenceRe = regexp.MustCompile(`///\s*<reference\s+path=["']([^"']+)["']\s*/>`)
	importRe    = regexp.MustCompile(`(?:import|export)\s+(?:type\s+)?(?:[\w$]+\s*,?\s*)?(?:\{[^}]*\}|\*(?:\s+as\s+[\w$]+)?)?\s*(?:from\s+)?['"]([^'"\n]+)['"]`)
)

// ScanReferences returns the targets of triple-slash reference-path
// directives in source order.
func ScanReferences(content string) []string {
	return submatches(referenceRe, content)
}

// ScanImports returns module specifiers of import and export statements
// in source order.
func ScanImports(content string) []string {
	return submatches(importRe, content)
}

func submatches(re *regexp.Regexp, content string) []string {
	matches := re.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// importTarget maps a module specifier found in dir (package-relative)
// to the package-relative declaration path it names. ok is false for
// specifiers that belong to other packages.
func importTarget(pkg, dir, specifier string) (string, bool) {
	var target string
	switch {
	case strings.HasPrefix(specifier, "."):
		target = path.Join(dir, specifier)
	case specifier == pkg:
		return StubFile, true
	case strings.HasPrefix(specifier, pkg+"/"):
		target = cleanRel(strings.TrimPrefix(specifier, pkg+"/"))
	default:
		return "", false
	}

	if target == "." || strings.HasSuffix(specifier, "/") || specifier == "." || specifier == ".." {
		return path.Join(target, StubFile), true
	}
	return declarationSuffix(target), true
}

// declarationSuffix coerces a module path to its declaration file name.
func declarationSuffix(p string) string {
	switch {
	case strings.HasSuffix(p, ".d.ts"),
		strings.HasSuffix(p, ".d.mts"),
		strings.HasSuffix(p, ".d.cts"):
		return p
	case strings.HasSuffix(p, ".mts"):
		return strings.TrimSuffix(p, ".mts") + ".d.mts"
	case strings.HasSuffix(p, ".cts"):
		return strings.TrimSuffix(p, ".cts") + ".d.cts"
	case strings.HasSuffix(p, ".ts"):
		return strings.TrimSuffix(p, ".ts") + ".d.ts"
	case strings.HasSuffix(p, ".js"):
		return strings.TrimSuffix(p, ".js") + ".d.ts"
	case strings.HasSuffix(p, ".mjs"):
		return strings.TrimSuffix(p, ".mjs") + ".d.mts"
	case strings.HasSuffix(p, ".cjs"):
		return strings.TrimSuffix(p, ".cjs") + ".d.cts"
	default:
		return p + ".d.ts"
	}
}

// cleanRel normalizes a package-relative path: "./dist/../index.d.ts"
// and "/index.d.ts" both become "index.d.ts".
func cleanRel(p string) string {
	return path.Clean(strings.TrimLeft(p, "/"))
}
